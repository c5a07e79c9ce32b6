package utils

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Order types carried in table session tokens.
const (
	OrderTypeRestaurant = "R"
	OrderTypeOnline     = "O"
	OrderTypeCamarero   = "C"
)

// IssuedAtSkew is the tolerated clock drift for the iat claim.
const IssuedAtSkew = 60 * time.Second

var (
	ErrMalformedToken      = errors.New("invalid token format")
	ErrSignatureMismatch   = errors.New("invalid signature - token has been tampered with")
	ErrTokenExpired        = errors.New("token expired")
	ErrIssuedInFuture      = errors.New("token issued in future")
	ErrServerMisconfigured = errors.New("server configuration error")
)

// TableID accepts both string and numeric JSON encodings; token
// issuers have historically emitted either.
type TableID string

func (t *TableID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*t = TableID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*t = TableID(n.String())
	return nil
}

func (t TableID) String() string {
	return string(t)
}

// TableClaims binds a physical table to an ordering session.
type TableClaims struct {
	TableID   TableID `json:"table_id"`
	OrderType string  `json:"order_type"`
	jwt.RegisteredClaims
}

// GenerateTableToken signs a table session token. Issuance normally
// lives in the QR worker; this mirrors it for tests and local tooling.
func GenerateTableToken(tableID, orderType string, ttl time.Duration, secret []byte) (string, error) {
	now := time.Now()
	claims := &TableClaims{
		TableID:   TableID(tableID),
		OrderType: orderType,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// DecodeTableToken reads the claims without verifying the signature.
// Safe for diagnostics only; never use it to authorize anything.
func DecodeTableToken(tokenString string) (*TableClaims, bool) {
	claims := &TableClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
		return nil, false
	}
	return claims, true
}

// VerifyTableToken checks the HMAC-SHA-256 signature and the validity
// window. A token is accepted while now is within [iat-60s, exp].
func VerifyTableToken(tokenString string, secret []byte) (*TableClaims, error) {
	if len(secret) == 0 {
		return nil, ErrServerMisconfigured
	}

	claims := &TableClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithoutClaimsValidation())

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrSignatureMismatch
		default:
			return nil, ErrMalformedToken
		}
	}

	now := time.Now()
	if claims.ExpiresAt != nil && now.After(claims.ExpiresAt.Time) {
		return nil, ErrTokenExpired
	}
	if claims.IssuedAt != nil && claims.IssuedAt.Time.After(now.Add(IssuedAtSkew)) {
		return nil, ErrIssuedInFuture
	}

	return claims, nil
}
