package services

import (
	"errors"
	"net/http"

	"github.com/qrmesa/mesa-orders/utils"
)

var (
	ErrNoToken       = errors.New("missing table token")
	ErrTableMismatch = errors.New("table number mismatch")
)

// GuardResult carries the session metadata attached to a request once
// it has been authorized.
type GuardResult struct {
	TableID   string
	OrderType string
	Claims    *utils.TableClaims
	DevMode   bool
}

type GuardError struct {
	Status int
	Reason error
}

func (e *GuardError) Error() string {
	return e.Reason.Error()
}

// SessionGuard is the authorization gate in front of every
// state-changing endpoint. Construct it once from config and inject
// it; it holds no per-request state.
type SessionGuard struct {
	Secret     []byte
	RequireJWT bool
}

func NewSessionGuard(secret []byte, requireJWT bool) *SessionGuard {
	return &SessionGuard{Secret: secret, RequireJWT: requireJWT}
}

// Authorize validates the session token and, when the request carries
// its own table identifier, cross-checks it against the token's
// table_id so a valid token for table A cannot be replayed against
// table B.
func (g *SessionGuard) Authorize(tokenString, requestTable string) (*GuardResult, *GuardError) {
	if tokenString == "" {
		if g.RequireJWT {
			return nil, &GuardError{Status: http.StatusUnauthorized, Reason: ErrNoToken}
		}
		// Dev-mode bypass: the table comes straight from the request
		// with no cryptographic guarantee. Local development only.
		utils.ErrorLogger.Warnf("Request authorized without token (REQUIRE_JWT=false, development mode)")
		return &GuardResult{
			TableID:   requestTable,
			OrderType: utils.OrderTypeRestaurant,
			DevMode:   true,
		}, nil
	}

	claims, err := utils.VerifyTableToken(tokenString, g.Secret)
	if err != nil {
		return nil, &GuardError{Status: http.StatusUnauthorized, Reason: err}
	}

	if requestTable != "" && requestTable != claims.TableID.String() {
		utils.ErrorLogger.Warnf("Table mismatch: token is for table %s, request is for table %s",
			claims.TableID, requestTable)
		return nil, &GuardError{Status: http.StatusForbidden, Reason: ErrTableMismatch}
	}

	orderType := claims.OrderType
	if orderType == "" {
		orderType = utils.OrderTypeRestaurant
	}

	return &GuardResult{
		TableID:   claims.TableID.String(),
		OrderType: orderType,
		Claims:    claims,
	}, nil
}
