package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/qrmesa/mesa-orders/utils"
)

type TokenController struct {
	Secret []byte
}

func NewTokenController(secret []byte) *TokenController {
	return &TokenController{Secret: secret}
}

// ValidateToken lets the client check a scanned QR token before it
// starts a session. Purely advisory; every write endpoint re-verifies.
func (tc *TokenController) ValidateToken(c *gin.Context) {
	var body struct {
		Token string `json:"token"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Token == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"valid": false,
			"error": "Token is required",
		})
		return
	}

	claims, err := utils.VerifyTableToken(body.Token, tc.Secret)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"valid": false,
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":   true,
		"payload": claims,
	})
}
