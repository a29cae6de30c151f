package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"sos-service/helper"
	"sos-service/pkg/constants"
)

// Secured guards operator-console endpoints with a bearer token signed
// with the configured service secret.
func Secured(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			helper.SendError(c, http.StatusUnauthorized, fmt.Errorf("missing bearer token"), helper.ErrUnauthorized)
			c.Abort()
			return
		}
		raw := strings.TrimPrefix(auth, "Bearer ")

		token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			helper.SendError(c, http.StatusUnauthorized, fmt.Errorf("invalid token"), helper.ErrUnauthorized)
			c.Abort()
			return
		}

		c.Set(constants.Token, raw)
		c.Next()
	}
}
