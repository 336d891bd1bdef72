package api

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/victornm/millionaire/internal/errors"
)

const userIDKey = "user_id"

// Authenticate accepts requests carrying an HS256 bearer token signed with secret. The token
// subject is the acting user.
func Authenticate(secret []byte) gin.HandlerFunc {
	keyFunc := func(*jwt.Token) (any, error) { return secret, nil }

	return func(c *gin.Context) {
		raw, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || raw == "" {
			abort(c, errors.New(errors.CodeUnauthenticated, errors.WithMessagef("missing bearer token")))
			return
		}

		var claims jwt.RegisteredClaims
		_, err := jwt.ParseWithClaims(raw, &claims, keyFunc, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			abort(c, errors.New(errors.CodeUnauthenticated,
				errors.WithMessagef("invalid bearer token"),
				errors.WithCause(err),
			))
			return
		}

		if claims.Subject == "" {
			abort(c, errors.New(errors.CodeUnauthenticated, errors.WithMessagef("bearer token has no subject")))
			return
		}

		c.Set(userIDKey, claims.Subject)
		c.Next()
	}
}

// IssueToken signs a token for userID valid for ttl.
func IssueToken(secret []byte, userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})

	return t.SignedString(secret)
}

func userID(c *gin.Context) string {
	return c.GetString(userIDKey)
}
