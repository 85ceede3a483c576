package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/anonmsg/internal/pkg/jwt"
	"github.com/xxxsen/anonmsg/internal/pkg/response"
)

const (
	ContextUserIDKey = "user_id"
	ContextClaimsKey = "session_claims"
	SessionCookie    = "session_token"
)

type SessionParser interface {
	ParseSession(token string) (*jwt.Claims, error)
}

// SessionAuth accepts a bearer token or the session cookie.
func SessionAuth(parser SessionParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			token, _ = c.Cookie(SessionCookie)
		}
		if token == "" {
			response.Fail(c, http.StatusUnauthorized, "Not Authenticated", nil)
			c.Abort()
			return
		}
		claims, err := parser.ParseSession(token)
		if err != nil {
			response.Fail(c, http.StatusUnauthorized, "Not Authenticated", nil)
			c.Abort()
			return
		}
		c.Set(ContextUserIDKey, claims.UserID)
		c.Set(ContextClaimsKey, claims)
		c.Next()
	}
}

func bearerToken(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func Claims(c *gin.Context) *jwt.Claims {
	v, ok := c.Get(ContextClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*jwt.Claims)
	return claims
}
