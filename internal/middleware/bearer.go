package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-professor-gateway/internal/tokenstore"
	appErrors "github.com/noah-isme/sma-professor-gateway/pkg/errors"
	"github.com/noah-isme/sma-professor-gateway/pkg/response"
)

// ForwardBearer attaches the caller's bearer token to the request context so
// the request token store forwards it to the professor backend. Requests
// without an Authorization header fall through to the configured fallback.
func ForwardBearer() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}

		ctx := tokenstore.WithToken(c.Request.Context(), strings.TrimSpace(parts[1]))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
