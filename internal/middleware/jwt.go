package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/college-erp-api/internal/models"
	"github.com/noah-isme/college-erp-api/internal/service"
	appErrors "github.com/noah-isme/college-erp-api/pkg/errors"
	"github.com/noah-isme/college-erp-api/pkg/response"
)

// ContextPrincipalKey is the gin context key storing JWT claims.
const ContextPrincipalKey = "currentPrincipal"

// AccessTokenCookie is the cookie the browser portals authenticate with.
const AccessTokenCookie = "access_token"

// Authenticate protects a portal's routes. The token may arrive as the
// access_token cookie or a Bearer header; it must have been minted for this
// portal's kind, and its subject must still exist in that portal's store.
func Authenticate(authService *service.AuthService, kind models.PrincipalKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "missing access token"))
			c.Abort()
			return
		}

		claims, err := authService.VerifyAccess(token, kind)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		if _, err := authService.LookupPrincipal(c.Request.Context(), kind, claims.PrincipalID); err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextPrincipalKey, claims)
		c.Next()
	}
}

func extractToken(c *gin.Context) string {
	if cookie, err := c.Cookie(AccessTokenCookie); err == nil && cookie != "" {
		return cookie
	}
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
