// internal/middleware/auth_middleware.go
package middleware

import (
	"context"
	"net/http"

	"academy-service/internal/domain/auth"
	xerrors "academy-service/internal/pkg/errors"
	"academy-service/internal/pkg/provider"
	"academy-service/internal/pkg/response"
	"academy-service/internal/pkg/session"

	"github.com/gin-gonic/gin"
)

// StatusResolver resolves the authenticated user of a tab
type StatusResolver interface {
	Status(ctx context.Context, tab *session.Manager, globalToken string) (*auth.AuthUser, error)
}

type AuthMiddleware struct {
	status StatusResolver
}

func NewAuthMiddleware(status StatusResolver) *AuthMiddleware {
	return &AuthMiddleware{status: status}
}

// RequireTab guards a route with the calling tab's session. With no roles
// any authenticated tab passes. MUST be used after TabMiddleware.Context().
func (m *AuthMiddleware) RequireTab(roles ...auth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := m.status.Status(c.Request.Context(), TabManager(c), GlobalProviderToken(c))
		if err != nil {
			response.Error(c, http.StatusServiceUnavailable, "failed to load session", err)
			return
		}
		if user == nil {
			// a tab that presented a token had a session that is now gone
			cause := xerrors.ErrUnauthorized
			if c.GetHeader(session.HeaderTabSession) != "" {
				cause = xerrors.ErrSessionExpired
			}
			response.Error(c, http.StatusUnauthorized, "authentication required", cause,
				gin.H{"redirect_to": "/login"})
			return
		}

		if len(roles) > 0 && !hasAnyRole(user.Role, roles) {
			response.Error(c, http.StatusForbidden, "insufficient permissions", xerrors.ErrForbidden, gin.H{
				"required_roles": roles,
				"role":           user.Role,
				"redirect_to":    auth.RedirectFor(user.Role),
			})
			return
		}

		c.Set(ctxAuthUser, user)
		c.Next()
	}
}

// StudentOnly, SupervisorOnly and AdminOnly are the role guards of the dashboards
func (m *AuthMiddleware) StudentOnly() gin.HandlerFunc { return m.RequireTab(auth.RoleStudent) }

func (m *AuthMiddleware) SupervisorOnly() gin.HandlerFunc { return m.RequireTab(auth.RoleSupervisor) }

func (m *AuthMiddleware) AdminOnly() gin.HandlerFunc { return m.RequireTab(auth.RoleAdmin) }

func hasAnyRole(role auth.Role, allowed []auth.Role) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

// GlobalProviderToken reads the provider's browser-wide session cookie
func GlobalProviderToken(c *gin.Context) string {
	token, err := c.Cookie(provider.GlobalSessionCookie)
	if err != nil {
		return ""
	}
	return token
}
