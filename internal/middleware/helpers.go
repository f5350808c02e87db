// internal/middleware/helpers.go
package middleware

import (
	"academy-service/internal/domain/auth"

	"github.com/gin-gonic/gin"
)

// GetAuthUser returns the user set by RequireTab
func GetAuthUser(c *gin.Context) (*auth.AuthUser, bool) {
	v, exists := c.Get(ctxAuthUser)
	if !exists {
		return nil, false
	}
	user, ok := v.(*auth.AuthUser)
	return user, ok && user != nil
}

// MustGetAuthUser gets the user from context or panics
func MustGetAuthUser(c *gin.Context) *auth.AuthUser {
	user, exists := GetAuthUser(c)
	if !exists {
		panic("auth_user not found in context")
	}
	return user
}
