// internal/pkg/jwt/claims.go
package jwt

import (
	"academy-service/internal/domain/auth"

	"github.com/golang-jwt/jwt/v5"
)

const purposeTabSession = "tab_session"

// Claims carries a tab's AuthUser. The token is bound to one tab id and is
// only accepted together with that id.
type Claims struct {
	TabID          string        `json:"tab_id"`
	User           auth.AuthUser `json:"user"`
	SessionPurpose string        `json:"session_purpose"`
	jwt.RegisteredClaims
}

// VerifyAudience checks if the expected audience is listed in the claims.
func (c *Claims) VerifyAudience(audience string, required bool) bool {
	if len(c.Audience) == 0 {
		return !required
	}

	for _, aud := range c.Audience {
		if aud == audience {
			return true
		}
	}

	return false
}
