// internal/domain/auth/entity.go
package auth

import "time"

// Role is the identity space a user authenticated against
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleStudent    Role = "student"
	RoleSupervisor Role = "supervisor"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleStudent, RoleSupervisor:
		return true
	}
	return false
}

// RedirectFor returns the dashboard path for a role
func RedirectFor(role Role) string {
	switch role {
	case RoleStudent:
		return "/student-dashboard"
	case RoleSupervisor:
		return "/supervisor-dashboard"
	case RoleAdmin:
		return "/admin-dashboard"
	default:
		return "/login"
	}
}

// AuthUser is the normalized identity produced by a successful login.
// It is never mutated after creation; a new login replaces it.
type AuthUser struct {
	ID             int64  `json:"id"`
	Email          string `json:"email"`
	Role           Role   `json:"role"`
	Name           string `json:"name,omitempty"`
	RegisterNo     string `json:"register_no,omitempty"`
	ProviderUserID string `json:"provider_user_id,omitempty"`
}

// CredentialRecord is a student or supervisor login row joined to its profile
type CredentialRecord struct {
	ID           int64  `db:"id"` // profile id (students.id / supervisors.id)
	Email        string `db:"email"`
	PasswordHash string `db:"password"`
	Name         string `db:"name"`
	RegisterNo   string `db:"register_no"`
}

// RoleGrant is a row of the authorization table for provider-backed users
type RoleGrant struct {
	ID     int64  `json:"id" db:"id"`
	UserID string `json:"user_id" db:"user_id"`
	Role   Role   `json:"role" db:"role"`
}

// TabEntry is the durable, browser-wide copy of a tab's session
type TabEntry struct {
	TabID      string     `json:"tab_id"`
	User       AuthUser   `json:"user"`
	Timestamp  time.Time  `json:"timestamp"`
	LastActive time.Time  `json:"last_active"`
	Closed     bool       `json:"closed,omitempty"`
	ClosedAt   *time.Time `json:"closed_at,omitempty"`
}

// ProviderUser is the principal returned by the external identity provider
type ProviderUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
}

// ProviderSession is the identity provider's own session object.
// It is stored and restored as-is.
type ProviderSession struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int          `json:"expires_in"`
	ExpiresAt    int64        `json:"expires_at"`
	User         ProviderUser `json:"user"`
}
