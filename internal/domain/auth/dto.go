// internal/domain/auth/dto.go
package auth

// Credentials is what a user types into the login form
type Credentials struct {
	Email    string
	Password string
}

// LoginRequest for the login endpoint
type LoginRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required"`
	IPAddress string `json:"-"`
	UserAgent string `json:"-"`
}

// Credentials returns the credential part of the request
func (r *LoginRequest) Credentials() Credentials {
	return Credentials{Email: r.Email, Password: r.Password}
}

// LoginResult is returned on successful authentication
type LoginResult struct {
	Success    bool      `json:"success"`
	User       *AuthUser `json:"user"`
	RedirectTo string    `json:"redirectTo"`
	TabID      string    `json:"tab_id,omitempty"`
}

// StatusResponse describes the current tab's identity
type StatusResponse struct {
	Authenticated bool      `json:"authenticated"`
	User          *AuthUser `json:"user,omitempty"`
	RedirectTo    string    `json:"redirect_to"`
}
