// internal/pkg/provider/provider.go
package provider

import (
	"context"
	"errors"

	"academy-service/internal/domain/auth"
)

var (
	// ErrInvalidCredentials is returned when the provider rejects an email/password pair.
	ErrInvalidCredentials = errors.New("provider rejected credentials")
	// ErrNoSession is returned by calls that need a signed-in client.
	ErrNoSession = errors.New("provider client has no session")
)

// Client is a handle to the external identity provider. Each client owns
// at most one provider session; clients never share session state.
type Client interface {
	SignInWithPassword(ctx context.Context, email, password string) (*auth.ProviderSession, error)
	// SignOut ends the client's session. Signing out a client without a
	// session is a no-op.
	SignOut(ctx context.Context) error
	Session() *auth.ProviderSession
	SetSession(ps *auth.ProviderSession)
	GetUser(ctx context.Context, accessToken string) (*auth.ProviderUser, error)
}

// Factory builds isolated clients, one per tab.
type Factory interface {
	NewClient() Client
}
