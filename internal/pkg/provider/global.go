package provider

import (
	"context"
	"errors"

	"academy-service/internal/domain/auth"
)

// GlobalSessionCookie holds the provider's browser-wide access token,
// shared by every tab.
const GlobalSessionCookie = "academy_provider_token"

// GlobalSession resolves the browser-wide provider session to its user.
// Returns (nil, nil) when there is no token or the provider no longer
// accepts it.
func GlobalSession(ctx context.Context, f Factory, accessToken string) (*auth.ProviderUser, error) {
	if accessToken == "" || f == nil {
		return nil, nil
	}
	user, err := f.NewClient().GetUser(ctx, accessToken)
	if errors.Is(err, ErrNoSession) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}
