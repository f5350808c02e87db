// internal/pkg/session/types.go
package session

import (
	"context"

	"academy-service/internal/domain/auth"
)

// Storage is the volatile key-value area owned by a single tab.
// Get reports ok=false for a missing key.
type Storage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// DurableMap is the browser-wide map shared by every tab of one browser
// profile, keyed by tab id. Get returns (nil, nil) when nothing is stored.
type DurableMap interface {
	Get(ctx context.Context, tabID string) (*auth.TabEntry, error)
	Put(ctx context.Context, entry *auth.TabEntry) error
	Delete(ctx context.Context, tabID string) error
	List(ctx context.Context) ([]*auth.TabEntry, error)

	GetProvider(ctx context.Context, tabID string) (*auth.ProviderSession, error)
	PutProvider(ctx context.Context, tabID string, ps *auth.ProviderSession) error
	DeleteProvider(ctx context.Context, tabID string) error
}

// DurableStore hands out the durable map of one browser profile.
type DurableStore interface {
	ForBrowser(browserID string) DurableMap
}

// TokenCodec signs and verifies the tab-bound copy of an AuthUser
type TokenCodec interface {
	Encode(tabID string, user *auth.AuthUser) (string, error)
	Decode(token string) (tabID string, user *auth.AuthUser, err error)
}
