// internal/pkg/session/tab_storage.go
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"academy-service/internal/domain/auth"
)

// Headers a tab uses to carry its own storage across requests.
const (
	HeaderTabID      = "X-Tab-ID"
	HeaderTabSession = "X-Tab-Session"
	// HeaderTabClear lists which of the above the tab must drop ("id", "session").
	HeaderTabClear = "X-Tab-Clear"
)

// TabStorage is the request-scoped view of a tab's own storage. The tab
// sends its id and signed session token with each request; changes are
// written back as response headers.
type TabStorage struct {
	mu     sync.Mutex
	codec  TokenCodec
	values map[string]string
	dirty  map[string]bool
}

// NewTabStorage seeds the storage from request values. A token that does
// not verify, or that was issued to a different tab, is ignored.
func NewTabStorage(tabID, token string, codec TokenCodec) *TabStorage {
	s := &TabStorage{
		codec:  codec,
		values: make(map[string]string),
		dirty:  make(map[string]bool),
	}
	if tabID == "" {
		return s
	}
	s.values[TabIDKey] = tabID

	if token == "" || codec == nil {
		return s
	}
	owner, user, err := codec.Decode(token)
	if err != nil || owner != tabID || user == nil {
		return s
	}
	if data, err := json.Marshal(user); err == nil {
		s.values[UserKey] = string(data)
	}
	return s
}

func (s *TabStorage) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *TabStorage) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	s.dirty[key] = true
	return nil
}

func (s *TabStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	s.dirty[key] = true
	return nil
}

// Dirty reports whether anything changed since the last WriteHeaders.
func (s *TabStorage) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.dirty) > 0
}

// WriteHeaders puts pending changes on h. A session is always re-signed
// when the tab id changed so the token stays bound to the current id.
func (s *TabStorage) WriteHeaders(h http.Header) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.dirty) == 0 {
		return nil
	}
	defer func() { s.dirty = make(map[string]bool) }()

	var drop []string
	tabID, hasTab := s.values[TabIDKey]

	if s.dirty[TabIDKey] {
		if hasTab {
			h.Set(HeaderTabID, tabID)
		} else {
			drop = append(drop, "id")
		}
	}

	rawUser, hasUser := s.values[UserKey]
	if s.dirty[UserKey] || (s.dirty[TabIDKey] && hasUser) {
		if hasUser && hasTab {
			var user auth.AuthUser
			if err := json.Unmarshal([]byte(rawUser), &user); err != nil {
				return fmt.Errorf("failed to decode tab user: %w", err)
			}
			if s.codec == nil {
				return fmt.Errorf("tab storage has no token codec")
			}
			token, err := s.codec.Encode(tabID, &user)
			if err != nil {
				return fmt.Errorf("failed to sign tab session: %w", err)
			}
			h.Set(HeaderTabSession, token)
		} else {
			drop = append(drop, "session")
		}
	}

	if len(drop) > 0 {
		h.Set(HeaderTabClear, strings.Join(drop, ","))
	}
	return nil
}
