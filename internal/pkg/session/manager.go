// internal/pkg/session/manager.go
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"academy-service/internal/domain/auth"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// Keys used inside a tab's own storage
const (
	TabIDKey = "academy_tab_id"
	UserKey  = "academy_user_session"
)

const (
	DefaultMaxIdle     = 24 * time.Hour
	DefaultClosedGrace = time.Hour
)

type Options struct {
	MaxIdle     time.Duration
	ClosedGrace time.Duration
	Now         func() time.Time
	NewID       func() string
	Logger      *zap.Logger
}

// Manager is the session view of a single tab. The fast path lives in the
// tab's own storage; the durable map is only used for recovery and
// bookkeeping. A Manager without tab storage does nothing.
type Manager struct {
	tab         Storage
	durable     DurableMap
	maxIdle     time.Duration
	closedGrace time.Duration
	now         func() time.Time
	newID       func() string
	logger      *zap.Logger
}

func NewManager(tab Storage, durable DurableMap, opts Options) *Manager {
	m := &Manager{
		tab:         tab,
		durable:     durable,
		maxIdle:     opts.MaxIdle,
		closedGrace: opts.ClosedGrace,
		now:         opts.Now,
		newID:       opts.NewID,
		logger:      opts.Logger,
	}
	if m.maxIdle <= 0 {
		m.maxIdle = DefaultMaxIdle
	}
	if m.closedGrace <= 0 {
		m.closedGrace = DefaultClosedGrace
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.newID == nil {
		m.newID = func() string { return ulid.Make().String() }
	}
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	return m
}

// TabID returns the tab's id, generating one on first use.
func (m *Manager) TabID(ctx context.Context) (string, error) {
	if m.tab == nil {
		return "", nil
	}
	id, err := m.CurrentTabID(ctx)
	if err != nil || id != "" {
		return id, err
	}

	id = m.newID()
	if err := m.tab.Set(ctx, TabIDKey, id); err != nil {
		return "", fmt.Errorf("failed to store tab id: %w", err)
	}
	return id, nil
}

// CurrentTabID returns the tab's id without creating one.
func (m *Manager) CurrentTabID(ctx context.Context) (string, error) {
	if m.tab == nil {
		return "", nil
	}
	id, ok, err := m.tab.Get(ctx, TabIDKey)
	if err != nil {
		return "", fmt.Errorf("failed to read tab id: %w", err)
	}
	if !ok {
		return "", nil
	}
	return id, nil
}

// SetUser makes user the tab's session, replacing whatever was there.
// With a durable map configured the durable entry is what keeps the
// session alive, so failing to write it fails the login.
func (m *Manager) SetUser(ctx context.Context, user *auth.AuthUser) error {
	if m.tab == nil {
		return nil
	}
	if user == nil {
		return fmt.Errorf("session user is nil")
	}

	tabID, err := m.TabID(ctx)
	if err != nil {
		return err
	}

	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal session user: %w", err)
	}
	if err := m.tab.Set(ctx, UserKey, string(data)); err != nil {
		return fmt.Errorf("failed to store session user: %w", err)
	}

	if m.durable == nil {
		return nil
	}

	now := m.now()
	entry := &auth.TabEntry{
		TabID:      tabID,
		User:       *user,
		Timestamp:  now,
		LastActive: now,
	}
	if err := m.durable.Put(ctx, entry); err != nil {
		_ = m.tab.Delete(ctx, UserKey)
		return fmt.Errorf("failed to persist tab session: %w", err)
	}

	if removed, err := m.Cleanup(ctx); err != nil {
		m.logger.Warn("tab session cleanup failed", zap.Error(err))
	} else if removed > 0 {
		m.logger.Debug("pruned tab sessions", zap.Int("removed", removed))
	}
	return nil
}

// GetUser returns the tab's user or nil. When the fast path is gone the
// session is recovered from the durable map by tab id and the fast path is
// re-seeded. Every hit refreshes the entry's last activity.
//
// With a durable map configured a fast-path copy is only trusted while the
// tab's durable entry exists and has not expired. Logout, cleanup and TTL
// expiry all remove that entry, which revokes tokens still held by the tab.
func (m *Manager) GetUser(ctx context.Context) (*auth.AuthUser, error) {
	if m.tab == nil {
		return nil, nil
	}

	raw, ok, err := m.tab.Get(ctx, UserKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read session user: %w", err)
	}
	if ok {
		var user auth.AuthUser
		if err := json.Unmarshal([]byte(raw), &user); err == nil {
			return m.touch(ctx, &user)
		}
		_ = m.tab.Delete(ctx, UserKey)
	}

	return m.recover(ctx)
}

func (m *Manager) recover(ctx context.Context) (*auth.AuthUser, error) {
	if m.durable == nil {
		return nil, nil
	}
	tabID, err := m.CurrentTabID(ctx)
	if err != nil || tabID == "" {
		return nil, err
	}

	entry, err := m.live(ctx, tabID)
	if err != nil || entry == nil {
		return nil, err
	}

	data, err := json.Marshal(entry.User)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session user: %w", err)
	}
	if err := m.tab.Set(ctx, UserKey, string(data)); err != nil {
		return nil, fmt.Errorf("failed to re-seed session user: %w", err)
	}

	m.reopen(entry)
	if err := m.durable.Put(ctx, entry); err != nil {
		m.logger.Warn("failed to refresh tab session", zap.String("tab_id", tabID), zap.Error(err))
	}

	user := entry.User
	return &user, nil
}

// touch checks a fast-path hit against the durable entry and refreshes it.
// A missing or expired entry means the session was ended elsewhere: the
// fast-path copy is dropped and nil is returned.
func (m *Manager) touch(ctx context.Context, user *auth.AuthUser) (*auth.AuthUser, error) {
	if m.durable == nil {
		return user, nil
	}
	tabID, err := m.CurrentTabID(ctx)
	if err != nil {
		return nil, err
	}
	if tabID == "" {
		_ = m.tab.Delete(ctx, UserKey)
		return nil, nil
	}

	entry, err := m.live(ctx, tabID)
	if err != nil {
		return nil, err
	}
	if entry == nil || entry.User.ID != user.ID || entry.User.Role != user.Role {
		m.logger.Debug("revoked tab session presented", zap.String("tab_id", tabID))
		_ = m.tab.Delete(ctx, UserKey)
		return nil, nil
	}

	m.reopen(entry)
	if err := m.durable.Put(ctx, entry); err != nil {
		m.logger.Warn("failed to refresh tab session", zap.String("tab_id", tabID), zap.Error(err))
	}
	return user, nil
}

// live returns the tab's durable entry, or nil when it is missing or past
// its idle or closed window. Expired entries are removed on the way.
func (m *Manager) live(ctx context.Context, tabID string) (*auth.TabEntry, error) {
	entry, err := m.durable.Get(ctx, tabID)
	if err != nil {
		return nil, fmt.Errorf("failed to read tab session: %w", err)
	}
	if entry == nil {
		return nil, nil
	}
	if m.expired(entry, m.now()) {
		if err := m.durable.Delete(ctx, tabID); err != nil {
			m.logger.Warn("failed to drop expired tab session", zap.String("tab_id", tabID), zap.Error(err))
		}
		if err := m.durable.DeleteProvider(ctx, tabID); err != nil {
			m.logger.Warn("failed to drop expired provider session", zap.String("tab_id", tabID), zap.Error(err))
		}
		return nil, nil
	}
	return entry, nil
}

func (m *Manager) reopen(entry *auth.TabEntry) {
	entry.LastActive = m.now()
	entry.Closed = false
	entry.ClosedAt = nil
}

// Clear logs the tab out: its session, its id, its durable entry and any
// provider session recorded for it are removed.
func (m *Manager) Clear(ctx context.Context) error {
	if m.tab == nil {
		return nil
	}
	tabID, err := m.CurrentTabID(ctx)
	if err != nil {
		return err
	}

	var errs []error
	if err := m.tab.Delete(ctx, UserKey); err != nil {
		errs = append(errs, err)
	}
	if err := m.tab.Delete(ctx, TabIDKey); err != nil {
		errs = append(errs, err)
	}

	if tabID != "" && m.durable != nil {
		if err := m.durable.Delete(ctx, tabID); err != nil {
			errs = append(errs, err)
		}
		if err := m.durable.DeleteProvider(ctx, tabID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// MarkClosed flags the tab's durable entry as closed.
func (m *Manager) MarkClosed(ctx context.Context) error {
	if m.tab == nil || m.durable == nil {
		return nil
	}
	tabID, err := m.CurrentTabID(ctx)
	if err != nil || tabID == "" {
		return err
	}
	return CloseTab(ctx, m.durable, tabID, m.now())
}

// CloseTab flags tabID's entry as closed at the given time. Missing entries
// are ignored.
func CloseTab(ctx context.Context, durable DurableMap, tabID string, at time.Time) error {
	entry, err := durable.Get(ctx, tabID)
	if err != nil {
		return err
	}
	if entry == nil {
		return nil
	}
	entry.Closed = true
	entry.ClosedAt = &at
	return durable.Put(ctx, entry)
}

// Cleanup sweeps the durable map. It removes entries idle longer than the
// max idle time and closed entries past the closed grace period.
func (m *Manager) Cleanup(ctx context.Context) (int, error) {
	if m.durable == nil {
		return 0, nil
	}
	entries, err := m.durable.List(ctx)
	if err != nil {
		return 0, err
	}

	now := m.now()
	removed := 0
	var errs []error
	for _, e := range entries {
		if !m.expired(e, now) {
			continue
		}
		if err := m.durable.Delete(ctx, e.TabID); err != nil {
			errs = append(errs, err)
			continue
		}
		if err := m.durable.DeleteProvider(ctx, e.TabID); err != nil {
			errs = append(errs, err)
		}
		removed++
	}
	return removed, errors.Join(errs...)
}

func (m *Manager) expired(e *auth.TabEntry, now time.Time) bool {
	if now.Sub(e.LastActive) > m.maxIdle {
		return true
	}
	if !e.Closed {
		return false
	}
	closedAt := e.LastActive
	if e.ClosedAt != nil {
		closedAt = *e.ClosedAt
	}
	return now.Sub(closedAt) > m.closedGrace
}

// SetProviderSession records the identity provider session owned by this tab.
func (m *Manager) SetProviderSession(ctx context.Context, ps *auth.ProviderSession) error {
	if m.tab == nil || m.durable == nil || ps == nil {
		return nil
	}
	tabID, err := m.TabID(ctx)
	if err != nil {
		return err
	}
	return m.durable.PutProvider(ctx, tabID, ps)
}

// ProviderSession returns the provider session this tab recorded, if any.
func (m *Manager) ProviderSession(ctx context.Context) (*auth.ProviderSession, error) {
	if m.tab == nil || m.durable == nil {
		return nil, nil
	}
	tabID, err := m.CurrentTabID(ctx)
	if err != nil || tabID == "" {
		return nil, err
	}
	return m.durable.GetProvider(ctx, tabID)
}

func (m *Manager) ClearProviderSession(ctx context.Context) error {
	if m.tab == nil || m.durable == nil {
		return nil
	}
	tabID, err := m.CurrentTabID(ctx)
	if err != nil || tabID == "" {
		return err
	}
	return m.durable.DeleteProvider(ctx, tabID)
}
