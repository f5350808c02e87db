// internal/pkg/session/redis_store.go
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"academy-service/internal/domain/auth"

	"github.com/redis/go-redis/v9"
)

// RedisDurableStore keeps each browser's tab map in a Redis hash. The
// browser id is a hash tag so both of its keys land on one cluster slot.
// The whole hash expires once the browser has been idle for ttl.
type RedisDurableStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisDurableStore(client redis.UniversalClient, ttl time.Duration) *RedisDurableStore {
	if ttl <= 0 {
		ttl = DefaultMaxIdle + DefaultClosedGrace
	}
	return &RedisDurableStore{client: client, ttl: ttl}
}

func (s *RedisDurableStore) ForBrowser(browserID string) DurableMap {
	return &RedisDurableMap{
		client:      s.client,
		key:         tabMapKey(browserID),
		providerKey: tabMapKey(browserID) + ":provider",
		ttl:         s.ttl,
	}
}

type RedisDurableMap struct {
	client      redis.UniversalClient
	key         string
	providerKey string
	ttl         time.Duration
}

func (m *RedisDurableMap) Get(ctx context.Context, tabID string) (*auth.TabEntry, error) {
	data, err := m.client.HGet(ctx, m.key, tabID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read tab entry: %w", err)
	}

	var entry auth.TabEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tab entry: %w", err)
	}
	return &entry, nil
}

func (m *RedisDurableMap) Put(ctx context.Context, entry *auth.TabEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal tab entry: %w", err)
	}

	_, err = m.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, m.key, entry.TabID, data)
		pipe.Expire(ctx, m.key, m.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store tab entry: %w", err)
	}
	return nil
}

func (m *RedisDurableMap) Delete(ctx context.Context, tabID string) error {
	if err := m.client.HDel(ctx, m.key, tabID).Err(); err != nil {
		return fmt.Errorf("failed to delete tab entry: %w", err)
	}
	return nil
}

// List skips entries that no longer decode; they are left for the hash TTL.
func (m *RedisDurableMap) List(ctx context.Context) ([]*auth.TabEntry, error) {
	all, err := m.client.HGetAll(ctx, m.key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list tab entries: %w", err)
	}

	out := make([]*auth.TabEntry, 0, len(all))
	for _, raw := range all {
		var entry auth.TabEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			continue
		}
		out = append(out, &entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TabID < out[j].TabID })
	return out, nil
}

func (m *RedisDurableMap) GetProvider(ctx context.Context, tabID string) (*auth.ProviderSession, error) {
	data, err := m.client.HGet(ctx, m.providerKey, tabID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read provider session: %w", err)
	}

	var ps auth.ProviderSession
	if err := json.Unmarshal(data, &ps); err != nil {
		return nil, fmt.Errorf("failed to unmarshal provider session: %w", err)
	}
	return &ps, nil
}

func (m *RedisDurableMap) PutProvider(ctx context.Context, tabID string, ps *auth.ProviderSession) error {
	data, err := json.Marshal(ps)
	if err != nil {
		return fmt.Errorf("failed to marshal provider session: %w", err)
	}

	_, err = m.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, m.providerKey, tabID, data)
		pipe.Expire(ctx, m.providerKey, m.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store provider session: %w", err)
	}
	return nil
}

func (m *RedisDurableMap) DeleteProvider(ctx context.Context, tabID string) error {
	if err := m.client.HDel(ctx, m.providerKey, tabID).Err(); err != nil {
		return fmt.Errorf("failed to delete provider session: %w", err)
	}
	return nil
}

func tabMapKey(browserID string) string {
	return fmt.Sprintf("tabsessions:{%s}", browserID)
}
