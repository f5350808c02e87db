package session

import (
	"context"
	"testing"
	"time"

	"academy-service/internal/domain/auth"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestRedisDurableMapEntries(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newTestRedis(t)
	store := NewRedisDurableStore(rdb, time.Hour)
	m := store.ForBrowser("browser-1")

	if e, err := m.Get(ctx, "tab-1"); err != nil || e != nil {
		t.Fatalf("Get on empty map = %+v, %v", e, err)
	}

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	entry := &auth.TabEntry{TabID: "tab-1", User: *student(), Timestamp: now, LastActive: now}
	if err := m.Put(ctx, entry); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := m.Get(ctx, "tab-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.User != entry.User || !got.LastActive.Equal(now) {
		t.Fatalf("Get = %+v, want %+v", got, entry)
	}

	if ttl := mr.TTL("tabsessions:{browser-1}"); ttl != time.Hour {
		t.Fatalf("ttl = %v, want 1h", ttl)
	}

	_ = m.Put(ctx, &auth.TabEntry{TabID: "tab-2", User: *admin(), Timestamp: now, LastActive: now})
	list, err := m.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].TabID != "tab-1" || list[1].TabID != "tab-2" {
		t.Fatalf("List = %+v", list)
	}

	if err := m.Delete(ctx, "tab-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if e, _ := m.Get(ctx, "tab-1"); e != nil {
		t.Fatalf("entry survived delete")
	}
}

func TestRedisDurableMapSeparatesBrowsers(t *testing.T) {
	ctx := context.Background()
	_, rdb := newTestRedis(t)
	store := NewRedisDurableStore(rdb, 0)

	a := store.ForBrowser("a")
	b := store.ForBrowser("b")

	_ = a.Put(ctx, &auth.TabEntry{TabID: "tab-1", User: *student(), LastActive: time.Now()})

	if e, _ := b.Get(ctx, "tab-1"); e != nil {
		t.Fatalf("browser b sees browser a entry")
	}
}

func TestRedisDurableMapProviderSessions(t *testing.T) {
	ctx := context.Background()
	_, rdb := newTestRedis(t)
	m := NewRedisDurableStore(rdb, time.Hour).ForBrowser("browser-1")

	ps := &auth.ProviderSession{
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenType:    "bearer",
		ExpiresAt:    1700000000,
		User:         auth.ProviderUser{ID: "prov-1", Email: "root@x.com"},
	}
	if err := m.PutProvider(ctx, "tab-1", ps); err != nil {
		t.Fatalf("PutProvider: %v", err)
	}

	got, err := m.GetProvider(ctx, "tab-1")
	if err != nil {
		t.Fatalf("GetProvider: %v", err)
	}
	if *got != *ps {
		t.Fatalf("GetProvider = %+v, want %+v", got, ps)
	}

	// provider sessions are not tab entries
	if list, _ := m.List(ctx); len(list) != 0 {
		t.Fatalf("List = %+v, want empty", list)
	}

	_ = m.DeleteProvider(ctx, "tab-1")
	if got, _ := m.GetProvider(ctx, "tab-1"); got != nil {
		t.Fatalf("provider session survived delete")
	}
}

func TestRedisListSkipsCorruptEntries(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newTestRedis(t)
	m := NewRedisDurableStore(rdb, time.Hour).ForBrowser("x")

	mr.HSet("tabsessions:{x}", "broken", "not-json")
	_ = m.Put(ctx, &auth.TabEntry{TabID: "ok", User: *student(), LastActive: time.Now()})

	list, err := m.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0].TabID != "ok" {
		t.Fatalf("List = %+v", list)
	}
}

func TestManagerOverRedis(t *testing.T) {
	ctx := context.Background()
	_, rdb := newTestRedis(t)
	durable := NewRedisDurableStore(rdb, time.Hour).ForBrowser("browser-1")
	tab := NewMemoryStorage()
	m := NewManager(tab, durable, Options{})

	if err := m.SetUser(ctx, student()); err != nil {
		t.Fatalf("SetUser: %v", err)
	}
	_ = tab.Delete(ctx, UserKey)

	u, err := m.GetUser(ctx)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if u == nil || *u != *student() {
		t.Fatalf("GetUser = %+v", u)
	}
}

func TestRateLimiter(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newTestRedis(t)
	rl := NewRateLimiter(rdb, 3, time.Minute)

	for i := 1; i <= 3; i++ {
		ok, remaining, err := rl.CheckLoginAttempt(ctx, "10.0.0.1", "a@x.com")
		if err != nil {
			t.Fatalf("attempt %d: %v", i, err)
		}
		if !ok {
			t.Fatalf("attempt %d rejected", i)
		}
		if remaining != int64(3-i) {
			t.Fatalf("attempt %d remaining = %d", i, remaining)
		}
	}

	ok, remaining, _ := rl.CheckLoginAttempt(ctx, "10.0.0.1", "A@x.com ")
	if ok || remaining != 0 {
		t.Fatalf("4th attempt = %v, %d; want rejected", ok, remaining)
	}

	// other ip is counted separately
	if ok, _, _ := rl.CheckLoginAttempt(ctx, "10.0.0.2", "a@x.com"); !ok {
		t.Fatal("other ip rejected")
	}

	if err := rl.ResetLoginAttempts(ctx, "10.0.0.1", "a@x.com"); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if _, left, _ := rl.CheckLoginAttempt(ctx, "10.0.0.1", "a@x.com"); left != 2 {
		t.Fatalf("remaining after reset = %d", left)
	}

	_, _, _ = rl.CheckLoginAttempt(ctx, "10.0.0.3", "b@x.com")
	if ttl := mr.TTL(loginKey("10.0.0.3", "b@x.com")); ttl != time.Minute {
		t.Fatalf("window TTL = %v", ttl)
	}
	mr.FastForward(2 * time.Minute)
	if mr.Exists(loginKey("10.0.0.3", "b@x.com")) {
		t.Fatal("window did not expire")
	}
}

func TestRateLimiterRestoresLostWindow(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newTestRedis(t)
	rl := NewRateLimiter(rdb, 3, time.Minute)

	// a locked-out counter whose TTL was never set
	key := loginKey("10.0.0.1", "a@x.com")
	if err := mr.Set(key, "3"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if ok, _, err := rl.CheckLoginAttempt(ctx, "10.0.0.1", "a@x.com"); ok || err != nil {
		t.Fatalf("CheckLoginAttempt = %v, %v; want rejected", ok, err)
	}
	if ttl := mr.TTL(key); ttl != time.Minute {
		t.Fatalf("window TTL = %v", ttl)
	}
	mr.FastForward(2 * time.Minute)
	if ok, _, _ := rl.CheckLoginAttempt(ctx, "10.0.0.1", "a@x.com"); !ok {
		t.Fatal("still locked out after the window")
	}
}
