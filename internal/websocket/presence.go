// internal/websocket/presence.go
package websocket

import (
	"context"
	"sync"
	"time"

	"academy-service/internal/pkg/session"

	"go.uber.org/zap"
)

type tabKey struct {
	browserID string
	tabID     string
}

// Presence counts the open sockets of every tab. When the last socket of
// a tab goes away the tab's durable entry is flagged closed; it is purged
// later by the session cleanup once the closed grace period has passed.
type Presence struct {
	mu      sync.Mutex
	clients map[tabKey]map[*Client]bool

	store  session.DurableStore
	now    func() time.Time
	logger *zap.Logger
}

func NewPresence(store session.DurableStore, logger *zap.Logger) *Presence {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Presence{
		clients: make(map[tabKey]map[*Client]bool),
		store:   store,
		now:     time.Now,
		logger:  logger,
	}
}

func (p *Presence) register(c *Client) {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := tabKey{c.browserID, c.tabID}
	if p.clients[key] == nil {
		p.clients[key] = make(map[*Client]bool)
	}
	p.clients[key][c] = true

	p.logger.Debug("tab socket registered",
		zap.String("tab_id", c.tabID),
		zap.Int("connections", len(p.clients[key])))
}

// unregister drops c and reports whether it was the tab's last socket
func (p *Presence) unregister(c *Client) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := tabKey{c.browserID, c.tabID}
	conns, ok := p.clients[key]
	if !ok || !conns[c] {
		return false
	}
	delete(conns, c)
	if len(conns) > 0 {
		return false
	}
	delete(p.clients, key)
	return true
}

// closeTab flags the tab closed in its browser's durable map
func (p *Presence) closeTab(ctx context.Context, browserID, tabID string) {
	if err := session.CloseTab(ctx, p.store.ForBrowser(browserID), tabID, p.now()); err != nil {
		p.logger.Warn("failed to mark tab closed", zap.String("tab_id", tabID), zap.Error(err))
		return
	}
	p.logger.Debug("tab marked closed", zap.String("tab_id", tabID))
}

// disconnect is called once per client when its read loop ends
func (p *Presence) disconnect(c *Client) {
	if p.unregister(c) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		p.closeTab(ctx, c.browserID, c.tabID)
	}
}

// Connections returns the number of open sockets for a tab
func (p *Presence) Connections(browserID, tabID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.clients[tabKey{browserID, tabID}])
}

// TotalClients returns the number of open sockets
func (p *Presence) TotalClients() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, conns := range p.clients {
		n += len(conns)
	}
	return n
}

// Shutdown closes every socket. Tabs are not marked closed: the server
// going away says nothing about the browser.
func (p *Presence) Shutdown() {
	p.mu.Lock()
	var all []*Client
	for key, conns := range p.clients {
		for c := range conns {
			all = append(all, c)
		}
		delete(p.clients, key)
	}
	p.mu.Unlock()

	for _, c := range all {
		c.Close()
	}
}
