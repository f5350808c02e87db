// internal/handlers/websocket/websocket.go
package handlers

import (
	"net/http"
	"strings"
	"time"

	"academy-service/internal/middleware"
	"academy-service/internal/pkg/response"
	ws "academy-service/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type WebSocketHandler struct {
	presence *ws.Presence
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewWebSocketHandler accepts sockets from the given origins. "*" or an
// empty list accepts any origin.
func NewWebSocketHandler(presence *ws.Presence, allowedOrigins []string, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		presence: presence,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		logger: logger,
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[strings.TrimRight(o, "/")] = true
	}
	if len(set) == 0 {
		// gorilla's same-origin check
		return nil
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}

// HandleTab opens the presence socket of the calling tab. Browsers can't
// set headers on a websocket, so the tab sends tab_id and tab_session as
// query params. Only a tab with a session may connect.
func (h *WebSocketHandler) HandleTab(c *gin.Context) {
	ctx := c.Request.Context()
	tab := middleware.TabManager(c)

	user, err := tab.GetUser(ctx)
	if err != nil {
		h.logger.Error("failed to load tab session", zap.Error(err))
		response.Error(c, http.StatusServiceUnavailable, "failed to load session", nil)
		return
	}
	if user == nil {
		response.Unauthorized(c, "authentication required", gin.H{"redirect_to": "/login"})
		return
	}
	tabID, err := tab.CurrentTabID(ctx)
	if err != nil || tabID == "" {
		response.Unauthorized(c, "missing tab id", gin.H{"redirect_to": "/login"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err), zap.String("ip", c.ClientIP()))
		return
	}

	client := ws.NewClient(h.presence, conn, middleware.BrowserID(c), tabID)
	client.Serve()

	h.logger.Debug("tab socket connected",
		zap.String("tab_id", tabID),
		zap.String("role", string(user.Role)),
	)
}

// GetStats returns presence statistics (admin only)
func (h *WebSocketHandler) GetStats(c *gin.Context) {
	response.Success(c, http.StatusOK, "websocket stats", gin.H{
		"total_connections": h.presence.TotalClients(),
		"timestamp":         time.Now(),
	})
}
