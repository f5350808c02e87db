// internal/middleware/tab_middleware.go
package middleware

import (
	"net/http"
	"sync"
	"time"

	"academy-service/internal/pkg/session"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// BrowserCookie identifies the browser profile whose tabs share one
// durable map.
const BrowserCookie = "academy_browser"

const (
	ctxTabManager = "tab_manager"
	ctxTabStorage = "tab_storage"
	ctxBrowserID  = "browser_id"
	ctxAuthUser   = "auth_user"
)

type TabConfig struct {
	MaxIdle      time.Duration
	ClosedGrace  time.Duration
	CookieMaxAge time.Duration
	CookieSecure bool
}

// TabMiddleware builds the session.Manager of the calling tab for every
// request and writes the tab's storage changes back as response headers.
type TabMiddleware struct {
	store  session.DurableStore
	codec  session.TokenCodec
	cfg    TabConfig
	logger *zap.Logger
}

func NewTabMiddleware(store session.DurableStore, codec session.TokenCodec, cfg TabConfig, logger *zap.Logger) *TabMiddleware {
	if cfg.CookieMaxAge <= 0 {
		cfg.CookieMaxAge = 365 * 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TabMiddleware{store: store, codec: codec, cfg: cfg, logger: logger}
}

func (m *TabMiddleware) Context() gin.HandlerFunc {
	return func(c *gin.Context) {
		browserID := m.browserID(c)

		// websocket clients can't set headers, so query params are accepted too
		tabID := c.GetHeader(session.HeaderTabID)
		if tabID == "" {
			tabID = c.Query("tab_id")
		}
		token := c.GetHeader(session.HeaderTabSession)
		if token == "" {
			token = c.Query("tab_session")
		}
		if _, err := ulid.ParseStrict(tabID); err != nil {
			tabID, token = "", ""
		}

		storage := session.NewTabStorage(tabID, token, m.codec)
		mgr := session.NewManager(storage, m.store.ForBrowser(browserID), session.Options{
			MaxIdle:     m.cfg.MaxIdle,
			ClosedGrace: m.cfg.ClosedGrace,
			Logger:      m.logger,
		})

		c.Set(ctxBrowserID, browserID)
		c.Set(ctxTabStorage, storage)
		c.Set(ctxTabManager, mgr)

		w := &tabWriter{ResponseWriter: c.Writer, storage: storage, logger: m.logger}
		c.Writer = w

		c.Next()

		w.flush()
	}
}

func (m *TabMiddleware) browserID(c *gin.Context) string {
	if id, err := c.Cookie(BrowserCookie); err == nil {
		if _, err := ulid.ParseStrict(id); err == nil {
			return id
		}
	}

	id := ulid.Make().String()
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     BrowserCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int(m.cfg.CookieMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   m.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	// later reads in this request see the new id
	c.Request.AddCookie(&http.Cookie{Name: BrowserCookie, Value: id})
	return id
}

// tabWriter puts the tab headers on the response right before the status
// line goes out.
type tabWriter struct {
	gin.ResponseWriter
	storage *session.TabStorage
	logger  *zap.Logger
	once    sync.Once
}

func (w *tabWriter) flush() {
	w.once.Do(func() {
		if w.ResponseWriter.Written() {
			return
		}
		if err := w.storage.WriteHeaders(w.ResponseWriter.Header()); err != nil {
			w.logger.Error("failed to write tab headers", zap.Error(err))
		}
	})
}

func (w *tabWriter) WriteHeader(code int) {
	w.flush()
	w.ResponseWriter.WriteHeader(code)
}

func (w *tabWriter) WriteHeaderNow() {
	w.flush()
	w.ResponseWriter.WriteHeaderNow()
}

func (w *tabWriter) Write(b []byte) (int, error) {
	w.flush()
	return w.ResponseWriter.Write(b)
}

func (w *tabWriter) WriteString(s string) (int, error) {
	w.flush()
	return w.ResponseWriter.WriteString(s)
}

// TabManager returns the calling tab's session manager. Outside the tab
// middleware it returns a manager that does nothing.
func TabManager(c *gin.Context) *session.Manager {
	if v, ok := c.Get(ctxTabManager); ok {
		if m, ok := v.(*session.Manager); ok {
			return m
		}
	}
	return session.NewManager(nil, nil, session.Options{})
}

// BrowserID returns the browser profile id of the request
func BrowserID(c *gin.Context) string {
	return c.GetString(ctxBrowserID)
}
