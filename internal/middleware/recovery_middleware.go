// internal/middleware/recovery_middleware.go
package middleware

import (
	"net/http"

	xerrors "academy-service/internal/pkg/errors"
	"academy-service/internal/pkg/response"
	"academy-service/internal/pkg/session"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RecoveryMiddleware turns a handler panic into a 500. The log line names
// the tab and browser so the failing session can be traced.
func RecoveryMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("panic recovered",
					zap.Any("error", err),
					zap.String("method", c.Request.Method),
					zap.String("path", c.Request.URL.Path),
					zap.String("tab_id", c.GetHeader(session.HeaderTabID)),
					zap.String("browser_id", BrowserID(c)),
				)
				response.Error(c, http.StatusInternalServerError, "request failed", xerrors.ErrInternal)
			}
		}()
		c.Next()
	}
}
