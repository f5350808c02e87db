// internal/handlers/auth/auth_handler.go
package auth

import (
	"context"
	"net/http"

	"academy-service/internal/domain/auth"
	"academy-service/internal/middleware"
	xerrors "academy-service/internal/pkg/errors"
	"academy-service/internal/pkg/response"
	"academy-service/internal/pkg/session"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthService is the part of the auth service the handler drives
type AuthService interface {
	Login(ctx context.Context, tab *session.Manager, req *auth.LoginRequest) (*auth.LoginResult, error)
	Logout(ctx context.Context, tab *session.Manager) error
	Status(ctx context.Context, tab *session.Manager, globalToken string) (*auth.AuthUser, error)
}

type AuthHandler struct {
	authService AuthService
	logger      *zap.Logger
}

func NewAuthHandler(authService AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// ========== Login ==========

// Login authenticates the credentials and binds the result to the calling tab
func (h *AuthHandler) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, xerrors.ErrInvalidInput.Error(), err)
		return
	}

	req.IPAddress = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	result, err := h.authService.Login(c.Request.Context(), middleware.TabManager(c), &req)
	if err != nil {
		h.logger.Warn("login failed",
			zap.String("email", req.Email),
			zap.String("ip", req.IPAddress),
			zap.Error(err),
		)
		switch {
		case xerrors.Is(err, xerrors.ErrRateLimited):
			response.Error(c, http.StatusTooManyRequests, xerrors.ErrRateLimited.Error(), nil,
				gin.H{"remaining_attempts": 0})
		case xerrors.Is(err, xerrors.ErrInvalidCredentials):
			if left, ok := xerrors.RemainingAttempts(err); ok {
				response.Error(c, http.StatusUnauthorized, xerrors.ErrInvalidCredentials.Error(), nil,
					gin.H{"remaining_attempts": left})
				return
			}
			response.Error(c, http.StatusUnauthorized, xerrors.ErrInvalidCredentials.Error(), nil)
		case xerrors.Is(err, xerrors.ErrAuthUnavailable):
			response.Error(c, http.StatusServiceUnavailable, xerrors.ErrAuthUnavailable.Error(), nil)
		default:
			response.Error(c, http.StatusInternalServerError, "login failed", xerrors.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, "login successful", result)
}

// ========== Logout ==========

// Logout clears the calling tab's session only. Other tabs stay signed in.
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.authService.Logout(c.Request.Context(), middleware.TabManager(c)); err != nil {
		h.logger.Error("logout failed", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "logout failed", xerrors.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, "logged out successfully", gin.H{"redirect_to": "/login"})
}

// ========== Status ==========

// Me reports who the calling tab is signed in as
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.authService.Status(c.Request.Context(), middleware.TabManager(c), middleware.GlobalProviderToken(c))
	if err != nil {
		h.logger.Error("failed to resolve session", zap.Error(err))
		response.Error(c, http.StatusServiceUnavailable, "failed to load session", nil)
		return
	}

	status := auth.StatusResponse{RedirectTo: "/login"}
	if user != nil {
		status.Authenticated = true
		status.User = user
		status.RedirectTo = auth.RedirectFor(user.Role)
	}
	response.Success(c, http.StatusOK, "session status", status)
}

// CloseTab flags the calling tab as closed. Its durable entry survives the
// closed grace period so a reload can still recover it.
func (h *AuthHandler) CloseTab(c *gin.Context) {
	if err := middleware.TabManager(c).MarkClosed(c.Request.Context()); err != nil {
		h.logger.Warn("failed to mark tab closed", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "failed to close tab", xerrors.ErrInternal)
		return
	}
	c.Status(http.StatusNoContent)
}

// ========== Profile ==========

// Profile returns the guarded user of a dashboard route
func (h *AuthHandler) Profile(c *gin.Context) {
	user, ok := middleware.GetAuthUser(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "authentication required", xerrors.ErrUnauthorized,
			gin.H{"redirect_to": "/login"})
		return
	}
	response.Success(c, http.StatusOK, "profile retrieved", gin.H{
		"user":      user,
		"dashboard": auth.RedirectFor(user.Role),
	})
}
