// internal/service/auth/service.go
package auth

import (
	"context"

	"academy-service/internal/domain/auth"
	xerrors "academy-service/internal/pkg/errors"
	"academy-service/internal/pkg/provider"
	"academy-service/internal/pkg/session"

	"go.uber.org/zap"
)

type LoginLimiter interface {
	CheckLoginAttempt(ctx context.Context, ip, email string) (bool, int64, error)
	ResetLoginAttempts(ctx context.Context, ip, email string) error
}

type AuthService struct {
	authenticator *Authenticator
	providers     provider.Factory
	roles         RoleRepository
	limiter       LoginLimiter
	logger        *zap.Logger
}

// NewAuthService wires the login flow. limiter may be nil.
func NewAuthService(
	authenticator *Authenticator,
	providers provider.Factory,
	roles RoleRepository,
	limiter LoginLimiter,
	logger *zap.Logger,
) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		authenticator: authenticator,
		providers:     providers,
		roles:         roles,
		limiter:       limiter,
		logger:        logger,
	}
}

// ========== Login ==========

// Login authenticates the credentials and makes the result the session of
// the calling tab, replacing any session it had.
func (s *AuthService) Login(ctx context.Context, tab *session.Manager, req *auth.LoginRequest) (*auth.LoginResult, error) {
	// Rate limiting
	var remaining int64
	if s.limiter != nil {
		allowed, left, err := s.limiter.CheckLoginAttempt(ctx, req.IPAddress, req.Email)
		if err != nil {
			return nil, xerrors.Wrap(err, "rate limiter error")
		}
		if !allowed {
			return nil, xerrors.ErrRateLimited
		}
		remaining = left
	}

	res, err := s.authenticator.Authenticate(ctx, req.Credentials())
	if err != nil {
		if s.limiter != nil && xerrors.Is(err, xerrors.ErrInvalidCredentials) {
			return nil, &xerrors.AttemptsError{Err: err, Remaining: remaining}
		}
		return nil, err
	}

	// A provider session left over from an earlier admin login in this tab
	// must not outlive the new session.
	if prev, err := tab.ProviderSession(ctx); err != nil {
		s.logger.Warn("failed to read previous provider session", zap.Error(err))
	} else if prev != nil && (res.ProviderSession == nil || prev.AccessToken != res.ProviderSession.AccessToken) {
		s.revokeProviderSession(ctx, prev)
		if res.ProviderSession == nil {
			if err := tab.ClearProviderSession(ctx); err != nil {
				s.logger.Warn("failed to clear previous provider session", zap.Error(err))
			}
		}
	}

	if res.ProviderSession != nil {
		if err := tab.SetProviderSession(ctx, res.ProviderSession); err != nil {
			s.logger.Warn("failed to persist provider session", zap.Error(err))
		}
	}

	if err := tab.SetUser(ctx, res.User); err != nil {
		return nil, xerrors.Wrap(err, "failed to store session")
	}

	if s.limiter != nil {
		if err := s.limiter.ResetLoginAttempts(ctx, req.IPAddress, req.Email); err != nil {
			s.logger.Warn("failed to reset login attempts", zap.Error(err))
		}
	}

	tabID, _ := tab.CurrentTabID(ctx)
	s.logger.Info("user logged in",
		zap.String("role", string(res.User.Role)),
		zap.Int64("user_id", res.User.ID),
		zap.String("tab_id", tabID))

	return &auth.LoginResult{
		Success:    true,
		User:       res.User,
		RedirectTo: res.RedirectTo(),
		TabID:      tabID,
	}, nil
}

// ========== Logout ==========

// Logout tears down the tab's provider session, if it has one, and then
// clears the tab's local state.
func (s *AuthService) Logout(ctx context.Context, tab *session.Manager) error {
	ps, err := tab.ProviderSession(ctx)
	if err != nil {
		s.logger.Warn("failed to read provider session on logout", zap.Error(err))
	}
	if ps != nil {
		s.revokeProviderSession(ctx, ps)
	}

	if err := tab.Clear(ctx); err != nil {
		return xerrors.Wrap(err, "failed to clear session")
	}
	return nil
}

func (s *AuthService) revokeProviderSession(ctx context.Context, ps *auth.ProviderSession) {
	client := s.providers.NewClient()
	client.SetSession(ps)
	if err := client.SignOut(ctx); err != nil {
		s.logger.Warn("provider sign out failed",
			zap.String("provider_user_id", ps.User.ID),
			zap.Error(err))
	}
}

// ========== Status ==========

// Status returns the tab's user. The tab's own session always wins. The
// provider's browser-wide session is only consulted when this tab recorded
// a provider session for the same principal, and only yields an admin.
func (s *AuthService) Status(ctx context.Context, tab *session.Manager, globalToken string) (*auth.AuthUser, error) {
	user, err := tab.GetUser(ctx)
	if err != nil {
		return nil, err
	}
	if user != nil || globalToken == "" {
		return user, nil
	}

	own, err := tab.ProviderSession(ctx)
	if err != nil {
		return nil, err
	}
	if own == nil {
		return nil, nil
	}

	global, err := provider.GlobalSession(ctx, s.providers, globalToken)
	if err != nil {
		return nil, xerrors.Wrap(err, "failed to resolve provider session")
	}
	if global == nil || global.ID != own.User.ID {
		return nil, nil
	}

	grant, err := s.roles.FindRole(ctx, global.ID)
	if xerrors.Is(err, xerrors.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if grant.Role != auth.RoleAdmin {
		return nil, nil
	}

	user = &auth.AuthUser{
		ID:             grant.ID,
		Email:          global.Email,
		Role:           auth.RoleAdmin,
		ProviderUserID: global.ID,
	}
	if err := tab.SetUser(ctx, user); err != nil {
		s.logger.Warn("failed to restore admin session", zap.Error(err))
	}
	return user, nil
}
