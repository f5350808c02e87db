// internal/service/auth/authenticator.go
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"academy-service/internal/domain/auth"
	xerrors "academy-service/internal/pkg/errors"

	"go.uber.org/zap"
)

// Authenticator tries each strategy in order and stops at the first one
// that does not report ErrNoMatch. Strategies run one after another.
type Authenticator struct {
	strategies []Strategy
	logger     *zap.Logger
}

func NewAuthenticator(logger *zap.Logger, strategies ...Strategy) *Authenticator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Authenticator{strategies: strategies, logger: logger}
}

// Authenticate returns xerrors.ErrInvalidCredentials when no store accepts
// the credentials, and xerrors.ErrAuthUnavailable when every store failed
// with an infrastructure error.
func (a *Authenticator) Authenticate(ctx context.Context, creds auth.Credentials) (*StrategyResult, error) {
	creds.Email = strings.TrimSpace(creds.Email)
	if creds.Email == "" || creds.Password == "" {
		return nil, xerrors.ErrInvalidCredentials
	}

	failures := 0
	for _, s := range a.strategies {
		res, err := s.TryAuthenticate(ctx, creds)

		switch {
		case err == nil:
			if res == nil || res.User == nil {
				return nil, fmt.Errorf("%s strategy returned no user", s.Name())
			}
			return res, nil
		case errors.Is(err, ErrNoMatch), errors.Is(err, ErrNotAuthorized):
			continue
		case errors.Is(err, ErrPasswordMismatch):
			return nil, xerrors.ErrInvalidCredentials
		default:
			failures++
			a.logger.Warn("identity store unavailable",
				zap.String("strategy", s.Name()),
				zap.Error(err))
		}
	}

	if len(a.strategies) > 0 && failures == len(a.strategies) {
		return nil, xerrors.ErrAuthUnavailable
	}
	return nil, xerrors.ErrInvalidCredentials
}
