// internal/service/auth/strategy.go
package auth

import (
	"context"
	"errors"
	"fmt"

	"academy-service/internal/domain/auth"
	xerrors "academy-service/internal/pkg/errors"
	"academy-service/internal/pkg/provider"

	"go.uber.org/zap"
)

var (
	// ErrNoMatch means the store has no account for the email. The next
	// strategy is tried.
	ErrNoMatch = errors.New("no account for this email")
	// ErrPasswordMismatch means the account exists but the password is
	// wrong. Authentication stops here.
	ErrPasswordMismatch = errors.New("password does not match")
	// ErrNotAuthorized means the provider accepted the password but the
	// principal has no admin grant.
	ErrNotAuthorized = errors.New("account is not authorized")
)

// StrategyResult is what a successful strategy produces. ProviderSession
// is only set for provider-backed logins.
type StrategyResult struct {
	User            *auth.AuthUser
	ProviderSession *auth.ProviderSession
}

// RedirectTo is the dashboard for the authenticated role
func (r *StrategyResult) RedirectTo() string {
	return auth.RedirectFor(r.User.Role)
}

// Strategy checks credentials against one identity store. Any error other
// than the sentinels above is an infrastructure failure.
type Strategy interface {
	Name() string
	TryAuthenticate(ctx context.Context, creds auth.Credentials) (*StrategyResult, error)
}

type CredentialRepository interface {
	FindStudentByEmail(ctx context.Context, email string) (*auth.CredentialRecord, error)
	FindSupervisorByEmail(ctx context.Context, email string) (*auth.CredentialRecord, error)
}

type RoleRepository interface {
	FindRole(ctx context.Context, userID string) (*auth.RoleGrant, error)
}

// ========== Student / Supervisor ==========

type credentialStrategy struct {
	name      string
	role      auth.Role
	find      func(ctx context.Context, email string) (*auth.CredentialRecord, error)
	passwords *PasswordVerifier
}

func NewStudentStrategy(repo CredentialRepository, passwords *PasswordVerifier) Strategy {
	return &credentialStrategy{
		name:      "student",
		role:      auth.RoleStudent,
		find:      repo.FindStudentByEmail,
		passwords: passwords,
	}
}

func NewSupervisorStrategy(repo CredentialRepository, passwords *PasswordVerifier) Strategy {
	return &credentialStrategy{
		name:      "supervisor",
		role:      auth.RoleSupervisor,
		find:      repo.FindSupervisorByEmail,
		passwords: passwords,
	}
}

func (s *credentialStrategy) Name() string { return s.name }

func (s *credentialStrategy) TryAuthenticate(ctx context.Context, creds auth.Credentials) (*StrategyResult, error) {
	rec, err := s.find(ctx, creds.Email)
	if errors.Is(err, xerrors.ErrNotFound) {
		return nil, ErrNoMatch
	}
	if err != nil {
		return nil, fmt.Errorf("%s lookup: %w", s.name, err)
	}

	if !s.passwords.Verify(rec.PasswordHash, creds.Password) {
		return nil, ErrPasswordMismatch
	}

	return &StrategyResult{
		User: &auth.AuthUser{
			ID:         rec.ID,
			Email:      rec.Email,
			Role:       s.role,
			Name:       rec.Name,
			RegisterNo: rec.RegisterNo,
		},
	}, nil
}

// ========== Admin ==========

// AdminStrategy signs in through the external identity provider on a
// fresh client, then requires an admin grant in the role table.
type AdminStrategy struct {
	providers provider.Factory
	roles     RoleRepository
	logger    *zap.Logger
}

func NewAdminStrategy(providers provider.Factory, roles RoleRepository, logger *zap.Logger) *AdminStrategy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminStrategy{providers: providers, roles: roles, logger: logger}
}

func (s *AdminStrategy) Name() string { return "admin" }

func (s *AdminStrategy) TryAuthenticate(ctx context.Context, creds auth.Credentials) (*StrategyResult, error) {
	client := s.providers.NewClient()

	ps, err := client.SignInWithPassword(ctx, creds.Email, creds.Password)
	if errors.Is(err, provider.ErrInvalidCredentials) {
		return nil, ErrNoMatch
	}
	if err != nil {
		return nil, fmt.Errorf("admin sign in: %w", err)
	}

	grant, err := s.roles.FindRole(ctx, ps.User.ID)
	switch {
	case errors.Is(err, xerrors.ErrNotFound):
		s.signOut(ctx, client, ps.User.ID)
		return nil, ErrNotAuthorized
	case err != nil:
		s.signOut(ctx, client, ps.User.ID)
		return nil, fmt.Errorf("admin role lookup: %w", err)
	case grant.Role != auth.RoleAdmin:
		s.signOut(ctx, client, ps.User.ID)
		return nil, ErrNotAuthorized
	}

	email := ps.User.Email
	if email == "" {
		email = creds.Email
	}

	return &StrategyResult{
		User: &auth.AuthUser{
			ID:             grant.ID,
			Email:          email,
			Role:           auth.RoleAdmin,
			ProviderUserID: ps.User.ID,
		},
		ProviderSession: ps,
	}, nil
}

func (s *AdminStrategy) signOut(ctx context.Context, client provider.Client, providerUserID string) {
	if err := client.SignOut(ctx); err != nil {
		s.logger.Warn("failed to sign out unauthorized provider session",
			zap.String("provider_user_id", providerUserID),
			zap.Error(err))
	}
}
