package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"academy-service/internal/domain/auth"
	xerrors "academy-service/internal/pkg/errors"
	"academy-service/internal/pkg/provider"
)

var errDown = errors.New("connection refused")

type fakeCredentials struct {
	students    map[string]*auth.CredentialRecord
	supervisors map[string]*auth.CredentialRecord
	studentErr  error
	superErr    error
	calls       []string
}

func (f *fakeCredentials) FindStudentByEmail(_ context.Context, email string) (*auth.CredentialRecord, error) {
	f.calls = append(f.calls, "student")
	if f.studentErr != nil {
		return nil, f.studentErr
	}
	if rec, ok := f.students[email]; ok {
		return rec, nil
	}
	return nil, xerrors.ErrNotFound
}

func (f *fakeCredentials) FindSupervisorByEmail(_ context.Context, email string) (*auth.CredentialRecord, error) {
	f.calls = append(f.calls, "supervisor")
	if f.superErr != nil {
		return nil, f.superErr
	}
	if rec, ok := f.supervisors[email]; ok {
		return rec, nil
	}
	return nil, xerrors.ErrNotFound
}

type fakeRoles struct {
	grants map[string]*auth.RoleGrant
	err    error
}

func (f *fakeRoles) FindRole(_ context.Context, userID string) (*auth.RoleGrant, error) {
	if f.err != nil {
		return nil, f.err
	}
	if g, ok := f.grants[userID]; ok {
		return g, nil
	}
	return nil, xerrors.ErrNotFound
}

// fakeProvider plays the identity provider: it knows accounts and tracks
// which access tokens are live.
type fakeProvider struct {
	mu       sync.Mutex
	accounts map[string]struct{ password, id string }
	live     map[string]string // access token -> provider user id
	issued   int
	signIns  int
	signOuts int
	err      error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		accounts: make(map[string]struct{ password, id string }),
		live:     make(map[string]string),
	}
}

func (p *fakeProvider) addAccount(email, password, id string) {
	p.accounts[email] = struct{ password, id string }{password, id}
}

func (p *fakeProvider) liveSessions() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.live)
}

func (p *fakeProvider) NewClient() provider.Client {
	return &fakeClient{p: p}
}

type fakeClient struct {
	p       *fakeProvider
	session *auth.ProviderSession
}

func (c *fakeClient) SignInWithPassword(_ context.Context, email, password string) (*auth.ProviderSession, error) {
	c.p.mu.Lock()
	defer c.p.mu.Unlock()
	c.p.signIns++
	if c.p.err != nil {
		return nil, c.p.err
	}
	acct, ok := c.p.accounts[email]
	if !ok || acct.password != password {
		return nil, provider.ErrInvalidCredentials
	}
	c.p.issued++
	token := fmt.Sprintf("at-%d", c.p.issued)
	c.p.live[token] = acct.id
	c.session = &auth.ProviderSession{
		AccessToken: token,
		TokenType:   "bearer",
		User:        auth.ProviderUser{ID: acct.id, Email: email},
	}
	ps := *c.session
	return &ps, nil
}

func (c *fakeClient) SignOut(_ context.Context) error {
	if c.session == nil {
		return nil
	}
	c.p.mu.Lock()
	defer c.p.mu.Unlock()
	c.p.signOuts++
	delete(c.p.live, c.session.AccessToken)
	c.session = nil
	return nil
}

func (c *fakeClient) Session() *auth.ProviderSession { return c.session }

func (c *fakeClient) SetSession(ps *auth.ProviderSession) { c.session = ps }

func (c *fakeClient) GetUser(_ context.Context, accessToken string) (*auth.ProviderUser, error) {
	c.p.mu.Lock()
	defer c.p.mu.Unlock()
	id, ok := c.p.live[accessToken]
	if !ok {
		return nil, provider.ErrNoSession
	}
	for email, acct := range c.p.accounts {
		if acct.id == id {
			return &auth.ProviderUser{ID: id, Email: email}, nil
		}
	}
	return &auth.ProviderUser{ID: id}, nil
}

type fakeLimiter struct {
	allowed   bool
	remaining int64
	err       error
	checks    int
	resets    int
}

func (l *fakeLimiter) CheckLoginAttempt(context.Context, string, string) (bool, int64, error) {
	l.checks++
	return l.allowed, l.remaining, l.err
}

func (l *fakeLimiter) ResetLoginAttempts(context.Context, string, string) error {
	l.resets++
	return nil
}

// stubStrategy returns a fixed outcome
type stubStrategy struct {
	name  string
	res   *StrategyResult
	err   error
	calls int
}

func (s *stubStrategy) Name() string { return s.name }

func (s *stubStrategy) TryAuthenticate(context.Context, auth.Credentials) (*StrategyResult, error) {
	s.calls++
	return s.res, s.err
}
