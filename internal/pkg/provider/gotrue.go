// internal/pkg/provider/gotrue.go
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"academy-service/internal/domain/auth"
)

type GoTrueConfig struct {
	URL     string
	AnonKey string
	Timeout time.Duration
}

// GoTrueFactory creates clients for a GoTrue-compatible auth API. The
// underlying http.Client is shared; sessions are not.
type GoTrueFactory struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewGoTrueFactory(cfg GoTrueConfig) *GoTrueFactory {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &GoTrueFactory{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		apiKey:  cfg.AnonKey,
		http:    &http.Client{Timeout: timeout},
	}
}

func (f *GoTrueFactory) NewClient() Client {
	return &GoTrueClient{factory: f}
}

type GoTrueClient struct {
	factory *GoTrueFactory

	mu      sync.RWMutex
	session *auth.ProviderSession
}

type apiError struct {
	Status  int    `json:"-"`
	Code    string `json:"error"`
	Message string `json:"error_description"`
	Msg     string `json:"msg"`
}

func (e *apiError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Msg
	}
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("identity provider returned %d: %s", e.Status, msg)
}

func (c *GoTrueClient) SignInWithPassword(ctx context.Context, email, password string) (*auth.ProviderSession, error) {
	body := map[string]string{"email": email, "password": password}

	var ps auth.ProviderSession
	err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", "", body, &ps)
	if err != nil {
		var apiErr *apiError
		if errors.As(err, &apiErr) {
			switch apiErr.Status {
			case http.StatusBadRequest, http.StatusUnauthorized, http.StatusUnprocessableEntity:
				return nil, ErrInvalidCredentials
			}
		}
		return nil, err
	}
	if ps.AccessToken == "" || ps.User.ID == "" {
		return nil, fmt.Errorf("identity provider returned an incomplete session")
	}
	if ps.ExpiresAt == 0 && ps.ExpiresIn > 0 {
		ps.ExpiresAt = time.Now().Add(time.Duration(ps.ExpiresIn) * time.Second).Unix()
	}

	c.SetSession(&ps)
	return &ps, nil
}

// SignOut revokes the client's session. A 401 means the token is already
// dead, which counts as signed out.
func (c *GoTrueClient) SignOut(ctx context.Context) error {
	ps := c.Session()
	if ps == nil {
		return nil
	}

	err := c.do(ctx, http.MethodPost, "/auth/v1/logout", ps.AccessToken, nil, nil)
	var apiErr *apiError
	if err != nil && !(errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized) {
		return fmt.Errorf("provider sign out failed: %w", err)
	}

	c.SetSession(nil)
	return nil
}

func (c *GoTrueClient) Session() *auth.ProviderSession {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return nil
	}
	ps := *c.session
	return &ps
}

func (c *GoTrueClient) SetSession(ps *auth.ProviderSession) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ps == nil {
		c.session = nil
		return
	}
	cp := *ps
	c.session = &cp
}

func (c *GoTrueClient) GetUser(ctx context.Context, accessToken string) (*auth.ProviderUser, error) {
	if accessToken == "" {
		return nil, ErrNoSession
	}
	var user auth.ProviderUser
	if err := c.do(ctx, http.MethodGet, "/auth/v1/user", accessToken, nil, &user); err != nil {
		var apiErr *apiError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
			return nil, ErrNoSession
		}
		return nil, err
	}
	return &user, nil
}

func (c *GoTrueClient) do(ctx context.Context, method, path, bearer string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.factory.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("apikey", c.factory.apiKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.factory.http.Do(req)
	if err != nil {
		return fmt.Errorf("identity provider request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &apiError{Status: resp.StatusCode}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(apiErr)
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode provider response: %w", err)
	}
	return nil
}
