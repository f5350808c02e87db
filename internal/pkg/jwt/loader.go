// internal/pkg/jwt/loader.go
package jwt

import (
	"crypto/rsa"
	"fmt"
	"time"

	"academy-service/internal/domain/auth"
)

type Config struct {
	PrivPath string
	PubPath  string
	Issuer   string
	Audience string
	TTL      time.Duration
	KID      string
}

// Manager signs and verifies tab session tokens. It satisfies
// session.TokenCodec.
type Manager struct {
	Generator *Generator
	Verifier  *Verifier
}

func LoadAndBuild(cfg Config) (*Manager, error) {
	priv, err := LoadRSAPrivateKeyFromPEM(cfg.PrivPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load private key from %s: %w", cfg.PrivPath, err)
	}

	pub, err := LoadRSAPublicKeyFromPEM(cfg.PubPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load public key from %s: %w", cfg.PubPath, err)
	}

	return NewManager(priv, pub, cfg), nil
}

func NewManager(priv *rsa.PrivateKey, pub *rsa.PublicKey, cfg Config) *Manager {
	return &Manager{
		Generator: NewGenerator(priv, cfg.Issuer, cfg.Audience, cfg.KID, cfg.TTL),
		Verifier:  NewVerifier(pub, cfg.Issuer, cfg.Audience),
	}
}

// Encode signs user as the session of tabID
func (m *Manager) Encode(tabID string, user *auth.AuthUser) (string, error) {
	token, _, err := m.Generator.GenerateTabToken(tabID, user)
	return token, err
}

// Decode verifies a tab token and returns the tab id it is bound to
func (m *Manager) Decode(token string) (string, *auth.AuthUser, error) {
	claims, err := m.Verifier.VerifyTabToken(token)
	if err != nil {
		return "", nil, err
	}
	user := claims.User
	return claims.TabID, &user, nil
}
