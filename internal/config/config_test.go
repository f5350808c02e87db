package config

import (
	"reflect"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.HTTPAddr != ":8000" {
		t.Errorf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.SessionMaxIdle != 24*time.Hour || cfg.SessionClosedGrace != time.Hour {
		t.Errorf("session windows = %v / %v", cfg.SessionMaxIdle, cfg.SessionClosedGrace)
	}
	if cfg.LoginMaxAttempts != 5 || cfg.LoginWindow != 15*time.Minute {
		t.Errorf("login limits = %d / %v", cfg.LoginMaxAttempts, cfg.LoginWindow)
	}
	if cfg.AllowLegacyPlaintext {
		t.Error("legacy plaintext passwords should be off by default")
	}
	if !cfg.CookieSecure {
		t.Error("cookies should be secure by default")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("ALLOWED_ORIGINS", "https://a.academy, https://b.academy ,")
	t.Setenv("REDIS_ADDR", "r1:6379,r2:6379")
	t.Setenv("REDIS_CLUSTER", "true")
	t.Setenv("AUTH_ALLOW_LEGACY_PLAINTEXT", "1")
	t.Setenv("SESSION_MAX_IDLE", "2h")
	t.Setenv("JWT_TTL", "30m")
	t.Setenv("DB_MAX_CONNS", "25")

	cfg := Load()

	if cfg.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if want := []string{"https://a.academy", "https://b.academy"}; !reflect.DeepEqual(cfg.AllowedOrigins, want) {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
	if want := []string{"r1:6379", "r2:6379"}; !reflect.DeepEqual(cfg.RedisAddrs, want) || !cfg.RedisCluster {
		t.Errorf("redis = %v cluster=%v", cfg.RedisAddrs, cfg.RedisCluster)
	}
	if !cfg.AllowLegacyPlaintext {
		t.Error("AllowLegacyPlaintext not read")
	}
	if cfg.SessionMaxIdle != 2*time.Hour || cfg.JWT.TTL != 30*time.Minute {
		t.Errorf("durations = %v / %v", cfg.SessionMaxIdle, cfg.JWT.TTL)
	}
	if cfg.DBMaxConns != 25 {
		t.Errorf("DBMaxConns = %d", cfg.DBMaxConns)
	}
}

func TestBadValuesFallBack(t *testing.T) {
	t.Setenv("SESSION_CLOSED_GRACE", "soon")
	t.Setenv("LOGIN_MAX_ATTEMPTS", "many")
	t.Setenv("COOKIE_SECURE", "maybe")

	cfg := Load()
	if cfg.SessionClosedGrace != time.Hour || cfg.LoginMaxAttempts != 5 || !cfg.CookieSecure {
		t.Errorf("fallbacks not applied: %+v", cfg)
	}
}

func TestAllowsAnyOrigin(t *testing.T) {
	if Load().AllowsAnyOrigin() {
		t.Error("default origins should not be a wildcard")
	}

	t.Setenv("ALLOWED_ORIGINS", "https://a.academy,*")
	if !Load().AllowsAnyOrigin() {
		t.Error("wildcard not detected")
	}
}
