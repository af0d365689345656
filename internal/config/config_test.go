package config

import "testing"

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")
	t.Setenv("STORE_PASSWORD", "")

	cfg := Load()
	if cfg.AuthSecret != "" {
		t.Fatalf("expected empty AUTH_SECRET when unset, got %q", cfg.AuthSecret)
	}
	if cfg.StorePassword != "" {
		t.Fatalf("expected empty STORE_PASSWORD when unset, got %q", cfg.StorePassword)
	}
}

func TestLoadFallsBackOnBadTTL(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_TTL_MINUTES", "not-a-number")
	t.Setenv("SESSION_CART_TTL_MINUTES", "-5")

	cfg := Load()
	if cfg.AccessTokenTTLMinutes != 480 {
		t.Fatalf("expected token TTL fallback 480, got %d", cfg.AccessTokenTTLMinutes)
	}
	if cfg.CartTTLMinutes != 720 {
		t.Fatalf("expected cart TTL fallback 720, got %d", cfg.CartTTLMinutes)
	}
}
