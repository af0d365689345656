package httpapi

import (
	"strings"
	"testing"
	"time"

	"butikpos/backend/internal/domain"
)

func TestAuthManagerHashesStorePassword(t *testing.T) {
	manager := NewAuthManager("test-secret-key", time.Hour, "butik-rahasia")

	if manager.storePassword == "butik-rahasia" {
		t.Fatalf("expected store password to be stored as hash, got plain-text")
	}
	if !strings.HasPrefix(manager.storePassword, "$2") {
		t.Fatalf("expected bcrypt hash prefix, got %s", manager.storePassword)
	}
}

func TestLoginAndParseTokenRoundTrip(t *testing.T) {
	manager := NewAuthManager("test-secret-key", time.Hour, "butik-rahasia")

	resp, err := manager.Login(domain.LoginRequest{Name: "  Dina  ", Password: "butik-rahasia"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if resp.Name != "dina" {
		t.Fatalf("expected normalized name dina, got %s", resp.Name)
	}
	if strings.TrimSpace(resp.AccessToken) == "" {
		t.Fatalf("expected access token")
	}

	actor, err := manager.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("parse token failed: %v", err)
	}
	if actor.Name != "dina" {
		t.Fatalf("expected actor dina, got %s", actor.Name)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	manager := NewAuthManager("test-secret-key", time.Hour, "butik-rahasia")

	_, err := manager.Login(domain.LoginRequest{Name: "dina", Password: "salah"})
	if err == nil {
		t.Fatalf("expected login with wrong password to fail")
	}
}

func TestParseTokenRejectsForeignSecret(t *testing.T) {
	signer := NewAuthManager("one-secret-key-for-signing-only", time.Hour, "butik-rahasia")
	verifier := NewAuthManager("another-secret-key-for-parsing", time.Hour, "butik-rahasia")

	resp, err := signer.Login(domain.LoginRequest{Name: "dina", Password: "butik-rahasia"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	if _, err := verifier.ParseToken(resp.AccessToken); err == nil {
		t.Fatalf("expected token signed with another secret to be rejected")
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	manager := NewAuthManager("test-secret-key", time.Hour, "butik-rahasia")

	token, err := manager.sign("dina", time.Now().UTC().Add(-time.Minute))
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if _, err := manager.ParseToken(token); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}
