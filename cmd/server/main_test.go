package main

import (
	"testing"

	"butikpos/backend/internal/config"
)

func TestValidateSecurityConfigRejectsWeakValues(t *testing.T) {
	err := validateSecurityConfig(config.Config{AuthSecret: "short", StorePassword: "password"})
	if err == nil {
		t.Fatalf("expected weak security config to be rejected")
	}
}

func TestValidateSecurityConfigRejectsRepeatedCharacters(t *testing.T) {
	err := validateSecurityConfig(config.Config{AuthSecret: "0123456789abcdef0123456789abcdef", StorePassword: "aaaaaaaa"})
	if err == nil {
		t.Fatalf("expected all-same-character password to be rejected")
	}
}

func TestValidateSecurityConfigAcceptsStrongValues(t *testing.T) {
	err := validateSecurityConfig(config.Config{AuthSecret: "0123456789abcdef0123456789abcdef", StorePassword: "gaun-linen-2026"})
	if err != nil {
		t.Fatalf("expected strong config to pass, got %v", err)
	}
}
