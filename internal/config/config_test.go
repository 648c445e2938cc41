package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/heartcare")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != "8000" {
		t.Errorf("Port = %q, want 8000", cfg.Port)
	}
	if !cfg.IsDev() {
		t.Errorf("Env = %q, want development default", cfg.Env)
	}
	if cfg.TokenTTLMinutes != 480 {
		t.Errorf("TokenTTLMinutes = %d, want 480", cfg.TokenTTLMinutes)
	}
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	if _, err := Load(); err == nil {
		t.Fatal("Load() = nil error without DATABASE_URL")
	}
}

func TestValidateJWTSecret(t *testing.T) {
	cfg := &Config{Env: "production", JWTSecret: "short", TokenTTLMinutes: 60}
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() accepted a short secret in production")
	}

	cfg.JWTSecret = "0123456789abcdef0123456789abcdef"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}

	dev := &Config{Env: "development", TokenTTLMinutes: 60}
	if err := dev.Validate(); err != nil {
		t.Errorf("Validate() error = %v in development", err)
	}
}
