package config

import (
	"os"
	"testing"
)

func TestLoadRequiresDatabaseURL(t *testing.T) {
	os.Unsetenv("DATABASE_URL")
	if _, err := Load(); err == nil {
		t.Fatal("expected error when DATABASE_URL is missing")
	}
}

func TestLoadDefaults(t *testing.T) {
	os.Setenv("DATABASE_URL", "postgres://localhost:5432/tocdoc")
	defer os.Unsetenv("DATABASE_URL")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8000" {
		t.Errorf("expected default port 8000, got %s", cfg.Port)
	}
	if !cfg.IsDev() {
		t.Error("expected default ENV=development")
	}
	if len(cfg.AdminEmails) != 1 || cfg.AdminEmails[0] != "admin@tocdoc.com" {
		t.Errorf("unexpected default admin allowlist: %v", cfg.AdminEmails)
	}
}

func TestIsAdminEmail(t *testing.T) {
	cfg := &Config{AdminEmails: []string{"admin@tocdoc.com", "ops@tocdoc.com"}}

	cases := []struct {
		email string
		want  bool
	}{
		{"admin@tocdoc.com", true},
		{"ADMIN@TOCDOC.COM", true},
		{"ops@tocdoc.com", true},
		{"doctor@tocdoc.com", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := cfg.IsAdminEmail(tc.email); got != tc.want {
			t.Errorf("IsAdminEmail(%q) = %v, want %v", tc.email, got, tc.want)
		}
	}
}

func TestValidateRejectsUnauthenticatedProduction(t *testing.T) {
	cfg := &Config{Env: "production", AdminEmails: []string{"admin@tocdoc.com"}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for production without JWT_SECRET or AUTH_ISSUER")
	}

	cfg.JWTSecret = "test-secret"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRequiresAdminAllowlist(t *testing.T) {
	cfg := &Config{Env: "development"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for empty admin allowlist")
	}
}
