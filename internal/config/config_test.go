package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.BaseURL != "http://localhost:8080" {
		t.Errorf("BaseURL = %q", cfg.Server.BaseURL)
	}
	if cfg.Server.Flavor != FlavorPlain {
		t.Errorf("Flavor = %q", cfg.Server.Flavor)
	}
	if cfg.Server.Timeout != 15*time.Second {
		t.Errorf("Timeout = %v", cfg.Server.Timeout)
	}
	if cfg.Auth.Mode != AuthBearer {
		t.Errorf("Mode = %q", cfg.Auth.Mode)
	}
	if cfg.Auth.Behavior != LoginHint {
		t.Errorf("Behavior = %q", cfg.Auth.Behavior)
	}
	if cfg.App.Timezone != "UTC" {
		t.Errorf("Timezone = %q", cfg.App.Timezone)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ROOMBOOK_BASE_URL", "https://booking.example.com")
	t.Setenv("ROOMBOOK_AUTH_MODE", "cookie")
	t.Setenv("ROOMBOOK_API_FLAVOR", "prefixed")
	t.Setenv("ROOMBOOK_LOGIN_BEHAVIOR", "redirect")
	t.Setenv("ROOMBOOK_TIMEOUT", "3s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.BaseURL != "https://booking.example.com" {
		t.Errorf("BaseURL = %q", cfg.Server.BaseURL)
	}
	if cfg.Auth.Mode != AuthCookie {
		t.Errorf("Mode = %q", cfg.Auth.Mode)
	}
	if cfg.Server.Flavor != FlavorPrefixed {
		t.Errorf("Flavor = %q", cfg.Server.Flavor)
	}
	if cfg.Auth.Behavior != LoginRedirect {
		t.Errorf("Behavior = %q", cfg.Auth.Behavior)
	}
	if cfg.Server.Timeout != 3*time.Second {
		t.Errorf("Timeout = %v", cfg.Server.Timeout)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value string
	}{
		{"bad auth mode", "ROOMBOOK_AUTH_MODE", "both"},
		{"bad flavor", "ROOMBOOK_API_FLAVOR", "v2"},
		{"bad behavior", "ROOMBOOK_LOGIN_BEHAVIOR", "panic"},
		{"bad timeout", "ROOMBOOK_TIMEOUT", "soon"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%s", tc.key, tc.value)
			}
		})
	}
}
