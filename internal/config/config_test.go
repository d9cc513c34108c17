package config

import (
	"strings"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret-32-characters-long!")
	t.Setenv("DB_PASSWORD", "test")
	t.Setenv("GATE_PASSCODE", "0928")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	if cfg.Gate.MaxAttempts != DefaultMaxAttempts {
		t.Errorf("Gate.MaxAttempts: got %d, want %d", cfg.Gate.MaxAttempts, DefaultMaxAttempts)
	}
	if !cfg.Gate.RequireGate {
		t.Errorf("Gate.RequireGate: got false, want true")
	}
	if cfg.Chat.StoreBackend != StoreBackendPostgres {
		t.Errorf("Chat.StoreBackend: got %q, want %q", cfg.Chat.StoreBackend, StoreBackendPostgres)
	}
	if cfg.Session.TTL != 24*time.Hour {
		t.Errorf("Session.TTL: got %v, want %v", cfg.Session.TTL, 24*time.Hour)
	}
	if cfg.Email.Enabled {
		t.Errorf("Email.Enabled: got true, want false")
	}
}

func TestServerConfig_Timeouts(t *testing.T) {
	tests := []struct {
		name     string
		env      map[string]string
		expected [3]time.Duration
	}{
		{
			name:     "defaults",
			env:      map[string]string{},
			expected: [3]time.Duration{15 * time.Second, 15 * time.Second, 60 * time.Second},
		},
		{
			name: "custom values",
			env: map[string]string{
				"SERVER_READ_TIMEOUT":  "30s",
				"SERVER_WRITE_TIMEOUT": "45s",
				"SERVER_IDLE_TIMEOUT":  "120s",
			},
			expected: [3]time.Duration{30 * time.Second, 45 * time.Second, 120 * time.Second},
		},
		{
			name:     "invalid duration falls back to default",
			env:      map[string]string{"SERVER_READ_TIMEOUT": "not-a-duration"},
			expected: [3]time.Duration{15 * time.Second, 15 * time.Second, 60 * time.Second},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load() = %v, want nil", err)
			}

			got := [3]time.Duration{cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.IdleTimeout}
			if got != tt.expected {
				t.Errorf("timeouts: got %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestLoad_RequiredValues(t *testing.T) {
	tests := []struct {
		name    string
		unset   string
		wantErr string
	}{
		{"missing jwt secret", "JWT_SECRET", "JWT_SECRET is required"},
		{"missing db password", "DB_PASSWORD", "DB_PASSWORD is required"},
		{"missing passcode", "GATE_PASSCODE", "GATE_PASSCODE is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.unset, "")

			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Load() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_RejectsInvalidGateThreshold(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("GATE_MAX_ATTEMPTS", "0")

	if _, err := Load(); err == nil {
		t.Fatal("Load() = nil, want error for zero threshold")
	}
}

func TestLoad_StoreBackend(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("MESSAGE_STORE", "Badger")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}
	if cfg.Chat.StoreBackend != StoreBackendBadger {
		t.Errorf("StoreBackend: got %q, want %q", cfg.Chat.StoreBackend, StoreBackendBadger)
	}

	t.Setenv("MESSAGE_STORE", "mongo")
	if _, err := Load(); err == nil {
		t.Fatal("Load() = nil, want error for unknown backend")
	}
}

func TestLoad_EmailRequiresSender(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("EMAIL_ENABLED", "true")

	if _, err := Load(); err == nil {
		t.Fatal("Load() = nil, want error when EMAIL_FROM is missing")
	}

	t.Setenv("EMAIL_FROM", "security@example.com")
	if _, err := Load(); err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}
}

func TestValidateJWTSecret(t *testing.T) {
	if err := validateJWTSecret("short", "development"); err == nil {
		t.Error("expected error for short secret")
	}
	if err := validateJWTSecret("sixteen-chars-ok", "production"); err == nil {
		t.Error("expected error for secret shorter than 32 chars in production")
	}
	if err := validateJWTSecret("sixteen-chars-ok", "development"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestParseList(t *testing.T) {
	got := parseList(" 10.0.0.0/8, ,127.0.0.1/32 ")
	if len(got) != 2 || got[0] != "10.0.0.0/8" || got[1] != "127.0.0.1/32" {
		t.Errorf("parseList: got %v", got)
	}
	if len(parseList("")) != 0 {
		t.Error("parseList of empty string should be empty")
	}
}
