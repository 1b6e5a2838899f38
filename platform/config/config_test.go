package config

import (
	"testing"
	"time"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SESSION_TOKEN_SECRET", "secret")
	t.Setenv("REASONER_API_KEY", "key")
	t.Setenv("BACKEND_MODE", "rest")
	t.Setenv("BACKEND_BASE_URL", "http://backend.local/")
	t.Setenv("VERIFY_MODE", "rest")
	t.Setenv("VERIFY_BASE_URL", "http://verify.local")
	t.Setenv("CORS_ORIGINS", "http://localhost:4200")
}

func TestLoadDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.GetSessionIdleThreshold() != 2*time.Minute {
		t.Fatalf("idle threshold = %v, want 2m", cfg.GetSessionIdleThreshold())
	}
	if cfg.GetSessionSweepInterval() != time.Minute {
		t.Fatalf("sweep interval = %v, want 60s", cfg.GetSessionSweepInterval())
	}
	if cfg.GetBackendBaseURL() != "http://backend.local" {
		t.Fatalf("backend url = %q, want trailing slash trimmed", cfg.GetBackendBaseURL())
	}
	if cfg.GetExternalCallTimeout() != 15*time.Second {
		t.Fatalf("external timeout = %v, want 15s", cfg.GetExternalCallTimeout())
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing token secret", env: map[string]string{"SESSION_TOKEN_SECRET": ""}},
		{name: "postgres without database url", env: map[string]string{"BACKEND_MODE": "postgres", "DATABASE_URL": ""}},
		{name: "unknown backend mode", env: map[string]string{"BACKEND_MODE": "soap"}},
		{name: "smtp without host", env: map[string]string{"VERIFY_MODE": "smtp", "SMTP_HOST": ""}},
		{name: "zero idle threshold", env: map[string]string{"SESSION_IDLE_THRESHOLD": "0s"}},
		{name: "wildcard cors with credentials", env: map[string]string{"CORS_ORIGINS": "*", "CORS_ALLOW_CREDENTIALS": "true"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setBaseEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}
