package config

import (
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "unit-test-secret")
	t.Setenv("AUTH_API_KEYS", "test_key, other_key ,,")
	t.Setenv("AUTH_ACCESS_TOKEN_TTL_MINUTES", "")
	t.Setenv("APP_PORT", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("AUDIT_BUFFER_SIZE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if got := cfg.Auth.AccessTokenTTL(); got != time.Hour {
		t.Errorf("AccessTokenTTL() = %v, want %v", got, time.Hour)
	}
	if len(cfg.Auth.APIKeys) != 2 || cfg.Auth.APIKeys[0] != "test_key" || cfg.Auth.APIKeys[1] != "other_key" {
		t.Errorf("APIKeys = %q", cfg.Auth.APIKeys)
	}
	if got := cfg.App.Addr(); got != "127.0.0.1:3000" {
		t.Errorf("Addr() = %q", got)
	}
	if cfg.Redis.Addr != "" {
		t.Errorf("Redis.Addr = %q, want empty", cfg.Redis.Addr)
	}
	if cfg.Audit.BufferSize != 1024 {
		t.Errorf("Audit.BufferSize = %d, want 1024", cfg.Audit.BufferSize)
	}
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatal("Load() without AUTH_JWT_SECRET should fail")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "valid",
			cfg: Config{
				App:  AppConfig{Port: "3000"},
				Auth: AuthConfig{JWTSecret: "s", AccessTokenTTLMinutes: 60},
			},
		},
		{
			name: "blank secret",
			cfg: Config{
				App:  AppConfig{Port: "3000"},
				Auth: AuthConfig{JWTSecret: "   ", AccessTokenTTLMinutes: 60},
			},
			wantErr: true,
		},
		{
			name: "zero ttl",
			cfg: Config{
				App:  AppConfig{Port: "3000"},
				Auth: AuthConfig{JWTSecret: "s"},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRequestTimeout(t *testing.T) {
	t.Parallel()

	if got := (AppConfig{RequestTimeoutSeconds: 0}).RequestTimeout(); got != 0 {
		t.Errorf("RequestTimeout() = %v, want 0", got)
	}
	if got := (AppConfig{RequestTimeoutSeconds: 5}).RequestTimeout(); got != 5*time.Second {
		t.Errorf("RequestTimeout() = %v, want 5s", got)
	}
}
