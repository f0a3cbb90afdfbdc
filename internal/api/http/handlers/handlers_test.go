package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/token-gateway/internal/domain"
	"github.com/spec-kit/token-gateway/internal/persistence"
	"github.com/spec-kit/token-gateway/internal/service"
	apperrors "github.com/spec-kit/token-gateway/pkg/util"
)

type stubIssuer struct {
	err       error
	expiresAt time.Time
	got       string
}

func (s *stubIssuer) Issue(_ context.Context, credential string) (*domain.Issuance, string, error) {
	s.got = credential
	if s.err != nil {
		return nil, "", s.err
	}
	return &domain.Issuance{ID: "jti", ExpiresAt: s.expiresAt}, "signed.token.value", nil
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func newTestApp() *fiber.App {
	return fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			domainErr := apperrors.ToDomainError(err)
			return c.Status(domainErr.HTTPStatus).JSON(fiber.Map{"error": fiber.Map{
				"code":    domainErr.Code,
				"message": domainErr.Message,
			}})
		},
	})
}

func TestTokenHandler(t *testing.T) {
	t.Parallel()

	expiresAt := time.Date(2026, time.October, 17, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name       string
		body       string
		issuerErr  error
		wantStatus int
		wantCode   string
	}{
		{name: "issued", body: `{"apiKey":"test_key"}`, wantStatus: http.StatusOK},
		{name: "unknown key", body: `{"apiKey":"nope"}`, issuerErr: service.ErrInvalidCredential, wantStatus: http.StatusUnauthorized, wantCode: "UNAUTHORIZED"},
		{name: "blank key", body: `{"apiKey":"   "}`, wantStatus: http.StatusBadRequest, wantCode: "VALIDATION_FAILED"},
		{name: "broken json", body: `{"apiKey":`, wantStatus: http.StatusBadRequest, wantCode: "VALIDATION_FAILED"},
		{name: "signing failure", body: `{"apiKey":"test_key"}`, issuerErr: errors.New("boom"), wantStatus: http.StatusInternalServerError, wantCode: "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			issuer := &stubIssuer{err: tt.issuerErr, expiresAt: expiresAt}
			app := newTestApp()
			app.Post("/auth/token", NewTokenHandler(issuer).Issue)

			req := httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			resp, err := app.Test(req, -1)
			if err != nil {
				t.Fatalf("app.Test() error = %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}

			var body map[string]any
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if tt.wantCode == "" {
				if body["token"] != "signed.token.value" || body["expires_at"] != "2026-10-17T12:00:00Z" {
					t.Errorf("body = %v", body)
				}
				if issuer.got != "test_key" {
					t.Errorf("issuer received %q", issuer.got)
				}
				return
			}
			errBody, _ := body["error"].(map[string]any)
			if errBody["code"] != tt.wantCode {
				t.Errorf("code = %v, want %s", errBody["code"], tt.wantCode)
			}
		})
	}
}

func TestProtectedHandlerWithoutClaims(t *testing.T) {
	t.Parallel()

	app := newTestApp()
	app.Get("/protected", NewProtectedHandler().Get)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/protected", nil), -1)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestHealthReady(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		deps       map[string]Pinger
		wantStatus int
	}{
		{name: "no deps", wantStatus: http.StatusOK},
		{name: "disabled backend", deps: map[string]Pinger{
			"postgres": pingFunc(func(context.Context) error { return persistence.ErrNotConfigured }),
		}, wantStatus: http.StatusOK},
		{name: "healthy backend", deps: map[string]Pinger{
			"redis": pingFunc(func(context.Context) error { return nil }),
		}, wantStatus: http.StatusOK},
		{name: "failing backend", deps: map[string]Pinger{
			"redis": pingFunc(func(context.Context) error { return errors.New("connection refused") }),
		}, wantStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			app := newTestApp()
			h := NewHealthHandler("token-gateway", "test", tt.deps)
			app.Get("/health/ready", h.Ready)
			app.Get("/health/live", h.Live)

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health/ready", nil), -1)
			if err != nil {
				t.Fatalf("app.Test() error = %v", err)
			}
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("ready status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}

			resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/health/live", nil), -1)
			if err != nil {
				t.Fatalf("app.Test() error = %v", err)
			}
			if resp.StatusCode != http.StatusOK {
				t.Errorf("live status = %d, want 200", resp.StatusCode)
			}
		})
	}
}
