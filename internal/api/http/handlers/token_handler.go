package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/token-gateway/internal/api/dto"
	"github.com/spec-kit/token-gateway/internal/domain"
	"github.com/spec-kit/token-gateway/internal/service"
	apperrors "github.com/spec-kit/token-gateway/pkg/util"
)

// TokenIssuer exchanges an API key for a signed token.
type TokenIssuer interface {
	Issue(ctx context.Context, credential string) (*domain.Issuance, string, error)
}

// TokenHandler exposes the token issuance endpoint.
type TokenHandler struct {
	issuer TokenIssuer
}

// NewTokenHandler constructs handler.
func NewTokenHandler(issuer TokenIssuer) *TokenHandler {
	return &TokenHandler{issuer: issuer}
}

// Issue handles POST /auth/token.
func (h *TokenHandler) Issue(c *fiber.Ctx) error {
	var req dto.TokenRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.APIKey) == "" {
		return apperrors.NewValidationError("apiKey required", map[string]any{"field": "apiKey"})
	}

	issuance, token, err := h.issuer.Issue(c.UserContext(), req.APIKey)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredential) {
			return apperrors.NewUnauthorized("Invalid API key")
		}
		return apperrors.NewInternalError(err)
	}

	return c.JSON(dto.TokenResponse{Token: token, ExpiresAt: issuance.ExpiresAt})
}
