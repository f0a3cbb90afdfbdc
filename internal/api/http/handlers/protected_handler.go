package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/token-gateway/internal/api/dto"
	"github.com/spec-kit/token-gateway/internal/auth"
	apperrors "github.com/spec-kit/token-gateway/pkg/util"
)

const protectedMessage = "This is protected data accessible only with a valid token."

// ProtectedHandler serves resources behind the authentication gate.
type ProtectedHandler struct{}

// NewProtectedHandler constructs handler.
func NewProtectedHandler() *ProtectedHandler {
	return &ProtectedHandler{}
}

// Get handles GET /protected.
func (h *ProtectedHandler) Get(c *fiber.Ctx) error {
	claims, ok := auth.ClaimsFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("missing or invalid authorization header")
	}
	return c.JSON(fiber.Map{
		"data": dto.ProtectedResponse{Message: protectedMessage, ExpiresAt: claims.ExpiresAt},
	})
}
