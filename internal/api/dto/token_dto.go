package dto

import "time"

// TokenRequest payload for POST /auth/token.
type TokenRequest struct {
	APIKey string `json:"apiKey"`
}

// TokenResponse is returned on successful issuance.
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ProtectedResponse is the payload of the protected resource.
type ProtectedResponse struct {
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expires_at"`
}
