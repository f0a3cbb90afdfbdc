package events

import (
	"time"

	"github.com/spec-kit/token-gateway/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTokenIssued    EventType = "token_issued"
	EventIssuanceDenied EventType = "issuance_denied"
	EventAccessDenied   EventType = "access_denied"
)

// Event represents an authentication event emitted by the gateway.
// SubjectFingerprint is empty when the caller could not be identified.
type Event struct {
	ID                 string            `json:"id"`
	Type               EventType         `json:"type"`
	SubjectFingerprint string            `json:"subject_fingerprint,omitempty"`
	Reason             domain.DenyReason `json:"reason,omitempty"`
	Timestamp          time.Time         `json:"timestamp"`
	Payload            interface{}       `json:"payload,omitempty"`
}

// TokenIssuedPayload payload.
type TokenIssuedPayload struct {
	Issuance domain.Issuance `json:"issuance"`
}

// AccessDeniedPayload payload.
type AccessDeniedPayload struct {
	Method string `json:"method"`
	Path   string `json:"path"`
}
