package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/token-gateway/internal/auth"
	"github.com/spec-kit/token-gateway/internal/domain"
	"github.com/spec-kit/token-gateway/internal/events"
)

// ErrInvalidCredential is returned when the presented API key is not registered.
var ErrInvalidCredential = errors.New("invalid api key")

// KeyChecker answers whether a credential may obtain a token.
type KeyChecker interface {
	IsAuthorized(credential string) bool
}

// TokenEncoder mints signed tokens.
type TokenEncoder interface {
	NewClaims(subject, id string) auth.Claims
	Encode(claims auth.Claims) (string, error)
}

// IssuanceService exchanges API keys for access tokens.
type IssuanceService struct {
	keys       KeyChecker
	tokens     TokenEncoder
	dispatcher events.Dispatcher
	logger     *zap.Logger
	newID      func() string
}

// IssuanceDependencies encapsulates collaborators of the issuance flow.
type IssuanceDependencies struct {
	Keys       KeyChecker
	Tokens     TokenEncoder
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewIssuanceService builds the service.
func NewIssuanceService(deps IssuanceDependencies) *IssuanceService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IssuanceService{
		keys:       deps.Keys,
		tokens:     deps.Tokens,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		newID:      uuid.NewString,
	}
}

// Issue mints a token for credential. Unknown credentials fail with
// ErrInvalidCredential before any signing happens.
func (s *IssuanceService) Issue(ctx context.Context, credential string) (*domain.Issuance, string, error) {
	fingerprint := auth.Fingerprint(credential)

	if !s.keys.IsAuthorized(credential) {
		s.logger.Info("token issuance denied", zap.String("subject", fingerprint))
		s.publish(ctx, events.Event{
			Type:               events.EventIssuanceDenied,
			SubjectFingerprint: fingerprint,
			Reason:             domain.DenyInvalidCredential,
		})
		return nil, "", ErrInvalidCredential
	}

	claims := s.tokens.NewClaims(credential, s.newID())
	token, err := s.tokens.Encode(claims)
	if err != nil {
		return nil, "", fmt.Errorf("encode token: %w", err)
	}

	issuance := &domain.Issuance{
		ID:                 claims.ID,
		SubjectFingerprint: fingerprint,
		IssuedAt:           claims.IssuedAt,
		ExpiresAt:          claims.ExpiresAt,
	}
	s.logger.Info("token issued",
		zap.String("subject", fingerprint),
		zap.String("jti", issuance.ID),
		zap.Time("expires_at", issuance.ExpiresAt))
	s.publish(ctx, events.Event{
		Type:               events.EventTokenIssued,
		SubjectFingerprint: fingerprint,
		Payload:            events.TokenIssuedPayload{Issuance: *issuance},
	})

	return issuance, token, nil
}

func (s *IssuanceService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	event.ID = uuid.NewString()
	event.Timestamp = time.Now().UTC()
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish event", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}
