package auth

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/token-gateway/internal/domain"
	"github.com/spec-kit/token-gateway/internal/events"
	apperrors "github.com/spec-kit/token-gateway/pkg/util"
)

const claimsKey = "auth_claims"

const (
	msgBadHeader    = "missing or invalid authorization header"
	msgInvalidToken = "invalid or expired token"
)

type claimsContextKey struct{}

// TokenDecoder verifies a token string into claims.
type TokenDecoder interface {
	Decode(token string) (*Claims, error)
}

// HeaderSource exposes request headers. *fiber.Ctx satisfies it.
type HeaderSource interface {
	Get(key string, defaultValue ...string) string
}

// Verdict is the outcome of authorizing a single request.
type Verdict struct {
	Authorized bool
	Claims     *Claims
	Reason     domain.DenyReason
	Err        error
}

// Subject returns the authenticated subject, or "" for a denial.
func (v Verdict) Subject() string {
	if !v.Authorized || v.Claims == nil {
		return ""
	}
	return v.Claims.Subject
}

// Message is the client-facing text for a denial.
func (v Verdict) Message() string {
	if v.Reason == domain.DenyMissingOrMalformedHeader {
		return msgBadHeader
	}
	return msgInvalidToken
}

// Gate authorizes requests carrying a bearer token.
type Gate struct {
	tokens     TokenDecoder
	logger     *zap.Logger
	dispatcher events.Dispatcher
}

// NewGate constructs the gate. logger and dispatcher may be nil.
func NewGate(tokens TokenDecoder, logger *zap.Logger, dispatcher events.Dispatcher) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{tokens: tokens, logger: logger, dispatcher: dispatcher}
}

// Authorize decides whether the request's Authorization header holds a valid token.
// The decoder is not consulted when the header is absent or not a bearer credential.
func (g *Gate) Authorize(req HeaderSource) Verdict {
	token, ok := bearerToken(req.Get(fiber.HeaderAuthorization))
	if !ok {
		return Verdict{Reason: domain.DenyMissingOrMalformedHeader}
	}

	claims, err := g.tokens.Decode(token)
	if err != nil {
		if TokenErrorKindOf(err) == TokenErrorExpired {
			return Verdict{Reason: domain.DenyTokenExpired, Err: err}
		}
		return Verdict{Reason: domain.DenyInvalidToken, Err: err}
	}
	return Verdict{Authorized: true, Claims: claims}
}

// Handle enforces authentication for protected routes.
func (g *Gate) Handle(c *fiber.Ctx) error {
	verdict := g.Authorize(c)
	if !verdict.Authorized {
		g.reportDenied(c, verdict)
		return apperrors.NewUnauthorizedWithCause(verdict.Message(), verdict.Err)
	}

	c.Locals(claimsKey, verdict.Claims)
	c.SetUserContext(WithClaims(c.UserContext(), verdict.Claims))
	return c.Next()
}

func (g *Gate) reportDenied(c *fiber.Ctx, verdict Verdict) {
	fields := []zap.Field{
		zap.String("reason", string(verdict.Reason)),
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
	}
	if verdict.Err != nil {
		fields = append(fields, zap.Error(verdict.Err))
	}
	g.logger.Info("access denied", fields...)

	if g.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventAccessDenied,
		Reason:    verdict.Reason,
		Timestamp: time.Now().UTC(),
		Payload:   events.AccessDeniedPayload{Method: c.Method(), Path: c.Path()},
	}
	if err := g.dispatcher.Publish(c.UserContext(), event); err != nil {
		g.logger.Warn("publish access_denied", zap.Error(err))
	}
}

func bearerToken(header string) (string, bool) {
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}

// ClaimsFromContext retrieves the claims stored by Gate.Handle.
func ClaimsFromContext(c *fiber.Ctx) (*Claims, bool) {
	val := c.Locals(claimsKey)
	if val == nil {
		return nil, false
	}
	claims, ok := val.(*Claims)
	return claims, ok
}

// SubjectFromContext returns the authenticated subject for the request.
func SubjectFromContext(c *fiber.Ctx) (string, bool) {
	claims, ok := ClaimsFromContext(c)
	if !ok || claims == nil {
		return "", false
	}
	return claims.Subject, true
}

// WithClaims stores claims in a context.Context for code below the HTTP layer.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey{}, claims)
}

// ClaimsFrom retrieves claims stored with WithClaims.
func ClaimsFrom(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(*Claims)
	return claims, ok
}
