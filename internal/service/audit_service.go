package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/token-gateway/internal/events"
	"github.com/spec-kit/token-gateway/internal/repository"
)

const auditWriteTimeout = 2 * time.Second

// AuditedEvents lists the event types AuditService.Handle records.
var AuditedEvents = []events.EventType{
	events.EventTokenIssued,
	events.EventIssuanceDenied,
	events.EventAccessDenied,
}

// AuditService records authentication events to the log, the issuance
// ledger and the usage counters. Ledger and counters are optional.
type AuditService struct {
	logger    *zap.Logger
	issuances repository.IssuanceRepository
	counters  repository.UsageCounter
}

// NewAuditService creates the service.
func NewAuditService(logger *zap.Logger, issuances repository.IssuanceRepository, counters repository.UsageCounter) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{
		logger:    logger,
		issuances: issuances,
		counters:  counters,
	}
}

// Handle records one event. Each write is bounded by its own timeout and
// outlives cancellation of ctx.
func (a *AuditService) Handle(ctx context.Context, event events.Event) error {
	switch event.Type {
	case events.EventTokenIssued:
		return a.handleTokenIssued(ctx, event)
	case events.EventIssuanceDenied, events.EventAccessDenied:
		return a.handleDenied(ctx, event)
	}
	return nil
}

func (a *AuditService) handleTokenIssued(ctx context.Context, event events.Event) error {
	a.logger.Debug("TokenIssued", zap.String("event_id", event.ID), zap.String("subject", event.SubjectFingerprint))

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditWriteTimeout)
	defer cancel()

	if payload, ok := event.Payload.(events.TokenIssuedPayload); ok && a.issuances != nil {
		issuance := payload.Issuance
		if err := a.issuances.Create(ctx, &issuance); err != nil {
			return fmt.Errorf("record issuance %s: %w", issuance.ID, err)
		}
	}
	return a.increment(ctx, CounterIssued)
}

func (a *AuditService) handleDenied(ctx context.Context, event events.Event) error {
	a.logger.Debug(string(event.Type),
		zap.String("event_id", event.ID),
		zap.String("reason", string(event.Reason)),
		zap.String("subject", event.SubjectFingerprint))

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditWriteTimeout)
	defer cancel()
	return a.increment(ctx, DeniedCounter(string(event.Reason)))
}

func (a *AuditService) increment(ctx context.Context, name string) error {
	if a.counters == nil {
		return nil
	}
	if _, err := a.counters.Increment(ctx, name); err != nil {
		return fmt.Errorf("increment %s: %w", name, err)
	}
	return nil
}

// CounterIssued counts minted tokens.
const CounterIssued = "issued"

// DeniedCounter names the counter for a denial reason.
func DeniedCounter(reason string) string {
	return "denied:" + reason
}
