package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/token-gateway/internal/domain"
)

// IssuanceRepository appends to the issuance ledger. The ledger is write-only
// from the gateway; operators query token_issuances directly.
type IssuanceRepository interface {
	Create(ctx context.Context, issuance *domain.Issuance) error
}

type issuanceRepository struct {
	pool *pgxpool.Pool
}

// NewIssuanceRepository returns a Postgres-backed implementation, or nil when
// no pool is configured.
func NewIssuanceRepository(pool *pgxpool.Pool) IssuanceRepository {
	if pool == nil {
		return nil
	}
	return &issuanceRepository{pool: pool}
}

func (r *issuanceRepository) Create(ctx context.Context, issuance *domain.Issuance) error {
	const query = `
        INSERT INTO token_issuances (id, subject_fingerprint, issued_at, expires_at)
        VALUES ($1, $2, $3, $4)`

	_, err := r.pool.Exec(ctx, query,
		issuance.ID,
		issuance.SubjectFingerprint,
		issuance.IssuedAt,
		issuance.ExpiresAt,
	)
	return err
}
