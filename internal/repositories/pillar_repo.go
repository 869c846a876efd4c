package repositories

import (
	"context"
	"fmt"

	"github.com/campuskit/registry/internal/database"
	"github.com/campuskit/registry/internal/models"
	"github.com/jackc/pgx/v5"
)

// PillarRepository owns the partition trackers of the code space. All
// mutation happens under a row-level exclusive lock taken by Lock, so two
// concurrent allocations in the same partition serialize on the tracker row
// and nothing else.
type PillarRepository struct {
	pool database.Queryer
}

func NewPillarRepository(db *database.DB) *PillarRepository {
	return &PillarRepository{pool: db.Pool}
}

func (r *PillarRepository) q(tx pgx.Tx) database.Queryer {
	if tx != nil {
		return tx
	}
	return r.pool
}

// Lock acquires the exclusive row lock on a partition tracker, creating the
// tracker lazily with last_issued = base on first use. Must run inside a
// transaction; the lock is released at commit or rollback.
func (r *PillarRepository) Lock(ctx context.Context, tx pgx.Tx, base int) (*models.PillarTracker, error) {
	_, err := r.q(tx).Exec(ctx, `
		INSERT INTO pillar_trackers (sub_pillar_base, last_issued)
		VALUES ($1, $1)
		ON CONFLICT (sub_pillar_base) DO NOTHING
	`, base)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure pillar tracker: %w", err)
	}

	var tracker models.PillarTracker
	err = r.q(tx).QueryRow(ctx, `
		SELECT sub_pillar_base, last_issued, updated_at
		FROM pillar_trackers
		WHERE sub_pillar_base = $1
		FOR UPDATE
	`, base).Scan(&tracker.SubPillarBase, &tracker.LastIssued, &tracker.UpdatedAt)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &tracker, nil
}

// SetLastIssued persists the new high-water mark for a locked partition.
func (r *PillarRepository) SetLastIssued(ctx context.Context, tx pgx.Tx, base, lastIssued int) error {
	result, err := r.q(tx).Exec(ctx, `
		UPDATE pillar_trackers SET last_issued = $1, updated_at = NOW()
		WHERE sub_pillar_base = $2
	`, lastIssued, base)
	if err != nil {
		return fmt.Errorf("failed to update pillar tracker: %w", err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}
