package digests

import (
	"context"
	"fmt"

	"github.com/convivial/salon/internal/dbx"
	"github.com/convivial/salon/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Upsert(ctx context.Context, d *models.Digest) error {

	query :=
		`INSERT INTO morning_coffee (digest_date, discoveries, generated_summary)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (digest_date) DO UPDATE
		 SET discoveries = EXCLUDED.discoveries,
		     generated_summary = EXCLUDED.generated_summary,
		     generated_at = NOW()
		 `

	if _, err := r.db.ExecContext(ctx, query, d.Date, d.Count, d.Summary); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}
