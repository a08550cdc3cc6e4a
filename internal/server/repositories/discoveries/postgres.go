package discoveries

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/convivial/salon/internal/dbx"
	"github.com/convivial/salon/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, d *models.Discovery) error {

	query :=
		`INSERT INTO discoveries (user_id, query, result_url, result_title, result_snippet, engine, is_gift, gifted_to, gift_message)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, discovered_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		d.UserID, d.Query, d.URL, d.Title, d.Snippet, d.Engine,
		d.IsGift, nullIfEmpty(d.GiftedTo), nullIfEmpty(d.GiftMessage)).Scan(&d.ID, &d.DiscoveredAt)

	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) ListRecent(ctx context.Context, limit int) ([]models.DiscoveryView, error) {

	// gifts never appear in the shared feed
	query :=
		`SELECT d.id, d.user_id, d.query, d.result_url, d.result_title, d.result_snippet,
		        d.engine, d.discovered_at, u.username, u.display_name
		 FROM discoveries d
		 JOIN users u ON d.user_id = u.id
		 WHERE NOT d.is_gift
		 ORDER BY d.discovered_at DESC
		 LIMIT $1
		 `

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	return scanViews(rows)
}

func (r *PostgresRepository) ListForDay(ctx context.Context, day time.Time) ([]models.DiscoveryView, error) {

	query :=
		`SELECT d.id, d.user_id, d.query, d.result_url, d.result_title, d.result_snippet,
		        d.engine, d.discovered_at, u.username, u.display_name
		 FROM discoveries d
		 JOIN users u ON d.user_id = u.id
		 WHERE NOT d.is_gift
		 AND d.discovered_at >= $1 AND d.discovered_at < $2
		 ORDER BY d.discovered_at DESC
		 `

	start := day.UTC().Truncate(24 * time.Hour)
	rows, err := r.db.QueryContext(ctx, query, start, start.Add(24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	return scanViews(rows)
}

func scanViews(rows *sql.Rows) ([]models.DiscoveryView, error) {
	var views []models.DiscoveryView
	for rows.Next() {
		var v models.DiscoveryView
		err := rows.Scan(&v.ID, &v.UserID, &v.Query, &v.URL, &v.Title, &v.Snippet,
			&v.Engine, &v.DiscoveredAt, &v.Username, &v.DisplayName)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		views = append(views, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return views, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
