package giftcapsules

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

func (r *PostgresRepository) Create(ctx context.Context, c *models.GiftCapsule) error {

	query :=
		`INSERT INTO time_capsules (creator_id, recipient_id, discovery_id, message, wrap_style, reveal_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		c.CreatorID, c.RecipientID, c.DiscoveryID, c.Message, c.WrapStyle, c.RevealAt).Scan(&c.ID, &c.CreatedAt)

	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

// ClaimDue relies on the UPDATE taking row locks: two instances scanning at
// the same moment each reveal a disjoint set of capsules.
func (r *PostgresRepository) ClaimDue(ctx context.Context, now time.Time) ([]models.RevealedGift, error) {

	query :=
		`UPDATE time_capsules tc
		 SET revealed = TRUE
		 FROM discoveries d, users u
		 WHERE tc.discovery_id = d.id
		 AND tc.creator_id = u.id
		 AND tc.reveal_at <= $1
		 AND NOT tc.revealed
		 RETURNING tc.id, tc.recipient_id, u.username, COALESCE(tc.message, ''), tc.wrap_style,
		           d.id, d.query, d.result_url, d.result_title, d.result_snippet, tc.created_at
		 `

	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var gifts []models.RevealedGift
	for rows.Next() {
		var g models.RevealedGift
		err := rows.Scan(&g.CapsuleID, &g.RecipientID, &g.FromUsername, &g.Message, &g.WrapStyle,
			&g.DiscoveryID, &g.Query, &g.URL, &g.Title, &g.Snippet, &g.WrappedAt)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		gifts = append(gifts, g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return gifts, nil
}

func (r *PostgresRepository) ListPending(ctx context.Context, recipientID string) ([]models.PendingGift, error) {

	query :=
		`SELECT tc.id, u.username, COALESCE(tc.message, ''), tc.wrap_style, tc.reveal_at, tc.created_at
		 FROM time_capsules tc
		 JOIN users u ON tc.creator_id = u.id
		 WHERE tc.recipient_id = $1
		 AND NOT tc.revealed
		 ORDER BY tc.reveal_at
		 `

	rows, err := r.db.QueryContext(ctx, query, recipientID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	return scanPending(rows)
}

func scanPending(rows *sql.Rows) ([]models.PendingGift, error) {
	var gifts []models.PendingGift
	for rows.Next() {
		var g models.PendingGift
		err := rows.Scan(&g.CapsuleID, &g.FromUsername, &g.Message, &g.WrapStyle, &g.RevealAt, &g.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		gifts = append(gifts, g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return gifts, nil
}
