package collisions

import (
	"context"
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

func (r *PostgresRepository) Create(ctx context.Context, c *models.Collision) error {

	query :=
		`INSERT INTO collisions (user1_id, user2_id, query, collision_type)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, occurred_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		c.User1ID, c.User2ID, c.Query, c.Kind).Scan(&c.ID, &c.OccurredAt)

	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) ExistsForPair(ctx context.Context, userA, userB, query string, since time.Time) (bool, error) {

	q :=
		`SELECT EXISTS (
		   SELECT 1 FROM collisions
		   WHERE query = $3
		   AND occurred_at > $4
		   AND ((user1_id = $1 AND user2_id = $2) OR (user1_id = $2 AND user2_id = $1))
		 )
		 `

	var exists bool
	if err := r.db.QueryRowContext(ctx, q, userA, userB, query, since).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	return exists, nil
}

func (r *PostgresRepository) ListRecent(ctx context.Context, since time.Time, limit int) ([]models.CollisionView, error) {

	query :=
		`SELECT c.id, c.user1_id, c.user2_id, c.query, c.collision_type, c.occurred_at,
		        u1.username, u2.username
		 FROM collisions c
		 JOIN users u1 ON c.user1_id = u1.id
		 JOIN users u2 ON c.user2_id = u2.id
		 WHERE c.occurred_at > $1
		 ORDER BY c.occurred_at DESC
		 LIMIT $2
		 `

	rows, err := r.db.QueryContext(ctx, query, since, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var views []models.CollisionView
	for rows.Next() {
		var v models.CollisionView
		err := rows.Scan(&v.ID, &v.User1ID, &v.User2ID, &v.Query, &v.Kind, &v.OccurredAt,
			&v.User1Name, &v.User2Name)
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
