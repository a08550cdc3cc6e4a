package collections

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

func (r *PostgresRepository) Create(ctx context.Context, c *models.Collection) error {

	query :=
		`INSERT INTO collections (name, description, type, owner_id, is_shared)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		c.Name, c.Description, c.Type, c.OwnerID, c.IsShared).Scan(&c.ID, &c.CreatedAt)

	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) List(ctx context.Context, userID string) ([]models.Collection, error) {

	query :=
		`SELECT c.id, c.name, c.description, c.type, c.owner_id, c.is_shared, c.created_at,
		        COUNT(ci.discovery_id) as item_count
		 FROM collections c
		 LEFT JOIN collection_items ci ON c.id = ci.collection_id
		 WHERE c.is_shared = TRUE OR c.owner_id = $1
		 GROUP BY c.id
		 ORDER BY c.created_at DESC
		 `

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var cols []models.Collection
	for rows.Next() {
		var c models.Collection
		err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.Type, &c.OwnerID, &c.IsShared, &c.CreatedAt, &c.ItemCount)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		cols = append(cols, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return cols, nil
}

func (r *PostgresRepository) AddItem(ctx context.Context, collectionID, discoveryID string) error {

	query :=
		`INSERT INTO collection_items (collection_id, discovery_id)
		 VALUES ($1, $2)
		 ON CONFLICT DO NOTHING
		 `

	if _, err := r.db.ExecContext(ctx, query, collectionID, discoveryID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}
