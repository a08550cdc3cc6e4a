package collections

import (
	"context"

	"github.com/convivial/salon/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, c *models.Collection) error
	// List returns collections visible to the user: shared ones plus their own.
	List(ctx context.Context, userID string) ([]models.Collection, error)
	AddItem(ctx context.Context, collectionID, discoveryID string) error
}
