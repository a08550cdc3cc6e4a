package collisions

import (
	"context"
	"time"

	"github.com/convivial/salon/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, c *models.Collision) error
	// ExistsForPair reports whether the two users already collided on this
	// query within the window, in either direction.
	ExistsForPair(ctx context.Context, userA, userB, query string, since time.Time) (bool, error)
	ListRecent(ctx context.Context, since time.Time, limit int) ([]models.CollisionView, error)
}
