package discoveries

import (
	"context"
	"time"

	"github.com/convivial/salon/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, d *models.Discovery) error
	ListRecent(ctx context.Context, limit int) ([]models.DiscoveryView, error)
	// ListForDay returns discoveries made on the given calendar day (UTC).
	ListForDay(ctx context.Context, day time.Time) ([]models.DiscoveryView, error)
}
