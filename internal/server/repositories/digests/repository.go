package digests

import (
	"context"

	"github.com/convivial/salon/internal/server/models"
)

type Repository interface {
	Upsert(ctx context.Context, d *models.Digest) error
}
