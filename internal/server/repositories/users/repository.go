package users

import (
	"context"

	"github.com/convivial/salon/internal/server/models"
)

type Repository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	// TouchLastSeen is a best-effort write: callers log failures and move on.
	TouchLastSeen(ctx context.Context, id string) error
}
