package searches

import (
	"context"
	"time"

	"github.com/convivial/salon/internal/server/models"
)

// QueryCount is an aggregate used by the daily digest.
type QueryCount struct {
	Query string
	Count int
}

type Repository interface {
	Create(ctx context.Context, s *models.SearchSession) error
	// FindMatches returns other users whose persisted search activity within
	// the trailing window matches the raw query text exactly. The searching
	// user is excluded.
	FindMatches(ctx context.Context, userID, query string, since time.Time) ([]models.User, error)
	PopularQueries(ctx context.Context, since time.Time, limit int) ([]QueryCount, error)
}
