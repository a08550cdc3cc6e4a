package giftcapsules

import (
	"context"
	"time"

	"github.com/convivial/salon/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, c *models.GiftCapsule) error
	// ClaimDue atomically marks due capsules revealed and returns them with
	// their discovery content. A capsule is returned by exactly one caller
	// across all server instances.
	ClaimDue(ctx context.Context, now time.Time) ([]models.RevealedGift, error)
	// ListPending returns unrevealed capsules for a recipient. Discovery
	// content is deliberately absent from the result.
	ListPending(ctx context.Context, recipientID string) ([]models.PendingGift, error)
}
