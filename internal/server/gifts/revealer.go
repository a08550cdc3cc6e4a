package gifts

import (
	"context"
	"database/sql"
	"time"

	"github.com/convivial/salon/internal/logging"
	"github.com/convivial/salon/internal/server/backbone"
	"github.com/convivial/salon/internal/server/events"
	"github.com/convivial/salon/internal/server/repositories/repomanager"
)

// Revealer periodically claims due capsules and delivers their content to
// the recipients' private channels. Claiming is atomic in the database, so
// with several server instances each capsule is revealed exactly once.
type Revealer struct {
	db       *sql.DB
	repos    repomanager.RepositoryManager
	backbone backbone.Backbone
	logger   logging.Logger
	interval time.Duration
	now      func() time.Time
}

func NewRevealer(db *sql.DB, repos repomanager.RepositoryManager, b backbone.Backbone, l logging.Logger, interval time.Duration) *Revealer {
	return &Revealer{
		db:       db,
		repos:    repos,
		backbone: b,
		logger:   l.With("module", "gifts"),
		interval: interval,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (r *Revealer) Run(ctx context.Context) error {
	r.Sweep(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep claims everything due right now and delivers it. A recipient who is
// offline misses the live event; the reveal is already persisted, so the
// HTTP API serves it on their next visit.
func (r *Revealer) Sweep(ctx context.Context) {
	due, err := r.repos.GiftCapsules(r.db).ClaimDue(ctx, r.now())
	if err != nil {
		r.logger.Error(ctx, "failed to claim due capsules", "error", err)
		return
	}

	for _, g := range due {
		payload := events.GiftRevealed{
			CapsuleID: g.CapsuleID,
			From:      g.FromUsername,
			Message:   g.Message,
			WrapStyle: g.WrapStyle,
			Query:     g.Query,
			URL:       g.URL,
			Title:     g.Title,
			Snippet:   g.Snippet,
			WrappedAt: g.WrappedAt,
		}
		env, err := backbone.NewEnvelope(backbone.UserChannel(g.RecipientID), events.TypeGiftRevealed, "", payload)
		if err != nil {
			r.logger.Error(ctx, "failed to build reveal envelope", "capsule", g.CapsuleID, "error", err)
			continue
		}
		if err := r.backbone.Publish(ctx, env); err != nil {
			r.logger.Error(ctx, "failed to publish reveal", "capsule", g.CapsuleID, "error", err)
			continue
		}
		r.logger.Info(ctx, "gift revealed", "capsule", g.CapsuleID, "recipient", g.RecipientID)
	}
}
