// Package presence announces arrivals and departures to the salon.
package presence

import (
	"context"
	"database/sql"
	"time"

	"github.com/convivial/salon/internal/logging"
	"github.com/convivial/salon/internal/server/backbone"
	"github.com/convivial/salon/internal/server/events"
	"github.com/convivial/salon/internal/server/hub"
	"github.com/convivial/salon/internal/server/repositories/repomanager"
)

// Broadcaster publishes presence transitions for sessions as they connect
// and disconnect. Everything here is best-effort: presence is ambient
// signal, so a failed write or publish is logged and never surfaced to the
// member.
type Broadcaster struct {
	db           *sql.DB
	repos        repomanager.RepositoryManager
	backbone     backbone.Backbone
	logger       logging.Logger
	storeTimeout time.Duration
}

func NewBroadcaster(db *sql.DB, repos repomanager.RepositoryManager, b backbone.Backbone, l logging.Logger, storeTimeout time.Duration) *Broadcaster {
	return &Broadcaster{
		db:           db,
		repos:        repos,
		backbone:     b,
		logger:       l.With("module", "presence"),
		storeTimeout: storeTimeout,
	}
}

// Connected records the member's activity and tells everyone else they are
// here. The member's own session is excluded from the fan-out.
func (p *Broadcaster) Connected(ctx context.Context, s *hub.Session) {
	tctx, cancel := context.WithTimeout(ctx, p.storeTimeout)
	defer cancel()

	if err := p.repos.Users(p.db).TouchLastSeen(tctx, s.Identity.UserID); err != nil {
		p.logger.Warn(ctx, "failed to touch last_seen", "user", s.Identity.UserID, "error", err)
	}

	p.publish(ctx, events.TypePresenceOnline, s, events.PresenceOnline{
		UserID:    s.Identity.UserID,
		Username:  s.Identity.Username,
		Timestamp: time.Now().UTC(),
	})
}

// Disconnected announces the departure. The read pump has already exited,
// so the caller passes a context detached from the connection's lifetime.
func (p *Broadcaster) Disconnected(ctx context.Context, s *hub.Session) {
	p.publish(ctx, events.TypePresenceOffline, s, events.PresenceOffline{
		UserID:    s.Identity.UserID,
		Username:  s.Identity.Username,
		Timestamp: time.Now().UTC(),
	})
}

func (p *Broadcaster) publish(ctx context.Context, event string, s *hub.Session, payload any) {
	env, err := backbone.NewEnvelope(backbone.ChannelSalon, event, s.ID, payload)
	if err != nil {
		p.logger.Error(ctx, "failed to build presence envelope", "event", event, "error", err)
		return
	}
	if err := p.backbone.Publish(ctx, env); err != nil {
		p.logger.Error(ctx, "failed to publish presence", "event", event, "error", err)
	}
}
