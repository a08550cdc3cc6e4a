package search

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/convivial/salon/internal/common"
	"github.com/convivial/salon/internal/logging"
	"github.com/convivial/salon/internal/server/backbone"
	"github.com/convivial/salon/internal/server/events"
	"github.com/convivial/salon/internal/server/hub"
	"github.com/convivial/salon/internal/server/models"
	"github.com/convivial/salon/internal/server/repositories/repomanager"
	"github.com/samber/lo"
)

// Detector handles search.start events: it fans out the anonymized
// presence hint, persists the search for the collision window, and raises
// collision events when another member issued the same query recently.
type Detector struct {
	db           *sql.DB
	repos        repomanager.RepositoryManager
	backbone     backbone.Backbone
	logger       logging.Logger
	window       time.Duration
	storeTimeout time.Duration
}

func NewDetector(db *sql.DB, repos repomanager.RepositoryManager, b backbone.Backbone, l logging.Logger, window, storeTimeout time.Duration) *Detector {
	return &Detector{
		db:           db,
		repos:        repos,
		backbone:     b,
		logger:       l.With("module", "collisions"),
		window:       window,
		storeTimeout: storeTimeout,
	}
}

// HandleSearchStart runs the full detection flow. Matching is exact,
// case-sensitive string equality on the raw query; no normalization is
// applied.
func (d *Detector) HandleSearchStart(ctx context.Context, s *hub.Session, ev *events.SearchStart) error {
	mood := ev.Mood
	if mood == "" {
		mood = s.Mood()
	}

	now := time.Now().UTC()

	// third parties only ever see the hint, never the raw query
	searching := events.PresenceSearching{
		UserID:    s.Identity.UserID,
		Username:  s.Identity.Username,
		Mood:      mood,
		QueryHint: AnonymizeQuery(ev.Query),
		Timestamp: now,
	}
	env, err := backbone.NewEnvelope(backbone.ChannelSalon, events.TypePresenceSearching, s.ID, searching)
	if err != nil {
		d.logger.Error(ctx, "failed to build presence envelope", "error", err)
	} else if err := d.backbone.Publish(ctx, env); err != nil {
		d.logger.Error(ctx, "failed to publish search presence", "error", err)
	}

	sctx, cancel := context.WithTimeout(ctx, d.storeTimeout)
	defer cancel()

	session := &models.SearchSession{
		UserID:       s.Identity.UserID,
		Query:        ev.Query,
		Mood:         mood,
		SessionStart: now,
	}
	if err := d.repos.Searches(d.db).Create(sctx, session); err != nil {
		d.logger.Error(ctx, "failed to persist search session", "error", err)
		return fmt.Errorf("%w: search session", common.ErrPersistence)
	}

	return d.detect(sctx, s, ev.Query, now)
}

func (d *Detector) detect(ctx context.Context, s *hub.Session, query string, now time.Time) error {
	since := now.Add(-d.window)

	matches, err := d.repos.Searches(d.db).FindMatches(ctx, s.Identity.UserID, query, since)
	if err != nil {
		d.logger.Error(ctx, "collision scan failed", "error", err)
		return fmt.Errorf("%w: collision scan", common.ErrPersistence)
	}
	if len(matches) == 0 {
		return nil
	}

	// a pair that already collided on this query within the window does not
	// collide again
	fresh := make([]models.User, 0, len(matches))
	for _, m := range matches {
		exists, err := d.repos.Collisions(d.db).ExistsForPair(ctx, s.Identity.UserID, m.ID, query, since)
		if err != nil {
			d.logger.Error(ctx, "collision lookup failed", "error", err)
			return fmt.Errorf("%w: collision lookup", common.ErrPersistence)
		}
		if !exists {
			fresh = append(fresh, m)
		}
	}
	if len(fresh) == 0 {
		return nil
	}

	// one broadcast naming all participants, one row per ordered pair
	collision := events.CollisionDetected{
		Users:     append([]string{s.Identity.Username}, lo.Map(fresh, func(u models.User, _ int) string { return u.Username })...),
		Query:     query,
		Kind:      models.CollisionKindSimultaneous,
		Timestamp: now,
	}
	env, err := backbone.NewEnvelope(backbone.ChannelSalon, events.TypeCollisionDetected, "", collision)
	if err != nil {
		d.logger.Error(ctx, "failed to build collision envelope", "error", err)
	} else if err := d.backbone.Publish(ctx, env); err != nil {
		d.logger.Error(ctx, "failed to publish collision", "error", err)
	}

	for _, m := range fresh {
		row := &models.Collision{
			User1ID: s.Identity.UserID,
			User2ID: m.ID,
			Query:   query,
			Kind:    models.CollisionKindSimultaneous,
		}
		if err := d.repos.Collisions(d.db).Create(ctx, row); err != nil {
			d.logger.Error(ctx, "failed to persist collision", "error", err, "with", m.ID)
			return fmt.Errorf("%w: collision row", common.ErrPersistence)
		}
	}

	d.logger.Info(ctx, "collision detected", "query", query, "participants", len(collision.Users))
	return nil
}
