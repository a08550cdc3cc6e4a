// Package coffee builds the morning digest: a once-a-day summary of
// yesterday's discoveries, popular queries and collisions, served warm when
// the salon wakes up.
package coffee

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/convivial/salon/internal/common"
	"github.com/convivial/salon/internal/logging"
	"github.com/convivial/salon/internal/server/backbone"
	"github.com/convivial/salon/internal/server/events"
	"github.com/convivial/salon/internal/server/models"
	"github.com/convivial/salon/internal/server/repositories/repomanager"
	"github.com/convivial/salon/internal/server/repositories/searches"
)

const (
	digestCacheTTL    = time.Hour
	highlightLimit    = 5
	popularQueryLimit = 3
	collisionLimit    = 10
)

func digestCacheKey(day time.Time) string {
	return "salon:coffee:digest:" + day.Format("2006-01-02")
}

func reactionCacheKey(day time.Time) string {
	return "salon:coffee:reactions:" + day.Format("2006-01-02")
}

// Generator assembles and publishes the daily digest.
type Generator struct {
	db       *sql.DB
	repos    repomanager.RepositoryManager
	backbone backbone.Backbone
	cache    Cache
	logger   logging.Logger
}

func NewGenerator(db *sql.DB, repos repomanager.RepositoryManager, b backbone.Backbone, cache Cache, l logging.Logger) *Generator {
	return &Generator{
		db:       db,
		repos:    repos,
		backbone: b,
		cache:    cache,
		logger:   l.With("module", "coffee"),
	}
}

// Generate builds the digest for the given calendar day (UTC), persists it,
// primes the cache and announces it to the salon.
func (g *Generator) Generate(ctx context.Context, day time.Time) (*models.Digest, error) {
	day = day.UTC().Truncate(24 * time.Hour)

	found, err := g.repos.Discoveries(g.db).ListForDay(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("%w: digest discoveries: %v", common.ErrPersistence, err)
	}

	popular, err := g.repos.Searches(g.db).PopularQueries(ctx, day, popularQueryLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: digest queries: %v", common.ErrPersistence, err)
	}

	collided, err := g.repos.Collisions(g.db).ListRecent(ctx, day, collisionLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: digest collisions: %v", common.ErrPersistence, err)
	}

	highlights := found
	if len(highlights) > highlightLimit {
		highlights = highlights[:highlightLimit]
	}

	d := &models.Digest{
		Date:        day,
		Count:       len(found),
		Summary:     summarize(len(found), popular, len(collided)),
		Highlights:  highlights,
		GeneratedAt: time.Now().UTC(),
	}
	if err := g.repos.Digests(g.db).Upsert(ctx, d); err != nil {
		return nil, fmt.Errorf("%w: digest upsert: %v", common.ErrPersistence, err)
	}

	if b, err := json.Marshal(d); err == nil {
		if err := g.cache.Set(ctx, digestCacheKey(day), b, digestCacheTTL); err != nil {
			g.logger.Warn(ctx, "failed to cache digest", "error", err)
		}
	}

	ready := events.CoffeeReady{
		Date:    day.Format("2006-01-02"),
		Count:   d.Count,
		Summary: d.Summary,
	}
	env, err := backbone.NewEnvelope(backbone.ChannelSalon, events.TypeCoffeeReady, "", ready)
	if err != nil {
		g.logger.Error(ctx, "failed to build digest envelope", "error", err)
	} else if err := g.backbone.Publish(ctx, env); err != nil {
		g.logger.Error(ctx, "failed to announce digest", "error", err)
	}

	g.logger.Info(ctx, "digest generated", "date", ready.Date, "discoveries", d.Count)
	return d, nil
}

// Cached returns the day's digest from the cache, or regenerates it on a
// miss. Used by the HTTP API so a page load never waits on four queries
// when the digest is warm.
func (g *Generator) Cached(ctx context.Context, day time.Time) (*models.Digest, error) {
	day = day.UTC().Truncate(24 * time.Hour)

	if b, err := g.cache.Get(ctx, digestCacheKey(day)); err == nil {
		var d models.Digest
		if err := json.Unmarshal(b, &d); err == nil {
			return &d, nil
		}
		g.logger.Warn(ctx, "discarding undecodable cached digest", "date", day.Format("2006-01-02"))
	} else if !errors.Is(err, common.ErrNotFound) {
		g.logger.Warn(ctx, "digest cache read failed", "error", err)
	}

	return g.Generate(ctx, day)
}

// React counts a member's reaction against the given digest day, so the
// signal stays attributable to the digest it answered. Reactions are
// throwaway social signal, so failures are logged and swallowed.
func (g *Generator) React(ctx context.Context, day time.Time, reaction string) {
	day = day.UTC().Truncate(24 * time.Hour)
	if err := g.cache.IncrField(ctx, reactionCacheKey(day), reaction); err != nil {
		g.logger.Warn(ctx, "failed to record reaction", "reaction", reaction, "error", err)
	}
}

func summarize(count int, popular []searches.QueryCount, collisions int) string {
	switch {
	case count == 0 && collisions == 0:
		return "A quiet day in the salon."
	case count == 0:
		return fmt.Sprintf("No shared discoveries, but %d search collisions kept things lively.", collisions)
	}
	s := fmt.Sprintf("%d discoveries shared", count)
	if len(popular) > 0 {
		s += fmt.Sprintf(", with %q leading the searches", popular[0].Query)
	}
	if collisions > 0 {
		s += fmt.Sprintf(" and %d collisions along the way", collisions)
	}
	return s + "."
}
