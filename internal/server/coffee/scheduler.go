package coffee

import (
	"context"
	"time"

	"github.com/convivial/salon/internal/logging"
)

// Scheduler runs the generator once a day at a fixed UTC hour, producing
// the digest for the preceding day.
type Scheduler struct {
	generator *Generator
	logger    logging.Logger
	hourUTC   int
	now       func() time.Time
}

func NewScheduler(g *Generator, l logging.Logger, hourUTC int) *Scheduler {
	return &Scheduler{
		generator: g,
		logger:    l.With("module", "coffee"),
		hourUTC:   hourUTC,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Run blocks until ctx is done, firing at the configured hour. With several
// server instances each one generates independently; the digest upsert is
// idempotent, so the duplicates collapse to one row.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		next := s.nextFiring(s.now())
		timer := time.NewTimer(next.Sub(s.now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			yesterday := next.Add(-24 * time.Hour).Truncate(24 * time.Hour)
			if _, err := s.generator.Generate(ctx, yesterday); err != nil {
				s.logger.Error(ctx, "scheduled digest failed", "error", err)
			}
		}
	}
}

func (s *Scheduler) nextFiring(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), s.hourUTC, 0, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next
}
