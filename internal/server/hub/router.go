package hub

import (
	"context"
	"encoding/json"

	"github.com/convivial/salon/internal/logging"
	"github.com/convivial/salon/internal/server/backbone"
	"github.com/convivial/salon/internal/server/events"
)

// Router consumes the backbone subscription and delivers each envelope to
// the local sessions joined to its channel, skipping the originating
// session. Every instance runs exactly one Router.
type Router struct {
	registry *Registry
	backbone backbone.Backbone
	logger   logging.Logger
}

func NewRouter(r *Registry, b backbone.Backbone, l logging.Logger) *Router {
	return &Router{
		registry: r,
		backbone: b,
		logger:   l.With("module", "router"),
	}
}

// Run blocks until ctx is cancelled or the subscription is lost. A lost
// subscription is a backbone failure: it is surfaced to the caller so the
// instance's health can degrade, not swallowed per event.
func (rt *Router) Run(ctx context.Context) error {
	sub, err := rt.backbone.Subscribe(ctx)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case env, ok := <-sub:
			if !ok {
				return backbone.ErrClosed
			}
			rt.deliver(ctx, env)
		}
	}
}

func (rt *Router) deliver(ctx context.Context, env backbone.Envelope) {
	frame, err := json.Marshal(events.ServerMessage{Type: env.Event, Payload: json.RawMessage(env.Payload)})
	if err != nil {
		rt.logger.Warn(ctx, "dropping undeliverable envelope", "event", env.Event, "error", err)
		return
	}

	for _, s := range rt.registry.Sessions(env.Channel) {
		// self-exclusion happens here, at delivery time
		if s.ID == env.OriginSession {
			continue
		}
		if !s.Send(frame) {
			rt.logger.Debug(ctx, "session missed frame", "session", s.ID, "event", env.Event)
		}
	}
}
