// Package dispatch connects the WebSocket hub to the domain services: it
// decodes inbound frames, routes them, and turns service errors into
// unicast error events.
package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/convivial/salon/internal/common"
	"github.com/convivial/salon/internal/logging"
	"github.com/convivial/salon/internal/server/backbone"
	"github.com/convivial/salon/internal/server/coffee"
	"github.com/convivial/salon/internal/server/events"
	"github.com/convivial/salon/internal/server/gifts"
	"github.com/convivial/salon/internal/server/hub"
	"github.com/convivial/salon/internal/server/presence"
	"github.com/convivial/salon/internal/server/search"
	"github.com/convivial/salon/internal/server/storage"
)

// Uploader issues presigned upload URLs. Satisfied by *storage.Service.
type Uploader interface {
	PresignedPutURL(ctx context.Context, discoveryID string) (key, url string, err error)
}

var _ Uploader = (*storage.Service)(nil)

// Dispatcher implements hub.Handler. One instance serves every session;
// per-connection ordering comes from the hub calling Message synchronously
// from each read pump.
type Dispatcher struct {
	registry *hub.Registry
	presence *presence.Broadcaster
	detector *search.Detector
	mediator *gifts.Mediator
	coffee   *coffee.Generator
	uploader Uploader
	backbone backbone.Backbone
	logger   logging.Logger
}

func New(
	registry *hub.Registry,
	presence *presence.Broadcaster,
	detector *search.Detector,
	mediator *gifts.Mediator,
	coffee *coffee.Generator,
	uploader Uploader,
	b backbone.Backbone,
	l logging.Logger,
) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		presence: presence,
		detector: detector,
		mediator: mediator,
		coffee:   coffee,
		uploader: uploader,
		backbone: b,
		logger:   l.With("module", "dispatch"),
	}
}

func (d *Dispatcher) Connected(ctx context.Context, s *hub.Session) {
	d.presence.Connected(ctx, s)
}

func (d *Dispatcher) Disconnected(ctx context.Context, s *hub.Session) {
	d.presence.Disconnected(ctx, s)
}

func (d *Dispatcher) Message(ctx context.Context, s *hub.Session, raw []byte) {
	event, payload, err := events.Decode(raw)
	if err != nil {
		d.logger.Debug(ctx, "rejected frame", "session", s.ID, "error", err)
		s.SendError("invalid message")
		return
	}

	switch p := payload.(type) {
	case *events.SearchStart:
		err = d.detector.HandleSearchStart(ctx, s, p)
	case *events.DiscoveryShare:
		err = d.mediator.HandleDiscoveryShare(ctx, s, p)
	case *events.GiftSend:
		err = d.mediator.HandleGiftSend(ctx, s, p)
	case *events.MoodSet:
		d.registry.SetMood(s, p.Mood)
	case *events.CoffeeReact:
		// the morning digest covers the previous day, so reactions
		// count against that day's key
		d.coffee.React(ctx, time.Now().UTC().Add(-24*time.Hour), p.Reaction)
	case *events.VoiceUpload:
		err = d.handleVoiceUpload(ctx, s, p)
	default:
		s.SendError("unsupported event type")
		return
	}

	if err != nil {
		d.logger.Warn(ctx, "event failed", "event", event, "session", s.ID, "error", err)
		s.SendError(userMessage(err))
	}
}

// handleVoiceUpload unicasts the presigned slot back to the uploader and
// lets the salon know a note is on its way.
func (d *Dispatcher) handleVoiceUpload(ctx context.Context, s *hub.Session, ev *events.VoiceUpload) error {
	key, url, err := d.uploader.PresignedPutURL(ctx, ev.DiscoveryID)
	if err != nil {
		d.logger.Error(ctx, "failed to presign voice upload", "error", err)
		return common.ErrInternal
	}

	s.SendEvent(events.TypeVoiceUploadURL, events.VoiceUploadURL{
		DiscoveryID: ev.DiscoveryID,
		Key:         key,
		URL:         url,
	})

	announce := events.VoiceNew{
		From:        s.Identity.Username,
		DiscoveryID: ev.DiscoveryID,
		Duration:    ev.Duration,
	}
	env, err := backbone.NewEnvelope(backbone.ChannelSalon, events.TypeVoiceNew, s.ID, announce)
	if err != nil {
		d.logger.Error(ctx, "failed to build voice envelope", "error", err)
	} else if err := d.backbone.Publish(ctx, env); err != nil {
		d.logger.Error(ctx, "failed to announce voice note", "error", err)
	}
	return nil
}

// userMessage maps the error taxonomy to what a client may see. Internals
// stay in the logs.
func userMessage(err error) string {
	switch {
	case errors.Is(err, common.ErrValidation):
		return err.Error()
	case errors.Is(err, common.ErrPersistence):
		return "could not save your event, please retry"
	case errors.Is(err, common.ErrBackbone):
		return "the salon is temporarily unreachable"
	default:
		return "something went wrong"
	}
}
