// Package gifts mediates delayed gift exchange: wrapping a discovery into a
// capsule, teasing the recipient, and revealing the content once the delay
// has elapsed.
package gifts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/convivial/salon/internal/common"
	"github.com/convivial/salon/internal/dbx"
	"github.com/convivial/salon/internal/logging"
	"github.com/convivial/salon/internal/server/backbone"
	"github.com/convivial/salon/internal/server/events"
	"github.com/convivial/salon/internal/server/hub"
	"github.com/convivial/salon/internal/server/models"
	"github.com/convivial/salon/internal/server/repositories/repomanager"
)

// seam for tests
var runTx = dbx.WithTx

// Mediator turns shared discoveries into feed announcements or, when
// gifted, into time capsules. A gifted discovery is invisible to everyone
// but the giver until its capsule reveals.
type Mediator struct {
	db           *sql.DB
	repos        repomanager.RepositoryManager
	backbone     backbone.Backbone
	logger       logging.Logger
	revealDelay  time.Duration
	storeTimeout time.Duration
}

func NewMediator(db *sql.DB, repos repomanager.RepositoryManager, b backbone.Backbone, l logging.Logger, revealDelay, storeTimeout time.Duration) *Mediator {
	return &Mediator{
		db:           db,
		repos:        repos,
		backbone:     b,
		logger:       l.With("module", "gifts"),
		revealDelay:  revealDelay,
		storeTimeout: storeTimeout,
	}
}

// HandleDiscoveryShare persists the discovery and fans it out. Gifted
// shares are wrapped with the default reveal delay; nothing about them
// reaches the feed.
func (m *Mediator) HandleDiscoveryShare(ctx context.Context, s *hub.Session, ev *events.DiscoveryShare) error {
	d := &models.Discovery{
		UserID:  s.Identity.UserID,
		Query:   ev.Query,
		URL:     ev.URL,
		Title:   ev.Title,
		Snippet: ev.Snippet,
		Engine:  ev.Engine,
		IsGift:  ev.IsGift,
	}
	if !ev.IsGift {
		// a stale giftTo on a non-gift share never reaches the row
		return m.shareToFeed(ctx, s, d)
	}
	d.GiftedTo = ev.GiftTo
	d.GiftMessage = ev.GiftMessage
	return m.wrap(ctx, s, d, wrapOptions{
		recipientID: ev.GiftTo,
		message:     ev.GiftMessage,
		revealAt:    time.Now().UTC().Add(m.revealDelay),
	})
}

// HandleGiftSend is the explicit gift path: the sender chooses the reveal
// delay and a wrap style.
func (m *Mediator) HandleGiftSend(ctx context.Context, s *hub.Session, ev *events.GiftSend) error {
	delay := m.revealDelay
	if ev.RevealHours > 0 {
		delay = time.Duration(ev.RevealHours) * time.Hour
	}
	d := &models.Discovery{
		UserID:      s.Identity.UserID,
		Query:       ev.Discovery.Query,
		URL:         ev.Discovery.URL,
		Title:       ev.Discovery.Title,
		Snippet:     ev.Discovery.Snippet,
		Engine:      ev.Discovery.Engine,
		IsGift:      true,
		GiftedTo:    ev.Recipient,
		GiftMessage: ev.Message,
	}
	return m.wrap(ctx, s, d, wrapOptions{
		recipientID: ev.Recipient,
		message:     ev.Message,
		wrapStyle:   ev.WrapStyle,
		revealAt:    time.Now().UTC().Add(delay),
	})
}

func (m *Mediator) shareToFeed(ctx context.Context, s *hub.Session, d *models.Discovery) error {
	sctx, cancel := context.WithTimeout(ctx, m.storeTimeout)
	defer cancel()

	if err := m.repos.Discoveries(m.db).Create(sctx, d); err != nil {
		m.logger.Error(ctx, "failed to persist discovery", "error", err)
		return fmt.Errorf("%w: discovery", common.ErrPersistence)
	}

	announce := events.DiscoveryNew{
		ID:        d.ID,
		User:      s.Identity.Username,
		Title:     d.Title,
		URL:       d.URL,
		Timestamp: time.Now().UTC(),
	}
	env, err := backbone.NewEnvelope(backbone.ChannelSalon, events.TypeDiscoveryNew, s.ID, announce)
	if err != nil {
		return err
	}
	if err := m.backbone.Publish(ctx, env); err != nil {
		m.logger.Error(ctx, "failed to publish discovery", "error", err)
	}
	return nil
}

type wrapOptions struct {
	recipientID string
	message     string
	wrapStyle   string
	revealAt    time.Time
}

// wrap persists the discovery and its capsule, then teases the recipient on
// their private channel. The tease carries only the giver's name, the wrap
// style and the gift message; the discovery itself stays sealed.
func (m *Mediator) wrap(ctx context.Context, s *hub.Session, d *models.Discovery, opts wrapOptions) error {
	sctx, cancel := context.WithTimeout(ctx, m.storeTimeout)
	defer cancel()

	recipient, err := m.repos.Users(m.db).GetByID(sctx, opts.recipientID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return fmt.Errorf("%w: unknown gift recipient", common.ErrValidation)
		}
		m.logger.Error(ctx, "failed to look up gift recipient", "error", err)
		return fmt.Errorf("%w: recipient lookup", common.ErrPersistence)
	}

	// the discovery and its capsule land together or not at all
	capsule := &models.GiftCapsule{
		CreatorID:   s.Identity.UserID,
		RecipientID: recipient.ID,
		Message:     opts.message,
		WrapStyle:   opts.wrapStyle,
		RevealAt:    opts.revealAt,
	}
	err = runTx(sctx, m.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := m.repos.Discoveries(tx).Create(ctx, d); err != nil {
			return fmt.Errorf("discovery: %w", err)
		}
		capsule.DiscoveryID = d.ID
		return m.repos.GiftCapsules(tx).Create(ctx, capsule)
	})
	if err != nil {
		m.logger.Error(ctx, "failed to persist gift", "error", err)
		return fmt.Errorf("%w: gift capsule", common.ErrPersistence)
	}

	pending := events.GiftPending{
		From:      s.Identity.Username,
		Hint:      opts.message,
		WrapStyle: opts.wrapStyle,
		RevealAt:  opts.revealAt,
	}
	env, err := backbone.NewEnvelope(backbone.UserChannel(recipient.ID), events.TypeGiftPending, "", pending)
	if err != nil {
		return err
	}
	if err := m.backbone.Publish(ctx, env); err != nil {
		m.logger.Error(ctx, "failed to publish gift tease", "error", err)
	}

	m.logger.Info(ctx, "gift wrapped", "capsule", capsule.ID, "reveal_at", opts.revealAt)
	return nil
}
