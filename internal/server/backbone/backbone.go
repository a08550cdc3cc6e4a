// Package backbone wraps the pub/sub layer that lets an event published by
// one server instance reach the sessions held by every instance. Delivery is
// at-least-once; subscribers must tolerate duplicates.
package backbone

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/convivial/salon/internal/common"
)

// ChannelSalon is the single shared broadcast scope containing all members.
const ChannelSalon = "salon"

// ErrClosed is returned by operations on a closed backbone.
var ErrClosed = fmt.Errorf("%w: closed", common.ErrBackbone)

// UserChannel names the private per-identity channel used for targeted
// delivery such as gift notifications.
func UserChannel(userID string) string {
	return "user:" + userID
}

// Envelope is the unit of fan-out. OriginSession identifies the session that
// triggered the event; self-exclusion happens at delivery time on each
// instance, since the backbone fans out to all subscribers including the
// publisher's own.
type Envelope struct {
	Channel       string          `json:"channel"`
	Event         string          `json:"event"`
	OriginSession string          `json:"originSession,omitempty"`
	Payload       json.RawMessage `json:"payload"`
	SentAt        time.Time       `json:"sentAt"`
}

// NewEnvelope marshals payload and stamps the envelope.
func NewEnvelope(channel, event, originSession string, payload any) (Envelope, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: marshal %s: %v", common.ErrBackbone, event, err)
	}
	return Envelope{
		Channel:       channel,
		Event:         event,
		OriginSession: originSession,
		Payload:       b,
		SentAt:        time.Now().UTC(),
	}, nil
}

// Backbone is the pub/sub adapter shared by all components that fan out
// events. Publish failures map to common.ErrBackbone; they are structural
// and degrade the instance's reported health rather than being retried
// per event.
type Backbone interface {
	Publish(ctx context.Context, env Envelope) error
	// Subscribe returns the stream of all envelopes published cluster-wide.
	// The channel closes when the subscription is lost or ctx is cancelled.
	Subscribe(ctx context.Context) (<-chan Envelope, error)
	// Ping reports backbone reachability for health checks.
	Ping(ctx context.Context) error
	Close() error
}
