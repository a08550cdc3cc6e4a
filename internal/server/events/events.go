// Package events defines the wire protocol spoken over the salon WebSocket:
// tagged client messages with fixed, validated payload schemas, and the
// server-originated event payloads fanned out through the backbone.
package events

import (
	"encoding/json"
	"time"
)

// Client → server event types.
const (
	TypeSearchStart    = "search.start"
	TypeDiscoveryShare = "discovery.share"
	TypeMoodSet        = "mood.set"
	TypeGiftSend       = "gift.send"
	TypeCoffeeReact    = "coffee.react"
	TypeVoiceUpload    = "voice.upload"
)

// Server → client event types.
const (
	TypePresenceOnline    = "presence.online"
	TypePresenceOffline   = "presence.offline"
	TypePresenceSearching = "presence.searching"
	TypeDiscoveryNew      = "discovery.new"
	TypeCollisionDetected = "collision.detected"
	TypeGiftPending       = "gift.pending"
	TypeGiftRevealed      = "gift.revealed"
	TypeVoiceNew          = "voice.new"
	TypeVoiceUploadURL    = "voice.upload-url"
	TypeCoffeeReady       = "coffee.ready"
	TypeError             = "error"
)

// ClientMessage is the envelope every inbound frame must fit.
type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ServerMessage is the envelope for every outbound frame.
type ServerMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// SearchStart announces an in-flight query.
type SearchStart struct {
	Query string `json:"query" validate:"required"`
	Mood  string `json:"mood" validate:"max=32"`
}

// DiscoveryShare shares a search result with the salon, or as a gift.
type DiscoveryShare struct {
	Query       string `json:"query" validate:"required"`
	URL         string `json:"url" validate:"required,url"`
	Title       string `json:"title" validate:"required"`
	Snippet     string `json:"snippet"`
	Engine      string `json:"engine"`
	IsGift      bool   `json:"isGift"`
	GiftTo      string `json:"giftTo" validate:"required_if=IsGift true,omitempty,uuid"`
	GiftMessage string `json:"giftMessage" validate:"excluded_unless=IsGift true"`
}

// MoodSet updates the session's mood tag.
type MoodSet struct {
	Mood string `json:"mood" validate:"required,max=32"`
}

// GiftSend wraps a discovery as a gift with an explicit reveal delay.
// WrapStyle is decorative and passes through unvalidated.
type GiftSend struct {
	Discovery   GiftDiscovery `json:"discovery" validate:"required"`
	Recipient   string        `json:"recipient" validate:"required,uuid"`
	Message     string        `json:"message"`
	RevealHours int           `json:"revealHours" validate:"omitempty,min=1,max=168"`
	WrapStyle   string        `json:"wrapStyle"`
}

// GiftDiscovery is the discovery content carried inside a gift.send event.
type GiftDiscovery struct {
	Query   string `json:"query" validate:"required"`
	URL     string `json:"url" validate:"required,url"`
	Title   string `json:"title" validate:"required"`
	Snippet string `json:"snippet"`
	Engine  string `json:"engine"`
}

// CoffeeReact records a lightweight reaction to the daily digest.
type CoffeeReact struct {
	Reaction string `json:"reaction" validate:"required,max=16"`
}

// VoiceUpload requests a presigned upload slot for a voice note.
type VoiceUpload struct {
	DiscoveryID string  `json:"discoveryId" validate:"required,uuid"`
	Duration    float64 `json:"duration" validate:"gt=0,lte=300"`
}

// PresenceOnline / PresenceOffline announce membership changes to the salon.
type PresenceOnline struct {
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Timestamp time.Time `json:"timestamp"`
}

type PresenceOffline struct {
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Timestamp time.Time `json:"timestamp"`
}

// PresenceSearching carries only the anonymized hint, never the raw query.
type PresenceSearching struct {
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Mood      string    `json:"mood,omitempty"`
	QueryHint string    `json:"queryHint"`
	Timestamp time.Time `json:"timestamp"`
}

// DiscoveryNew announces a non-gift discovery to the shared feed.
type DiscoveryNew struct {
	ID        string    `json:"id"`
	User      string    `json:"user"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	Timestamp time.Time `json:"timestamp"`
}

// CollisionDetected lists every participant and, unlike presence hints,
// the full shared query.
type CollisionDetected struct {
	Users     []string  `json:"users"`
	Query     string    `json:"query"`
	Kind      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// GiftPending is delivered to the recipient's private channel only. It never
// contains the discovery's url or title.
type GiftPending struct {
	From      string    `json:"from"`
	Hint      string    `json:"hint,omitempty"`
	WrapStyle string    `json:"wrapStyle,omitempty"`
	RevealAt  time.Time `json:"revealAt"`
}

// GiftRevealed delivers the full discovery once the delay has elapsed.
type GiftRevealed struct {
	CapsuleID string    `json:"capsuleId"`
	From      string    `json:"from"`
	Message   string    `json:"message,omitempty"`
	WrapStyle string    `json:"wrapStyle,omitempty"`
	Query     string    `json:"query"`
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	Snippet   string    `json:"snippet,omitempty"`
	WrappedAt time.Time `json:"wrappedAt"`
}

// VoiceNew announces a voice note attached to a discovery.
type VoiceNew struct {
	From        string  `json:"from"`
	DiscoveryID string  `json:"discoveryId"`
	Duration    float64 `json:"duration"`
}

// VoiceUploadURL is unicast back to the uploader.
type VoiceUploadURL struct {
	DiscoveryID string `json:"discoveryId"`
	Key         string `json:"key"`
	URL         string `json:"url"`
}

// CoffeeReady announces that the daily digest has been generated.
type CoffeeReady struct {
	Date    string `json:"date"`
	Count   int    `json:"count"`
	Summary string `json:"summary"`
}

// Error is unicast to the sender of a failed operation. Clients treat it as
// non-fatal and continue the session.
type Error struct {
	Message string `json:"message"`
}
