package models

import "time"

// GiftCapsule schedules the delayed reveal of a gifted discovery. The
// discovery content must not reach the recipient before RevealAt.
type GiftCapsule struct {
	ID          string
	CreatorID   string
	RecipientID string
	DiscoveryID string
	Message     string
	WrapStyle   string
	RevealAt    time.Time
	Revealed    bool
	CreatedAt   time.Time
}

// PendingGift is what a recipient may see about an unrevealed capsule:
// who it is from and how it is wrapped, never the discovery content.
type PendingGift struct {
	CapsuleID    string
	FromUsername string
	Message      string
	WrapStyle    string
	RevealAt     time.Time
	CreatedAt    time.Time
}

// RevealedGift is a due capsule joined with its discovery and the creator's
// username, ready to be delivered to the recipient's private channel.
type RevealedGift struct {
	CapsuleID    string
	RecipientID  string
	FromUsername string
	Message      string
	WrapStyle    string
	DiscoveryID  string
	Query        string
	URL          string
	Title        string
	Snippet      string
	WrappedAt    time.Time
}
