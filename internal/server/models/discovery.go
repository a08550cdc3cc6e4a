package models

import "time"

// Discovery is a shared search result. Rows are immutable once written;
// gift reveals write a separate GiftCapsule delivery record instead of
// mutating the discovery.
type Discovery struct {
	ID           string
	UserID       string
	Query        string
	URL          string
	Title        string
	Snippet      string
	Engine       string
	IsGift       bool
	GiftedTo     string // empty unless IsGift
	GiftMessage  string // empty unless IsGift
	DiscoveredAt time.Time
}

// DiscoveryView is a Discovery joined with the owner's names, as served by
// the HTTP API and the daily digest.
type DiscoveryView struct {
	Discovery
	Username    string
	DisplayName string
}

// Collection groups discoveries under a user-chosen theme.
type Collection struct {
	ID          string
	Name        string
	Description string
	Type        string
	OwnerID     string
	IsShared    bool
	CreatedAt   time.Time
	ItemCount   int
}
