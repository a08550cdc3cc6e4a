package models

import "time"

// Digest is the daily "morning coffee" summary of yesterday's activity.
type Digest struct {
	Date        time.Time
	Count       int
	Summary     string
	Highlights  []DiscoveryView
	GeneratedAt time.Time
}
