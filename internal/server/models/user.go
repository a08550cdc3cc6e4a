// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is a member of the salon. Accounts are provisioned by the external
// auth service; this server only reads them and touches last_seen.
type User struct {
	ID          string
	Username    string
	DisplayName string
	LastSeen    time.Time
	CreatedAt   time.Time
}
