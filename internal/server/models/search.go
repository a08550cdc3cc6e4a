package models

import "time"

// SearchSession is a persisted record of an in-flight query, used only for
// collision correlation within the trailing window. It outlives the
// connection that produced it.
type SearchSession struct {
	ID           string
	UserID       string
	Query        string
	Mood         string
	SessionStart time.Time
}

// Collision records two users issuing the same query within the window.
// Rows are append-only, one per ordered pair per detected event.
type Collision struct {
	ID         string
	User1ID    string
	User2ID    string
	Query      string
	Kind       string
	OccurredAt time.Time
}

// CollisionKindSimultaneous is the only collision kind currently produced.
const CollisionKindSimultaneous = "simultaneous"

// CollisionView is a Collision joined with both usernames, as served by the
// HTTP API.
type CollisionView struct {
	Collision
	User1Name string
	User2Name string
}
