package models

import "time"

// Channel represents one virtual channel in the guide, backed by a
// Trakt discovery list.
type Channel struct {
	ID   string `boltholdKey:"ID"`
	Slug string `boltholdIndex:"Slug"` // stable identifier, e.g. "trending-movies"
	Name string

	// Trakt list backing this channel
	ListPath string
	ListKind ListKind

	Position int

	CreatedAt time.Time
	UpdatedAt time.Time
}
