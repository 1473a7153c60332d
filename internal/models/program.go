package models

import "time"

// Program represents a single catalog entry in a channel's lineup.
// Identity is stable for the life of the catalog entry; descriptive
// metadata lives in the metadata cache, keyed by LookupKey.
type Program struct {
	ID        string `boltholdKey:"ID"`
	ChannelID string `boltholdIndex:"ChannelID"`

	Kind  ProgramKind
	Title string

	// TMDB id of the movie, or of the parent show for shows/episodes
	TMDBID int64 `boltholdIndex:"TMDBID"`

	// Episode reference (kind=episode, or kind=show once an episode
	// has been chosen for preview)
	Season        *int
	EpisodeNumber *int
	EpisodeTMDBID *int64

	// Position within the channel lineup
	Position int

	// Trakt presence tracking (for sweep of items dropped from lists)
	InLineup       bool `boltholdIndex:"InLineup"`
	LastSeenInList time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// LookupKey returns the metadata cache key for this program: the movie's
// TMDB id for movies, the episode's own TMDB id for shows and episodes.
// The second return is false while a show has no episode chosen yet.
func (p *Program) LookupKey() (int64, bool) {
	if p.Kind == ProgramKindMovie {
		return p.TMDBID, true
	}
	if p.EpisodeTMDBID != nil {
		return *p.EpisodeTMDBID, true
	}
	return 0, false
}
