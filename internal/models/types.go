package models

// ProgramKind represents the kind of catalog entry a program refers to
type ProgramKind string

const (
	ProgramKindMovie   ProgramKind = "movie"
	ProgramKindShow    ProgramKind = "show"
	ProgramKindEpisode ProgramKind = "episode"
)

// ListKind represents the media type of a Trakt discovery list
type ListKind string

const (
	ListKindMovies ListKind = "movies"
	ListKindShows  ListKind = "shows"
)
