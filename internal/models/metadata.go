package models

// MetadataRecord is the normalized descriptive record for a program,
// cached by lookup key. ResolvedLink is attached in place, at most once,
// after a playable link has been resolved.
type MetadataRecord struct {
	Overview       string   `json:"overview"`
	Genres         []string `json:"genres"`
	ReleaseDate    string   `json:"releaseDate"` // YYYY-MM-DD
	RuntimeMinutes int      `json:"runtimeMinutes"`

	// Episode-level fields (zero for movies)
	EpisodeTitle  string `json:"episodeTitle,omitempty"`
	Season        int    `json:"season,omitempty"`
	EpisodeNumber int    `json:"episodeNumber,omitempty"`

	ResolvedLink string `json:"resolvedLink,omitempty"`
}

// ReleaseYear returns the four-digit year of the release date, or ""
// when no release date is known.
func (r *MetadataRecord) ReleaseYear() string {
	if len(r.ReleaseDate) < 4 {
		return ""
	}
	return r.ReleaseDate[:4]
}

// CandidateHash is an indexer search result that carries a content hash.
type CandidateHash struct {
	InfoHash string
	Seeders  int
	Title    string
}

// CachedFile is one file inside a debrid-cached torrent.
type CachedFile struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// CachedItem is a torrent reported as instantly available by the
// cache-checking service.
type CachedItem struct {
	Hash   string       `json:"hash"`
	Magnet string       `json:"magnet"`
	Files  []CachedFile `json:"files"`
}
