package tmdb

// Genre is a TMDB genre tag
type Genre struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Movie is a TMDB movie detail response
type Movie struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Overview    string  `json:"overview"`
	Genres      []Genre `json:"genres"`
	Runtime     int     `json:"runtime"`
	ReleaseDate string  `json:"release_date"`
}

// SeasonRef is a season summary inside a show detail response
type SeasonRef struct {
	ID           int64  `json:"id"`
	SeasonNumber int    `json:"season_number"`
	EpisodeCount int    `json:"episode_count"`
	AirDate      string `json:"air_date"`
}

// Show is a TMDB tv detail response
type Show struct {
	ID           int64       `json:"id"`
	Name         string      `json:"name"`
	Overview     string      `json:"overview"`
	Genres       []Genre     `json:"genres"`
	FirstAirDate string      `json:"first_air_date"`
	Seasons      []SeasonRef `json:"seasons"`
}

// EpisodeRef is an episode summary inside a season response
type EpisodeRef struct {
	ID            int64  `json:"id"`
	EpisodeNumber int    `json:"episode_number"`
	Name          string `json:"name"`
	Overview      string `json:"overview"`
	AirDate       string `json:"air_date"`
}

// Season is a TMDB season detail response
type Season struct {
	ID           int64        `json:"id"`
	SeasonNumber int          `json:"season_number"`
	Episodes     []EpisodeRef `json:"episodes"`
}

// Episode is a TMDB episode detail response
type Episode struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Overview      string `json:"overview"`
	AirDate       string `json:"air_date"`
	Runtime       int    `json:"runtime"`
	SeasonNumber  int    `json:"season_number"`
	EpisodeNumber int    `json:"episode_number"`
}
