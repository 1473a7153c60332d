package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/amaumene/neocable/internal/controllers"
	"github.com/amaumene/neocable/internal/models"
	"github.com/sirupsen/logrus"
)

// channelResponse is the wire shape of a channel
type channelResponse struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// programResponse is the wire shape of a program in a channel lineup.
// Metadata fields appear once the program's metadata has been fetched.
type programResponse struct {
	ID       string `json:"id"`
	Kind     string `json:"kind"`
	Title    string `json:"title"`
	TMDBID   int64  `json:"tmdbId"`
	Position int    `json:"position"`

	Overview       string   `json:"overview,omitempty"`
	Genres         []string `json:"genres,omitempty"`
	ReleaseDate    string   `json:"releaseDate,omitempty"`
	RuntimeMinutes int      `json:"runtimeMinutes,omitempty"`
	EpisodeTitle   string   `json:"episodeTitle,omitempty"`
	Season         int      `json:"season,omitempty"`
	EpisodeNumber  int      `json:"episodeNumber,omitempty"`

	HasLink bool `json:"hasLink"`
}

// ChannelsHandler serves the channel list and per-channel lineups
type ChannelsHandler struct {
	db       *models.Database
	metadata *controllers.MetadataController
	logger   *logrus.Logger
}

// NewChannelsHandler creates a new channels handler
func NewChannelsHandler(db *models.Database, metadata *controllers.MetadataController, logger *logrus.Logger) *ChannelsHandler {
	return &ChannelsHandler{db: db, metadata: metadata, logger: logger}
}

// List handles GET /api/channels
func (h *ChannelsHandler) List(w http.ResponseWriter, r *http.Request) {
	channels, err := h.db.GetChannels()
	if err != nil {
		h.logger.WithError(err).Error("Failed to list channels")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	response := make([]channelResponse, 0, len(channels))
	for _, c := range channels {
		response = append(response, channelResponse{ID: c.ID, Slug: c.Slug, Name: c.Name})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// Lineup handles GET /api/channels/{slug}/programs
func (h *ChannelsHandler) Lineup(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")

	channel, err := h.db.GetChannelBySlug(slug)
	if err != nil {
		http.Error(w, "Channel not found", http.StatusNotFound)
		return
	}

	programs, err := h.db.GetProgramsByChannel(channel.ID)
	if err != nil {
		h.logger.WithError(err).WithField("channel", slug).Error("Failed to list programs")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	response := make([]programResponse, 0, len(programs))
	for _, p := range programs {
		item := programResponse{
			ID:       p.ID,
			Kind:     string(p.Kind),
			Title:    p.Title,
			TMDBID:   p.TMDBID,
			Position: p.Position,
		}
		if rec, ok := h.metadata.GetCached(p); ok {
			item.Overview = rec.Overview
			item.Genres = rec.Genres
			item.ReleaseDate = rec.ReleaseDate
			item.RuntimeMinutes = rec.RuntimeMinutes
			item.EpisodeTitle = rec.EpisodeTitle
			item.Season = rec.Season
			item.EpisodeNumber = rec.EpisodeNumber
			item.HasLink = rec.ResolvedLink != ""
		}
		response = append(response, item)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}
