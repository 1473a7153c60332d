package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/amaumene/neocable/internal/controllers"
	"github.com/amaumene/neocable/internal/models"
	"github.com/sirupsen/logrus"
)

// StatusHandler reports catalog and cache counts
type StatusHandler struct {
	db     *models.Database
	cache  *controllers.MetaCache
	logger *logrus.Logger
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(db *models.Database, cache *controllers.MetaCache, logger *logrus.Logger) *StatusHandler {
	return &StatusHandler{db: db, cache: cache, logger: logger}
}

// ServeHTTP handles the status endpoint
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	channels, err := h.db.GetChannels()
	if err != nil {
		h.logger.WithError(err).Error("Failed to count channels")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	programs, err := h.db.CountPrograms()
	if err != nil {
		h.logger.WithError(err).Error("Failed to count programs")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"channels":        len(channels),
		"programs":        programs,
		"cached_metadata": h.cache.Len(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}
