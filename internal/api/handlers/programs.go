package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/amaumene/neocable/internal/controllers"
	"github.com/amaumene/neocable/internal/models"
	"github.com/sirupsen/logrus"
)

// ProgramsHandler serves program metadata and playable links
type ProgramsHandler struct {
	db       *models.Database
	metadata *controllers.MetadataController
	resolver *controllers.Resolver
	logger   *logrus.Logger
}

// NewProgramsHandler creates a new programs handler
func NewProgramsHandler(db *models.Database, metadata *controllers.MetadataController, resolver *controllers.Resolver, logger *logrus.Logger) *ProgramsHandler {
	return &ProgramsHandler{db: db, metadata: metadata, resolver: resolver, logger: logger}
}

// Metadata handles GET /api/programs/{id}. It fetches metadata on demand,
// so the first request for a program pays the TMDB round trips.
func (h *ProgramsHandler) Metadata(w http.ResponseWriter, r *http.Request) {
	program, err := h.db.GetProgramByID(r.PathValue("id"))
	if err != nil {
		http.Error(w, "Program not found", http.StatusNotFound)
		return
	}

	rec, err := h.metadata.Ensure(r.Context(), program)
	if err != nil {
		h.logger.WithError(err).WithField("program_id", program.ID).
			Error("Failed to fetch metadata")
		http.Error(w, "Failed to fetch metadata", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rec)
}

// Link handles GET /api/programs/{id}/link: it resolves (or replays) the
// playable URL for a program. A 204 means the title could not be
// resolved right now; clients should not treat that as permanent.
func (h *ProgramsHandler) Link(w http.ResponseWriter, r *http.Request) {
	program, err := h.db.GetProgramByID(r.PathValue("id"))
	if err != nil {
		http.Error(w, "Program not found", http.StatusNotFound)
		return
	}

	link := h.resolver.ResolveLink(r.Context(), program)
	if link == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"url": link})
}
