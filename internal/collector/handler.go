package collector

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

// Handler handles HTTP requests for collector service
type Handler struct {
	manager  *ScrapeManager
	defaults ScrapeOptions
}

// NewHandler creates a new handler with the given manager.
// Requests override defaults field by field.
func NewHandler(manager *ScrapeManager, defaults ScrapeOptions) *Handler {
	return &Handler{
		manager:  manager,
		defaults: defaults,
	}
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":          "ok",
		"time":            time.Now().Format(time.RFC3339),
		"telegram_status": string(h.manager.GetTelegramStatus()),
	})
}

// StartScrape handles POST /api/v1/scrape
func (h *Handler) StartScrape(w http.ResponseWriter, r *http.Request) {
	var req ScrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}

	if err := req.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	job, err := h.manager.Start(r.Context(), req.Options(h.defaults))
	if err != nil {
		if errors.Is(err, ErrAlreadyRunning) {
			respondError(w, http.StatusConflict, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, ScrapeResponse{
		ScrapeID:  job.ID,
		Status:    "running",
		Channel:   job.Options.Channel,
		StartedAt: job.StartedAt,
	})
}

// StopScrape handles DELETE /api/v1/scrape/current
func (h *Handler) StopScrape(w http.ResponseWriter, r *http.Request) {
	h.manager.Stop()
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "scrape job stopped",
	})
}

// Status handles GET /api/v1/scrape/status
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"telegram_status": string(h.manager.GetTelegramStatus()),
	}

	if current := h.manager.Current(); current != nil {
		resp["status"] = "running"
		resp["scrape_id"] = current.ID.String()
		resp["started_at"] = current.StartedAt.Format(time.RFC3339)
		resp["channel"] = current.Options.Channel
	} else {
		resp["status"] = "idle"
	}

	if last := h.manager.Last(); last != nil {
		resp["last"] = last
	}

	respondJSON(w, http.StatusOK, resp)
}

// helper functions

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
