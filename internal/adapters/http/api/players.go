package api

import (
	"fmt"
	"net/http"
	"strconv"
)

// PlayerHandler serves the overall leaderboard and player lookups.
type PlayerHandler struct {
	views    Views
	maxLimit int
}

// NewPlayerHandler creates a new player handler.
func NewPlayerHandler(views Views, maxLimit int) *PlayerHandler {
	return &PlayerHandler{views: views, maxLimit: maxLimit}
}

// HandleOverall handles GET /overall?limit=N. Without limit every player
// is returned.
func (h *PlayerHandler) HandleOverall(r *http.Request) (any, error) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("%w: limit must be a positive integer", ErrBadRequest)
		}
		if n > h.maxLimit {
			return nil, fmt.Errorf("%w: limit exceeds %d", ErrBadRequest, h.maxLimit)
		}
		limit = n
	}
	return h.views.Overall(r.Context(), limit)
}

// HandleSearch handles GET /players?q=.
func (h *PlayerHandler) HandleSearch(r *http.Request) (any, error) {
	return h.views.SearchPlayers(r.Context(), r.URL.Query().Get("q"))
}

// HandlePlayer handles GET /players/{id}.
func (h *PlayerHandler) HandlePlayer(r *http.Request) (any, error) {
	return h.views.PlayerProfile(r.Context(), r.PathValue("id"))
}
