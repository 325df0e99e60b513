package api

import "net/http"

// MapHandler serves map lists and per-map leaderboards.
type MapHandler struct {
	views Views
}

// NewMapHandler creates a new map handler.
func NewMapHandler(views Views) *MapHandler {
	return &MapHandler{views: views}
}

// HandleMaps handles GET /maps.
func (h *MapHandler) HandleMaps(r *http.Request) (any, error) {
	return h.views.Maps(r.Context())
}

// HandleMap handles GET /maps/{uid}.
func (h *MapHandler) HandleMap(r *http.Request) (any, error) {
	return h.views.MapLeaderboard(r.Context(), r.PathValue("uid"))
}
