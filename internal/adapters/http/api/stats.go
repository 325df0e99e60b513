package api

import (
	"context"
	"net/http"

	"github.com/okian/mapboard/internal/domain/types"
)

// StatsProvider reports service state.
type StatsProvider interface {
	Stats(ctx context.Context) (types.Stats, error)
	Generation() uint64
}

// StatsHandler handles stats requests.
type StatsHandler struct {
	statsProvider StatsProvider
	cache         *viewCache
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(statsProvider StatsProvider, cache *viewCache) *StatsHandler {
	return &StatsHandler{statsProvider: statsProvider, cache: cache}
}

// HandleStats handles GET /stats requests. Stats are never cached.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.statsProvider.Stats(r.Context())
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	stats.Cache = h.cache.stats()
	writeJSON(w, http.StatusOK, stats)
}
