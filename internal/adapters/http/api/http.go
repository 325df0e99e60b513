// Package api serves the read-only tracker views over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/gzhttp"

	service "github.com/okian/mapboard/internal/app"
	"github.com/okian/mapboard/internal/domain/model"
	"github.com/okian/mapboard/internal/domain/types"
	"github.com/okian/mapboard/pkg/logger"
)

// Views are the read operations exposed by the API.
type Views interface {
	Overview(ctx context.Context) (types.Overview, error)
	Maps(ctx context.Context) ([]types.MapRow, error)
	MapLeaderboard(ctx context.Context, uid string) (types.MapLeaderboard, error)
	Overall(ctx context.Context, limit int) ([]types.Standing, error)
	SearchPlayers(ctx context.Context, q string) ([]types.Standing, error)
	PlayerProfile(ctx context.Context, id string) (types.PlayerProfile, error)
	WhatsNew(ctx context.Context) (types.WhatsNew, error)
	Countries(ctx context.Context) ([]types.CountryRow, error)
	Playtime(ctx context.Context) ([]types.PlaytimeRow, error)
}

// Syncer starts a sync without waiting for it, or runs one to completion.
type Syncer interface {
	SyncInBackground(ctx context.Context, done func(model.SyncReport, error)) error
	Sync(ctx context.Context) (model.SyncReport, error)
}

// Dependencies required by HTTP handlers.
type Dependencies interface {
	Views
	Syncer
	StatsProvider
}

// Server wires HTTP routes for the tracker API.
type Server struct {
	cache *viewCache

	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	syncHandler   *SyncHandler
	viewHandler   *ViewHandler
	mapHandler    *MapHandler
	playerHandler *PlayerHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	cfg := serverConfig{maxLimit: DefaultMaxLimit}
	for _, opt := range opts {
		opt(&cfg)
	}
	cache := newViewCache(cfg.cacheBytes, deps.Generation)
	return &Server{
		cache:         cache,
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(deps, cache),
		syncHandler:   NewSyncHandler(deps),
		viewHandler:   NewViewHandler(deps),
		mapHandler:    NewMapHandler(deps),
		playerHandler: NewPlayerHandler(deps, cfg.maxLimit),
	}
}

// Register attaches all HTTP routes to mux. Background syncs started over
// HTTP run under ctx.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	s.syncHandler.base = ctx

	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /metrics", MetricsMiddleware(s.healthHandler.HandleHealth, "metrics"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("POST /sync", MetricsMiddleware(s.syncHandler.HandleSync, "sync"))

	mux.HandleFunc("GET /overview", MetricsMiddleware(s.cache.wrap(s.viewHandler.HandleOverview), "overview"))
	mux.HandleFunc("GET /whatsnew", MetricsMiddleware(s.cache.wrap(s.viewHandler.HandleWhatsNew), "whatsnew"))
	mux.HandleFunc("GET /countries", MetricsMiddleware(s.cache.wrap(s.viewHandler.HandleCountries), "countries"))
	mux.HandleFunc("GET /playtime", MetricsMiddleware(s.cache.wrap(s.viewHandler.HandlePlaytime), "playtime"))
	mux.HandleFunc("GET /maps", MetricsMiddleware(s.cache.wrap(s.mapHandler.HandleMaps), "maps"))
	mux.HandleFunc("GET /maps/{uid}", MetricsMiddleware(s.cache.wrap(s.mapHandler.HandleMap), "map"))
	mux.HandleFunc("GET /overall", MetricsMiddleware(s.cache.wrap(s.playerHandler.HandleOverall), "overall"))
	mux.HandleFunc("GET /players", MetricsMiddleware(s.cache.wrap(s.playerHandler.HandleSearch), "players"))
	mux.HandleFunc("GET /players/{id}", MetricsMiddleware(s.cache.wrap(s.playerHandler.HandlePlayer), "player"))
}

// Handler wraps h with gzip compression for clients that accept it.
func Handler(h http.Handler) http.Handler {
	return gzhttp.GzipHandler(h)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func encode(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}
	return b, nil
}

func writeBody(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	b, err := encode(v)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeBody(w, status, append(b, '\n'))
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	b, _ := json.Marshal(errorResponse{Code: code, Message: msg})
	writeBody(w, status, append(b, '\n'))
}

// writeServiceError maps service sentinels to status codes.
func writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, service.ErrInvalidQuery), errors.Is(err, ErrBadRequest):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, service.ErrSyncInProgress):
		writeError(w, http.StatusConflict, "sync_in_progress", err)
	case errors.Is(err, service.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, "shutting_down", err)
	default:
		logger.Named("api").Error(ctx, "request failed", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
