// Package service orchestrates leaderboard syncs and serves the read views
// used by the HTTP API and the CLI.
package service

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/mapboard/internal/adapters/repository"
	"github.com/okian/mapboard/internal/adapters/trackapi"
	"github.com/okian/mapboard/internal/domain/points"
	"github.com/okian/mapboard/pkg/logger"
)

// DefaultRecentSyncs is how many sync runs Stats reports.
const DefaultRecentSyncs = 5

// Service implements the API dependencies for the tracker.
type Service struct {
	// serialises syncs; views never take it
	syncMu  sync.Mutex
	syncing atomic.Bool
	closed  bool // guarded by syncMu

	// bumped whenever stored data changes
	generation atomic.Uint64

	store        repository.Store
	fetcher      trackapi.Fetcher
	table        points.Table
	registryPath string
	recentSyncs  int
	now          func() time.Time

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the backing store.
func WithStore(st repository.Store) Option {
	return func(s *Service) {
		if st != nil {
			s.store = st
		}
	}
}

// WithFetcher sets the leaderboard source used by Sync.
func WithFetcher(f trackapi.Fetcher) Option {
	return func(s *Service) {
		if f != nil {
			s.fetcher = f
		}
	}
}

// WithRegistryPath sets the map registry file read at the start of each sync.
func WithRegistryPath(path string) Option {
	return func(s *Service) {
		s.registryPath = path
	}
}

// WithPointsTable sets the rank-to-points mapping.
func WithPointsTable(t points.Table) Option {
	return func(s *Service) {
		if t != nil {
			s.table = t
		}
	}
}

// WithRecentSyncs sets how many sync runs Stats reports.
func WithRecentSyncs(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.recentSyncs = n
		}
	}
}

// WithNow overrides the clock.
func WithNow(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service. A store is required for every operation and a
// fetcher for Sync.
func New(opts ...Option) *Service {
	s := &Service{
		table:       points.NewTiered(),
		recentSyncs: DefaultRecentSyncs,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Named("service")
	}
	return s
}

// Generation identifies the current state of stored data. It changes after
// every applied map, so it can key caches of view responses.
func (s *Service) Generation() uint64 {
	return s.generation.Load()
}

// Syncing reports whether a sync is running.
func (s *Service) Syncing() bool {
	return s.syncing.Load()
}

// Close waits for a running sync to finish, refuses new ones and closes the
// store.
func (s *Service) Close() error {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.store == nil {
		return nil
	}
	return s.store.Close()
}
