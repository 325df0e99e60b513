package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okian/mapboard/internal/domain/model"
	"github.com/okian/mapboard/internal/domain/registry"
	"github.com/okian/mapboard/pkg/logger"
	"github.com/okian/mapboard/pkg/metrics"
)

// Sync result labels.
const (
	resultOK      = "ok"
	resultPartial = "partial"
	resultError   = "error"
	resultFailed  = "failed"
)

var eventKinds = []model.EventKind{
	model.EventNewPlayer,
	model.EventNameChange,
	model.EventNewOnMap,
	model.EventPB,
	model.EventWRChange,
}

// Sync fetches every registered map in registry order and applies each
// leaderboard to the store. A map whose fetch fails is reported in the
// result and skipped; a storage failure or cancellation aborts the run.
// Only one sync runs at a time: a concurrent call gets ErrSyncInProgress.
func (s *Service) Sync(ctx context.Context) (model.SyncReport, error) {
	if err := s.acquire(); err != nil {
		return model.SyncReport{}, err
	}
	defer s.release()
	return s.run(ctx)
}

// SyncInBackground starts a sync and returns once it holds the sync slot.
// ErrSyncInProgress is returned when another sync is running. done, when
// not nil, receives the outcome.
func (s *Service) SyncInBackground(ctx context.Context, done func(model.SyncReport, error)) error {
	if err := s.acquire(); err != nil {
		return err
	}
	go func() {
		report, err := s.run(ctx)
		s.release()
		if err != nil {
			s.logger.Error(ctx, "background sync failed", logger.Error(err))
		}
		if done != nil {
			done(report, err)
		}
	}()
	return nil
}

func (s *Service) acquire() error {
	if s.store == nil || s.fetcher == nil {
		return fmt.Errorf("%w: sync needs a store and a fetcher", ErrNotConfigured)
	}
	if !s.syncMu.TryLock() {
		return ErrSyncInProgress
	}
	if s.closed {
		s.syncMu.Unlock()
		return ErrClosed
	}
	s.syncing.Store(true)
	metrics.SetSyncInProgress(true)
	return nil
}

func (s *Service) release() {
	s.syncing.Store(false)
	metrics.SetSyncInProgress(false)
	s.syncMu.Unlock()
}

func (s *Service) run(ctx context.Context) (model.SyncReport, error) {
	start := s.now().UTC()
	reg, err := registry.Load(s.registryPath)
	if err != nil {
		metrics.RecordSyncRun(resultError, 0)
		return model.SyncReport{}, fmt.Errorf("load registry: %w", err)
	}

	report := model.SyncReport{
		Run: model.SyncRun{ID: uuid.NewString(), StartedAt: start, MapsTotal: len(reg.Maps)},
	}
	for _, w := range reg.Warnings {
		report.Warnings = append(report.Warnings, w.String())
		s.logger.Warn(ctx, "registry line skipped", logger.Int("line", w.Line), logger.String("reason", w.Reason))
	}

	if err := s.store.BeginSync(ctx, report.Run); err != nil {
		metrics.RecordSyncRun(resultError, 0)
		return report, err
	}
	s.logger.Info(ctx, "sync started",
		logger.String("sync_id", report.Run.ID),
		logger.Int("maps", len(reg.Maps)),
	)

	for i, ref := range reg.Maps {
		res, err := s.syncMap(ctx, report.Run.ID, ref)
		report.Add(res)
		if err != nil {
			s.finish(ctx, &report, resultError)
			return report, err
		}
		s.logger.Debug(ctx, "map progress",
			logger.Int("done", i+1),
			logger.Int("total", len(reg.Maps)),
		)
	}

	result := resultOK
	if report.Run.MapsFailed > 0 {
		result = resultPartial
	}
	s.finish(ctx, &report, result)
	return report, nil
}

// syncMap fetches and applies one map. The returned error is non-nil only
// when the whole sync must stop.
func (s *Service) syncMap(ctx context.Context, syncID string, ref model.MapRef) (model.MapResult, error) {
	start := time.Now()
	res := model.MapResult{UID: ref.UID, Name: ref.Name}

	snap, err := s.fetcher.FetchLeaderboard(ctx, ref)
	if err != nil {
		res.Err, res.Took = err, time.Since(start)
		metrics.RecordMapSync(resultFailed, res.Took.Seconds())
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, fmt.Errorf("sync %s cancelled: %w", syncID, ctxErr)
		}
		s.logger.Warn(ctx, "map fetch failed",
			logger.String("map", ref.UID),
			logger.String("name", ref.Name),
			logger.Error(err),
		)
		return res, nil
	}

	changes, err := s.store.ApplySnapshot(ctx, syncID, snap)
	res.Took, res.FetchedAt = time.Since(start), snap.FetchedAt
	if err != nil {
		res.Err = err
		metrics.RecordMapSync(resultFailed, res.Took.Seconds())
		s.logger.Error(ctx, "storing map failed, aborting sync",
			logger.String("map", ref.UID),
			logger.Error(err),
		)
		return res, err
	}
	s.generation.Add(1)

	res.Records, res.Dropped, res.Changes = len(snap.Entries), snap.Dropped, changes
	metrics.RecordMapSync(resultOK, res.Took.Seconds())
	for _, kind := range eventKinds {
		metrics.RecordSyncEvents(string(kind), changes.Count(kind))
	}
	s.logger.Info(ctx, "map synced",
		logger.String("map", ref.UID),
		logger.String("name", ref.Name),
		logger.Int("records", res.Records),
		logger.Int("events", len(changes.Events)),
		logger.Duration("took", res.Took),
	)
	return res, nil
}

// finish closes the run record and publishes run metrics. It still writes
// when ctx was cancelled.
func (s *Service) finish(ctx context.Context, report *model.SyncReport, result string) {
	wctx := context.WithoutCancel(ctx)
	report.Run.FinishedAt = s.now().UTC()
	took := report.Run.FinishedAt.Sub(report.Run.StartedAt)

	if err := s.store.FinishSync(wctx, report.Run); err != nil {
		s.logger.Error(ctx, "recording sync run failed", logger.String("sync_id", report.Run.ID), logger.Error(err))
	}
	if tot, err := s.store.Totals(wctx); err == nil {
		metrics.UpdateTrackedTotals(tot.Maps, tot.Players, tot.Records)
	}
	metrics.RecordSyncRun(result, took.Seconds())
	if result == resultOK {
		metrics.UpdateSyncLastSuccess(report.Run.FinishedAt.Unix())
	}
	s.generation.Add(1)

	s.logger.Info(ctx, "sync finished",
		logger.String("sync_id", report.Run.ID),
		logger.String("result", result),
		logger.Int("maps_ok", report.Run.MapsOK),
		logger.Int("maps_failed", report.Run.MapsFailed),
		logger.Int("new_players", report.NewPlayers),
		logger.Int("pbs", report.PBs),
		logger.Int("wr_changes", report.WRChanges),
		logger.Duration("took", took),
	)
}

// RunPeriodic calls Sync every interval until ctx is done. A tick that finds
// a sync already running is skipped.
func (s *Service) RunPeriodic(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, err := s.Sync(ctx)
			switch {
			case err == nil:
			case errors.Is(err, ErrSyncInProgress):
				s.logger.Debug(ctx, "periodic sync skipped, sync in progress")
			case errors.Is(err, ErrClosed):
				return
			case ctx.Err() != nil:
				return
			default:
				s.logger.Error(ctx, "periodic sync failed", logger.Error(err))
			}
		}
	}
}
