package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/okian/mapboard/internal/adapters/repository/migrations"
	"github.com/okian/mapboard/internal/domain/model"
	"github.com/okian/mapboard/internal/domain/reconcile"
	"github.com/okian/mapboard/pkg/logger"
	"github.com/okian/mapboard/pkg/metrics"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store on a local SQLite file.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
	log logger.Logger
}

var _ Store = (*SQLiteStore)(nil)

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	if v == 0 {
		return time.Time{}
	}
	return time.UnixMilli(v).UTC()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func storageErr(op string, err error) error {
	metrics.RecordErrorByComponent("repository", op)
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}

// Open opens the database at path, creating it when missing, and applies
// the embedded migrations.
func Open(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("%w: database path is required", ErrStorage)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, storageErr("create db dir", err)
	}

	// DSN pragmas: lock wait, write-ahead log, NORMAL sync, foreign keys.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(1)",
		filepath.Clean(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, storageErr("open", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, storageErr("ping", err)
	}
	if err := applyMigrations(ctx, db, migrations.FS, "."); err != nil {
		_ = db.Close()
		return nil, storageErr("migrate", err)
	}

	s := &SQLiteStore{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Named("repository")
	}
	return s, nil
}

// Close closes the database handle.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// ApplySnapshot implements Store.
func (s *SQLiteStore) ApplySnapshot(ctx context.Context, syncID string, snap model.Snapshot) (model.Changes, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Changes{}, storageErr("begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	prior, err := s.loadPrior(ctx, tx, snap)
	if err != nil {
		return model.Changes{}, err
	}
	plan := reconcile.Reconcile(prior, snap, syncID, s.now().UTC())

	if err := s.writePlan(ctx, tx, plan); err != nil {
		return model.Changes{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Changes{}, storageErr("commit", err)
	}

	s.log.Debug(ctx, "applied snapshot",
		logger.String("map", snap.Map.UID),
		logger.Int("records", len(plan.Records)),
		logger.Int("events", len(plan.Changes.Events)),
	)
	return plan.Changes, nil
}

func (s *SQLiteStore) loadPrior(ctx context.Context, tx *sql.Tx, snap model.Snapshot) (reconcile.Prior, error) {
	prior := reconcile.Prior{
		Players: make(map[string]model.Player, len(snap.Entries)),
		Records: make(map[string]model.Record),
	}

	m, err := scanMap(tx.QueryRowContext(ctx, selectMapSQL+` WHERE uid = ?`, snap.Map.UID))
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return prior, storageErr("load map", err)
	default:
		prior.Map = &m
	}

	rows, err := tx.QueryContext(ctx, selectRecordSQL+` WHERE map_uid = ?`, snap.Map.UID)
	if err != nil {
		return prior, storageErr("load records", err)
	}
	defer rows.Close()
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return prior, storageErr("scan record", err)
		}
		prior.Records[r.PlayerID] = r
	}
	if err := rows.Err(); err != nil {
		return prior, storageErr("load records", err)
	}

	stmt, err := tx.PrepareContext(ctx, selectPlayerSQL+` WHERE id = ?`)
	if err != nil {
		return prior, storageErr("prepare player lookup", err)
	}
	defer stmt.Close()
	for _, e := range snap.Entries {
		p, err := scanPlayer(stmt.QueryRowContext(ctx, e.PlayerID))
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return prior, storageErr("load player", err)
		}
		prior.Players[p.ID] = p
	}
	return prior, nil
}

func (s *SQLiteStore) writePlan(ctx context.Context, tx *sql.Tx, plan reconcile.Plan) error {
	m := plan.Map
	var wr model.WorldRecord
	if m.WR != nil {
		wr = *m.WR
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO maps (uid, api_url, name, fetch_order, player_count, fetched_count, last_fetched_at,
		                  wr_player_id, wr_player_name, wr_time_ms, wr_set_at, wr_recorded_at,
		                  wr_prev_player_id, wr_prev_player_name, wr_prev_time_ms, new_wr)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (uid) DO UPDATE SET
		  api_url = excluded.api_url, name = excluded.name, fetch_order = excluded.fetch_order,
		  player_count = excluded.player_count, fetched_count = excluded.fetched_count,
		  last_fetched_at = excluded.last_fetched_at,
		  wr_player_id = excluded.wr_player_id, wr_player_name = excluded.wr_player_name,
		  wr_time_ms = excluded.wr_time_ms, wr_set_at = excluded.wr_set_at,
		  wr_recorded_at = excluded.wr_recorded_at, wr_prev_player_id = excluded.wr_prev_player_id,
		  wr_prev_player_name = excluded.wr_prev_player_name, wr_prev_time_ms = excluded.wr_prev_time_ms,
		  new_wr = excluded.new_wr`,
		m.UID, m.APIURL, m.Name, m.FetchOrder, m.PlayerCount, m.FetchedCount, toMillis(m.LastFetchedAt),
		wr.PlayerID, wr.PlayerName, wr.TimeMS, toMillis(wr.SetAt), toMillis(wr.RecordedAt),
		wr.PrevPlayerID, wr.PrevPlayerName, wr.PrevTimeMS, boolInt(m.NewWR),
	); err != nil {
		return storageErr("upsert map", err)
	}

	// clear the previous sync's flags; rows not in this snapshot stay stale
	if _, err := tx.ExecContext(ctx,
		`UPDATE records SET is_pb = 0, is_new_on_map = 0, stale = 1 WHERE map_uid = ?`,
		m.UID,
	); err != nil {
		return storageErr("clear flags", err)
	}

	playerStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO players (id, name, country, flag, first_seen_at, first_seen_sync)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
		  name = excluded.name, country = excluded.country, flag = excluded.flag`)
	if err != nil {
		return storageErr("prepare player upsert", err)
	}
	defer playerStmt.Close()
	for _, p := range plan.Players {
		if _, err := playerStmt.ExecContext(ctx,
			p.ID, p.Name, p.Country, p.Flag, toMillis(p.FirstSeenAt), p.FirstSeenSync,
		); err != nil {
			return storageErr("upsert player", err)
		}
	}

	for _, nc := range plan.NameChanges {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO player_name_changes (player_id, old_name, new_name, sync_id, changed_at) VALUES (?, ?, ?, ?, ?)`,
			nc.PlayerID, nc.OldName, nc.NewName, nc.SyncID, toMillis(nc.ChangedAt),
		); err != nil {
			return storageErr("insert name change", err)
		}
	}

	recordStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records (map_uid, player_id, rank, time_ms, score, set_at, recorded_at, updated_at,
		                     prev_time_ms, prev_rank, is_pb, is_new_on_map, stale)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)
		ON CONFLICT (map_uid, player_id) DO UPDATE SET
		  rank = excluded.rank, time_ms = excluded.time_ms, score = excluded.score,
		  set_at = excluded.set_at, updated_at = excluded.updated_at,
		  prev_time_ms = excluded.prev_time_ms, prev_rank = excluded.prev_rank,
		  is_pb = excluded.is_pb, is_new_on_map = excluded.is_new_on_map, stale = 0`)
	if err != nil {
		return storageErr("prepare record upsert", err)
	}
	defer recordStmt.Close()
	for _, r := range plan.Records {
		if _, err := recordStmt.ExecContext(ctx,
			r.MapUID, r.PlayerID, r.Rank, r.TimeMS, r.Score, toMillis(r.SetAt),
			toMillis(r.RecordedAt), toMillis(r.UpdatedAt), r.PrevTimeMS, r.PrevRank,
			boolInt(r.IsPB), boolInt(r.IsNewOnMap),
		); err != nil {
			return storageErr("upsert record", err)
		}
	}
	return nil
}

// BeginSync implements Store.
func (s *SQLiteStore) BeginSync(ctx context.Context, run model.SyncRun) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO sync_runs (id, started_at, maps_total) VALUES (?, ?, ?)`,
		run.ID, toMillis(run.StartedAt), run.MapsTotal,
	); err != nil {
		return storageErr("begin sync", err)
	}
	return nil
}

// FinishSync implements Store.
func (s *SQLiteStore) FinishSync(ctx context.Context, run model.SyncRun) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sync_runs SET finished_at = ?, maps_total = ?, maps_ok = ?, maps_failed = ? WHERE id = ?`,
		toMillis(run.FinishedAt), run.MapsTotal, run.MapsOK, run.MapsFailed, run.ID,
	)
	if err != nil {
		return storageErr("finish sync", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: sync run %s", ErrNotFound, run.ID)
	}
	return nil
}
