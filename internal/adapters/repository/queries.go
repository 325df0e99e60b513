package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/okian/mapboard/internal/domain/model"
	"github.com/okian/mapboard/internal/domain/ranking"
	"github.com/okian/mapboard/internal/domain/types"
	"github.com/okian/mapboard/pkg/metrics"
)

const (
	selectMapSQL = `SELECT uid, api_url, name, fetch_order, player_count, fetched_count, last_fetched_at,
	       wr_player_id, wr_player_name, wr_time_ms, wr_set_at, wr_recorded_at,
	       wr_prev_player_id, wr_prev_player_name, wr_prev_time_ms, new_wr
	FROM maps`

	selectRecordSQL = `SELECT map_uid, player_id, rank, time_ms, score, set_at, recorded_at, updated_at,
	       prev_time_ms, prev_rank, is_pb, is_new_on_map, stale
	FROM records`

	selectPlayerSQL = `SELECT id, name, country, flag, first_seen_at, first_seen_sync FROM players`

	selectRecordViewSQL = `SELECT r.map_uid, r.player_id, r.rank, r.time_ms, r.score, r.set_at, r.recorded_at,
	       r.updated_at, r.prev_time_ms, r.prev_rank, r.is_pb, r.is_new_on_map, r.stale,
	       p.name, p.country, p.flag, m.name, m.fetch_order
	FROM records r
	JOIN players p ON p.id = r.player_id
	JOIN maps m ON m.uid = r.map_uid`

	selectSyncSQL = `SELECT id, started_at, finished_at, maps_total, maps_ok, maps_failed FROM sync_runs`
)

type scanner interface {
	Scan(dest ...any) error
}

func scanMap(row scanner) (model.Map, error) {
	var (
		m                     model.Map
		lastFetched, newWR    int64
		wr                    model.WorldRecord
		wrSetAt, wrRecordedAt int64
	)
	if err := row.Scan(&m.UID, &m.APIURL, &m.Name, &m.FetchOrder, &m.PlayerCount, &m.FetchedCount, &lastFetched,
		&wr.PlayerID, &wr.PlayerName, &wr.TimeMS, &wrSetAt, &wrRecordedAt,
		&wr.PrevPlayerID, &wr.PrevPlayerName, &wr.PrevTimeMS, &newWR); err != nil {
		return model.Map{}, err
	}
	m.LastFetchedAt = fromMillis(lastFetched)
	m.NewWR = newWR != 0
	if wr.PlayerID != "" {
		wr.SetAt, wr.RecordedAt = fromMillis(wrSetAt), fromMillis(wrRecordedAt)
		m.WR = &wr
	}
	return m, nil
}

func scanRecord(row scanner) (model.Record, error) {
	var (
		r                          model.Record
		setAt, recordedAt, updated int64
		isPB, isNew, stale         int64
	)
	if err := row.Scan(&r.MapUID, &r.PlayerID, &r.Rank, &r.TimeMS, &r.Score, &setAt, &recordedAt, &updated,
		&r.PrevTimeMS, &r.PrevRank, &isPB, &isNew, &stale); err != nil {
		return model.Record{}, err
	}
	r.SetAt, r.RecordedAt, r.UpdatedAt = fromMillis(setAt), fromMillis(recordedAt), fromMillis(updated)
	r.IsPB, r.IsNewOnMap, r.Stale = isPB != 0, isNew != 0, stale != 0
	return r, nil
}

func scanRecordView(row scanner) (RecordView, error) {
	var (
		v                          RecordView
		setAt, recordedAt, updated int64
		isPB, isNew, stale         int64
	)
	if err := row.Scan(&v.MapUID, &v.PlayerID, &v.Rank, &v.TimeMS, &v.Score, &setAt, &recordedAt, &updated,
		&v.PrevTimeMS, &v.PrevRank, &isPB, &isNew, &stale,
		&v.PlayerName, &v.Country, &v.Flag, &v.MapName, &v.FetchOrder); err != nil {
		return RecordView{}, err
	}
	v.SetAt, v.RecordedAt, v.UpdatedAt = fromMillis(setAt), fromMillis(recordedAt), fromMillis(updated)
	v.IsPB, v.IsNewOnMap, v.Stale = isPB != 0, isNew != 0, stale != 0
	return v, nil
}

func scanPlayer(row scanner) (model.Player, error) {
	var (
		p         model.Player
		firstSeen int64
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Country, &p.Flag, &firstSeen, &p.FirstSeenSync); err != nil {
		return model.Player{}, err
	}
	p.FirstSeenAt = fromMillis(firstSeen)
	return p, nil
}

func scanSync(row scanner) (model.SyncRun, error) {
	var (
		r                 model.SyncRun
		started, finished int64
	)
	if err := row.Scan(&r.ID, &started, &finished, &r.MapsTotal, &r.MapsOK, &r.MapsFailed); err != nil {
		return model.SyncRun{}, err
	}
	r.StartedAt, r.FinishedAt = fromMillis(started), fromMillis(finished)
	return r, nil
}

func observeQuery(start time.Time) {
	metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Microseconds()) / 1000)
}

func queryAll[T any](ctx context.Context, db *sql.DB, op string, scan func(scanner) (T, error), query string, args ...any) ([]T, error) {
	defer observeQuery(time.Now())
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr(op, err)
	}
	defer rows.Close()
	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, storageErr(op, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(op, err)
	}
	return out, nil
}

// LastSync implements Store. It returns nil when no sync ever ran.
func (s *SQLiteStore) LastSync(ctx context.Context) (*model.SyncRun, error) {
	runs, err := s.RecentSyncs(ctx, 1)
	if err != nil || len(runs) == 0 {
		return nil, err
	}
	return &runs[0], nil
}

// LastAppliedSync implements Store. It returns nil when no finished sync
// applied a map.
func (s *SQLiteStore) LastAppliedSync(ctx context.Context) (*model.SyncRun, error) {
	runs, err := queryAll(ctx, s.db, "last applied sync", scanSync,
		selectSyncSQL+` WHERE finished_at != 0 AND maps_ok > 0 ORDER BY started_at DESC, rowid DESC LIMIT 1`)
	if err != nil || len(runs) == 0 {
		return nil, err
	}
	return &runs[0], nil
}

// RecentSyncs implements Store.
func (s *SQLiteStore) RecentSyncs(ctx context.Context, n int) ([]model.SyncRun, error) {
	if n <= 0 {
		n = 10
	}
	return queryAll(ctx, s.db, "recent syncs", scanSync,
		selectSyncSQL+` ORDER BY started_at DESC, rowid DESC LIMIT ?`, n)
}

// Maps implements Store.
func (s *SQLiteStore) Maps(ctx context.Context) ([]model.Map, error) {
	return queryAll(ctx, s.db, "maps", scanMap,
		selectMapSQL+` ORDER BY fetch_order, name COLLATE NOCASE, uid`)
}

// Map implements Store.
func (s *SQLiteStore) Map(ctx context.Context, uid string) (model.Map, error) {
	defer observeQuery(time.Now())
	m, err := scanMap(s.db.QueryRowContext(ctx, selectMapSQL+` WHERE uid = ?`, uid))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Map{}, fmt.Errorf("%w: map %s", ErrNotFound, uid)
	}
	if err != nil {
		return model.Map{}, storageErr("map", err)
	}
	return m, nil
}

// MapRecords implements Store.
func (s *SQLiteStore) MapRecords(ctx context.Context, uid string) ([]RecordView, error) {
	return queryAll(ctx, s.db, "map records", scanRecordView,
		selectRecordViewSQL+` WHERE r.map_uid = ? AND r.stale = 0 ORDER BY r.rank, r.time_ms, r.player_id`, uid)
}

// Player implements Store.
func (s *SQLiteStore) Player(ctx context.Context, id string) (model.Player, error) {
	defer observeQuery(time.Now())
	p, err := scanPlayer(s.db.QueryRowContext(ctx, selectPlayerSQL+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Player{}, fmt.Errorf("%w: player %s", ErrNotFound, id)
	}
	if err != nil {
		return model.Player{}, storageErr("player", err)
	}
	return p, nil
}

// PlayerRecords implements Store.
func (s *SQLiteStore) PlayerRecords(ctx context.Context, id string) ([]RecordView, error) {
	return queryAll(ctx, s.db, "player records", scanRecordView,
		selectRecordViewSQL+` WHERE r.player_id = ? AND r.stale = 0 ORDER BY m.name COLLATE NOCASE, m.uid`, id)
}

// PlayerRanks implements Store.
func (s *SQLiteStore) PlayerRanks(ctx context.Context) ([]ranking.PlayerRanks, error) {
	defer observeQuery(time.Now())
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.name, p.country, p.flag, r.rank
		FROM players p
		LEFT JOIN records r ON r.player_id = p.id AND r.stale = 0
		ORDER BY p.id`)
	if err != nil {
		return nil, storageErr("player ranks", err)
	}
	defer rows.Close()

	var out []ranking.PlayerRanks
	for rows.Next() {
		var (
			p    ranking.PlayerRanks
			rank sql.NullInt64
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Country, &p.Flag, &rank); err != nil {
			return nil, storageErr("player ranks", err)
		}
		if n := len(out); n == 0 || out[n-1].ID != p.ID {
			out = append(out, p)
		}
		if rank.Valid {
			last := &out[len(out)-1]
			last.Ranks = append(last.Ranks, int(rank.Int64))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("player ranks", err)
	}
	return out, nil
}

// FlaggedRecords implements Store.
func (s *SQLiteStore) FlaggedRecords(ctx context.Context) ([]RecordView, error) {
	return queryAll(ctx, s.db, "flagged records", scanRecordView,
		selectRecordViewSQL+` WHERE r.stale = 0 AND (r.is_pb = 1 OR r.is_new_on_map = 1) ORDER BY m.fetch_order, m.uid, r.rank`)
}

// PlayersFirstSeenIn implements Store.
func (s *SQLiteStore) PlayersFirstSeenIn(ctx context.Context, syncID string) ([]model.Player, error) {
	return queryAll(ctx, s.db, "new players", scanPlayer,
		selectPlayerSQL+` WHERE first_seen_sync = ? ORDER BY name COLLATE NOCASE, id`, syncID)
}

// NameChangesIn implements Store.
func (s *SQLiteStore) NameChangesIn(ctx context.Context, syncID string) ([]model.NameChange, error) {
	return queryAll(ctx, s.db, "name changes", func(row scanner) (model.NameChange, error) {
		var (
			nc      model.NameChange
			changed int64
		)
		if err := row.Scan(&nc.PlayerID, &nc.OldName, &nc.NewName, &nc.SyncID, &changed); err != nil {
			return model.NameChange{}, err
		}
		nc.ChangedAt = fromMillis(changed)
		return nc, nil
	}, `SELECT player_id, old_name, new_name, sync_id, changed_at
		FROM player_name_changes WHERE sync_id = ? ORDER BY id`, syncID)
}

// Totals implements Store.
func (s *SQLiteStore) Totals(ctx context.Context) (Totals, error) {
	defer observeQuery(time.Now())
	var t Totals
	err := s.db.QueryRowContext(ctx, `
		SELECT (SELECT COUNT(*) FROM maps),
		       (SELECT COUNT(*) FROM players),
		       (SELECT COUNT(*) FROM records WHERE stale = 0),
		       (SELECT COALESCE(SUM(time_ms), 0) FROM records WHERE stale = 0)`).
		Scan(&t.Maps, &t.Players, &t.Records, &t.PlaytimeMS)
	if err != nil {
		return Totals{}, storageErr("totals", err)
	}
	return t, nil
}

// Playtime implements Store.
func (s *SQLiteStore) Playtime(ctx context.Context) ([]types.PlaytimeRow, error) {
	return queryAll(ctx, s.db, "playtime", func(row scanner) (types.PlaytimeRow, error) {
		var p types.PlaytimeRow
		err := row.Scan(&p.MapUID, &p.MapName, &p.TotalMS, &p.Players)
		return p, err
	}, `SELECT m.uid, m.name, COALESCE(SUM(r.time_ms), 0) AS total, COUNT(r.player_id)
		FROM maps m
		LEFT JOIN records r ON r.map_uid = m.uid AND r.stale = 0
		GROUP BY m.uid, m.name
		ORDER BY total DESC, m.name COLLATE NOCASE, m.uid`)
}
