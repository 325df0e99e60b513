// Package repository persists maps, players, records and sync runs.
package repository

import (
	"context"

	"github.com/okian/mapboard/internal/domain/model"
	"github.com/okian/mapboard/internal/domain/ranking"
	"github.com/okian/mapboard/internal/domain/types"
)

// RecordView is a record joined with its player and map.
type RecordView struct {
	model.Record
	PlayerName string
	Country    string
	Flag       string
	MapName    string
	FetchOrder int
}

// Totals are the headline counts of the store.
type Totals struct {
	Maps       int
	Players    int
	Records    int
	PlaytimeMS int64
}

// Store provides read/write access to tracked leaderboards.
//
// Records missing from a map's latest snapshot are kept but marked stale.
// Read methods return live records only.
type Store interface {
	// ApplySnapshot reconciles one map leaderboard in a single transaction.
	// A failed call leaves no partial writes. Errors wrap ErrStorage.
	ApplySnapshot(ctx context.Context, syncID string, snap model.Snapshot) (model.Changes, error)

	BeginSync(ctx context.Context, run model.SyncRun) error
	FinishSync(ctx context.Context, run model.SyncRun) error
	LastSync(ctx context.Context) (*model.SyncRun, error)
	// LastAppliedSync is the latest finished run that applied at least one map.
	LastAppliedSync(ctx context.Context) (*model.SyncRun, error)
	RecentSyncs(ctx context.Context, n int) ([]model.SyncRun, error)

	// Maps returns all maps ordered by fetch order, then name.
	Maps(ctx context.Context) ([]model.Map, error)
	// Map returns ErrNotFound for an unknown uid.
	Map(ctx context.Context, uid string) (model.Map, error)
	// MapRecords returns a map's live records ordered by rank.
	MapRecords(ctx context.Context, uid string) ([]RecordView, error)

	// Player returns ErrNotFound for an unknown id.
	Player(ctx context.Context, id string) (model.Player, error)
	// PlayerRecords returns a player's records ordered by map name.
	PlayerRecords(ctx context.Context, id string) ([]RecordView, error)
	// PlayerRanks returns every player with the ranks they hold.
	PlayerRanks(ctx context.Context) ([]ranking.PlayerRanks, error)

	// FlaggedRecords returns records flagged PB or new-on-map.
	FlaggedRecords(ctx context.Context) ([]RecordView, error)
	PlayersFirstSeenIn(ctx context.Context, syncID string) ([]model.Player, error)
	NameChangesIn(ctx context.Context, syncID string) ([]model.NameChange, error)

	Totals(ctx context.Context) (Totals, error)
	Playtime(ctx context.Context) ([]types.PlaytimeRow, error)

	Close() error
}
