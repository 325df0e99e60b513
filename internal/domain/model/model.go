// Package model contains domain models passed between layers.
package model

import "time"

// Map is a tracked map as stored locally.
type Map struct {
	UID           string
	APIURL        string
	Name          string
	FetchOrder    int
	PlayerCount   int       // playercount reported by the API
	FetchedCount  int       // entries actually stored on the last sync
	LastFetchedAt time.Time // zero until the first successful sync
	WR            *WorldRecord
	NewWR         bool // WR changed on the last sync of this map
}

// DisplayName falls back to the UID when no name is known.
func (m Map) DisplayName() string {
	if m.Name != "" {
		return m.Name
	}
	return m.UID
}

// WorldRecord is the rank-1 entry of a map, with the holder it replaced.
type WorldRecord struct {
	PlayerID       string
	PlayerName     string
	TimeMS         int64
	SetAt          time.Time // game timestamp
	RecordedAt     time.Time // when this tool first saw it
	PrevPlayerID   string
	PrevPlayerName string
	PrevTimeMS     int64 // 0 when there was no previous WR
}

// Player is anyone who has appeared on a tracked leaderboard.
type Player struct {
	ID            string
	Name          string
	Country       string
	Flag          string
	FirstSeenAt   time.Time
	FirstSeenSync string
}

// Record is the single current result of a player on a map.
type Record struct {
	MapUID     string
	PlayerID   string
	Rank       int
	TimeMS     int64
	Score      int64
	SetAt      time.Time // game timestamp of the run
	RecordedAt time.Time // first time this pairing was stored
	UpdatedAt  time.Time // last sync that touched the row
	PrevTimeMS int64     // time before the last PB, 0 if none
	PrevRank   int       // rank before the last PB, 0 if none
	IsPB       bool
	IsNewOnMap bool
	Stale      bool // absent from the latest snapshot of its map
}

// SyncRun is one execution of the fetch loop.
type SyncRun struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	MapsTotal  int
	MapsOK     int
	MapsFailed int
}

// Finished reports whether the run reached its end.
func (r SyncRun) Finished() bool { return !r.FinishedAt.IsZero() }
