// Package types contains the read shapes shared by the service, the HTTP API
// and the console renderer.
package types

import "time"

// SyncSummary describes one sync run.
type SyncSummary struct {
	ID         string     `json:"id"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	MapsTotal  int        `json:"maps_total"`
	MapsOK     int        `json:"maps_ok"`
	MapsFailed int        `json:"maps_failed"`
}

// Overview is the headline view.
type Overview struct {
	Maps            int          `json:"maps"`
	Players         int          `json:"players"`
	Records         int          `json:"records"`
	TotalPlaytimeMS int64        `json:"total_playtime_ms"`
	LastSync        *SyncSummary `json:"last_sync,omitempty"`
}

// MapRow is one tracked map with its world record.
type MapRow struct {
	UID           string     `json:"uid"`
	Name          string     `json:"name"`
	FetchOrder    int        `json:"fetch_order"`
	PlayerCount   int        `json:"player_count"`
	FetchedCount  int        `json:"fetched_count"`
	WRTimeMS      int64      `json:"wr_time_ms,omitempty"`
	WRPlayerID    string     `json:"wr_player_id,omitempty"`
	WRPlayerName  string     `json:"wr_player_name,omitempty"`
	WRPrevTimeMS  int64      `json:"wr_prev_time_ms,omitempty"`
	WRPrevName    string     `json:"wr_prev_player_name,omitempty"`
	LastFetchedAt *time.Time `json:"last_fetched_at,omitempty"`
	NewWR         bool       `json:"new_wr"`
}

// MapEntry is one record on a map leaderboard.
type MapEntry struct {
	Rank       int       `json:"rank"`
	PlayerID   string    `json:"player_id"`
	PlayerName string    `json:"player_name"`
	Country    string    `json:"country"`
	Flag       string    `json:"flag"`
	TimeMS     int64     `json:"time_ms"`
	Points     float64   `json:"points"`
	SetAt      time.Time `json:"set_at"`
	IsPB       bool      `json:"is_pb"`
	IsNewOnMap bool      `json:"is_new_on_map"`
}

// MapLeaderboard is a map with its records ordered by rank.
type MapLeaderboard struct {
	Map     MapRow     `json:"map"`
	Entries []MapEntry `json:"entries"`
}

// Standing is a player's place on the overall leaderboard.
type Standing struct {
	Rank       int     `json:"rank"`
	PlayerID   string  `json:"player_id"`
	Name       string  `json:"name"`
	Country    string  `json:"country"`
	Flag       string  `json:"flag"`
	Points     float64 `json:"points"`
	MapsPlayed int     `json:"maps_played"`
}

// ProfileRecord is one record on a player profile.
type ProfileRecord struct {
	MapUID  string    `json:"map_uid"`
	MapName string    `json:"map_name"`
	Rank    int       `json:"rank"`
	TimeMS  int64     `json:"time_ms"`
	Points  float64   `json:"points"`
	SetAt   time.Time `json:"set_at"`
	IsPB    bool      `json:"is_pb"`
}

// PlayerProfile is a player summary with all their records.
type PlayerProfile struct {
	Standing
	FirstSeenAt time.Time       `json:"first_seen_at"`
	Records     []ProfileRecord `json:"records"`
}

// PBRow is a personal best set during the last sync of its map.
type PBRow struct {
	MapUID      string    `json:"map_uid"`
	MapName     string    `json:"map_name"`
	PlayerID    string    `json:"player_id"`
	PlayerName  string    `json:"player_name"`
	TimeMS      int64     `json:"time_ms"`
	PrevTimeMS  int64     `json:"prev_time_ms"`
	ImprovedMS  int64     `json:"improved_ms"`
	Rank        int       `json:"rank"`
	PrevRank    int       `json:"prev_rank"`
	SetAt       time.Time `json:"set_at"`
	RecordedAt  time.Time `json:"recorded_at"`
	IsNewOnMap  bool      `json:"is_new_on_map"`
	Points      float64   `json:"points"`
	PointsDelta float64   `json:"points_delta"`
}

// PlayerRow is a player first seen in the last sync.
type PlayerRow struct {
	PlayerID    string    `json:"player_id"`
	Name        string    `json:"name"`
	Country     string    `json:"country"`
	Flag        string    `json:"flag"`
	FirstSeenAt time.Time `json:"first_seen_at"`
}

// NameChangeRow is a rename detected during the last sync.
type NameChangeRow struct {
	PlayerID  string    `json:"player_id"`
	OldName   string    `json:"old_name"`
	NewName   string    `json:"new_name"`
	ChangedAt time.Time `json:"changed_at"`
}

// WhatsNew is the delta view.
type WhatsNew struct {
	LastSync    *SyncSummary    `json:"last_sync,omitempty"`
	PBs         []PBRow         `json:"pbs"`
	NewOnMap    []PBRow         `json:"new_on_map"`
	NewWRs      []MapRow        `json:"new_wrs"`
	NewPlayers  []PlayerRow     `json:"new_players"`
	NameChanges []NameChangeRow `json:"name_changes"`
}

// CountryRow is a country with its best-ranked player.
type CountryRow struct {
	Country    string  `json:"country"`
	Flag       string  `json:"flag"`
	Players    int     `json:"players"`
	BestID     string  `json:"best_player_id"`
	BestName   string  `json:"best_player_name"`
	BestRank   int     `json:"best_rank"`
	BestPoints float64 `json:"best_points"`
}

// PlaytimeRow is the sum of record times on one map.
type PlaytimeRow struct {
	MapUID  string `json:"map_uid"`
	MapName string `json:"map_name"`
	TotalMS int64  `json:"total_ms"`
	Players int    `json:"players"`
}

// Stats reports operational state of the running service.
type Stats struct {
	Generation  uint64        `json:"generation"`
	Syncing     bool          `json:"syncing"`
	RecentSyncs []SyncSummary `json:"recent_syncs"`
	Cache       *CacheStats   `json:"cache,omitempty"`
}

// CacheStats reports view cache usage.
type CacheStats struct {
	Entries  int64   `json:"entries"`
	Hits     int64   `json:"hits"`
	Misses   int64   `json:"misses"`
	HitRate  float64 `json:"hit_rate"`
	Evicted  int64   `json:"evicted"`
	Capacity int     `json:"capacity_bytes"`
}
