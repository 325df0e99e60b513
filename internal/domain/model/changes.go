package model

import "time"

// EventKind classifies a change detected while applying a snapshot.
type EventKind string

// Event kinds.
const (
	EventNewPlayer  EventKind = "new_player"
	EventNameChange EventKind = "name_change"
	EventNewOnMap   EventKind = "new_on_map"
	EventPB         EventKind = "pb"
	EventWRChange   EventKind = "wr_change"
)

// Event is a single detected change.
type Event struct {
	Kind       EventKind
	MapUID     string
	PlayerID   string
	PlayerName string
	OldName    string // name_change only
	TimeMS     int64
	PrevTimeMS int64 // pb and wr_change
	Rank       int
	PrevRank   int // pb only
}

// Changes is the outcome of reconciling one snapshot with stored state.
type Changes struct {
	MapUID      string
	Events      []Event
	RankMoves   int // records whose rank changed without a PB
	Unchanged   int
	RecordCount int
}

// Count returns how many events of the given kind were raised.
func (c Changes) Count(kind EventKind) int {
	n := 0
	for _, e := range c.Events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// NameChange is a recorded rename of a player.
type NameChange struct {
	PlayerID  string
	OldName   string
	NewName   string
	SyncID    string
	ChangedAt time.Time
}

// MapResult is the per-map outcome of a sync.
type MapResult struct {
	UID       string
	Name      string
	Records   int
	Dropped   int
	Changes   Changes
	Err       error
	Took      time.Duration
	FetchedAt time.Time
}

// OK reports whether the map synced without error.
func (r MapResult) OK() bool { return r.Err == nil }

// SyncReport summarises a sync run.
type SyncReport struct {
	Run         SyncRun
	Maps        []MapResult
	Warnings    []string // registry warnings
	NewPlayers  int
	PBs         int
	NewOnMap    int
	WRChanges   int
	NameChanges int
}

// Add folds a map result into the report totals.
func (r *SyncReport) Add(res MapResult) {
	r.Maps = append(r.Maps, res)
	if !res.OK() {
		r.Run.MapsFailed++
		return
	}
	r.Run.MapsOK++
	r.NewPlayers += res.Changes.Count(EventNewPlayer)
	r.PBs += res.Changes.Count(EventPB)
	r.NewOnMap += res.Changes.Count(EventNewOnMap)
	r.WRChanges += res.Changes.Count(EventWRChange)
	r.NameChanges += res.Changes.Count(EventNameChange)
}

// Failed lists the maps that did not sync.
func (r SyncReport) Failed() []MapResult {
	var out []MapResult
	for _, m := range r.Maps {
		if !m.OK() {
			out = append(out, m)
		}
	}
	return out
}
