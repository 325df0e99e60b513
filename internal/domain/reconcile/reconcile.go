// Package reconcile diffs a fetched leaderboard against stored state.
//
// Reconcile is pure: it receives the prior state of one map and returns the
// rows to write together with the events the difference raised. Flags of the
// previous sync are not carried over, so applying the same snapshot twice
// raises nothing the second time.
package reconcile

import (
	"time"

	"github.com/okian/mapboard/internal/domain/model"
)

// Prior is the stored state relevant to one snapshot.
type Prior struct {
	Map     *model.Map              // nil when the map was never stored
	Players map[string]model.Player // known players appearing in the snapshot
	Records map[string]model.Record // this map's records keyed by player id
}

// Plan is the set of writes produced by Reconcile.
type Plan struct {
	Map         model.Map
	Players     []model.Player // every player of the snapshot, refreshed
	NameChanges []model.NameChange
	Records     []model.Record // every record of the snapshot, final state
	Changes     model.Changes
}

// Reconcile computes the plan for applying snap on top of prior.
func Reconcile(prior Prior, snap model.Snapshot, syncID string, now time.Time) Plan {
	plan := Plan{
		Map:     nextMap(prior.Map, snap),
		Players: make([]model.Player, 0, len(snap.Entries)),
		Records: make([]model.Record, 0, len(snap.Entries)),
		Changes: model.Changes{MapUID: snap.Map.UID, RecordCount: len(snap.Entries)},
	}
	ch := &plan.Changes

	for _, e := range snap.Entries {
		known, ok := prior.Players[e.PlayerID]
		switch {
		case !ok:
			known = model.Player{ID: e.PlayerID, FirstSeenAt: now, FirstSeenSync: syncID}
			ch.Events = append(ch.Events, model.Event{
				Kind: model.EventNewPlayer, MapUID: snap.Map.UID,
				PlayerID: e.PlayerID, PlayerName: e.PlayerName,
			})
		case known.Name != e.PlayerName && e.PlayerName != "":
			plan.NameChanges = append(plan.NameChanges, model.NameChange{
				PlayerID: e.PlayerID, OldName: known.Name, NewName: e.PlayerName,
				SyncID: syncID, ChangedAt: now,
			})
			ch.Events = append(ch.Events, model.Event{
				Kind: model.EventNameChange, MapUID: snap.Map.UID,
				PlayerID: e.PlayerID, PlayerName: e.PlayerName, OldName: known.Name,
			})
		}
		if e.PlayerName != "" {
			known.Name = e.PlayerName
		}
		known.Country, known.Flag = e.Country, e.Flag
		plan.Players = append(plan.Players, known)

		plan.Records = append(plan.Records, nextRecord(prior.Records, snap.Map.UID, e, now, ch))
	}

	if ev, changed := wrChange(prior.Map, plan.Map.WR, snap.Map.UID); changed {
		plan.Map.NewWR = true
		ch.Events = append(ch.Events, ev)
	}
	return plan
}

func nextRecord(prior map[string]model.Record, mapUID string, e model.Entry, now time.Time, ch *model.Changes) model.Record {
	old, ok := prior[e.PlayerID]
	if !ok {
		ch.Events = append(ch.Events, model.Event{
			Kind: model.EventNewOnMap, MapUID: mapUID,
			PlayerID: e.PlayerID, PlayerName: e.PlayerName, TimeMS: e.TimeMS, Rank: e.Rank,
		})
		return model.Record{
			MapUID: mapUID, PlayerID: e.PlayerID,
			Rank: e.Rank, TimeMS: e.TimeMS, Score: e.Score, SetAt: e.SetAt,
			RecordedAt: now, UpdatedAt: now, IsNewOnMap: true,
		}
	}

	rec := old
	rec.UpdatedAt = now
	rec.IsPB, rec.IsNewOnMap, rec.Stale = false, false, false
	switch {
	case e.TimeMS < old.TimeMS:
		rec.PrevTimeMS, rec.PrevRank = old.TimeMS, old.Rank
		rec.TimeMS, rec.Rank, rec.Score, rec.SetAt = e.TimeMS, e.Rank, e.Score, e.SetAt
		rec.IsPB = true
		ch.Events = append(ch.Events, model.Event{
			Kind: model.EventPB, MapUID: mapUID,
			PlayerID: e.PlayerID, PlayerName: e.PlayerName,
			TimeMS: e.TimeMS, PrevTimeMS: old.TimeMS, Rank: e.Rank, PrevRank: old.Rank,
		})
	case e.Rank != old.Rank:
		rec.Rank = e.Rank
		ch.RankMoves++
	default:
		ch.Unchanged++
	}
	return rec
}

// nextMap builds the map row for this snapshot. The WR is taken from the
// rank-1 entry; the previous holder is kept when it did not change.
func nextMap(prior *model.Map, snap model.Snapshot) model.Map {
	m := model.Map{
		UID:           snap.Map.UID,
		APIURL:        snap.Map.URL,
		Name:          snap.Map.Name,
		FetchOrder:    snap.Map.FetchOrder,
		PlayerCount:   snap.PlayerCount,
		FetchedCount:  len(snap.Entries),
		LastFetchedAt: snap.FetchedAt,
	}
	var top *model.Entry
	for i := range snap.Entries {
		if snap.Entries[i].Rank == 1 {
			top = &snap.Entries[i]
			break
		}
	}
	if top == nil {
		return m
	}
	if prior != nil && prior.WR != nil && sameWR(prior.WR, top) {
		wr := *prior.WR
		wr.PlayerName = top.PlayerName
		m.WR = &wr
		return m
	}
	wr := &model.WorldRecord{
		PlayerID:   top.PlayerID,
		PlayerName: top.PlayerName,
		TimeMS:     top.TimeMS,
		SetAt:      top.SetAt,
		RecordedAt: snap.FetchedAt,
	}
	if prior != nil && prior.WR != nil {
		wr.PrevPlayerID = prior.WR.PlayerID
		wr.PrevPlayerName = prior.WR.PlayerName
		wr.PrevTimeMS = prior.WR.TimeMS
	}
	m.WR = wr
	return m
}

func sameWR(wr *model.WorldRecord, top *model.Entry) bool {
	return wr.PlayerID == top.PlayerID && wr.TimeMS == top.TimeMS
}

func wrChange(prior *model.Map, next *model.WorldRecord, mapUID string) (model.Event, bool) {
	var old *model.WorldRecord
	if prior != nil {
		old = prior.WR
	}
	switch {
	case old == nil && next == nil:
		return model.Event{}, false
	case next == nil:
		return model.Event{
			Kind: model.EventWRChange, MapUID: mapUID,
			PlayerID: old.PlayerID, PlayerName: old.PlayerName, PrevTimeMS: old.TimeMS,
		}, true
	case old != nil && old.PlayerID == next.PlayerID && old.TimeMS == next.TimeMS:
		return model.Event{}, false
	}
	ev := model.Event{
		Kind: model.EventWRChange, MapUID: mapUID,
		PlayerID: next.PlayerID, PlayerName: next.PlayerName, TimeMS: next.TimeMS, Rank: 1,
	}
	if old != nil {
		ev.PrevTimeMS = old.TimeMS
	}
	return ev, true
}
