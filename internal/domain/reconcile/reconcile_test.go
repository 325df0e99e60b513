package reconcile_test

import (
	"testing"
	"time"

	"github.com/okian/mapboard/internal/domain/model"
	"github.com/okian/mapboard/internal/domain/reconcile"
	. "github.com/smartystreets/goconvey/convey"
)

var (
	t0 = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	t1 = t0.Add(time.Hour)
)

func snapshot(entries ...model.Entry) model.Snapshot {
	for i := range entries {
		entries[i].Rank = i + 1
		if entries[i].Country == "" {
			entries[i].Country, entries[i].Flag = "France", "FRA"
		}
	}
	return model.Snapshot{
		Map:         model.MapRef{UID: "m1", URL: "https://api.example/map/m1", Name: "Alpha"},
		PlayerCount: len(entries),
		Entries:     entries,
		FetchedAt:   t1,
	}
}

// apply turns a plan into the prior state of the next sync.
func apply(plan reconcile.Plan) reconcile.Prior {
	prior := reconcile.Prior{
		Players: map[string]model.Player{},
		Records: map[string]model.Record{},
	}
	m := plan.Map
	prior.Map = &m
	for _, p := range plan.Players {
		prior.Players[p.ID] = p
	}
	for _, r := range plan.Records {
		prior.Records[r.PlayerID] = r
	}
	return prior
}

func TestReconcileFirstSync(t *testing.T) {
	Convey("Given an empty store", t, func() {
		snap := snapshot(
			model.Entry{PlayerID: "a", PlayerName: "Ann", TimeMS: 50_000},
			model.Entry{PlayerID: "b", PlayerName: "Bob", TimeMS: 51_000},
		)

		Convey("When the first snapshot is reconciled", func() {
			plan := reconcile.Reconcile(reconcile.Prior{}, snap, "sync-1", t1)

			Convey("Then every player and record is new", func() {
				So(plan.Changes.Count(model.EventNewPlayer), ShouldEqual, 2)
				So(plan.Changes.Count(model.EventNewOnMap), ShouldEqual, 2)
				So(plan.Changes.Count(model.EventPB), ShouldEqual, 0)
				So(plan.Records[0].IsNewOnMap, ShouldBeTrue)
				So(plan.Players[0].FirstSeenSync, ShouldEqual, "sync-1")
				So(plan.Players[0].Country, ShouldEqual, "France")
			})

			Convey("Then the rank-1 entry becomes the WR", func() {
				So(plan.Map.WR, ShouldNotBeNil)
				So(plan.Map.WR.PlayerID, ShouldEqual, "a")
				So(plan.Map.WR.TimeMS, ShouldEqual, 50_000)
				So(plan.Map.NewWR, ShouldBeTrue)
				So(plan.Changes.Count(model.EventWRChange), ShouldEqual, 1)
				So(plan.Map.FetchedCount, ShouldEqual, 2)
				So(plan.Map.LastFetchedAt, ShouldEqual, t1)
			})
		})
	})
}

func TestReconcileIdempotent(t *testing.T) {
	Convey("Given a store that already holds a snapshot", t, func() {
		snap := snapshot(
			model.Entry{PlayerID: "a", PlayerName: "Ann", TimeMS: 50_000},
			model.Entry{PlayerID: "b", PlayerName: "Bob", TimeMS: 51_000},
		)
		prior := apply(reconcile.Reconcile(reconcile.Prior{}, snap, "sync-1", t0))

		Convey("When the identical snapshot is applied again", func() {
			plan := reconcile.Reconcile(prior, snap, "sync-2", t1)

			Convey("Then nothing is flagged and no event is raised", func() {
				So(plan.Changes.Events, ShouldBeEmpty)
				So(plan.Changes.Unchanged, ShouldEqual, 2)
				So(plan.Map.NewWR, ShouldBeFalse)
				for _, r := range plan.Records {
					So(r.IsPB, ShouldBeFalse)
					So(r.IsNewOnMap, ShouldBeFalse)
					So(r.RecordedAt, ShouldEqual, t0)
					So(r.UpdatedAt, ShouldEqual, t1)
				}
				So(plan.Players[0].FirstSeenSync, ShouldEqual, "sync-1")
			})
		})
	})
}

func TestReconcilePB(t *testing.T) {
	Convey("Given a player ranked second", t, func() {
		prior := apply(reconcile.Reconcile(reconcile.Prior{}, snapshot(
			model.Entry{PlayerID: "a", PlayerName: "Ann", TimeMS: 50_000},
			model.Entry{PlayerID: "b", PlayerName: "Bob", TimeMS: 51_000},
			model.Entry{PlayerID: "c", PlayerName: "Cat", TimeMS: 52_000},
		), "sync-1", t0))

		Convey("When they improve to first place", func() {
			plan := reconcile.Reconcile(prior, snapshot(
				model.Entry{PlayerID: "b", PlayerName: "Bob", TimeMS: 49_500, Score: 7},
				model.Entry{PlayerID: "a", PlayerName: "Ann", TimeMS: 50_000},
				model.Entry{PlayerID: "c", PlayerName: "Cat", TimeMS: 52_000},
			), "sync-2", t1)

			Convey("Then a PB keeps the previous time and rank", func() {
				So(plan.Changes.Count(model.EventPB), ShouldEqual, 1)
				b := plan.Records[0]
				So(b.PlayerID, ShouldEqual, "b")
				So(b.IsPB, ShouldBeTrue)
				So(b.TimeMS, ShouldEqual, 49_500)
				So(b.Rank, ShouldEqual, 1)
				So(b.Score, ShouldEqual, 7)
				So(b.PrevTimeMS, ShouldEqual, 51_000)
				So(b.PrevRank, ShouldEqual, 2)
			})

			Convey("Then a player pushed down only moves rank", func() {
				a := plan.Records[1]
				So(a.IsPB, ShouldBeFalse)
				So(a.Rank, ShouldEqual, 2)
				So(a.TimeMS, ShouldEqual, 50_000)
				So(plan.Changes.RankMoves, ShouldEqual, 1)
				So(plan.Changes.Unchanged, ShouldEqual, 1)
			})

			Convey("Then the WR changes hands and keeps the old holder", func() {
				So(plan.Map.NewWR, ShouldBeTrue)
				So(plan.Map.WR.PlayerID, ShouldEqual, "b")
				So(plan.Map.WR.PrevPlayerID, ShouldEqual, "a")
				So(plan.Map.WR.PrevTimeMS, ShouldEqual, 50_000)
				So(plan.Changes.Count(model.EventWRChange), ShouldEqual, 1)
			})
		})

		Convey("When a slower time is reported", func() {
			plan := reconcile.Reconcile(prior, snapshot(
				model.Entry{PlayerID: "a", PlayerName: "Ann", TimeMS: 50_000},
				model.Entry{PlayerID: "b", PlayerName: "Bob", TimeMS: 53_000},
				model.Entry{PlayerID: "c", PlayerName: "Cat", TimeMS: 52_000},
			), "sync-2", t1)

			Convey("Then it is not a PB and the stored time stays", func() {
				So(plan.Changes.Count(model.EventPB), ShouldEqual, 0)
				So(plan.Records[1].TimeMS, ShouldEqual, 51_000)
			})
		})
	})
}

func TestReconcilePlayers(t *testing.T) {
	Convey("Given a known player", t, func() {
		prior := apply(reconcile.Reconcile(reconcile.Prior{}, snapshot(
			model.Entry{PlayerID: "a", PlayerName: "Ann", TimeMS: 50_000},
		), "sync-1", t0))

		Convey("When they appear under a new name and country with a newcomer", func() {
			plan := reconcile.Reconcile(prior, snapshot(
				model.Entry{PlayerID: "a", PlayerName: "Annie", TimeMS: 50_000, Country: "Spain", Flag: "ESP"},
				model.Entry{PlayerID: "n", PlayerName: "Neo", TimeMS: 60_000},
			), "sync-2", t1)

			Convey("Then the rename is recorded", func() {
				So(plan.NameChanges, ShouldHaveLength, 1)
				So(plan.NameChanges[0].OldName, ShouldEqual, "Ann")
				So(plan.NameChanges[0].NewName, ShouldEqual, "Annie")
				So(plan.Players[0].Name, ShouldEqual, "Annie")
				So(plan.Players[0].Country, ShouldEqual, "Spain")
				So(plan.Players[0].FirstSeenAt, ShouldEqual, t0)
			})

			Convey("Then the newcomer is new and new on the map", func() {
				So(plan.Changes.Count(model.EventNewPlayer), ShouldEqual, 1)
				So(plan.Changes.Count(model.EventNewOnMap), ShouldEqual, 1)
				So(plan.Records[1].IsNewOnMap, ShouldBeTrue)
				So(plan.Changes.Count(model.EventNameChange), ShouldEqual, 1)
			})
		})
	})
}

func TestReconcileEmptyLeaderboard(t *testing.T) {
	Convey("Given a map with a WR", t, func() {
		prior := apply(reconcile.Reconcile(reconcile.Prior{}, snapshot(
			model.Entry{PlayerID: "a", PlayerName: "Ann", TimeMS: 50_000},
		), "sync-1", t0))

		Convey("When the leaderboard comes back empty", func() {
			plan := reconcile.Reconcile(prior, snapshot(), "sync-2", t1)

			Convey("Then the WR is cleared and that counts as a change", func() {
				So(plan.Map.WR, ShouldBeNil)
				So(plan.Map.NewWR, ShouldBeTrue)
				So(plan.Changes.Count(model.EventWRChange), ShouldEqual, 1)
				So(plan.Records, ShouldBeEmpty)
			})

			Convey("Then applying it again raises nothing", func() {
				again := reconcile.Reconcile(apply(plan), snapshot(), "sync-3", t1)
				So(again.Changes.Events, ShouldBeEmpty)
				So(again.Map.NewWR, ShouldBeFalse)
			})
		})
	})
}

func TestReconcileReturningPlayer(t *testing.T) {
	Convey("Given a record left stale by an earlier snapshot", t, func() {
		prior := apply(reconcile.Reconcile(reconcile.Prior{}, snapshot(
			model.Entry{PlayerID: "a", PlayerName: "Ann", TimeMS: 50_000},
		), "sync-1", t0))
		rec := prior.Records["a"]
		rec.Stale = true
		prior.Records["a"] = rec

		Convey("When the player is back on the board with the same time", func() {
			plan := reconcile.Reconcile(prior, snapshot(
				model.Entry{PlayerID: "b", PlayerName: "Bob", TimeMS: 49_000},
				model.Entry{PlayerID: "a", PlayerName: "Ann", TimeMS: 50_000},
			), "sync-3", t1)

			Convey("Then the record is live again without counting as new", func() {
				So(plan.Records[1].PlayerID, ShouldEqual, "a")
				So(plan.Records[1].Stale, ShouldBeFalse)
				So(plan.Records[1].Rank, ShouldEqual, 2)
				So(plan.Records[1].IsNewOnMap, ShouldBeFalse)
				So(plan.Changes.Count(model.EventNewOnMap), ShouldEqual, 1)
			})
		})
	})
}
