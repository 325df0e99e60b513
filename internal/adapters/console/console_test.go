package console

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"golang.org/x/text/language"

	"github.com/okian/mapboard/internal/domain/model"
	"github.com/okian/mapboard/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func newTestRenderer(opts ...Option) (*Renderer, *bytes.Buffer) {
	var buf bytes.Buffer
	return New(&buf, append([]Option{WithLocation(time.UTC)}, opts...)...), &buf
}

func TestRendererTables(t *testing.T) {
	Convey("Given a renderer", t, func() {
		r, buf := newTestRenderer()
		at := time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC)

		Convey("When rendering the overall leaderboard", func() {
			So(r.Overall([]types.Standing{
				{Rank: 1, Name: "Ann", Country: "France", Flag: "FRA", Points: 60_000, MapsPlayed: 2},
				{Rank: 2, Name: "Bartholomew", Country: "Unknown", Flag: "WOR", Points: 13_333.33, MapsPlayed: 1},
			}), ShouldBeNil)

			Convey("Then points are grouped and columns aligned", func() {
				lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
				So(lines, ShouldHaveLength, 3)
				So(lines[1], ShouldContainSubstring, "60,000.00")
				So(lines[1], ShouldContainSubstring, "France (FRA)")
				So(lines[2], ShouldContainSubstring, "13,333.33")
				So(lines[2], ShouldNotContainSubstring, "WOR")
				So(strings.Index(lines[1], "France"), ShouldEqual, strings.Index(lines[2], "Unknown"))
			})
		})

		Convey("When rendering a map leaderboard", func() {
			So(r.MapLeaderboard(types.MapLeaderboard{
				Map: types.MapRow{Name: "Alpha"},
				Entries: []types.MapEntry{
					{Rank: 1, PlayerName: "Cid", TimeMS: 49_000, Points: 40_000, IsPB: true, SetAt: at},
					{Rank: 2, PlayerName: "Dee", TimeMS: 3_725_042, Points: 20_000, IsNewOnMap: true},
				},
			}), ShouldBeNil)

			Convey("Then times, flags and the heading are shown", func() {
				out := buf.String()
				So(out, ShouldStartWith, "Alpha\n=====\n")
				So(out, ShouldContainSubstring, "0:49.000")
				So(out, ShouldContainSubstring, "1:02:05.042")
				So(out, ShouldContainSubstring, "Cid [PB]")
				So(out, ShouldContainSubstring, "Dee [NEW]")
				So(out, ShouldContainSubstring, "2024-06-01 12:30")
			})
		})

		Convey("When rendering the overview", func() {
			finished := at.Add(time.Minute)
			So(r.Overview(types.Overview{
				Maps: 2, Players: 1234, Records: 5, TotalPlaytimeMS: 90_061_000,
				LastSync: &types.SyncSummary{FinishedAt: &finished, MapsOK: 2, MapsTotal: 2},
			}), ShouldBeNil)

			out := buf.String()
			So(out, ShouldContainSubstring, "1,234")
			So(out, ShouldContainSubstring, "1d 1h 1m 1s")
			So(out, ShouldContainSubstring, "2024-06-01 12:31 (2/2 maps ok)")
		})

		Convey("When rendering an empty delta view", func() {
			So(r.WhatsNew(types.WhatsNew{}), ShouldBeNil)
			So(buf.String(), ShouldEqual, "Nothing new.\n")
		})

		Convey("When rendering a delta view", func() {
			So(r.WhatsNew(types.WhatsNew{
				PBs: []types.PBRow{{MapName: "Alpha", PlayerName: "Cid", TimeMS: 49_000, ImprovedMS: 3_000,
					PrevRank: 3, Rank: 1, PointsDelta: 26_666.67}},
				NewWRs:      []types.MapRow{{Name: "Alpha", WRPlayerName: "Cid", WRTimeMS: 49_000, WRPrevTimeMS: 50_000, WRPrevName: "Ann"}},
				NameChanges: []types.NameChangeRow{{OldName: "Cid", NewName: "Cidney"}},
			}), ShouldBeNil)

			Convey("Then each non-empty section is rendered", func() {
				out := buf.String()
				So(out, ShouldContainSubstring, "New world records")
				So(out, ShouldContainSubstring, "was 0:50.000 by Ann (-1.000)")
				So(out, ShouldContainSubstring, "Personal bests")
				So(out, ShouldContainSubstring, "-3.000")
				So(out, ShouldContainSubstring, "3 -> 1")
				So(out, ShouldContainSubstring, "+26,666.67")
				So(out, ShouldContainSubstring, "Cidney")
				So(out, ShouldNotContainSubstring, "New players")
				So(out, ShouldNotContainSubstring, "Nothing new.")
			})
		})

		Convey("When rendering playtime", func() {
			So(r.Playtime([]types.PlaytimeRow{
				{MapName: "Alpha", TotalMS: 153_000, Players: 3},
				{MapName: "Beta", TotalMS: 61_000, Players: 2},
			}), ShouldBeNil)

			So(buf.String(), ShouldContainSubstring, "2m 33s")
			So(buf.String(), ShouldContainSubstring, "3m 34s")
		})

		Convey("When rendering a sync report", func() {
			So(r.SyncReport(model.SyncReport{
				Run: model.SyncRun{StartedAt: at, FinishedAt: at.Add(90 * time.Second), MapsTotal: 2, MapsOK: 1, MapsFailed: 1},
				Maps: []model.MapResult{
					{Name: "Alpha", Records: 1500, Took: 2 * time.Second},
					{Name: "Beta", Err: errors.New("status 503")},
				},
				Warnings: []string{"line 4: invalid url"},
				PBs:      2,
			}), ShouldBeNil)

			out := buf.String()
			So(out, ShouldContainSubstring, "warning: line 4: invalid url")
			So(out, ShouldContainSubstring, "1,500 records")
			So(out, ShouldContainSubstring, "FAILED")
			So(out, ShouldContainSubstring, "status 503")
			So(out, ShouldContainSubstring, "Synced 1/2 maps in 1m30s (1 failed)")
			So(out, ShouldContainSubstring, "PBs: 2")
		})
	})

	Convey("Given a German renderer", t, func() {
		r, buf := newTestRenderer(WithLanguage(language.German))
		So(r.Countries([]types.CountryRow{{Country: "Germany", Flag: "GER", Players: 1200, BestName: "Ute", BestRank: 1, BestPoints: 41_234.5}}), ShouldBeNil)

		So(buf.String(), ShouldContainSubstring, "1.200")
		So(buf.String(), ShouldContainSubstring, "41.234,50")
	})
}
