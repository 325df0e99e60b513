package ranking_test

import (
	"testing"

	"github.com/okian/mapboard/internal/domain/points"
	"github.com/okian/mapboard/internal/domain/ranking"
	. "github.com/smartystreets/goconvey/convey"
)

func TestOverall(t *testing.T) {
	Convey("Given players with records on several maps", t, func() {
		tbl := points.NewTiered()
		players := []ranking.PlayerRanks{
			{ID: "p3", Name: "carol", Country: "France", Flag: "FRA", Ranks: []int{2}},
			{ID: "p1", Name: "Alice", Country: "France", Flag: "FRA", Ranks: []int{1, 2}},
			{ID: "p2", Name: "bob", Country: "Japan", Flag: "JPN", Ranks: []int{1}},
			{ID: "p4", Name: "Dave", Country: "Unknown", Flag: "WOR"},
			{ID: "p5", Name: "Bea", Country: "Japan", Flag: "JPN", Ranks: []int{3, 6}},
		}

		Convey("When the overall list is computed", func() {
			out := ranking.Overall(players, tbl)

			Convey("Then it is ordered by points with tie-breaks", func() {
				So(out, ShouldHaveLength, 5)
				So(out[0].PlayerID, ShouldEqual, "p1")
				So(out[0].Points, ShouldEqual, 60000)
				So(out[0].MapsPlayed, ShouldEqual, 2)
				So(out[0].Rank, ShouldEqual, 1)
				So(out[1].PlayerID, ShouldEqual, "p2")
				So(out[2].PlayerID, ShouldEqual, "p5")
				So(out[2].Points, ShouldEqual, 20000)
				So(out[3].PlayerID, ShouldEqual, "p3")
				So(out[4].PlayerID, ShouldEqual, "p4")
				So(out[4].Points, ShouldEqual, 0)
				So(out[4].Rank, ShouldEqual, 5)
			})
		})

		Convey("When two players tie on points and maps", func() {
			out := ranking.Overall([]ranking.PlayerRanks{
				{ID: "b", Name: "zed", Ranks: []int{1}},
				{ID: "a", Name: "Amy", Ranks: []int{1}},
				{ID: "c", Name: "amy", Ranks: []int{1}},
			}, tbl)

			Convey("Then name then id decide", func() {
				So(out[0].PlayerID, ShouldEqual, "a")
				So(out[1].PlayerID, ShouldEqual, "c")
				So(out[2].PlayerID, ShouldEqual, "b")
			})
		})
	})
}

func TestCountries(t *testing.T) {
	Convey("Given an ordered overall list", t, func() {
		out := ranking.Overall([]ranking.PlayerRanks{
			{ID: "p1", Name: "Alice", Country: "France", Flag: "FRA", Ranks: []int{1, 2}},
			{ID: "p2", Name: "bob", Country: "Japan", Flag: "JPN", Ranks: []int{1}},
			{ID: "p3", Name: "carol", Country: "France", Flag: "FRA", Ranks: []int{2}},
			{ID: "p4", Name: "Dave", Country: "Unknown", Flag: "WOR", Ranks: []int{1}},
		}, points.NewTiered())

		Convey("When the country table is derived", func() {
			rows := ranking.Countries(out)

			Convey("Then each country has its best player and a count", func() {
				So(rows, ShouldHaveLength, 2)
				So(rows[0].Country, ShouldEqual, "France")
				So(rows[0].BestID, ShouldEqual, "p1")
				So(rows[0].Players, ShouldEqual, 2)
				So(rows[1].Country, ShouldEqual, "Japan")
				So(rows[1].Players, ShouldEqual, 1)
			})
		})
	})
}

func TestSearch(t *testing.T) {
	Convey("Given an overall list", t, func() {
		out := ranking.Overall([]ranking.PlayerRanks{
			{ID: "id-1", Name: "SpeedRunner", Ranks: []int{1}},
			{ID: "id-2", Name: "runnerUp", Ranks: []int{2}},
			{ID: "id-3", Name: "Other", Ranks: []int{3}},
		}, points.NewTiered())

		So(ranking.Search(out, "RUNNER"), ShouldHaveLength, 2)
		So(ranking.Search(out, "id-3"), ShouldHaveLength, 1)
		So(ranking.Search(out, "  "), ShouldBeEmpty)
		So(ranking.Search(out, "nobody"), ShouldBeEmpty)
	})
}
