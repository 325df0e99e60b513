// Package ranking aggregates per-map records into the overall leaderboard
// and the country table.
package ranking

import (
	"cmp"
	"slices"
	"strings"

	"github.com/okian/mapboard/internal/domain/model"
	"github.com/okian/mapboard/internal/domain/points"
	"github.com/okian/mapboard/internal/domain/types"
)

// PlayerRanks is a player with the rank of every record they hold.
type PlayerRanks struct {
	ID      string
	Name    string
	Country string
	Flag    string
	Ranks   []int
}

// Overall sums points per player and orders the result by points
// descending, then maps played descending, then name (case-insensitive),
// then player id. Rank is the 1-based position in that order.
func Overall(players []PlayerRanks, tbl points.Table) []types.Standing {
	out := make([]types.Standing, 0, len(players))
	for _, p := range players {
		var sum float64
		for _, r := range p.Ranks {
			sum += tbl.Points(r)
		}
		out = append(out, types.Standing{
			PlayerID:   p.ID,
			Name:       p.Name,
			Country:    p.Country,
			Flag:       p.Flag,
			Points:     points.Round(sum),
			MapsPlayed: len(p.Ranks),
		})
	}
	slices.SortFunc(out, compareStandings)
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

func compareStandings(a, b types.Standing) int {
	if c := cmp.Compare(b.Points, a.Points); c != 0 {
		return c
	}
	if c := cmp.Compare(b.MapsPlayed, a.MapsPlayed); c != 0 {
		return c
	}
	if c := strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
		return c
	}
	return strings.Compare(a.PlayerID, b.PlayerID)
}

// Countries picks the best-ranked player of each country from an ordered
// standings list and counts the players per country. Unknown is left out.
// Rows are ordered by their best player's rank.
func Countries(standings []types.Standing) []types.CountryRow {
	idx := make(map[string]int)
	var out []types.CountryRow
	for _, s := range standings {
		if s.Country == "" || s.Country == model.UnknownCountry {
			continue
		}
		if i, ok := idx[s.Country]; ok {
			out[i].Players++
			if s.Rank < out[i].BestRank {
				setBest(&out[i], s)
			}
			continue
		}
		row := types.CountryRow{Country: s.Country, Flag: s.Flag, Players: 1}
		setBest(&row, s)
		idx[s.Country] = len(out)
		out = append(out, row)
	}
	slices.SortStableFunc(out, func(a, b types.CountryRow) int {
		return cmp.Compare(a.BestRank, b.BestRank)
	})
	return out
}

func setBest(row *types.CountryRow, s types.Standing) {
	row.BestID = s.PlayerID
	row.BestName = s.Name
	row.BestRank = s.Rank
	row.BestPoints = s.Points
	if s.Flag != "" {
		row.Flag = s.Flag
	}
}

// Search returns the standings whose name contains q, case-insensitively.
// An exact player id match is also returned.
func Search(standings []types.Standing, q string) []types.Standing {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return nil
	}
	var out []types.Standing
	for _, s := range standings {
		if strings.Contains(strings.ToLower(s.Name), q) || strings.ToLower(s.PlayerID) == q {
			out = append(out, s)
		}
	}
	return out
}
