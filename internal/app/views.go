package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/okian/mapboard/internal/adapters/repository"
	"github.com/okian/mapboard/internal/domain/model"
	"github.com/okian/mapboard/internal/domain/points"
	"github.com/okian/mapboard/internal/domain/ranking"
	"github.com/okian/mapboard/internal/domain/types"
)

func (s *Service) ready() error {
	if s.store == nil {
		return fmt.Errorf("%w: no store", ErrNotConfigured)
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return err
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func summary(run *model.SyncRun) *types.SyncSummary {
	if run == nil {
		return nil
	}
	return &types.SyncSummary{
		ID:         run.ID,
		StartedAt:  run.StartedAt,
		FinishedAt: optionalTime(run.FinishedAt),
		MapsTotal:  run.MapsTotal,
		MapsOK:     run.MapsOK,
		MapsFailed: run.MapsFailed,
	}
}

func mapRow(m model.Map) types.MapRow {
	row := types.MapRow{
		UID:           m.UID,
		Name:          m.DisplayName(),
		FetchOrder:    m.FetchOrder,
		PlayerCount:   m.PlayerCount,
		FetchedCount:  m.FetchedCount,
		LastFetchedAt: optionalTime(m.LastFetchedAt),
		NewWR:         m.NewWR,
	}
	if m.WR != nil {
		row.WRTimeMS = m.WR.TimeMS
		row.WRPlayerID = m.WR.PlayerID
		row.WRPlayerName = m.WR.PlayerName
		row.WRPrevTimeMS = m.WR.PrevTimeMS
		row.WRPrevName = m.WR.PrevPlayerName
	}
	return row
}

// Overview returns the headline counts, total playtime and last sync.
func (s *Service) Overview(ctx context.Context) (types.Overview, error) {
	if err := s.ready(); err != nil {
		return types.Overview{}, err
	}
	tot, err := s.store.Totals(ctx)
	if err != nil {
		return types.Overview{}, err
	}
	last, err := s.store.LastSync(ctx)
	if err != nil {
		return types.Overview{}, err
	}
	return types.Overview{
		Maps:            tot.Maps,
		Players:         tot.Players,
		Records:         tot.Records,
		TotalPlaytimeMS: tot.PlaytimeMS,
		LastSync:        summary(last),
	}, nil
}

// Maps lists tracked maps in fetch order.
func (s *Service) Maps(ctx context.Context) ([]types.MapRow, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	maps, err := s.store.Maps(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]types.MapRow, 0, len(maps))
	for _, m := range maps {
		out = append(out, mapRow(m))
	}
	return out, nil
}

// MapLeaderboard returns one map with its records ordered by rank.
func (s *Service) MapLeaderboard(ctx context.Context, uid string) (types.MapLeaderboard, error) {
	if err := s.ready(); err != nil {
		return types.MapLeaderboard{}, err
	}
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return types.MapLeaderboard{}, fmt.Errorf("%w: map uid is required", ErrInvalidQuery)
	}
	m, err := s.store.Map(ctx, uid)
	if err != nil {
		return types.MapLeaderboard{}, notFound(err)
	}
	recs, err := s.store.MapRecords(ctx, uid)
	if err != nil {
		return types.MapLeaderboard{}, err
	}

	lb := types.MapLeaderboard{Map: mapRow(m), Entries: make([]types.MapEntry, 0, len(recs))}
	for _, r := range recs {
		lb.Entries = append(lb.Entries, types.MapEntry{
			Rank:       r.Rank,
			PlayerID:   r.PlayerID,
			PlayerName: r.PlayerName,
			Country:    r.Country,
			Flag:       r.Flag,
			TimeMS:     r.TimeMS,
			Points:     points.Round(s.table.Points(r.Rank)),
			SetAt:      r.SetAt,
			IsPB:       r.IsPB,
			IsNewOnMap: r.IsNewOnMap,
		})
	}
	return lb, nil
}

func (s *Service) standings(ctx context.Context) ([]types.Standing, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	players, err := s.store.PlayerRanks(ctx)
	if err != nil {
		return nil, err
	}
	return ranking.Overall(players, s.table), nil
}

// Overall returns the overall leaderboard. limit <= 0 returns every player.
func (s *Service) Overall(ctx context.Context, limit int) ([]types.Standing, error) {
	all, err := s.standings(ctx)
	if err != nil {
		return nil, err
	}
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

// SearchPlayers matches q against player names and ids over the overall
// leaderboard, keeping its order.
func (s *Service) SearchPlayers(ctx context.Context, q string) ([]types.Standing, error) {
	if strings.TrimSpace(q) == "" {
		return nil, fmt.Errorf("%w: search query is required", ErrInvalidQuery)
	}
	all, err := s.standings(ctx)
	if err != nil {
		return nil, err
	}
	return ranking.Search(all, q), nil
}

// PlayerProfile returns a player's standing with all their records.
func (s *Service) PlayerProfile(ctx context.Context, id string) (types.PlayerProfile, error) {
	if err := s.ready(); err != nil {
		return types.PlayerProfile{}, err
	}
	p, err := s.store.Player(ctx, id)
	if err != nil {
		return types.PlayerProfile{}, notFound(err)
	}
	all, err := s.standings(ctx)
	if err != nil {
		return types.PlayerProfile{}, err
	}
	recs, err := s.store.PlayerRecords(ctx, id)
	if err != nil {
		return types.PlayerProfile{}, err
	}

	prof := types.PlayerProfile{
		Standing:    types.Standing{PlayerID: p.ID, Name: p.Name, Country: p.Country, Flag: p.Flag},
		FirstSeenAt: p.FirstSeenAt,
		Records:     make([]types.ProfileRecord, 0, len(recs)),
	}
	for _, st := range all {
		if st.PlayerID == p.ID {
			prof.Standing = st
			break
		}
	}
	for _, r := range recs {
		prof.Records = append(prof.Records, types.ProfileRecord{
			MapUID:  r.MapUID,
			MapName: r.MapName,
			Rank:    r.Rank,
			TimeMS:  r.TimeMS,
			Points:  points.Round(s.table.Points(r.Rank)),
			SetAt:   r.SetAt,
			IsPB:    r.IsPB,
		})
	}
	return prof, nil
}

// WhatsNew returns what the last sync of each map flagged, and the players
// and renames first seen in the latest finished sync that applied a map.
// Runs where every map failed, and a run still in progress, are skipped.
func (s *Service) WhatsNew(ctx context.Context) (types.WhatsNew, error) {
	if err := s.ready(); err != nil {
		return types.WhatsNew{}, err
	}
	wn := types.WhatsNew{
		PBs:         []types.PBRow{},
		NewOnMap:    []types.PBRow{},
		NewWRs:      []types.MapRow{},
		NewPlayers:  []types.PlayerRow{},
		NameChanges: []types.NameChangeRow{},
	}

	flagged, err := s.store.FlaggedRecords(ctx)
	if err != nil {
		return types.WhatsNew{}, err
	}
	for _, r := range flagged {
		row := s.pbRow(r)
		if r.IsPB {
			wn.PBs = append(wn.PBs, row)
		}
		if r.IsNewOnMap {
			wn.NewOnMap = append(wn.NewOnMap, row)
		}
	}

	maps, err := s.store.Maps(ctx)
	if err != nil {
		return types.WhatsNew{}, err
	}
	for _, m := range maps {
		if m.NewWR {
			wn.NewWRs = append(wn.NewWRs, mapRow(m))
		}
	}

	last, err := s.store.LastAppliedSync(ctx)
	if err != nil || last == nil {
		return wn, err
	}
	wn.LastSync = summary(last)

	players, err := s.store.PlayersFirstSeenIn(ctx, last.ID)
	if err != nil {
		return types.WhatsNew{}, err
	}
	for _, p := range players {
		wn.NewPlayers = append(wn.NewPlayers, types.PlayerRow{
			PlayerID: p.ID, Name: p.Name, Country: p.Country, Flag: p.Flag, FirstSeenAt: p.FirstSeenAt,
		})
	}

	renames, err := s.store.NameChangesIn(ctx, last.ID)
	if err != nil {
		return types.WhatsNew{}, err
	}
	for _, nc := range renames {
		wn.NameChanges = append(wn.NameChanges, types.NameChangeRow{
			PlayerID: nc.PlayerID, OldName: nc.OldName, NewName: nc.NewName, ChangedAt: nc.ChangedAt,
		})
	}
	return wn, nil
}

func (s *Service) pbRow(r repository.RecordView) types.PBRow {
	row := types.PBRow{
		MapUID:     r.MapUID,
		MapName:    r.MapName,
		PlayerID:   r.PlayerID,
		PlayerName: r.PlayerName,
		TimeMS:     r.TimeMS,
		Rank:       r.Rank,
		SetAt:      r.SetAt,
		RecordedAt: r.UpdatedAt,
		IsNewOnMap: r.IsNewOnMap,
		Points:     points.Round(s.table.Points(r.Rank)),
	}
	if r.IsPB {
		row.PrevTimeMS, row.PrevRank = r.PrevTimeMS, r.PrevRank
		row.ImprovedMS = r.PrevTimeMS - r.TimeMS
		row.PointsDelta = points.Round(row.Points - s.table.Points(r.PrevRank))
	} else {
		row.PointsDelta = row.Points
	}
	return row
}

// Countries returns each country's best-ranked player.
func (s *Service) Countries(ctx context.Context) ([]types.CountryRow, error) {
	all, err := s.standings(ctx)
	if err != nil {
		return nil, err
	}
	return ranking.Countries(all), nil
}

// Playtime returns per-map sums of record times.
func (s *Service) Playtime(ctx context.Context) ([]types.PlaytimeRow, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.store.Playtime(ctx)
}

// Stats reports sync state and recent runs.
func (s *Service) Stats(ctx context.Context) (types.Stats, error) {
	if err := s.ready(); err != nil {
		return types.Stats{}, err
	}
	runs, err := s.store.RecentSyncs(ctx, s.recentSyncs)
	if err != nil {
		return types.Stats{}, err
	}
	st := types.Stats{
		Generation:  s.Generation(),
		Syncing:     s.Syncing(),
		RecentSyncs: make([]types.SyncSummary, 0, len(runs)),
	}
	for i := range runs {
		st.RecentSyncs = append(st.RecentSyncs, *summary(&runs[i]))
	}
	return st, nil
}
