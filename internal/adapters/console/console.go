// Package console renders tracker views as aligned text tables.
package console

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/okian/mapboard/internal/domain/model"
	"github.com/okian/mapboard/internal/domain/racetime"
	"github.com/okian/mapboard/internal/domain/types"
)

const timeLayout = "2006-01-02 15:04"

// Renderer writes views to w. Numbers use the grouping of its language.
type Renderer struct {
	w   io.Writer
	p   *message.Printer
	loc *time.Location
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithLanguage sets the language used for number grouping.
func WithLanguage(tag language.Tag) Option {
	return func(r *Renderer) {
		r.p = message.NewPrinter(tag)
	}
}

// WithLocation sets the zone timestamps are shown in.
func WithLocation(loc *time.Location) Option {
	return func(r *Renderer) {
		if loc != nil {
			r.loc = loc
		}
	}
}

// New creates a Renderer writing to w in English and local time.
func New(w io.Writer, opts ...Option) *Renderer {
	r := &Renderer{w: w, p: message.NewPrinter(language.English), loc: time.Local}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Renderer) table() *tabwriter.Writer {
	return tabwriter.NewWriter(r.w, 0, 0, 2, ' ', 0)
}

func (r *Renderer) points(v float64) string { return r.p.Sprintf("%.2f", v) }

func (r *Renderer) count(n int) string { return r.p.Sprintf("%d", n) }

func (r *Renderer) when(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.In(r.loc).Format(timeLayout)
}

func (r *Renderer) whenPtr(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return r.when(*t)
}

func country(name, flag string) string {
	if flag == "" || flag == model.WorldFlag {
		return name
	}
	return name + " (" + flag + ")"
}

func (r *Renderer) heading(title string) {
	fmt.Fprintf(r.w, "%s\n%s\n", title, strings.Repeat("=", len([]rune(title))))
}

// Overview renders the headline view.
func (r *Renderer) Overview(ov types.Overview) error {
	tw := r.table()
	fmt.Fprintf(tw, "Maps\t%s\n", r.count(ov.Maps))
	fmt.Fprintf(tw, "Players\t%s\n", r.count(ov.Players))
	fmt.Fprintf(tw, "Records\t%s\n", r.count(ov.Records))
	fmt.Fprintf(tw, "Total playtime\t%s\n", racetime.Total(ov.TotalPlaytimeMS))
	if s := ov.LastSync; s != nil {
		fmt.Fprintf(tw, "Last sync\t%s (%d/%d maps ok)\n", r.whenPtr(s.FinishedAt), s.MapsOK, s.MapsTotal)
	} else {
		fmt.Fprintf(tw, "Last sync\tnever\n")
	}
	return tw.Flush()
}

// Maps renders the map list.
func (r *Renderer) Maps(rows []types.MapRow) error {
	tw := r.table()
	fmt.Fprintln(tw, "#\tMAP\tPLAYERS\tWR\tHOLDER\tFETCHED\t")
	for i, m := range rows {
		wr := racetime.Format(m.WRTimeMS)
		if m.NewWR {
			wr += " *"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t\n",
			i+1, m.Name, r.count(m.PlayerCount), wr, dash(m.WRPlayerName), r.whenPtr(m.LastFetchedAt))
	}
	return tw.Flush()
}

// MapLeaderboard renders one map's records.
func (r *Renderer) MapLeaderboard(lb types.MapLeaderboard) error {
	r.heading(lb.Map.Name)
	tw := r.table()
	fmt.Fprintln(tw, "RANK\tPLAYER\tCOUNTRY\tTIME\tPOINTS\tSET\t")
	for _, e := range lb.Entries {
		name := e.PlayerName
		switch {
		case e.IsPB:
			name += " [PB]"
		case e.IsNewOnMap:
			name += " [NEW]"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t\n",
			e.Rank, name, country(e.Country, e.Flag), racetime.Format(e.TimeMS), r.points(e.Points), r.when(e.SetAt))
	}
	return tw.Flush()
}

// Overall renders standings, either the overall list or search results.
func (r *Renderer) Overall(rows []types.Standing) error {
	tw := r.table()
	fmt.Fprintln(tw, "RANK\tPLAYER\tCOUNTRY\tPOINTS\tMAPS\t")
	for _, s := range rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t\n",
			s.Rank, s.Name, country(s.Country, s.Flag), r.points(s.Points), s.MapsPlayed)
	}
	return tw.Flush()
}

// Player renders a player profile.
func (r *Renderer) Player(p types.PlayerProfile) error {
	r.heading(p.Name)
	tw := r.table()
	fmt.Fprintf(tw, "ID\t%s\n", p.PlayerID)
	fmt.Fprintf(tw, "Country\t%s\n", country(p.Country, p.Flag))
	fmt.Fprintf(tw, "Rank\t%d\n", p.Rank)
	fmt.Fprintf(tw, "Points\t%s\n", r.points(p.Points))
	fmt.Fprintf(tw, "Maps played\t%d\n", p.MapsPlayed)
	fmt.Fprintf(tw, "First seen\t%s\n", r.when(p.FirstSeenAt))
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(p.Records) == 0 {
		return nil
	}

	fmt.Fprintln(r.w)
	tw = r.table()
	fmt.Fprintln(tw, "MAP\tRANK\tTIME\tPOINTS\tSET\t")
	for _, rec := range p.Records {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t\n",
			rec.MapName, rec.Rank, racetime.Format(rec.TimeMS), r.points(rec.Points), r.when(rec.SetAt))
	}
	return tw.Flush()
}

// WhatsNew renders the delta view. Empty sections are left out.
func (r *Renderer) WhatsNew(wn types.WhatsNew) error {
	if wn.LastSync != nil {
		fmt.Fprintf(r.w, "Since sync %s at %s\n\n", wn.LastSync.ID, r.when(wn.LastSync.StartedAt))
	}
	empty := true

	if len(wn.NewWRs) > 0 {
		empty = false
		r.heading("New world records")
		tw := r.table()
		for _, m := range wn.NewWRs {
			prev := ""
			if m.WRPrevTimeMS > 0 {
				prev = fmt.Sprintf("was %s by %s (%s)", racetime.Format(m.WRPrevTimeMS), m.WRPrevName,
					racetime.Delta(m.WRTimeMS-m.WRPrevTimeMS))
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n", m.Name, m.WRPlayerName, racetime.Format(m.WRTimeMS), prev)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintln(r.w)
	}

	if len(wn.PBs) > 0 {
		empty = false
		r.heading("Personal bests")
		tw := r.table()
		fmt.Fprintln(tw, "MAP\tPLAYER\tTIME\tGAIN\tRANK\tPOINTS\t")
		for _, pb := range wn.PBs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d -> %d\t+%s\t\n",
				pb.MapName, pb.PlayerName, racetime.Format(pb.TimeMS), racetime.Delta(-pb.ImprovedMS),
				pb.PrevRank, pb.Rank, r.points(pb.PointsDelta))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintln(r.w)
	}

	if len(wn.NewOnMap) > 0 {
		empty = false
		r.heading("New on map")
		tw := r.table()
		fmt.Fprintln(tw, "MAP\tPLAYER\tTIME\tRANK\tPOINTS\t")
		for _, e := range wn.NewOnMap {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t\n",
				e.MapName, e.PlayerName, racetime.Format(e.TimeMS), e.Rank, r.points(e.Points))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintln(r.w)
	}

	if len(wn.NewPlayers) > 0 {
		empty = false
		r.heading("New players")
		tw := r.table()
		for _, p := range wn.NewPlayers {
			fmt.Fprintf(tw, "%s\t%s\t%s\t\n", p.Name, country(p.Country, p.Flag), p.PlayerID)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintln(r.w)
	}

	if len(wn.NameChanges) > 0 {
		empty = false
		r.heading("Name changes")
		tw := r.table()
		for _, nc := range wn.NameChanges {
			fmt.Fprintf(tw, "%s\t->\t%s\t\n", nc.OldName, nc.NewName)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if empty {
		fmt.Fprintln(r.w, "Nothing new.")
	}
	return nil
}

// Countries renders the country table.
func (r *Renderer) Countries(rows []types.CountryRow) error {
	tw := r.table()
	fmt.Fprintln(tw, "COUNTRY\tPLAYERS\tBEST\tRANK\tPOINTS\t")
	for _, c := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t\n",
			country(c.Country, c.Flag), r.count(c.Players), c.BestName, c.BestRank, r.points(c.BestPoints))
	}
	return tw.Flush()
}

// Playtime renders per-map playtime.
func (r *Renderer) Playtime(rows []types.PlaytimeRow) error {
	tw := r.table()
	fmt.Fprintln(tw, "MAP\tPLAYERS\tPLAYTIME\t")
	var total int64
	for _, p := range rows {
		total += p.TotalMS
		fmt.Fprintf(tw, "%s\t%s\t%s\t\n", p.MapName, r.count(p.Players), racetime.Total(p.TotalMS))
	}
	fmt.Fprintf(tw, "TOTAL\t\t%s\t\n", racetime.Total(total))
	return tw.Flush()
}

// SyncReport renders the outcome of a sync.
func (r *Renderer) SyncReport(rep model.SyncReport) error {
	for _, w := range rep.Warnings {
		fmt.Fprintf(r.w, "warning: %s\n", w)
	}
	tw := r.table()
	for _, m := range rep.Maps {
		if m.OK() {
			fmt.Fprintf(tw, "ok\t%s\t%s records\t%s\t\n", m.Name, r.count(m.Records), m.Took.Round(time.Millisecond))
			continue
		}
		fmt.Fprintf(tw, "FAILED\t%s\t%v\t\t\n", m.Name, m.Err)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	run := rep.Run
	took := time.Duration(0)
	if run.Finished() {
		took = run.FinishedAt.Sub(run.StartedAt).Round(time.Second)
	}
	fmt.Fprintf(r.w, "\nSynced %d/%d maps in %s (%d failed)\n", run.MapsOK, run.MapsTotal, took, run.MapsFailed)
	fmt.Fprintf(r.w, "New players: %d  PBs: %d  New on map: %d  WR changes: %d  Name changes: %d\n",
		rep.NewPlayers, rep.PBs, rep.NewOnMap, rep.WRChanges, rep.NameChanges)
	return nil
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
