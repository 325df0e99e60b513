package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/okian/mapboard/internal/domain/model"
	"github.com/okian/mapboard/internal/domain/types"
)

// SyncHandler triggers syncs.
type SyncHandler struct {
	syncer Syncer
	base   context.Context
}

// NewSyncHandler creates a new sync handler.
func NewSyncHandler(syncer Syncer) *SyncHandler {
	return &SyncHandler{syncer: syncer, base: context.Background()}
}

type syncResponse struct {
	Status      string             `json:"status"`
	Run         *types.SyncSummary `json:"run,omitempty"`
	NewPlayers  int                `json:"new_players"`
	PBs         int                `json:"pbs"`
	NewOnMap    int                `json:"new_on_map"`
	WRChanges   int                `json:"wr_changes"`
	NameChanges int                `json:"name_changes"`
	Failed      []failedMap        `json:"failed,omitempty"`
	Warnings    []string           `json:"warnings,omitempty"`
}

type failedMap struct {
	UID   string `json:"uid"`
	Name  string `json:"name"`
	Error string `json:"error"`
}

// HandleSync handles POST /sync. The sync runs in the background and 202 is
// returned; with ?wait=true the response is sent when it completes.
// 409 is returned while another sync runs.
func (h *SyncHandler) HandleSync(w http.ResponseWriter, r *http.Request) {
	wait, _ := strconv.ParseBool(r.URL.Query().Get("wait"))
	if !wait {
		if err := h.syncer.SyncInBackground(h.base, nil); err != nil {
			writeServiceError(r.Context(), w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, syncResponse{Status: "started"})
		return
	}

	report, err := h.syncer.Sync(r.Context())
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSyncResponse(report))
}

func newSyncResponse(report model.SyncReport) syncResponse {
	run := report.Run
	resp := syncResponse{
		Status: "finished",
		Run: &types.SyncSummary{
			ID:         run.ID,
			StartedAt:  run.StartedAt,
			FinishedAt: &run.FinishedAt,
			MapsTotal:  run.MapsTotal,
			MapsOK:     run.MapsOK,
			MapsFailed: run.MapsFailed,
		},
		NewPlayers:  report.NewPlayers,
		PBs:         report.PBs,
		NewOnMap:    report.NewOnMap,
		WRChanges:   report.WRChanges,
		NameChanges: report.NameChanges,
		Warnings:    report.Warnings,
	}
	for _, m := range report.Failed() {
		resp.Failed = append(resp.Failed, failedMap{UID: m.UID, Name: m.Name, Error: m.Err.Error()})
	}
	return resp
}
