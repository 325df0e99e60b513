package api

import "net/http"

// ViewHandler serves the summary views.
type ViewHandler struct {
	views Views
}

// NewViewHandler creates a new summary view handler.
func NewViewHandler(views Views) *ViewHandler {
	return &ViewHandler{views: views}
}

// HandleOverview handles GET /overview.
func (h *ViewHandler) HandleOverview(r *http.Request) (any, error) {
	return h.views.Overview(r.Context())
}

// HandleWhatsNew handles GET /whatsnew.
func (h *ViewHandler) HandleWhatsNew(r *http.Request) (any, error) {
	return h.views.WhatsNew(r.Context())
}

// HandleCountries handles GET /countries.
func (h *ViewHandler) HandleCountries(r *http.Request) (any, error) {
	return h.views.Countries(r.Context())
}

// HandlePlaytime handles GET /playtime.
func (h *ViewHandler) HandlePlaytime(r *http.Request) (any, error) {
	return h.views.Playtime(r.Context())
}
