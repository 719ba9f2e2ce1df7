package api

import "net/http"

// RunsHandler exposes the in-flight run states for observability.
type RunsHandler struct {
	engine Engine
}

// NewRunsHandler creates the runs handler.
func NewRunsHandler(engine Engine) *RunsHandler {
	return &RunsHandler{engine: engine}
}

// HandleGetRuns handles GET /runs.
func (h *RunsHandler) HandleGetRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, h.engine.RunStates())
}
