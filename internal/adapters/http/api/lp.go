package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/zerox80/riftstats/internal/domain/model"
)

// LPHandler serves league point trajectory queries.
type LPHandler struct {
	lp LPReader
}

// NewLPHandler creates the LP handler.
func NewLPHandler(lp LPReader) *LPHandler {
	return &LPHandler{lp: lp}
}

type lpDeltaResponse struct {
	PUUID     string `json:"puuid"`
	QueueType string `json:"queueType"`
	Delta     int    `json:"delta"`
	Available bool   `json:"available"`
}

// HandleGetDelta handles GET /lp/{puuid}/delta?queue=&since=&until=.
// Timestamps are RFC3339; until defaults to now. An unavailable delta is
// reported as such, never as zero: unknown is not "no change".
func (h *LPHandler) HandleGetDelta(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/lp/")
	puuid, op, ok := strings.Cut(rest, "/")
	if !ok || puuid == "" || op != "delta" {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	queueType := r.URL.Query().Get("queue")
	if queueType == "" {
		queueType = model.QueueTypeSolo
	}
	if queueType != model.QueueTypeSolo && queueType != model.QueueTypeFlex {
		writeError(w, http.StatusBadRequest, "bad_queue", ErrBadRequest)
		return
	}

	since, err := time.Parse(time.RFC3339, r.URL.Query().Get("since"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_since", ErrBadRequest)
		return
	}
	var until time.Time
	if raw := r.URL.Query().Get("until"); raw != "" {
		until, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_until", ErrBadRequest)
			return
		}
	}

	delta, available, err := h.lp.DeltaSince(r.Context(), puuid, queueType, since, until)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, lpDeltaResponse{
		PUUID:     puuid,
		QueueType: queueType,
		Delta:     delta,
		Available: available,
	})
}
