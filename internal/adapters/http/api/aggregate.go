package api

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"
	"strings"

	service "github.com/zerox80/riftstats/internal/app"
	"github.com/zerox80/riftstats/internal/domain/model"
)

// TokenHeader carries the pre-shared aggregation trigger token.
const TokenHeader = "X-Aggregation-Token"

// AggregateHandler gates manual aggregation runs behind a pre-shared
// token. An unconfigured token rejects every request: the gate fails
// closed, never open.
type AggregateHandler struct {
	engine       Engine
	token        string
	defaultQueue int
}

// NewAggregateHandler creates the trigger handler. defaultQueue is used
// when a trigger omits the queue parameter.
func NewAggregateHandler(engine Engine, token string, defaultQueue int) *AggregateHandler {
	if defaultQueue <= 0 {
		defaultQueue = model.QueueIDSolo
	}
	return &AggregateHandler{engine: engine, token: token, defaultQueue: defaultQueue}
}

// HandleTrigger handles POST /aggregate/{championId}?queue=&full=.
func (h *AggregateHandler) HandleTrigger(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	if h.token == "" {
		writeError(w, http.StatusForbidden, "not_configured", ErrTokenNotConfigured)
		return
	}
	presented := r.Header.Get(TokenHeader)
	if subtle.ConstantTimeCompare([]byte(presented), []byte(h.token)) != 1 {
		// Generic rejection, no internal detail.
		writeError(w, http.StatusForbidden, "forbidden", ErrForbidden)
		return
	}

	champion := strings.TrimPrefix(r.URL.Path, "/aggregate/")
	if champion == "" || strings.Contains(champion, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	queueID := h.defaultQueue
	if raw := r.URL.Query().Get("queue"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
			return
		}
		queueID = n
	}
	full := r.URL.Query().Get("full") == "true"

	runID, err := h.engine.Trigger(r.Context(), service.RunRequest{
		Champion: champion,
		QueueID:  queueID,
		Full:     full,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRunInFlight):
			writeError(w, http.StatusConflict, "run_in_flight", err)
		case errors.Is(err, service.ErrInvalidRequest):
			writeError(w, http.StatusBadRequest, "bad_request", err)
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", err)
		}
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"runId": runID, "status": "accepted"})
}
