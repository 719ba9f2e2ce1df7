package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/zerox80/riftstats/internal/adapters/repository"
	"github.com/zerox80/riftstats/internal/domain/model"
)

// BuildHandler serves the published build rankings.
type BuildHandler struct {
	stats    StatsReader
	maxTopN  int
	defaultN int
}

// NewBuildHandler creates the build handler.
func NewBuildHandler(stats StatsReader, maxTopN int) *BuildHandler {
	if maxTopN < 1 {
		maxTopN = 10
	}
	return &BuildHandler{stats: stats, maxTopN: maxTopN, defaultN: maxTopN}
}

type itemStat struct {
	ItemID int   `json:"itemId"`
	Games  int64 `json:"games"`
	Wins   int64 `json:"wins"`
}

type runeStat struct {
	PrimaryStyle int   `json:"primaryStyle"`
	SubStyle     int   `json:"subStyle"`
	Keystone     int   `json:"keystone"`
	Games        int64 `json:"games"`
	Wins         int64 `json:"wins"`
}

type spellStat struct {
	Spell1 int   `json:"spell1"`
	Spell2 int   `json:"spell2"`
	Games  int64 `json:"games"`
	Wins   int64 `json:"wins"`
}

type buildResponse struct {
	Champion   string      `json:"champion"`
	Role       string      `json:"role"`
	Patch      string      `json:"patch"`
	QueueID    int         `json:"queueId"`
	Items      []itemStat  `json:"items"`
	Runes      []runeStat  `json:"runes"`
	SpellPairs []spellStat `json:"spellPairs"`
}

// HandleGetBuild handles GET /builds/{championId}?role=&patch=&queue=&limit=.
// Sparse role-specific scopes fall back to the all-roles ranking; a scope
// with no data at all answers with empty lists, not an error.
func (h *BuildHandler) HandleGetBuild(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	champion := strings.TrimPrefix(r.URL.Path, "/builds/")
	if champion == "" || strings.Contains(champion, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	patch := r.URL.Query().Get("patch")
	if patch == "" {
		writeError(w, http.StatusBadRequest, "missing_patch", ErrBadRequest)
		return
	}
	queueID := model.QueueIDSolo
	if raw := r.URL.Query().Get("queue"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
			return
		}
		queueID = n
	}
	limit := h.defaultN
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > h.maxTopN {
			writeError(w, http.StatusBadRequest, "bad_limit", ErrBadRequest)
			return
		}
		limit = n
	}
	role := model.ParseRole(r.URL.Query().Get("role"))
	if role == model.RoleUnknown {
		writeError(w, http.StatusBadRequest, "bad_role", ErrBadRequest)
		return
	}

	scope := repository.StatKey{Champion: champion, Role: role, Patch: patch, QueueID: queueID}
	resp, err := h.collect(r, scope, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	if role != model.RoleAll && len(resp.Items) == 0 && len(resp.Runes) == 0 && len(resp.SpellPairs) == 0 {
		scope.Role = model.RoleAll
		resp, err = h.collect(r, scope, limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *BuildHandler) collect(r *http.Request, scope repository.StatKey, limit int) (*buildResponse, error) {
	ctx := r.Context()
	resp := &buildResponse{
		Champion:   scope.Champion,
		Role:       string(scope.Role),
		Patch:      scope.Patch,
		QueueID:    scope.QueueID,
		Items:      []itemStat{},
		Runes:      []runeStat{},
		SpellPairs: []spellStat{},
	}

	items, err := h.stats.TopItems(ctx, scope, limit)
	if err != nil {
		return nil, err
	}
	for _, row := range items {
		resp.Items = append(resp.Items, itemStat{ItemID: row.Key.ID, Games: row.Games, Wins: row.Wins})
	}

	runes, err := h.stats.TopRunes(ctx, scope, limit)
	if err != nil {
		return nil, err
	}
	for _, row := range runes {
		resp.Runes = append(resp.Runes, runeStat{
			PrimaryStyle: row.Key.PrimaryStyle,
			SubStyle:     row.Key.SubStyle,
			Keystone:     row.Key.Keystone,
			Games:        row.Games,
			Wins:         row.Wins,
		})
	}

	spells, err := h.stats.TopSpells(ctx, scope, limit)
	if err != nil {
		return nil, err
	}
	for _, row := range spells {
		resp.SpellPairs = append(resp.SpellPairs, spellStat{
			Spell1: row.Key.Spell1,
			Spell2: row.Key.Spell2,
			Games:  row.Games,
			Wins:   row.Wins,
		})
	}
	return resp, nil
}
