// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zerox80/riftstats/internal/adapters/repository"
	service "github.com/zerox80/riftstats/internal/app"
	"github.com/zerox80/riftstats/pkg/metrics"
)

// Engine is the slice of the aggregation service the trigger endpoint
// consumes.
type Engine interface {
	Trigger(ctx context.Context, req service.RunRequest) (string, error)
	RunStates() map[string]service.RunState
}

// StatsReader exposes the published rankings to the build endpoint.
type StatsReader interface {
	TopItems(ctx context.Context, scope repository.StatKey, n int) ([]repository.StatRow[repository.ItemKey], error)
	TopRunes(ctx context.Context, scope repository.StatKey, n int) ([]repository.StatRow[repository.RuneKey], error)
	TopSpells(ctx context.Context, scope repository.StatKey, n int) ([]repository.StatRow[repository.SpellPairKey], error)
}

// LPReader exposes the point-in-time LP queries.
type LPReader interface {
	LatestBefore(ctx context.Context, puuid, queueType string, ts time.Time) (repository.LPSample, bool, error)
	EarliestAtOrAfter(ctx context.Context, puuid, queueType string, ts time.Time) (repository.LPSample, bool, error)
	DeltaSince(ctx context.Context, puuid, queueType string, since, until time.Time) (int, bool, error)
}

// Server wires HTTP routes for the statistics API.
type Server struct {
	healthHandler    *HealthHandler
	aggregateHandler *AggregateHandler
	buildHandler     *BuildHandler
	lpHandler        *LPHandler
	runsHandler      *RunsHandler
}

// NewServer creates a new API server with all handlers. The trigger token
// may be empty, in which case the aggregate endpoint rejects everything;
// defaultQueueID is used by triggers that omit the queue parameter.
func NewServer(engine Engine, stats StatsReader, lp LPReader, triggerToken string, defaultQueueID, maxTopN int) *Server {
	return &Server{
		healthHandler:    NewHealthHandler(),
		aggregateHandler: NewAggregateHandler(engine, triggerToken, defaultQueueID),
		buildHandler:     NewBuildHandler(stats, maxTopN),
		lpHandler:        NewLPHandler(lp),
		runsHandler:      NewRunsHandler(engine),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	mux.HandleFunc("/aggregate/", MetricsMiddleware(s.aggregateHandler.HandleTrigger, "aggregate"))
	mux.HandleFunc("/builds/", MetricsMiddleware(s.buildHandler.HandleGetBuild, "builds"))
	mux.HandleFunc("/lp/", MetricsMiddleware(s.lpHandler.HandleGetDelta, "lp"))
	mux.HandleFunc("/runs", MetricsMiddleware(s.runsHandler.HandleGetRuns, "runs"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
