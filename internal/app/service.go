// Package service orchestrates aggregation runs: it seeds players from
// the ranked ladder, fetches their recent matches, extracts build
// observations and folds them into the statistic stores, then republishes
// the top rankings for every scope the run touched.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/zerox80/riftstats/internal/adapters/repository"
	"github.com/zerox80/riftstats/internal/adapters/riot"
	"github.com/zerox80/riftstats/internal/domain/dedupe"
	"github.com/zerox80/riftstats/internal/domain/extract"
	"github.com/zerox80/riftstats/internal/domain/model"
	"github.com/zerox80/riftstats/pkg/logger"
	"github.com/zerox80/riftstats/pkg/metrics"
)

// MatchSource is the slice of the upstream client the engine consumes.
type MatchSource interface {
	MatchIDsByPUUID(ctx context.Context, puuid string, queueID, start, count int) ([]string, error)
	MatchDetail(ctx context.Context, matchID string) (*model.Match, error)
	EntriesByQueueTierDivision(ctx context.Context, queue, tier, division string, page int) ([]model.LeagueEntry, error)
	SummonerByID(ctx context.Context, summonerID string) (*model.Summoner, error)
}

// RunState is the lifecycle phase of one aggregation run.
type RunState string

// Run lifecycle states. FAILED is reachable from FETCHING, EXTRACTING and
// MERGING; PUBLISHING either completes or the run fails before it.
const (
	StateIdle       RunState = "IDLE"
	StateFetching   RunState = "FETCHING"
	StateExtracting RunState = "EXTRACTING"
	StateMerging    RunState = "MERGING"
	StatePublishing RunState = "PUBLISHING"
	StateFailed     RunState = "FAILED"
)

// RunRequest describes one aggregation run. Full requests a recompute
// from source: the run replaces the champion's counter scopes instead of
// incrementing them.
type RunRequest struct {
	Champion string
	QueueID  int
	Full     bool
}

// RunReport summarizes a finished run.
type RunReport struct {
	RunID           string
	Champion        string
	QueueID         int
	Full            bool
	State           RunState
	MatchesFetched  int
	MatchesDeduped  int
	MatchesSkipped  int
	Observations    int
	ScopesPublished int
	Elapsed         time.Duration
}

// TierDivision is one ranked ladder slice to seed players from.
type TierDivision struct {
	Tier     string
	Division string
}

func defaultSeedTiers() []TierDivision {
	tiers := []string{"EMERALD", "DIAMOND"}
	divisions := []string{"I", "II", "III", "IV"}
	out := make([]TierDivision, 0, len(tiers)*len(divisions))
	for _, tier := range tiers {
		for _, div := range divisions {
			out = append(out, TierDivision{Tier: tier, Division: div})
		}
	}
	return out
}

// Service runs aggregations. At most one run per {champion, queueID}
// scope is in flight at a time; concurrent triggers for the same scope
// are rejected with ErrRunInFlight.
type Service struct {
	source MatchSource
	items  repository.CounterStore[repository.ItemKey]
	runes  repository.CounterStore[repository.RuneKey]
	spells repository.CounterStore[repository.SpellPairKey]

	deduper dedupe.Deduper

	seedTiers        []TierDivision
	pagesToScan      int
	maxPlayers       int
	matchesPerPlayer int
	parallelism      int
	topN             int

	mu       sync.Mutex
	inFlight map[string]RunState

	lifecycle context.Context
	log       logger.Logger
}

// New constructs a Service over the given source and stores.
func New(source MatchSource,
	items repository.CounterStore[repository.ItemKey],
	runes repository.CounterStore[repository.RuneKey],
	spells repository.CounterStore[repository.SpellPairKey],
	opts ...Option,
) *Service {
	s := &Service{
		source:           source,
		items:            items,
		runes:            runes,
		spells:           spells,
		deduper:          dedupe.NewInMemoryDeduper(),
		seedTiers:        defaultSeedTiers(),
		pagesToScan:      1,
		maxPlayers:       50,
		matchesPerPlayer: 10,
		parallelism:      runtime.NumCPU() * 2,
		topN:             10,
		inFlight:         make(map[string]RunState),
		lifecycle:        context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Named("engine")
	}
	return s
}

func scopeLabel(champion string, queueID int) string {
	return fmt.Sprintf("%s|%d", champion, queueID)
}

// Trigger starts a run in the background and returns its id. The run is
// scoped to the service lifecycle, not the caller's request context: a
// client disconnect does not abort it, process shutdown does.
func (s *Service) Trigger(_ context.Context, req RunRequest) (string, error) {
	if err := s.validate(req); err != nil {
		return "", err
	}
	runID := uuid.NewString()
	if err := s.acquire(req); err != nil {
		metrics.RecordRunRejected()
		return "", err
	}

	runCtx := s.lifecycle
	go func() {
		defer s.release(req)
		if _, err := s.run(runCtx, runID, req); err != nil {
			s.log.Error(runCtx, "aggregation run failed",
				logger.String("runId", runID),
				logger.String("champion", req.Champion),
				logger.Int("queueId", req.QueueID),
				logger.Error(err))
		}
	}()
	return runID, nil
}

// Aggregate performs a run synchronously. The scheduler and tests use
// this; the HTTP trigger path goes through Trigger.
func (s *Service) Aggregate(ctx context.Context, req RunRequest) (*RunReport, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	if err := s.acquire(req); err != nil {
		metrics.RecordRunRejected()
		return nil, err
	}
	defer s.release(req)
	return s.run(ctx, uuid.NewString(), req)
}

// RunStates reports the in-flight runs by scope, for observability.
func (s *Service) RunStates() map[string]RunState {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]RunState, len(s.inFlight))
	for scope, state := range s.inFlight {
		out[scope] = state
	}
	return out
}

func (s *Service) validate(req RunRequest) error {
	if req.Champion == "" {
		return fmt.Errorf("%w: champion required", ErrInvalidRequest)
	}
	if req.QueueID != model.QueueIDSolo && req.QueueID != model.QueueIDFlex {
		return fmt.Errorf("%w: unsupported queue %d", ErrInvalidRequest, req.QueueID)
	}
	return nil
}

// acquire marks the scope in flight. Check-and-set under the mutex so two
// triggers racing for one scope cannot both start.
func (s *Service) acquire(req RunRequest) error {
	key := scopeLabel(req.Champion, req.QueueID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[key]; busy {
		return fmt.Errorf("%w: %s", ErrRunInFlight, key)
	}
	s.inFlight[key] = StateIdle
	return nil
}

func (s *Service) release(req RunRequest) {
	s.mu.Lock()
	delete(s.inFlight, scopeLabel(req.Champion, req.QueueID))
	s.mu.Unlock()
}

func (s *Service) setState(req RunRequest, state RunState) {
	s.mu.Lock()
	s.inFlight[scopeLabel(req.Champion, req.QueueID)] = state
	s.mu.Unlock()
}

// run executes the pipeline. The caller holds the scope.
func (s *Service) run(ctx context.Context, runID string, req RunRequest) (*RunReport, error) {
	started := time.Now()
	metrics.RecordRunStarted()
	report := &RunReport{RunID: runID, Champion: req.Champion, QueueID: req.QueueID, Full: req.Full}
	s.log.Info(ctx, "aggregation run started",
		logger.String("runId", runID),
		logger.String("champion", req.Champion),
		logger.Int("queueId", req.QueueID),
		logger.Any("full", req.Full))

	// Match ids this run claimed in the deduper but has not merged yet.
	// A failed run gives them back so a later run can still count them.
	claimed := make(map[string]struct{})

	fail := func(err error) (*RunReport, error) {
		s.releaseClaims(ctx, claimed)
		s.setState(req, StateFailed)
		report.State = StateFailed
		report.Elapsed = time.Since(started)
		metrics.RecordRunFailed()
		metrics.RecordRunFinished()
		return report, err
	}

	// FETCHING
	s.setState(req, StateFetching)
	matchIDs, err := s.collectMatchIDs(ctx, req, report, claimed)
	if err != nil {
		return fail(err)
	}
	matches, fetchErr := s.fetchMatches(ctx, matchIDs, report, claimed)
	if fetchErr != nil && (req.Full || len(matches) == 0) {
		// A full recompute replaces whole scopes; replacing them from a
		// partial fetch would shrink complete counters, so the tally is
		// dropped and the released ids wait for a later run.
		return fail(fetchErr)
	}

	// EXTRACTING
	s.setState(req, StateExtracting)
	observations := s.extractObservations(ctx, req, matches, report)
	report.Observations = len(observations)

	// MERGING
	s.setState(req, StateMerging)
	items, runes, spells := foldObservations(observations)
	mergeStart := time.Now()
	if err := mergeTally(ctx, s.items, items, req); err != nil {
		return fail(err)
	}
	if err := mergeTally(ctx, s.runes, runes, req); err != nil {
		return fail(err)
	}
	if err := mergeTally(ctx, s.spells, spells, req); err != nil {
		return fail(err)
	}
	metrics.RecordMergeLatency(float64(time.Since(mergeStart).Milliseconds()))

	// The merged matches are durably counted now; their claims stand.
	// Whatever is still claimed was never merged and goes back.
	for _, m := range matches {
		delete(claimed, m.Metadata.MatchID)
	}
	s.releaseClaims(ctx, claimed)

	// PUBLISHING
	s.setState(req, StatePublishing)
	publishStart := time.Now()
	published := 0
	n, err := publishTally(ctx, s.items, items, s.topN)
	if err != nil {
		return fail(err)
	}
	published += n
	n, err = publishTally(ctx, s.runes, runes, s.topN)
	if err != nil {
		return fail(err)
	}
	published += n
	n, err = publishTally(ctx, s.spells, spells, s.topN)
	if err != nil {
		return fail(err)
	}
	published += n
	report.ScopesPublished = published
	metrics.RecordPublishLatency(float64(time.Since(publishStart).Milliseconds()))

	report.Elapsed = time.Since(started)
	metrics.RecordRunFinished()

	if fetchErr != nil {
		// Partial progress: everything fetched before the abort is merged
		// and published, but the run itself is reported failed.
		s.setState(req, StateFailed)
		report.State = StateFailed
		metrics.RecordRunFailed()
		s.log.Warn(ctx, "aggregation run completed partially",
			logger.String("runId", runID),
			logger.Int("matches", report.MatchesFetched),
			logger.Int("published", report.ScopesPublished),
			logger.Error(fetchErr))
		return report, fetchErr
	}

	s.setState(req, StateIdle)
	report.State = StateIdle
	s.log.Info(ctx, "aggregation run finished",
		logger.String("runId", runID),
		logger.Int("matches", report.MatchesFetched),
		logger.Int("deduped", report.MatchesDeduped),
		logger.Int("skipped", report.MatchesSkipped),
		logger.Int("observations", report.Observations),
		logger.Int("published", report.ScopesPublished),
		logger.Duration("elapsed", report.Elapsed))
	return report, nil
}

// collectMatchIDs seeds players from the configured ladder slices and
// gathers their recent match ids for the run's queue. Incremental runs
// drop ids already counted; full runs re-admit them.
func (s *Service) collectMatchIDs(ctx context.Context, req RunRequest, report *RunReport, claimed map[string]struct{}) ([]string, error) {
	puuids, err := s.seedPlayers(ctx, req.QueueID)
	if err != nil {
		return nil, err
	}
	if len(puuids) == 0 {
		return nil, ErrNoPlayers
	}

	seen := make(map[string]struct{})
	var ids []string
	for _, puuid := range puuids {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		matchIDs, err := s.source.MatchIDsByPUUID(ctx, puuid, req.QueueID, 0, s.matchesPerPlayer)
		if err != nil {
			if errors.Is(err, riot.ErrNotFound) {
				continue
			}
			return nil, err
		}
		for _, id := range matchIDs {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			counted := s.deduper.SeenAndRecord(ctx, id)
			if counted && !req.Full {
				report.MatchesDeduped++
				metrics.RecordMatchDeduped()
				continue
			}
			if !counted {
				claimed[id] = struct{}{}
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// seedPlayers walks the ladder slices and returns up to maxPlayers
// puuids. Entries without a puuid are resolved via the summoner lookup.
func (s *Service) seedPlayers(ctx context.Context, queueID int) ([]string, error) {
	queue := queueTypeForID(queueID)
	var puuids []string
	for _, slice := range s.seedTiers {
		for page := 1; page <= s.pagesToScan; page++ {
			if len(puuids) >= s.maxPlayers {
				return puuids[:s.maxPlayers], nil
			}
			entries, err := s.source.EntriesByQueueTierDivision(ctx, queue, slice.Tier, slice.Division, page)
			if err != nil {
				return nil, err
			}
			if len(entries) == 0 {
				break
			}
			for _, entry := range entries {
				if len(puuids) >= s.maxPlayers {
					break
				}
				puuid := entry.PUUID
				if puuid == "" && entry.SummonerID != "" {
					summoner, err := s.source.SummonerByID(ctx, entry.SummonerID)
					if err != nil {
						continue
					}
					puuid = summoner.PUUID
				}
				if puuid != "" {
					puuids = append(puuids, puuid)
				}
			}
		}
	}
	return puuids, nil
}

// fetchMatches pulls match details with bounded parallelism. A terminal
// rate limit or upstream failure stops the remaining fetches; matches
// already fetched are returned alongside the error so the run keeps its
// partial progress.
func (s *Service) fetchMatches(ctx context.Context, ids []string, report *RunReport, claimed map[string]struct{}) ([]*model.Match, error) {
	var (
		mu      sync.Mutex
		matches []*model.Match
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)

	for _, id := range ids {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			m, err := s.source.MatchDetail(gctx, id)
			if err != nil {
				if errors.Is(err, riot.ErrNotFound) || errors.Is(err, riot.ErrMalformed) {
					mu.Lock()
					report.MatchesSkipped++
					if _, ours := claimed[id]; ours {
						delete(claimed, id)
						s.deduper.Unrecord(gctx, id)
					}
					mu.Unlock()
					metrics.RecordMatchSkipped()
					return nil
				}
				return err
			}
			mu.Lock()
			matches = append(matches, m)
			report.MatchesFetched++
			mu.Unlock()
			return nil
		})
	}
	err := g.Wait()
	return matches, err
}

// releaseClaims returns match ids to the deduper so a later run can
// count them. Claims are confirmed by removal from the set, so anything
// still in it was claimed but never merged.
func (s *Service) releaseClaims(ctx context.Context, claimed map[string]struct{}) {
	for id := range claimed {
		s.deduper.Unrecord(ctx, id)
		delete(claimed, id)
	}
}

func (s *Service) extractObservations(ctx context.Context, req RunRequest, matches []*model.Match, report *RunReport) []model.BuildObservation {
	filter := &extract.Filter{ChampionID: req.Champion}
	var observations []model.BuildObservation
	for _, m := range matches {
		obs, err := extract.Observations(m, filter)
		if err != nil {
			report.MatchesSkipped++
			metrics.RecordMatchSkipped()
			s.log.Debug(ctx, "match skipped",
				logger.String("matchId", m.Metadata.MatchID),
				logger.Error(err))
			continue
		}
		observations = append(observations, obs...)
	}
	return observations
}

// foldObservations turns observations into per-store tallies. Every
// observation lands in the ALL scope; role-specific scopes additionally
// receive it unless the role is UNKNOWN, which is folded into ALL only.
func foldObservations(observations []model.BuildObservation) (*tally[repository.ItemKey], *tally[repository.RuneKey], *tally[repository.SpellPairKey]) {
	items := newTally[repository.ItemKey]()
	runes := newTally[repository.RuneKey]()
	spells := newTally[repository.SpellPairKey]()

	for _, obs := range observations {
		roles := []model.Role{model.RoleAll}
		if obs.Role != model.RoleUnknown && obs.Role != model.RoleAll {
			roles = append(roles, obs.Role)
		}
		for _, role := range roles {
			scope := repository.StatKey{
				Champion: obs.ChampionID,
				Role:     role,
				Patch:    obs.Patch,
				QueueID:  obs.QueueID,
			}
			for _, itemID := range obs.Items {
				items.add(scope, repository.NewItemKey(itemID), obs.Won)
			}
			if obs.Runes != nil {
				runes.add(scope, repository.NewRuneKey(*obs.Runes), obs.Won)
			}
			if obs.Spells != nil {
				spells.add(scope, repository.NewSpellPairKey(*obs.Spells), obs.Won)
			}
		}
	}
	return items, runes, spells
}

// mergeTally commits one tally. Incremental runs add into the counters;
// full runs replace each touched {champion, patch, queue} scope.
func mergeTally[K repository.VariantKey](ctx context.Context, store repository.CounterStore[K], t *tally[K], req RunRequest) error {
	if req.Full {
		for patch, scoped := range t.byPatch() {
			if err := store.ReplaceScope(ctx, req.Champion, patch, req.QueueID, scoped); err != nil {
				return err
			}
		}
		return nil
	}
	for _, scope := range t.scopes() {
		if err := store.Merge(ctx, scope, t.rows(scope)); err != nil {
			return err
		}
	}
	return nil
}

// publishTally recomputes and republishes the top rows for every scope
// the tally touched. Returns the number of scopes published.
func publishTally[K repository.VariantKey](ctx context.Context, store repository.CounterStore[K], t *tally[K], topN int) (int, error) {
	published := 0
	for _, scope := range t.scopes() {
		rows, err := store.TopN(ctx, scope, topN)
		if err != nil {
			return published, err
		}
		if err := store.Publish(ctx, scope, rows); err != nil {
			return published, err
		}
		published++
	}
	return published, nil
}

func queueTypeForID(queueID int) string {
	if queueID == model.QueueIDFlex {
		return model.QueueTypeFlex
	}
	return model.QueueTypeSolo
}
