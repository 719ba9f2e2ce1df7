package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/zerox80/riftstats/internal/adapters/repository"
	"github.com/zerox80/riftstats/internal/adapters/riot"
	service "github.com/zerox80/riftstats/internal/app"
	"github.com/zerox80/riftstats/internal/domain/model"

	. "github.com/smartystreets/goconvey/convey"
)

// fakeSource serves scripted ladder pages, match histories and match
// payloads.
type fakeSource struct {
	mu        sync.Mutex
	entries   []model.LeagueEntry
	histories map[string][]string
	matches   map[string]*model.Match
	detailErr map[string]error

	detailCalls int
	block       chan struct{}
}

func (f *fakeSource) EntriesByQueueTierDivision(_ context.Context, _, _, _ string, page int) ([]model.LeagueEntry, error) {
	if page > 1 {
		return nil, nil
	}
	return f.entries, nil
}

func (f *fakeSource) SummonerByID(_ context.Context, summonerID string) (*model.Summoner, error) {
	return &model.Summoner{ID: summonerID, PUUID: "resolved-" + summonerID}, nil
}

func (f *fakeSource) MatchIDsByPUUID(_ context.Context, puuid string, _, _, count int) ([]string, error) {
	ids := f.histories[puuid]
	if len(ids) > count {
		ids = ids[:count]
	}
	return ids, nil
}

func (f *fakeSource) MatchDetail(ctx context.Context, matchID string) (*model.Match, error) {
	f.mu.Lock()
	f.detailCalls++
	block := f.block
	f.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err, ok := f.detailErr[matchID]; ok {
		return nil, err
	}
	m, ok := f.matches[matchID]
	if !ok {
		return nil, riot.ErrNotFound
	}
	return m, nil
}

func buildMatch(id string, won bool, position string) *model.Match {
	return &model.Match{
		Metadata: model.MatchMetadata{MatchID: id},
		Info: model.MatchInfo{
			QueueID:      model.QueueIDSolo,
			GameVersion:  "15.18.714.9641",
			GameDuration: 1900,
			Participants: []model.Participant{
				{
					PUUID:        "p1",
					ChampionName: "Anivia",
					TeamPosition: position,
					Win:          won,
					Item0:        3089,
					Item1:        6655,
					Item2:        0,
					Item3:        0,
					Item4:        0,
					Item5:        0,
					Item6:        3364,
					Summoner1ID:  14,
					Summoner2ID:  4,
					Perks: &model.Perks{Styles: []model.PerkStyle{
						{Description: "primaryStyle", Style: 8100, Selections: []model.PerkStyleSelection{{Perk: 8112}}},
						{Description: "subStyle", Style: 8300},
					}},
				},
				{
					PUUID:        "p2",
					ChampionName: "Caitlyn",
					TeamPosition: "BOTTOM",
					Win:          !won,
					Item0:        3031,
					Summoner1ID:  4,
					Summoner2ID:  7,
				},
			},
		},
	}
}

type harness struct {
	source *fakeSource
	items  *repository.MemCounterStore[repository.ItemKey]
	runes  *repository.MemCounterStore[repository.RuneKey]
	spells *repository.MemCounterStore[repository.SpellPairKey]
	svc    *service.Service
}

func newHarness(source *fakeSource, extra ...service.Option) *harness {
	h := &harness{
		source: source,
		items:  repository.NewMemCounterStore[repository.ItemKey]("items"),
		runes:  repository.NewMemCounterStore[repository.RuneKey]("runes"),
		spells: repository.NewMemCounterStore[repository.SpellPairKey]("spells"),
	}
	opts := []service.Option{
		service.WithSeedTiers([]service.TierDivision{{Tier: "DIAMOND", Division: "I"}}),
		service.WithPagesToScan(1),
		service.WithMaxPlayers(10),
		service.WithMatchesPerPlayer(5),
		service.WithParallelism(1),
		service.WithTopN(10),
	}
	opts = append(opts, extra...)
	h.svc = service.New(source, h.items, h.runes, h.spells, opts...)
	return h
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func midScope() repository.StatKey {
	return repository.StatKey{Champion: "Anivia", Role: model.RoleMid, Patch: "15.18", QueueID: model.QueueIDSolo}
}

func allScope() repository.StatKey {
	return repository.StatKey{Champion: "Anivia", Role: model.RoleAll, Patch: "15.18", QueueID: model.QueueIDSolo}
}

func TestAggregationRuns(t *testing.T) {
	Convey("Given a ladder with one player and two matches", t, func() {
		ctx := context.Background()
		source := &fakeSource{
			entries: []model.LeagueEntry{{PUUID: "seed-1", SummonerID: "s1"}},
			histories: map[string][]string{
				"seed-1": {"EUW1_1", "EUW1_2"},
			},
			matches: map[string]*model.Match{
				"EUW1_1": buildMatch("EUW1_1", true, "MIDDLE"),
				"EUW1_2": buildMatch("EUW1_2", false, "MIDDLE"),
			},
		}
		h := newHarness(source)

		Convey("An incremental run folds builds into every store and publishes", func() {
			report, err := h.svc.Aggregate(ctx, service.RunRequest{Champion: "Anivia", QueueID: model.QueueIDSolo})
			So(err, ShouldBeNil)
			So(report.State, ShouldEqual, service.StateIdle)
			So(report.MatchesFetched, ShouldEqual, 2)
			So(report.Observations, ShouldEqual, 2)

			rows, err := h.items.TopN(ctx, midScope(), 10)
			So(err, ShouldBeNil)
			So(rows, ShouldHaveLength, 2)
			So(rows[0].Games, ShouldEqual, 2)
			So(rows[0].Wins, ShouldEqual, 1)

			spellRows, err := h.spells.Published(ctx, allScope(), 10)
			So(err, ShouldBeNil)
			So(spellRows, ShouldHaveLength, 1)
			So(spellRows[0].Key.Variant(), ShouldEqual, "4:14")
			So(spellRows[0].Games, ShouldEqual, 2)

			runeRows, err := h.runes.Published(ctx, midScope(), 10)
			So(err, ShouldBeNil)
			So(runeRows, ShouldHaveLength, 1)
			So(runeRows[0].Key.Variant(), ShouldEqual, "8100:8300:8112")

			Convey("A second incremental run dedupes the same matches", func() {
				report, err := h.svc.Aggregate(ctx, service.RunRequest{Champion: "Anivia", QueueID: model.QueueIDSolo})
				So(err, ShouldBeNil)
				So(report.MatchesFetched, ShouldEqual, 0)
				So(report.MatchesDeduped, ShouldEqual, 2)

				rows, err := h.items.TopN(ctx, midScope(), 10)
				So(err, ShouldBeNil)
				So(rows[0].Games, ShouldEqual, 2)
			})

			Convey("A full run replays matches and replaces the counters", func() {
				report, err := h.svc.Aggregate(ctx, service.RunRequest{Champion: "Anivia", QueueID: model.QueueIDSolo, Full: true})
				So(err, ShouldBeNil)
				So(report.MatchesFetched, ShouldEqual, 2)
				So(report.MatchesDeduped, ShouldEqual, 0)

				rows, err := h.items.TopN(ctx, midScope(), 10)
				So(err, ShouldBeNil)
				So(rows[0].Games, ShouldEqual, 2)
			})
		})

		Convey("UNKNOWN roles fold into ALL only", func() {
			source.matches["EUW1_1"] = buildMatch("EUW1_1", true, "")
			source.matches["EUW1_2"] = buildMatch("EUW1_2", false, "")

			_, err := h.svc.Aggregate(ctx, service.RunRequest{Champion: "Anivia", QueueID: model.QueueIDSolo})
			So(err, ShouldBeNil)

			rows, err := h.items.TopN(ctx, midScope(), 10)
			So(err, ShouldBeNil)
			So(rows, ShouldBeEmpty)

			rows, err = h.items.TopN(ctx, allScope(), 10)
			So(err, ShouldBeNil)
			So(rows, ShouldNotBeEmpty)
		})

		Convey("Remakes are skipped, not fatal", func() {
			short := buildMatch("EUW1_1", true, "MIDDLE")
			short.Info.GameDuration = 120
			source.matches["EUW1_1"] = short

			report, err := h.svc.Aggregate(ctx, service.RunRequest{Champion: "Anivia", QueueID: model.QueueIDSolo})
			So(err, ShouldBeNil)
			So(report.MatchesSkipped, ShouldEqual, 1)
			So(report.Observations, ShouldEqual, 1)
		})

		Convey("Requests are validated before any work", func() {
			_, err := h.svc.Aggregate(ctx, service.RunRequest{QueueID: model.QueueIDSolo})
			So(errors.Is(err, service.ErrInvalidRequest), ShouldBeTrue)

			_, err = h.svc.Aggregate(ctx, service.RunRequest{Champion: "Anivia", QueueID: 999})
			So(errors.Is(err, service.ErrInvalidRequest), ShouldBeTrue)
		})
	})
}

func TestPartialProgress(t *testing.T) {
	Convey("Given an upstream that rate-limits after the first match", t, func() {
		ctx := context.Background()
		source := &fakeSource{
			entries:   []model.LeagueEntry{{PUUID: "seed-1"}},
			histories: map[string][]string{"seed-1": {"EUW1_1", "EUW1_2"}},
			matches:   map[string]*model.Match{"EUW1_1": buildMatch("EUW1_1", true, "MIDDLE")},
			detailErr: map[string]error{"EUW1_2": fmt.Errorf("%w: gave up", riot.ErrRateLimited)},
		}
		h := newHarness(source)

		Convey("The fetched matches are merged before the run fails", func() {
			report, err := h.svc.Aggregate(ctx, service.RunRequest{Champion: "Anivia", QueueID: model.QueueIDSolo})
			So(errors.Is(err, riot.ErrRateLimited), ShouldBeTrue)
			So(report, ShouldNotBeNil)
			So(report.State, ShouldEqual, service.StateFailed)
			So(report.MatchesFetched, ShouldEqual, 1)

			rows, rerr := h.items.TopN(ctx, midScope(), 10)
			So(rerr, ShouldBeNil)
			So(rows, ShouldNotBeEmpty)

			published, rerr := h.items.Published(ctx, midScope(), 10)
			So(rerr, ShouldBeNil)
			So(published, ShouldNotBeEmpty)

			Convey("The unmerged match is counted once the upstream recovers", func() {
				delete(source.detailErr, "EUW1_2")
				source.matches["EUW1_2"] = buildMatch("EUW1_2", false, "MIDDLE")

				report, err := h.svc.Aggregate(ctx, service.RunRequest{Champion: "Anivia", QueueID: model.QueueIDSolo})
				So(err, ShouldBeNil)
				So(report.MatchesDeduped, ShouldEqual, 1)
				So(report.MatchesFetched, ShouldEqual, 1)

				rows, rerr := h.items.TopN(ctx, midScope(), 10)
				So(rerr, ShouldBeNil)
				So(rows[0].Games, ShouldEqual, 2)
			})
		})
	})
}

func TestAbortedFullRecompute(t *testing.T) {
	Convey("Given counters built from two complete matches", t, func() {
		ctx := context.Background()
		source := &fakeSource{
			entries:   []model.LeagueEntry{{PUUID: "seed-1"}},
			histories: map[string][]string{"seed-1": {"EUW1_1", "EUW1_2"}},
			matches: map[string]*model.Match{
				"EUW1_1": buildMatch("EUW1_1", true, "MIDDLE"),
				"EUW1_2": buildMatch("EUW1_2", false, "MIDDLE"),
			},
			detailErr: map[string]error{},
		}
		h := newHarness(source)

		_, err := h.svc.Aggregate(ctx, service.RunRequest{Champion: "Anivia", QueueID: model.QueueIDSolo})
		So(err, ShouldBeNil)

		Convey("A rate-limited full run leaves the complete counters intact", func() {
			source.detailErr["EUW1_2"] = fmt.Errorf("%w: gave up", riot.ErrRateLimited)

			report, err := h.svc.Aggregate(ctx, service.RunRequest{Champion: "Anivia", QueueID: model.QueueIDSolo, Full: true})
			So(errors.Is(err, riot.ErrRateLimited), ShouldBeTrue)
			So(report.State, ShouldEqual, service.StateFailed)

			rows, rerr := h.items.TopN(ctx, midScope(), 10)
			So(rerr, ShouldBeNil)
			So(rows[0].Games, ShouldEqual, 2)

			Convey("A full run after recovery still replaces cleanly", func() {
				delete(source.detailErr, "EUW1_2")

				report, err := h.svc.Aggregate(ctx, service.RunRequest{Champion: "Anivia", QueueID: model.QueueIDSolo, Full: true})
				So(err, ShouldBeNil)
				So(report.MatchesFetched, ShouldEqual, 2)

				rows, rerr := h.items.TopN(ctx, midScope(), 10)
				So(rerr, ShouldBeNil)
				So(rows[0].Games, ShouldEqual, 2)
			})
		})
	})
}

func TestLifecycleCancelsBackgroundRuns(t *testing.T) {
	Convey("Given a background run tied to the service lifecycle", t, func() {
		block := make(chan struct{})
		source := &fakeSource{
			entries:   []model.LeagueEntry{{PUUID: "seed-1"}},
			histories: map[string][]string{"seed-1": {"EUW1_1"}},
			matches:   map[string]*model.Match{"EUW1_1": buildMatch("EUW1_1", true, "MIDDLE")},
			block:     block,
		}
		lifecycle, cancel := context.WithCancel(context.Background())
		h := newHarness(source, service.WithLifecycle(lifecycle))

		_, err := h.svc.Trigger(context.Background(), service.RunRequest{Champion: "Anivia", QueueID: model.QueueIDSolo})
		So(err, ShouldBeNil)
		So(waitFor(func() bool { return len(h.svc.RunStates()) == 1 }), ShouldBeTrue)

		Convey("Canceling the lifecycle ends the run and frees the scope", func() {
			cancel()
			So(waitFor(func() bool { return len(h.svc.RunStates()) == 0 }), ShouldBeTrue)
		})

		Reset(cancel)
	})
}

func TestRunCoalescing(t *testing.T) {
	Convey("Given a run already in flight for a scope", t, func() {
		ctx := context.Background()
		block := make(chan struct{})
		source := &fakeSource{
			entries:   []model.LeagueEntry{{PUUID: "seed-1"}},
			histories: map[string][]string{"seed-1": {"EUW1_1"}},
			matches:   map[string]*model.Match{"EUW1_1": buildMatch("EUW1_1", true, "MIDDLE")},
			block:     block,
		}
		h := newHarness(source)

		runID, err := h.svc.Trigger(ctx, service.RunRequest{Champion: "Anivia", QueueID: model.QueueIDSolo})
		So(err, ShouldBeNil)
		So(runID, ShouldNotBeEmpty)

		So(waitFor(func() bool { return len(h.svc.RunStates()) == 1 }), ShouldBeTrue)

		Convey("A concurrent trigger for the same scope is rejected", func() {
			_, err := h.svc.Trigger(ctx, service.RunRequest{Champion: "Anivia", QueueID: model.QueueIDSolo})
			So(errors.Is(err, service.ErrRunInFlight), ShouldBeTrue)

			Convey("A different scope is not blocked", func() {
				otherBlock := make(chan struct{})
				close(otherBlock)
				source.mu.Lock()
				source.block = otherBlock
				source.mu.Unlock()
				_, err := h.svc.Aggregate(ctx, service.RunRequest{Champion: "Caitlyn", QueueID: model.QueueIDFlex})
				So(errors.Is(err, service.ErrRunInFlight), ShouldBeFalse)
			})

			Convey("The scope frees up once the run completes", func() {
				close(block)
				So(waitFor(func() bool { return len(h.svc.RunStates()) == 0 }), ShouldBeTrue)

				_, err := h.svc.Trigger(ctx, service.RunRequest{Champion: "Anivia", QueueID: model.QueueIDSolo})
				So(err, ShouldBeNil)
				So(waitFor(func() bool { return len(h.svc.RunStates()) == 0 }), ShouldBeTrue)
			})
		})
	})
}
