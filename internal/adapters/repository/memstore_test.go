package repository_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/zerox80/riftstats/internal/adapters/repository"
	"github.com/zerox80/riftstats/internal/domain/model"

	. "github.com/smartystreets/goconvey/convey"
)

func soloScope(champion string, role model.Role) repository.StatKey {
	return repository.StatKey{Champion: champion, Role: role, Patch: "15.18", QueueID: model.QueueIDSolo}
}

func TestMemCounterStore(t *testing.T) {
	Convey("Given an empty counter store", t, func() {
		ctx := context.Background()
		store := repository.NewMemCounterStore[repository.SpellPairKey]("spells")
		scope := soloScope("Anivia", model.RoleMid)

		flashTeleport := repository.NewSpellPairKey(model.SpellPair{Spell1: 4, Spell2: 12})
		flashIgnite := repository.NewSpellPairKey(model.SpellPair{Spell1: 4, Spell2: 14})
		flashBarrier := repository.NewSpellPairKey(model.SpellPair{Spell1: 4, Spell2: 21})
		flashCleanse := repository.NewSpellPairKey(model.SpellPair{Spell1: 1, Spell2: 4})

		Convey("Merges accumulate per variant within the scope", func() {
			err := store.Merge(ctx, scope, []repository.StatRow[repository.SpellPairKey]{
				{Key: flashIgnite, Games: 3, Wins: 2},
			})
			So(err, ShouldBeNil)
			err = store.Merge(ctx, scope, []repository.StatRow[repository.SpellPairKey]{
				{Key: flashIgnite, Games: 1, Wins: 0},
				{Key: flashTeleport, Games: 2, Wins: 2},
			})
			So(err, ShouldBeNil)

			rows, err := store.TopN(ctx, scope, 10)
			So(err, ShouldBeNil)
			So(rows, ShouldHaveLength, 2)
			So(rows[0].Key, ShouldEqual, flashIgnite)
			So(rows[0].Games, ShouldEqual, 4)
			So(rows[0].Wins, ShouldEqual, 2)
		})

		Convey("Opposite spell orderings land on the same row", func() {
			So(store.Merge(ctx, scope, []repository.StatRow[repository.SpellPairKey]{
				{Key: repository.NewSpellPairKey(model.SpellPair{Spell1: 14, Spell2: 4}), Games: 1, Wins: 1},
			}), ShouldBeNil)
			So(store.Merge(ctx, scope, []repository.StatRow[repository.SpellPairKey]{
				{Key: repository.NewSpellPairKey(model.SpellPair{Spell1: 4, Spell2: 14}), Games: 1, Wins: 0},
			}), ShouldBeNil)

			rows, err := store.TopN(ctx, scope, 10)
			So(err, ShouldBeNil)
			So(rows, ShouldHaveLength, 1)
			So(rows[0].Games, ShouldEqual, 2)
		})

		Convey("TopN orders by games, then wins, then variant", func() {
			So(store.Merge(ctx, scope, []repository.StatRow[repository.SpellPairKey]{
				{Key: flashTeleport, Games: 50, Wins: 20},
				{Key: flashIgnite, Games: 50, Wins: 25},
				{Key: flashBarrier, Games: 30, Wins: 15},
				{Key: flashCleanse, Games: 10, Wins: 9},
			}), ShouldBeNil)

			rows, err := store.TopN(ctx, scope, 3)
			So(err, ShouldBeNil)
			So(rows, ShouldHaveLength, 3)
			So(rows[0].Key, ShouldEqual, flashIgnite)
			So(rows[1].Key, ShouldEqual, flashTeleport)
			So(rows[2].Key, ShouldEqual, flashBarrier)
		})

		Convey("Scopes are isolated from each other", func() {
			other := soloScope("Caitlyn", model.RoleADC)
			So(store.Merge(ctx, scope, []repository.StatRow[repository.SpellPairKey]{
				{Key: flashIgnite, Games: 1, Wins: 1},
			}), ShouldBeNil)
			So(store.Merge(ctx, other, []repository.StatRow[repository.SpellPairKey]{
				{Key: flashBarrier, Games: 5, Wins: 1},
			}), ShouldBeNil)

			rows, err := store.TopN(ctx, other, 10)
			So(err, ShouldBeNil)
			So(rows, ShouldHaveLength, 1)
			So(rows[0].Key, ShouldEqual, flashBarrier)

			scopes, err := store.Scopes(ctx)
			So(err, ShouldBeNil)
			So(scopes, ShouldHaveLength, 2)
			So(scopes[0].Champion, ShouldEqual, "Anivia")
		})

		Convey("Concurrent merges into one variant never lose counts", func() {
			const workers = 8
			const perWorker = 100

			var wg sync.WaitGroup
			for w := 0; w < workers; w++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for i := 0; i < perWorker; i++ {
						_ = store.Merge(ctx, scope, []repository.StatRow[repository.SpellPairKey]{
							{Key: flashIgnite, Games: 1, Wins: 1},
						})
					}
				}()
			}
			wg.Wait()

			rows, err := store.TopN(ctx, scope, 1)
			So(err, ShouldBeNil)
			So(rows[0].Games, ShouldEqual, workers*perWorker)
			So(rows[0].Wins, ShouldEqual, workers*perWorker)
		})

		Convey("Publish swaps the leaderboard atomically", func() {
			first := []repository.StatRow[repository.SpellPairKey]{
				{Key: flashIgnite, Games: 4, Wins: 2},
				{Key: flashTeleport, Games: 2, Wins: 2},
			}
			So(store.Publish(ctx, scope, first), ShouldBeNil)

			got, err := store.Published(ctx, scope, 10)
			So(err, ShouldBeNil)
			So(got, ShouldResemble, first)

			Convey("A republish fully replaces the previous ranking", func() {
				second := []repository.StatRow[repository.SpellPairKey]{
					{Key: flashBarrier, Games: 9, Wins: 5},
				}
				So(store.Publish(ctx, scope, second), ShouldBeNil)

				got, err := store.Published(ctx, scope, 10)
				So(err, ShouldBeNil)
				So(got, ShouldResemble, second)
			})

			Convey("Readers racing a publish always see a complete ranking", func() {
				done := make(chan struct{})
				go func() {
					defer close(done)
					for i := 0; i < 200; i++ {
						_ = store.Publish(ctx, scope, first)
					}
				}()
				for i := 0; i < 200; i++ {
					got, err := store.Published(ctx, scope, 10)
					if err != nil || len(got) != len(first) {
						t.Errorf("partial ranking observed: %v rows, err=%v", len(got), err)
						break
					}
				}
				<-done
			})
		})

		Convey("ReplaceScope swaps every role of the scope in one step", func() {
			allScope := soloScope("Anivia", model.RoleAll)
			So(store.Merge(ctx, scope, []repository.StatRow[repository.SpellPairKey]{
				{Key: flashIgnite, Games: 7, Wins: 3},
			}), ShouldBeNil)
			So(store.Merge(ctx, allScope, []repository.StatRow[repository.SpellPairKey]{
				{Key: flashIgnite, Games: 7, Wins: 3},
			}), ShouldBeNil)

			fresh := map[repository.StatKey][]repository.StatRow[repository.SpellPairKey]{
				allScope: {{Key: flashTeleport, Games: 2, Wins: 1}},
			}
			So(store.ReplaceScope(ctx, "Anivia", "15.18", model.QueueIDSolo, fresh), ShouldBeNil)

			rows, err := store.TopN(ctx, scope, 10)
			So(err, ShouldBeNil)
			So(rows, ShouldBeEmpty)

			rows, err = store.TopN(ctx, allScope, 10)
			So(err, ShouldBeNil)
			So(rows, ShouldHaveLength, 1)
			So(rows[0].Key, ShouldEqual, flashTeleport)
		})

		Convey("Invalid limits and scopes are rejected", func() {
			_, err := store.TopN(ctx, scope, 0)
			So(errors.Is(err, repository.ErrInvalidLimit), ShouldBeTrue)

			err = store.Merge(ctx, repository.StatKey{}, nil)
			So(errors.Is(err, repository.ErrInvalidScope), ShouldBeTrue)
		})
	})
}

func TestMemLPStore(t *testing.T) {
	Convey("Given LP samples recorded out of order", t, func() {
		ctx := context.Background()
		store := repository.NewMemLPStore()
		base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

		sample := func(minutes, lp int) repository.LPSample {
			return repository.LPSample{
				PUUID:        "p1",
				QueueType:    model.QueueTypeSolo,
				Tier:         "DIAMOND",
				Division:     "II",
				LeaguePoints: lp,
				RecordedAt:   base.Add(time.Duration(minutes) * time.Minute),
			}
		}
		So(store.Insert(ctx, []repository.LPSample{sample(20, 70), sample(10, 50), sample(30, 55)}), ShouldBeNil)

		Convey("LatestBefore picks the newest strictly earlier sample", func() {
			got, ok, err := store.LatestBefore(ctx, "p1", model.QueueTypeSolo, base.Add(20*time.Minute))
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
			So(got.LeaguePoints, ShouldEqual, 50)
		})

		Convey("EarliestAtOrAfter includes the boundary instant", func() {
			got, ok, err := store.EarliestAtOrAfter(ctx, "p1", model.QueueTypeSolo, base.Add(20*time.Minute))
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
			So(got.LeaguePoints, ShouldEqual, 70)
		})

		Convey("Missing bounds are reported, not zero-valued", func() {
			_, ok, err := store.LatestBefore(ctx, "p1", model.QueueTypeSolo, base.Add(5*time.Minute))
			So(err, ShouldBeNil)
			So(ok, ShouldBeFalse)

			_, ok, err = store.EarliestAtOrAfter(ctx, "p1", model.QueueTypeSolo, base.Add(2*time.Hour))
			So(err, ShouldBeNil)
			So(ok, ShouldBeFalse)
		})

		Convey("Queues are tracked independently", func() {
			flex := sample(15, 99)
			flex.QueueType = model.QueueTypeFlex
			So(store.Insert(ctx, []repository.LPSample{flex}), ShouldBeNil)

			got, ok, err := store.EarliestAtOrAfter(ctx, "p1", model.QueueTypeFlex, base)
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
			So(got.LeaguePoints, ShouldEqual, 99)
		})
	})
}
