package extract_test

import (
	"errors"
	"testing"

	"github.com/zerox80/riftstats/internal/domain/extract"
	"github.com/zerox80/riftstats/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func sampleMatch() *model.Match {
	return &model.Match{
		Metadata: model.MatchMetadata{MatchID: "EUW1_100"},
		Info: model.MatchInfo{
			QueueID:      420,
			GameVersion:  "15.18.714.9641",
			GameDuration: 1800,
			Participants: []model.Participant{
				{
					PUUID:        "puuid-a",
					ChampionID:   34,
					ChampionName: "Anivia",
					TeamPosition: "MIDDLE",
					Win:          true,
					Item0:        3089, Item1: 3020, Item2: 6655, Item3: 0, Item4: 3157, Item5: 3089, Item6: 3364,
					Summoner1ID: 14, Summoner2ID: 4,
					Perks: &model.Perks{Styles: []model.PerkStyle{
						{Description: "primaryStyle", Style: 8200, Selections: []model.PerkStyleSelection{{Perk: 8229}}},
						{Description: "subStyle", Style: 8300},
					}},
				},
				{
					PUUID:        "puuid-b",
					ChampionID:   51,
					ChampionName: "Caitlyn",
					TeamPosition: "",
					Win:          false,
					Item0:        3031,
					Summoner1ID:  4, Summoner2ID: 7,
				},
			},
		},
	}
}

func TestObservations(t *testing.T) {
	Convey("Given a well-formed match", t, func() {
		m := sampleMatch()

		Convey("When extracting without a filter", func() {
			obs, err := extract.Observations(m, nil)
			So(err, ShouldBeNil)
			So(obs, ShouldHaveLength, 2)

			Convey("Then the mid laner is fully normalized", func() {
				o := obs[0]
				So(o.ChampionID, ShouldEqual, "Anivia")
				So(o.Role, ShouldEqual, model.RoleMid)
				So(o.Patch, ShouldEqual, "15.18")
				So(o.QueueID, ShouldEqual, 420)
				So(o.Won, ShouldBeTrue)
			})

			Convey("Then the final item set excludes trinket, zeros and duplicates", func() {
				// 3364 is the trinket slot, 3089 appears in two slots, slot 3 is empty.
				So(obs[0].Items, ShouldResemble, []int{3020, 3089, 3157, 6655})
			})

			Convey("Then the spell pair is canonical regardless of slot order", func() {
				So(*obs[0].Spells, ShouldResemble, model.SpellPair{Spell1: 4, Spell2: 14})
				So(*obs[1].Spells, ShouldResemble, model.SpellPair{Spell1: 4, Spell2: 7})
			})

			Convey("Then the rune page resolves styles and keystone", func() {
				So(*obs[0].Runes, ShouldResemble, model.RuneSelection{PrimaryStyle: 8200, SubStyle: 8300, Keystone: 8229})
			})

			Convey("Then a participant without a rune page yields no rune observation", func() {
				So(obs[1].Runes, ShouldBeNil)
			})

			Convey("Then a missing team position buckets as UNKNOWN", func() {
				So(obs[1].Role, ShouldEqual, model.RoleUnknown)
			})
		})

		Convey("When filtering by champion", func() {
			obs, err := extract.Observations(m, &extract.Filter{ChampionID: "Anivia"})
			So(err, ShouldBeNil)
			So(obs, ShouldHaveLength, 1)
			So(obs[0].ChampionID, ShouldEqual, "Anivia")
		})

		Convey("When filtering by puuid", func() {
			obs, err := extract.Observations(m, &extract.Filter{PUUIDs: map[string]struct{}{"puuid-b": {}}})
			So(err, ShouldBeNil)
			So(obs, ShouldHaveLength, 1)
			So(obs[0].ChampionID, ShouldEqual, "Caitlyn")
		})
	})

	Convey("Given malformed matches", t, func() {
		Convey("A nil match is malformed", func() {
			_, err := extract.Observations(nil, nil)
			So(errors.Is(err, extract.ErrMalformedMatch), ShouldBeTrue)
		})

		Convey("A match without participants is malformed", func() {
			m := sampleMatch()
			m.Info.Participants = nil
			_, err := extract.Observations(m, nil)
			So(errors.Is(err, extract.ErrMalformedMatch), ShouldBeTrue)
		})

		Convey("A match without a game version is malformed", func() {
			m := sampleMatch()
			m.Info.GameVersion = ""
			_, err := extract.Observations(m, nil)
			So(errors.Is(err, extract.ErrMalformedMatch), ShouldBeTrue)
		})

		Convey("A remake is skippable but distinct from malformed", func() {
			m := sampleMatch()
			m.Info.GameDuration = 120
			_, err := extract.Observations(m, nil)
			So(errors.Is(err, extract.ErrRemake), ShouldBeTrue)
			So(errors.Is(err, extract.ErrMalformedMatch), ShouldBeFalse)
		})
	})
}

func TestChampionIdentifier(t *testing.T) {
	Convey("Given participants with and without champion names", t, func() {
		named := &model.Participant{ChampionID: 34, ChampionName: "Anivia"}
		unnamed := &model.Participant{ChampionID: 34}
		So(extract.ChampionIdentifier(named), ShouldEqual, "Anivia")
		So(extract.ChampionIdentifier(unnamed), ShouldEqual, "34")
	})
}
