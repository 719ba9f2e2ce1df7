// Package extract derives normalized build observations from raw match
// payloads. Everything in here is pure: no I/O, no clock, no store access.
package extract

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/zerox80/riftstats/internal/domain/model"
)

// Matches shorter than this are remakes and carry no build signal.
const minGameDurationSeconds = 300

// Observations converts one match into build observations, one per
// participant that passes the filter. A nil filter admits every participant.
// Malformed payloads fail the single match with ErrMalformedMatch; the caller
// counts and skips, it never aborts the batch.
func Observations(m *model.Match, filter *Filter) ([]model.BuildObservation, error) {
	if m == nil || m.Metadata.MatchID == "" {
		return nil, fmt.Errorf("%w: missing match id", ErrMalformedMatch)
	}
	if len(m.Info.Participants) == 0 {
		return nil, fmt.Errorf("%w: match %s has no participants", ErrMalformedMatch, m.Metadata.MatchID)
	}
	patch := model.PatchFromGameVersion(m.Info.GameVersion)
	if patch == "" {
		return nil, fmt.Errorf("%w: match %s has no game version", ErrMalformedMatch, m.Metadata.MatchID)
	}
	if m.Info.GameDuration > 0 && m.Info.GameDuration < minGameDurationSeconds {
		return nil, fmt.Errorf("%w: match %s lasted %ds", ErrRemake, m.Metadata.MatchID, m.Info.GameDuration)
	}

	var out []model.BuildObservation
	for i := range m.Info.Participants {
		p := &m.Info.Participants[i]
		if filter != nil && !filter.admits(p) {
			continue
		}
		out = append(out, model.BuildObservation{
			MatchID:    m.Metadata.MatchID,
			ChampionID: ChampionIdentifier(p),
			Role:       model.NormalizeRole(p.TeamPosition),
			Patch:      patch,
			QueueID:    m.Info.QueueID,
			Won:        p.Win,
			Items:      finalItems(p),
			Runes:      runeSelection(p.Perks),
			Spells:     spellPair(p),
		})
	}
	return out, nil
}

// Filter restricts which participants produce observations. Zero values
// admit everything; set fields are ANDed.
type Filter struct {
	// ChampionID admits only participants playing this champion
	// (identifier per ChampionIdentifier).
	ChampionID string

	// PUUIDs admits only the listed players.
	PUUIDs map[string]struct{}
}

func (f *Filter) admits(p *model.Participant) bool {
	if f.ChampionID != "" && ChampionIdentifier(p) != f.ChampionID {
		return false
	}
	if len(f.PUUIDs) > 0 {
		if _, ok := f.PUUIDs[p.PUUID]; !ok {
			return false
		}
	}
	return true
}

// ChampionIdentifier resolves the identifier the statistic stores key on.
// The payload's championName is preferred; the numeric id is the fallback so
// older payloads still land on a stable key.
func ChampionIdentifier(p *model.Participant) string {
	if p.ChampionName != "" {
		return p.ChampionName
	}
	return strconv.Itoa(p.ChampionID)
}

// finalItems collects the end-of-game item set from slots 0-5. The trinket
// slot is excluded and duplicate ids collapse to one entry.
func finalItems(p *model.Participant) []int {
	slots := [...]int{p.Item0, p.Item1, p.Item2, p.Item3, p.Item4, p.Item5}
	seen := make(map[int]struct{}, len(slots))
	var items []int
	for _, id := range slots {
		if id <= 0 {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		items = append(items, id)
	}
	sort.Ints(items)
	return items
}

// runeSelection reads the rune page. Index 0 is the primary style, index 1
// the sub style; the keystone is the first primary selection. Pages that do
// not carry both styles yield no rune observation.
func runeSelection(perks *model.Perks) *model.RuneSelection {
	if perks == nil || len(perks.Styles) < 2 {
		return nil
	}
	primary, sub := perks.Styles[0], perks.Styles[1]
	if len(primary.Selections) == 0 {
		return nil
	}
	return &model.RuneSelection{
		PrimaryStyle: primary.Style,
		SubStyle:     sub.Style,
		Keystone:     primary.Selections[0].Perk,
	}
}

// spellPair canonicalizes the summoner spell pair. Participants without
// spells (custom modes) yield none.
func spellPair(p *model.Participant) *model.SpellPair {
	if p.Summoner1ID <= 0 && p.Summoner2ID <= 0 {
		return nil
	}
	pair := model.SpellPair{Spell1: p.Summoner1ID, Spell2: p.Summoner2ID}.Canonical()
	return &pair
}
