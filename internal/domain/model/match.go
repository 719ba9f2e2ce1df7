// Package model contains the domain types shared across the application:
// the raw match payload shapes returned by the upstream API and the
// normalized build observation derived from them.
package model

// Match is the raw match-v5 payload. Only the fields the aggregation
// pipeline reads are mapped; the upstream payload carries far more.
type Match struct {
	Metadata MatchMetadata `json:"metadata"`
	Info     MatchInfo     `json:"info"`
}

// MatchMetadata identifies the match.
type MatchMetadata struct {
	MatchID string `json:"matchId"`
}

// MatchInfo carries per-game data and the participant list.
type MatchInfo struct {
	QueueID      int           `json:"queueId"`
	GameVersion  string        `json:"gameVersion"`
	GameDuration int64         `json:"gameDuration"`
	Participants []Participant `json:"participants"`
}

// Participant is one player's end-of-game record within a match.
type Participant struct {
	PUUID        string `json:"puuid"`
	ChampionID   int    `json:"championId"`
	ChampionName string `json:"championName"`
	TeamPosition string `json:"teamPosition"`
	Win          bool   `json:"win"`

	// Final item slots. Slot 6 is the trinket and is not part of the build.
	Item0 int `json:"item0"`
	Item1 int `json:"item1"`
	Item2 int `json:"item2"`
	Item3 int `json:"item3"`
	Item4 int `json:"item4"`
	Item5 int `json:"item5"`
	Item6 int `json:"item6"`

	Summoner1ID int `json:"summoner1Id"`
	Summoner2ID int `json:"summoner2Id"`

	Perks *Perks `json:"perks"`
}

// Perks is the rune page selection of a participant.
type Perks struct {
	Styles []PerkStyle `json:"styles"`
}

// PerkStyle is one of the two rune style trees on a page.
type PerkStyle struct {
	Description string               `json:"description"`
	Style       int                  `json:"style"`
	Selections  []PerkStyleSelection `json:"selections"`
}

// PerkStyleSelection is a single rune choice within a style.
type PerkStyleSelection struct {
	Perk int `json:"perk"`
}

// LeagueEntry is a ranked ladder entry for one player and queue.
type LeagueEntry struct {
	SummonerID   string `json:"summonerId"`
	PUUID        string `json:"puuid"`
	QueueType    string `json:"queueType"`
	Tier         string `json:"tier"`
	Rank         string `json:"rank"`
	LeaguePoints int    `json:"leaguePoints"`
}

// Summoner is the summoner-v4 record used to resolve PUUIDs.
type Summoner struct {
	ID    string `json:"id"`
	PUUID string `json:"puuid"`
}

// Ranked queue type identifiers used by the LP tracking path.
const (
	QueueTypeSolo = "RANKED_SOLO_5x5"
	QueueTypeFlex = "RANKED_FLEX_SR"
)

// Queue ids the aggregation pipeline understands.
const (
	QueueIDSolo = 420
	QueueIDFlex = 440
)
