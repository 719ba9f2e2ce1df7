package model

import "strings"

// Role is a normalized lane assignment.
type Role string

// Normalized roles. RoleUnknown buckets observations whose payload omitted
// the team position; they count toward ALL rankings but never toward a
// role-specific one. RoleAll is a query scope, not an observed role.
const (
	RoleTop     Role = "TOP"
	RoleJungle  Role = "JUNGLE"
	RoleMid     Role = "MID"
	RoleADC     Role = "ADC"
	RoleSupport Role = "SUPPORT"
	RoleUnknown Role = "UNKNOWN"
	RoleAll     Role = "ALL"
)

// NormalizeRole maps the payload's team-position field onto a Role.
// Unrecognized or empty positions land in RoleUnknown; guessing a lane from
// the item build is deliberately not attempted.
func NormalizeRole(teamPosition string) Role {
	switch strings.ToUpper(strings.TrimSpace(teamPosition)) {
	case "TOP":
		return RoleTop
	case "JUNGLE":
		return RoleJungle
	case "MIDDLE", "MID":
		return RoleMid
	case "BOTTOM", "BOT", "ADC", "CARRY":
		return RoleADC
	case "UTILITY", "SUPPORT":
		return RoleSupport
	default:
		return RoleUnknown
	}
}

// ParseRole maps a query parameter onto a Role scope. Empty input means ALL.
func ParseRole(s string) Role {
	if strings.TrimSpace(s) == "" {
		return RoleAll
	}
	if strings.EqualFold(s, string(RoleAll)) {
		return RoleAll
	}
	return NormalizeRole(s)
}

// RuneSelection identifies a rune page: the two style trees and the keystone.
type RuneSelection struct {
	PrimaryStyle int
	SubStyle     int
	Keystone     int
}

// SpellPair is an unordered summoner-spell pair.
type SpellPair struct {
	Spell1 int
	Spell2 int
}

// Canonical returns the pair with the smaller id first, so (4,14) and (14,4)
// identify the same row.
func (p SpellPair) Canonical() SpellPair {
	if p.Spell2 < p.Spell1 {
		return SpellPair{Spell1: p.Spell2, Spell2: p.Spell1}
	}
	return p
}

// BuildObservation is one participant's build in one match, normalized for
// merging. It has no identity beyond its field values and is never persisted.
type BuildObservation struct {
	MatchID    string
	ChampionID string
	Role       Role
	Patch      string
	QueueID    int
	Won        bool
	Items      []int
	Runes      *RuneSelection
	Spells     *SpellPair
}

// PatchFromGameVersion reduces a gameVersion like "15.18.714.9641" to the
// short patch "15.18" used to partition statistics.
func PatchFromGameVersion(gameVersion string) string {
	parts := strings.SplitN(gameVersion, ".", 3)
	if len(parts) < 2 {
		return ""
	}
	return parts[0] + "." + parts[1]
}
