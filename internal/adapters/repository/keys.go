package repository

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/zerox80/riftstats/internal/domain/model"
)

// ItemKey is a single completed item. Item statistics are per item, not
// per full build, so one participant contributes one increment per
// distinct final item.
type ItemKey struct {
	ID int
}

// NewItemKey wraps an item id.
func NewItemKey(id int) ItemKey { return ItemKey{ID: id} }

// Variant returns the decimal item id.
func (k ItemKey) Variant() string { return strconv.Itoa(k.ID) }

// ParseItemKey rebuilds an ItemKey from its stored variant.
func ParseItemKey(variant string) (ItemKey, error) {
	id, err := strconv.Atoi(variant)
	if err != nil || id <= 0 {
		return ItemKey{}, fmt.Errorf("%w: item variant %q", ErrBadVariant, variant)
	}
	return ItemKey{ID: id}, nil
}

// RuneKey is a rune page signature: the two style trees plus the keystone.
type RuneKey struct {
	PrimaryStyle int
	SubStyle     int
	Keystone     int
}

// NewRuneKey builds a RuneKey from a normalized rune selection.
func NewRuneKey(r model.RuneSelection) RuneKey {
	return RuneKey{PrimaryStyle: r.PrimaryStyle, SubStyle: r.SubStyle, Keystone: r.Keystone}
}

// Variant returns "primary:sub:keystone".
func (k RuneKey) Variant() string {
	return fmt.Sprintf("%d:%d:%d", k.PrimaryStyle, k.SubStyle, k.Keystone)
}

// ParseRuneKey rebuilds a RuneKey from its stored variant.
func ParseRuneKey(variant string) (RuneKey, error) {
	parts := strings.Split(variant, ":")
	if len(parts) != 3 {
		return RuneKey{}, fmt.Errorf("%w: rune variant %q", ErrBadVariant, variant)
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return RuneKey{}, fmt.Errorf("%w: rune variant %q", ErrBadVariant, variant)
		}
		nums[i] = n
	}
	return RuneKey{PrimaryStyle: nums[0], SubStyle: nums[1], Keystone: nums[2]}, nil
}

// SpellPairKey is an unordered summoner spell pair, stored with the
// smaller id first.
type SpellPairKey struct {
	Spell1 int
	Spell2 int
}

// NewSpellPairKey canonicalizes the pair so that Flash+Ignite and
// Ignite+Flash land on the same key.
func NewSpellPairKey(p model.SpellPair) SpellPairKey {
	c := p.Canonical()
	return SpellPairKey{Spell1: c.Spell1, Spell2: c.Spell2}
}

// Variant returns "smaller:larger".
func (k SpellPairKey) Variant() string {
	return fmt.Sprintf("%d:%d", k.Spell1, k.Spell2)
}

// ParseSpellPairKey rebuilds a SpellPairKey from its stored variant.
func ParseSpellPairKey(variant string) (SpellPairKey, error) {
	parts := strings.Split(variant, ":")
	if len(parts) != 2 {
		return SpellPairKey{}, fmt.Errorf("%w: spell variant %q", ErrBadVariant, variant)
	}
	s1, err1 := strconv.Atoi(parts[0])
	s2, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return SpellPairKey{}, fmt.Errorf("%w: spell variant %q", ErrBadVariant, variant)
	}
	return SpellPairKey{Spell1: s1, Spell2: s2}, nil
}
