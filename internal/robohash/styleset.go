package robohash

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// StyleSet selects the family of avatars the service draws.
type StyleSet int

const (
	Robot StyleSet = iota
	Monster
	RobotHead
	Kitten
	Human
)

// DefaultStyleSet is selected until the user picks something else.
const DefaultStyleSet = Robot

var styleSets = []StyleSet{Robot, Monster, RobotHead, Kitten, Human}

// StyleSets returns every style in display order.
func StyleSets() []StyleSet {
	return slices.Clone(styleSets)
}

// StyleSetAt looks a style up by its position in the option list. Out of
// range indexes report false.
func StyleSetAt(index int) (StyleSet, bool) {
	if index < 0 || index >= len(styleSets) {
		return 0, false
	}
	return styleSets[index], true
}

// StyleNames returns the display names in option order.
func StyleNames() []string {
	names := make([]string, len(styleSets))
	for i, s := range styleSets {
		names[i] = s.Name()
	}
	return names
}

// Name is the label shown to the user.
func (s StyleSet) Name() string {
	switch s {
	case Robot:
		return "Robot"
	case Monster:
		return "Monster"
	case RobotHead:
		return "Robohead"
	case Kitten:
		return "Kitten"
	case Human:
		return "Human"
	default:
		return fmt.Sprintf("StyleSet(%d)", int(s))
	}
}

func (s StyleSet) String() string {
	return s.Name()
}

// Index is the position of s in the option list, or -1.
func (s StyleSet) Index() int {
	return slices.Index(styleSets, s)
}

// Code is the value of the "set" query parameter. The default style sends
// no parameter at all.
func (s StyleSet) Code() (string, bool) {
	switch s {
	case Monster:
		return "set2", true
	case RobotHead:
		return "set3", true
	case Kitten:
		return "set4", true
	case Human:
		return "set5", true
	default:
		return "", false
	}
}

// ParseStyleSet resolves a user supplied style name. It accepts display
// names ("Robohead"), identifiers ("robothead") and wire codes ("set3") in
// any case, then falls back to a fuzzy match so "mon" selects Monster.
func ParseStyleSet(name string) (StyleSet, error) {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return DefaultStyleSet, nil
	}

	for _, s := range styleSets {
		code, ok := s.Code()
		if !ok {
			code = "set1"
		}
		if needle == strings.ToLower(s.Name()) || needle == code || needle == identifier(s) {
			return s, nil
		}
	}

	ranks := fuzzy.RankFindNormalizedFold(needle, StyleNames())
	if len(ranks) == 0 {
		return 0, fmt.Errorf("unknown style set %q (must be one of: %s)", name, strings.Join(StyleNames(), ", "))
	}
	sort.Sort(ranks)
	if len(ranks) > 1 && ranks[0].Distance == ranks[1].Distance {
		return 0, fmt.Errorf("ambiguous style set %q (matches %s and %s)", name, ranks[0].Target, ranks[1].Target)
	}
	return styleSets[ranks[0].OriginalIndex], nil
}

func identifier(s StyleSet) string {
	switch s {
	case RobotHead:
		return "robothead"
	default:
		return strings.ToLower(s.Name())
	}
}
