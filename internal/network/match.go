package network

import (
	"fmt"
	"strings"
)

// Matcher names accepted by NewMatcher.
const (
	MatchExact     = "exact"
	MatchSubstring = "substring"
)

// ArgumentMatcher decides whether a raw argument belongs to netID.
type ArgumentMatcher interface {
	Matches(arg, netID string) bool
}

// NewMatcher returns the matcher for name. Empty means exact.
func NewMatcher(name string) (ArgumentMatcher, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", MatchExact:
		return ExactMatcher{}, nil
	case MatchSubstring:
		return SubstringMatcher{}, nil
	default:
		return nil, fmt.Errorf("network: unknown argument matcher %q (want %q or %q)", name, MatchExact, MatchSubstring)
	}
}

// ExactMatcher matches only the "id=<netID>" and "netdev=<netID>" options of
// an argument, so net1 never matches net10.
type ExactMatcher struct{}

func (ExactMatcher) Matches(arg, netID string) bool {
	tokens := strings.FieldsFunc(arg, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	for _, tok := range tokens {
		if tok == "id="+netID || tok == "netdev="+netID {
			return true
		}
	}
	return false
}

// SubstringMatcher matches any argument containing netID. net1 also matches
// net10..net19; kept for deployments that depend on it.
type SubstringMatcher struct{}

func (SubstringMatcher) Matches(arg, netID string) bool {
	return strings.Contains(arg, netID)
}

// selectArguments returns every arg matching one of netIDs, once each, in
// their original order.
func selectArguments(m ArgumentMatcher, args, netIDs []string) []string {
	var selected []string
	for _, arg := range args {
		for _, id := range netIDs {
			if m.Matches(arg, id) {
				selected = append(selected, arg)
				break
			}
		}
	}
	return selected
}
