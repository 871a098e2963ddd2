package signal

import (
	"math"
	"strings"
)

// Logic names the combinator a Fingerprint applies across its
// required-instruction and required-program conditions.
type Logic string

const (
	LogicAND   Logic = "AND"
	LogicOR    Logic = "OR"
	LogicFuzzy Logic = "FUZZY"
)

// Fingerprint is a read-only, configuration-time multi-criterion
// predicate over observed instructions and the originating program.
type Fingerprint struct {
	Tag                  string
	RequiredInstructions []string
	RequiredPrograms     []string
	Logic                Logic
	MinScore             float64
	Confidence           float64
}

// MatchResult is the {tag, confidence} pair a passing fingerprint
// produces. Mint resolution is a decoder's job, not the matcher's.
type MatchResult struct {
	Tag        string
	Confidence float64
}

// Matcher evaluates an ordered list of fingerprints against a message,
// returning the first one that passes — ties broken by configuration
// order, never by comparing fingerprints' scores against each other.
type Matcher struct {
	fingerprints []Fingerprint
}

// NewMatcher builds a Matcher from fingerprints in configuration order.
func NewMatcher(fingerprints []Fingerprint) *Matcher {
	return &Matcher{fingerprints: append([]Fingerprint(nil), fingerprints...)}
}

// Match returns the first fingerprint that passes against lines and
// programID (the program id or alias the message's subscription was
// tagged with), or nil if none do. decodedInstructions optionally
// supplies instruction names already recovered by a decoder; matching
// also falls back to substring search over the joined log text since
// most callers only have raw log lines at classification time.
func (m *Matcher) Match(lines []string, programID string, decodedInstructions []string) *MatchResult {
	joined := strings.ToLower(strings.Join(lines, "\n"))
	observed := make(map[string]bool, len(decodedInstructions))
	for _, name := range decodedInstructions {
		observed[strings.ToLower(name)] = true
	}

	for _, fp := range m.fingerprints {
		if result := evaluate(fp, joined, programID, observed); result != nil {
			return result
		}
	}
	return nil
}

func evaluate(fp Fingerprint, joinedLower, programID string, observed map[string]bool) *MatchResult {
	matchCount := 0
	present := make([]bool, len(fp.RequiredInstructions))
	for i, instr := range fp.RequiredInstructions {
		name := strings.ToLower(instr)
		if observed[name] || strings.Contains(joinedLower, name) {
			present[i] = true
			matchCount++
		}
	}

	programMatched := false
	for _, prog := range fp.RequiredPrograms {
		if prog == "" {
			continue
		}
		if strings.EqualFold(prog, programID) || strings.Contains(joinedLower, strings.ToLower(prog)) {
			programMatched = true
			break
		}
	}

	if !programMatched {
		return nil
	}

	gate := float64(matchCount)
	if programMatched {
		gate++
	}
	if gate < fp.MinScore {
		return nil
	}

	var pass bool
	switch fp.Logic {
	case LogicAND:
		pass = matchCount == len(fp.RequiredInstructions) && programMatched
	case LogicOR:
		pass = programMatched || matchCount > 0
	case LogicFuzzy:
		threshold := int(math.Ceil(float64(len(fp.RequiredInstructions)) / 2))
		pass = matchCount >= threshold && programMatched
	default:
		pass = matchCount == len(fp.RequiredInstructions) && programMatched
	}

	if !pass {
		return nil
	}

	return &MatchResult{Tag: fp.Tag, Confidence: fp.Confidence}
}
