// Package signal implements the pure scoring and fingerprint-matching
// functions that classify a program-log message, grounded on
// internal/discovery/dex_parser.go's case-insensitive substring/
// discriminator matching style.
package signal

import "strings"

// Weights maps an instruction-name substring (case-insensitive) to the
// score it contributes each time it appears in a log message's lines.
type Weights map[string]float64

// Scorer computes a deterministic numeric score for a log message from
// a configuration-time weight table. Equal inputs always yield equal
// scores — the scorer holds no mutable state.
type Scorer struct {
	weights map[string]float64
}

// NewScorer builds a Scorer from weights, lowercasing keys once so
// Score need not repeat the case-fold on every call.
func NewScorer(weights Weights) *Scorer {
	s := &Scorer{weights: make(map[string]float64, len(weights))}
	for name, w := range weights {
		s.weights[strings.ToLower(name)] = w
	}
	return s
}

// Score sums weight*occurrences for every configured instruction-name
// substring found in lines, plus the two conjunctive bonuses spec §4.5
// names: "buyExactIn" scores higher in the presence of "mintTo"/
// "initializeMint", and "mintTo" scores higher in the presence of
// "initializeVirtualPoolWithSplToken"/"initializeMint2".
func (s *Scorer) Score(lines []string) float64 {
	joined := strings.ToLower(strings.Join(lines, "\n"))

	var score float64
	for name, weight := range s.weights {
		if name == "" {
			continue
		}
		score += weight * float64(strings.Count(joined, name))
	}

	if strings.Contains(joined, "buyexactin") {
		if strings.Contains(joined, "mintto") || strings.Contains(joined, "initializemint") {
			score += 0.6
		} else {
			score += 0.2
		}
	}

	if strings.Contains(joined, "mintto") {
		if strings.Contains(joined, "initializevirtualpoolwithspltoken") || strings.Contains(joined, "initializemint2") {
			score += 0.7
		} else {
			score += 0.4
		}
	}

	return score
}
