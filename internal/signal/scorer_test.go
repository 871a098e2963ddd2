package signal

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScorerDeterministic(t *testing.T) {
	s := NewScorer(Weights{"Create": 1.0, "Buy": 0.5})
	lines := []string{"Program log: Instruction: Create", "Program log: Instruction: Buy"}

	first := s.Score(lines)
	second := s.Score(lines)
	require.Equal(t, first, second)
	require.InDelta(t, 1.5, first, 1e-9)
}

func TestScorerCaseInsensitive(t *testing.T) {
	s := NewScorer(Weights{"buyExactIn": 1.0})
	score := s.Score([]string{"Program log: Instruction: BUYEXACTIN"})
	require.InDelta(t, 1.2, score, 1e-9) // 1.0 base weight + 0.2 bare bonus
}

func TestScorerBuyExactInBonus(t *testing.T) {
	s := NewScorer(Weights{})

	bare := s.Score([]string{"Program log: Instruction: buyExactIn"})
	require.InDelta(t, 0.2, bare, 1e-9)

	withMintTo := s.Score([]string{"Program log: Instruction: buyExactIn", "Program log: mintTo"})
	require.InDelta(t, 1.0, withMintTo, 1e-9) // 0.6 buyExactIn bonus + 0.4 bare mintTo bonus
}

func TestScorerMintToBonus(t *testing.T) {
	s := NewScorer(Weights{})

	bare := s.Score([]string{"Program log: mintTo"})
	require.InDelta(t, 0.4, bare, 1e-9)

	withVirtualPool := s.Score([]string{"Program log: mintTo", "Program log: initializeVirtualPoolWithSplToken"})
	require.InDelta(t, 0.7, withVirtualPool, 1e-9)
}

func TestScorerCountsMultipleOccurrences(t *testing.T) {
	s := NewScorer(Weights{"swap": 1.0})
	score := s.Score([]string{"swap swap", "swap"})
	require.InDelta(t, 3.0, score, 1e-9)
}
