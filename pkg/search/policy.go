package search

import (
	"math"
	"math/rand/v2"
)

// Move is a kind of proposal.
type Move int

const (
	MoveArc     Move = iota // add or remove one link
	MoveSwap                // exchange two variables in the total order
	MoveReverse             // reverse an arc by swapping its endpoints in the order
)

func (m Move) String() string {
	switch m {
	case MoveArc:
		return "arc"
	case MoveSwap:
		return "swap"
	case MoveReverse:
		return "reverse"
	}
	return "unknown"
}

// Policy is the proposal distribution. Weights are relative and need not sum
// to one.
type Policy struct {
	ArcWeight     float64 `json:"arc_weight" toml:"arc_weight"`
	SwapWeight    float64 `json:"swap_weight" toml:"swap_weight"`
	ReverseWeight float64 `json:"reverse_weight" toml:"reverse_weight"`

	// AdjacentSwaps restricts swaps to neighbouring order positions.
	AdjacentSwaps bool `json:"adjacent_swaps" toml:"adjacent_swaps"`
}

// DefaultPolicy favours arc changes and swaps only neighbours.
func DefaultPolicy() Policy {
	return Policy{ArcWeight: 0.6, SwapWeight: 0.3, ReverseWeight: 0.1, AdjacentSwaps: true}
}

// Validate returns INVALID_CONFIG unless every weight is finite and
// non-negative and at least one is positive.
func (p Policy) Validate() error {
	for _, w := range []float64{p.ArcWeight, p.SwapWeight, p.ReverseWeight} {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return invalid("policy weights must be finite and non-negative")
		}
	}
	if p.ArcWeight+p.SwapWeight+p.ReverseWeight <= 0 {
		return invalid("policy needs at least one positive weight")
	}
	return nil
}

func (p Policy) pick(rng *rand.Rand) Move {
	u := rng.Float64() * (p.ArcWeight + p.SwapWeight + p.ReverseWeight)
	switch {
	case u < p.ArcWeight:
		return MoveArc
	case u < p.ArcWeight+p.SwapWeight:
		return MoveSwap
	}
	return MoveReverse
}
