// Package points maps leaderboard ranks to points.
package points

import (
	"errors"
	"fmt"
	"math"
)

// DefaultBase is the rank-1 score of the tiered mapping.
const DefaultBase = 40_000

const directRanks = 10 // ranks scored as base/rank

// ErrNotMonotonic is returned when a lookup table rewards a worse rank.
var ErrNotMonotonic = errors.New("points table must be non-increasing")

// Table converts a 1-based rank to points. A better rank never scores fewer
// points than a worse one.
type Table interface {
	Points(rank int) float64
}

// Option applies a configuration option to Tiered.
type Option func(*Tiered)

// WithBase sets the rank-1 score.
func WithBase(base float64) Option {
	return func(t *Tiered) {
		if base > 0 {
			t.base = base
		}
	}
}

// Tiered scores ranks 1-10 as base/rank and every following decade of ranks
// on a halving tier that decays with the rank inside the tier.
type Tiered struct {
	base float64
}

// NewTiered creates the default tiered mapping.
func NewTiered(opts ...Option) *Tiered {
	t := &Tiered{base: DefaultBase}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Points implements Table.
func (t *Tiered) Points(rank int) float64 {
	if rank <= 0 {
		return 0
	}
	r := float64(rank)
	if rank <= directRanks {
		return Round(t.base / r)
	}
	// tier is ceil(log10(rank)); floor is 10^(tier-1)
	tier, floor := 1, 1
	for floor*10 < rank {
		floor *= 10
		tier++
	}
	tierBase := (t.base / directRanks) / math.Pow(2, float64(tier-1))
	return Round(tierBase * (float64(floor)/r + 0.9))
}

// Lookup scores ranks from an explicit table where index 0 is rank 1.
// Ranks past the end score 0.
type Lookup struct {
	table []float64
}

// NewLookup validates and copies the table.
func NewLookup(table []float64) (*Lookup, error) {
	if len(table) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrNotMonotonic)
	}
	for i, p := range table {
		if p < 0 || (i > 0 && p > table[i-1]) {
			return nil, fmt.Errorf("%w: rank %d", ErrNotMonotonic, i+1)
		}
	}
	return &Lookup{table: append([]float64(nil), table...)}, nil
}

// Points implements Table.
func (l *Lookup) Points(rank int) float64 {
	if rank <= 0 || rank > len(l.table) {
		return 0
	}
	return l.table[rank-1]
}

// Round rounds to 2 decimals.
func Round(v float64) float64 {
	return math.Round(v*100) / 100
}
