package cpmp

import (
	"github.com/pkg/errors"
)

// KnapsackItem is one item of a 0/1 knapsack instance. Label carries the
// caller's identifier for the item (the location index during pricing) and
// is not interpreted by the solver.
type KnapsackItem struct {
	Label  int
	Weight int64
	Profit float64
}

// KnapsackSolver is the exact 0/1 knapsack oracle consumed by the pricer:
// maximize total profit subject to total weight <= capacity. Implementations
// return the indices of the selected items (into the given item slice) and
// the total profit of the selection. A non-nil error means the oracle could
// not solve this particular instance; the pricer then skips the
// corresponding median.
type KnapsackSolver interface {
	SolveExactly(items []KnapsackItem, capacity int64) (selected []int, profit float64, err error)
}

// DPKnapsack solves 0/1 knapsack instances exactly with the classic dynamic
// program over integral weights. The table has one cell per item and weight
// unit; MaxCells bounds its size so that a pathological capacity cannot
// exhaust memory. Exceeding the bound is reported as an oracle failure.
type DPKnapsack struct {
	// MaxCells limits the DP table size (items x capacity+1).
	// Zero selects a default of 64M cells.
	MaxCells int64
}

const defaultMaxKnapsackCells = 64 << 20

// SolveExactly implements KnapsackSolver.
func (k *DPKnapsack) SolveExactly(items []KnapsackItem, capacity int64) ([]int, float64, error) {
	if capacity < 0 {
		return nil, 0, errors.Errorf("negative knapsack capacity %d", capacity)
	}

	// Items that cannot pay off or cannot fit never appear in an optimal
	// selection; drop them up front. Zero-weight profitable items are
	// always selected.
	var selected []int
	var base float64
	usable := make([]int, 0, len(items))
	var totweight int64
	for i, it := range items {
		if it.Weight < 0 {
			return nil, 0, errors.Errorf("negative weight %d for knapsack item %d", it.Weight, i)
		}
		if it.Profit <= 0 || it.Weight > capacity {
			continue
		}
		if it.Weight == 0 {
			selected = append(selected, i)
			base += it.Profit
			continue
		}
		usable = append(usable, i)
		totweight += it.Weight
	}

	if len(usable) == 0 {
		return selected, base, nil
	}
	if totweight < capacity {
		capacity = totweight
	}

	maxCells := k.MaxCells
	if maxCells == 0 {
		maxCells = defaultMaxKnapsackCells
	}
	if int64(len(usable))*(capacity+1) > maxCells {
		return nil, 0, errors.Errorf("knapsack instance too large: %d items, capacity %d", len(usable), capacity)
	}

	best := make([]float64, capacity+1)
	take := make([][]bool, len(usable))
	for r, i := range usable {
		it := items[i]
		take[r] = make([]bool, capacity+1)
		for w := capacity; w >= it.Weight; w-- {
			if cand := best[w-it.Weight] + it.Profit; cand > best[w] {
				best[w] = cand
				take[r][w] = true
			}
		}
	}

	// All profits are positive, so the best value sits at full capacity.
	w := capacity
	chosen := make([]int, 0, len(usable))
	for r := len(usable) - 1; r >= 0; r-- {
		if take[r][w] {
			chosen = append(chosen, usable[r])
			w -= items[usable[r]].Weight
		}
	}
	// restore ascending item order
	for l, r := 0, len(chosen)-1; l < r; l, r = l+1, r-1 {
		chosen[l], chosen[r] = chosen[r], chosen[l]
	}

	return append(selected, chosen...), base + best[capacity], nil
}
