package cpmp

import (
	"fmt"

	"github.com/pkg/errors"
)

// PricingMode selects how item profits and column scores are derived.
// Both modes share all pricing logic; only the profit derivation differs.
type PricingMode int

const (
	// ReducedCostPricing is used while the relaxation is feasible: item
	// profits are coverage duals minus distances, and a positive score
	// means the column has negative reduced cost.
	ReducedCostPricing PricingMode = iota

	// FarkasPricing is used when the relaxation is infeasible: profits
	// come from the Farkas certificate, and a positive score means the
	// column cuts off the certificate, i.e. may restore feasibility.
	FarkasPricing
)

func (m PricingMode) String() string {
	if m == FarkasPricing {
		return "farkas"
	}
	return "redcost"
}

// PricingResult summarizes one pricing round. ColumnsAdded == 0 means no
// improving column was found: in reduced-cost mode the relaxation is
// optimal, in Farkas mode the current restrictions are infeasible.
type PricingResult struct {
	ColumnsAdded int

	// Warnings lists medians whose knapsack subproblem the oracle could
	// not solve; those medians were skipped for this round.
	Warnings []string

	// Stopped is set when pricing aborted early on the engine's stop
	// signal. Columns attached before the abort stay attached.
	Stopped bool
}

// Pricer generates improving columns for the master problem. For each
// potential median it builds a bounded knapsack instance over the locations
// not currently forbidden for that median and asks the exact oracle for the
// most profitable cluster.
type Pricer struct {
	inst     *Instance
	master   *Master
	restrict *Restrictions
	knapsack KnapsackSolver
	tol      float64
}

// NewPricer wires a pricer to the master problem, the restriction state and
// a knapsack oracle.
func NewPricer(ma *Master, r *Restrictions, oracle KnapsackSolver, tol float64) *Pricer {
	return &Pricer{
		inst:     ma.Instance(),
		master:   ma,
		restrict: r,
		knapsack: oracle,
		tol:      tol,
	}
}

// Price runs one pricing round over all potential medians. The duals carry
// either the optimal dual solution (reduced-cost mode) or the Farkas
// certificate (Farkas mode) of the current relaxation. stop may be nil; when
// given, it is checked between medians and aborts the round early.
//
// A median whose knapsack subproblem fails is skipped with a warning. If no
// median's subproblem could be solved at all, the round is a pricing failure
// and an error is returned.
func (pr *Pricer) Price(duals *Duals, mode PricingMode, stop func() bool) (*PricingResult, error) {
	n := pr.inst.NumLocations()
	res := &PricingResult{}

	items := make([]KnapsackItem, 0, n)
	solved := 0

	for median := 0; median < n; median++ {
		if stop != nil && stop() {
			res.Stopped = true
			break
		}

		// collect the locations that may still be served by this
		// median under the active branching path
		items = items[:0]
		for location := 0; location < n; location++ {
			if pr.restrict.IsAssignmentForbidden(median, location) {
				continue
			}
			profit := duals.Coverage[location]
			if mode == ReducedCostPricing {
				profit -= float64(pr.inst.Distance(location, median))
			}
			items = append(items, KnapsackItem{
				Label:  location,
				Weight: pr.inst.Demand(location),
				Profit: profit,
			})
		}

		selected, profit, err := pr.knapsack.SolveExactly(items, pr.inst.Capacity(median))
		if err != nil {
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("pricing problem for median %d could not be solved: %v", median, err))
			continue
		}
		solved++

		// the column also enters the convexity row of its median and
		// the cardinality row, so their duals complete the score
		score := profit + duals.Convexity[median] + duals.Cardinality
		if score <= pr.tol {
			continue
		}
		if len(selected) == 0 {
			continue
		}

		members := make([]int, 0, len(selected))
		for _, idx := range selected {
			members = append(members, items[idx].Label)
		}

		col := NewColumn(pr.inst, median, members)
		if _, added, err := pr.master.Attach(col); err != nil {
			return nil, errors.Wrapf(err, "attaching column priced for median %d", median)
		} else if added {
			res.ColumnsAdded++
		}
	}

	if solved == 0 && !res.Stopped {
		return res, errors.Errorf("%s pricing failed: no knapsack subproblem could be solved", mode)
	}

	return res, nil
}
