package cpmp

import (
	"context"
	"math"
	"sort"

	"github.com/pkg/errors"
)

// defaultTolerance is the feasibility tolerance shared by the engine, the
// pricer and the branching rule.
const defaultTolerance = 1e-6

const defaultMaxPricingRounds = 1000

var (
	// ErrInfeasible is returned when the instance provably admits no
	// capacity-feasible clustering into p clusters.
	ErrInfeasible = errors.New("instance is infeasible")

	// ErrNodeLimit is returned when the search exceeded Options.MaxNodes.
	ErrNodeLimit = errors.New("node limit reached")
)

// Options configures a Solver. The zero value selects sensible defaults:
// the gonum-backed relaxer, the dynamic-programming knapsack oracle, a
// tolerance of 1e-6 and no node limit.
type Options struct {
	// Tol is the feasibility tolerance.
	Tol float64

	// MaxNodes bounds the number of search nodes; zero means unlimited.
	MaxNodes int64

	// MaxPricingRounds bounds the column generation rounds per node, as a
	// safeguard against a numerically noisy engine. Zero selects 1000.
	MaxPricingRounds int

	// Relaxer overrides the LP engine.
	Relaxer Relaxer

	// Knapsack overrides the exact knapsack oracle.
	Knapsack KnapsackSolver

	// Middleware receives the search decisions.
	Middleware Middleware
}

// Cluster is one cluster of a feasible solution.
type Cluster struct {
	Median  int
	Members []int
}

// Solution is a feasible clustering found by the search.
type Solution struct {
	// Objective is the total assignment distance.
	Objective int64

	Clusters []Cluster

	// Nodes is the number of search nodes explored.
	Nodes int64

	// ColumnsGenerated is the total number of columns priced into the master.
	ColumnsGenerated int

	// Warnings lists skipped pricing subproblems; they never abort the search.
	Warnings []string
}

// Solver runs branch-and-price on one instance: it owns the master problem,
// the restriction state, the pricer and the incumbent, and drives a
// depth-first node loop whose strict entry/exit order keeps the restriction
// state consistent with the active path.
type Solver struct {
	inst     *Instance
	master   *Master
	restrict *Restrictions
	pricer   *Pricer
	relaxer  Relaxer
	mw       Middleware

	tol       float64
	maxNodes  int64
	maxRounds int

	// fixed[j] marks columns whose value is currently fixed to zero by an
	// active branching constraint; restored when the owning node is left.
	fixed     []bool
	path      []*SemiAssignCons
	consFixes map[*SemiAssignCons][]int

	incumbent  *Solution
	incumbentZ float64
	nodes      int64
	warnings   []string
}

// NewSolver builds a solver for the instance.
func NewSolver(inst *Instance, opts *Options) *Solver {
	if opts == nil {
		opts = &Options{}
	}
	tol := opts.Tol
	if tol <= 0 {
		tol = defaultTolerance
	}
	relaxer := opts.Relaxer
	if relaxer == nil {
		relaxer = &SimplexRelaxer{Tol: tol}
	}
	oracle := opts.Knapsack
	if oracle == nil {
		oracle = &DPKnapsack{}
	}
	mw := opts.Middleware
	if mw == nil {
		mw = discardMiddleware{}
	}
	maxRounds := opts.MaxPricingRounds
	if maxRounds <= 0 {
		maxRounds = defaultMaxPricingRounds
	}

	master := NewMaster(inst)
	restrict := NewRestrictions(inst.NumLocations())

	return &Solver{
		inst:      inst,
		master:    master,
		restrict:  restrict,
		pricer:    NewPricer(master, restrict, oracle, tol),
		relaxer:   relaxer,
		mw:        mw,
		tol:       tol,
		maxNodes:  opts.MaxNodes,
		maxRounds: maxRounds,
		consFixes: make(map[*SemiAssignCons][]int),
	}
}

// FixToZero implements ColumnFixer.
func (s *Solver) FixToZero(col int) {
	s.ensureBounds()
	s.fixed[col] = true
}

// IsFixed implements ColumnFixer.
func (s *Solver) IsFixed(col int) bool {
	s.ensureBounds()
	return s.fixed[col]
}

func (s *Solver) ensureBounds() {
	for len(s.fixed) < s.master.NumColumns() {
		s.fixed = append(s.fixed, false)
	}
}

// Solve runs the search to optimality. It returns ErrInfeasible when no
// feasible clustering exists, or the context's error when cancelled. When the
// node limit cuts the search short, the best solution found so far is
// returned together with ErrNodeLimit; only a solution returned without an
// error is proven optimal.
func (s *Solver) Solve(ctx context.Context) (*Solution, error) {
	if err := ScreenInstance(s.inst); err != nil {
		return nil, err
	}

	if err := s.explore(ctx, nil, 0); err != nil {
		if errors.Is(err, ErrNodeLimit) && s.incumbent != nil {
			return s.finishSolution(), err
		}
		return nil, err
	}
	if s.incumbent == nil {
		return nil, ErrInfeasible
	}
	return s.finishSolution(), nil
}

func (s *Solver) finishSolution() *Solution {
	s.incumbent.Nodes = s.nodes
	s.incumbent.ColumnsGenerated = s.master.NumColumns()
	s.incumbent.Warnings = s.warnings
	return s.incumbent
}

// propagatePath propagates every active constraint on the current path.
// Each constraint only scans columns attached since its previous
// propagation; fixes are booked to the constraint so the bounds can be
// restored when its node is left.
func (s *Solver) propagatePath() error {
	s.ensureBounds()
	for _, c := range s.path {
		fixedNow, err := c.Propagate(s.master, s)
		if err != nil {
			return err
		}
		if len(fixedNow) > 0 {
			s.consFixes[c] = append(s.consFixes[c], fixedNow...)
		}
	}
	return nil
}

// explore processes one node and recurses into its children. cons is the
// branching constraint attached to the node, nil for the root. Activation,
// deactivation and bound restoration follow strict stack order.
func (s *Solver) explore(ctx context.Context, cons *SemiAssignCons, depth int) (err error) {
	if cerr := ctx.Err(); cerr != nil {
		return cerr
	}

	s.nodes++
	id := s.nodes
	if s.maxNodes > 0 && s.nodes > s.maxNodes {
		return ErrNodeLimit
	}

	if cons != nil {
		if err = cons.Activate(s.restrict); err != nil {
			return err
		}
		s.path = append(s.path, cons)
		defer func() {
			s.path = s.path[:len(s.path)-1]
			if derr := cons.Deactivate(s.restrict); derr != nil && err == nil {
				err = derr
			}
			// node-local bound restoration: release the columns this
			// node's constraint fixed
			for _, j := range s.consFixes[cons] {
				s.fixed[j] = false
			}
			delete(s.consFixes, cons)
			if derr := cons.Delete(); derr != nil && err == nil {
				err = derr
			}
		}()
	}

	stop := func() bool { return ctx.Err() != nil }

	// column generation loop: re-solve, price, repeat until the pricer
	// proves the node relaxation optimal or irreparably infeasible
	var rel *Relaxation
	for round := 0; ; round++ {
		if round > s.maxRounds {
			return errors.Errorf("node %d: pricing did not converge within %d rounds", id, s.maxRounds)
		}
		if err = s.propagatePath(); err != nil {
			return err
		}
		s.ensureBounds()

		rel, err = s.relaxer.Solve(s.master, s.fixed)
		if err != nil {
			return errors.Wrapf(err, "node %d", id)
		}

		var pres *PricingResult
		if rel.Infeasible {
			pres, err = s.pricer.Price(rel.Farkas, FarkasPricing, stop)
		} else {
			pres, err = s.pricer.Price(rel.Duals, ReducedCostPricing, stop)
		}
		if err != nil {
			return errors.Wrapf(err, "node %d", id)
		}
		s.warnings = append(s.warnings, pres.Warnings...)
		if pres.Stopped {
			return ctx.Err()
		}
		if pres.ColumnsAdded == 0 {
			break
		}
	}

	summary := NodeSummary{ID: id, Depth: depth, Z: rel.Z, Columns: s.master.NumColumns()}

	if rel.Infeasible {
		summary.Z = math.NaN()
		s.mw.ProcessDecision(summary, NODE_INFEASIBLE)
		return nil
	}

	if s.incumbent != nil && rel.Z >= s.incumbentZ-s.tol {
		s.mw.ProcessDecision(summary, WORSE_THAN_INCUMBENT)
		return nil
	}

	assignments := ComputeAssignments(s.master, rel.Values)
	bc, fractional := Branch(assignments, s.restrict, s.tol)
	if !fractional {
		sol, serr := s.extractSolution(assignments)
		if serr != nil {
			return errors.Wrapf(serr, "node %d", id)
		}
		s.incumbent = sol
		s.incumbentZ = float64(sol.Objective)
		s.mw.ProcessDecision(summary, BETTER_THAN_INCUMBENT_FEASIBLE)
		return nil
	}

	s.mw.ProcessDecision(summary, BETTER_THAN_INCUMBENT_BRANCHING)

	left, right := bc.Children()
	if err = s.explore(ctx, left, depth+1); err != nil {
		return err
	}
	return s.explore(ctx, right, depth+1)
}

// extractSolution reads an integral assignment matrix back into clusters.
// Overcovered locations (two medians serving them at value 1, possible with
// distance ties) are booked to the lowest-indexed median; the objective is
// recomputed from the instance so it is exact.
func (s *Solver) extractSolution(assignments Assignments) (*Solution, error) {
	n := s.inst.NumLocations()

	medianOf := make([]int, n)
	var objective int64
	for i := 0; i < n; i++ {
		medianOf[i] = -1
		for j := 0; j < n; j++ {
			if assignments[i][j] >= 1-s.tol {
				medianOf[i] = j
				objective += s.inst.Distance(i, j)
				break
			}
		}
		if medianOf[i] < 0 {
			return nil, errors.Errorf("location %d uncovered in integral solution", i)
		}
	}

	byMedian := make(map[int][]int)
	for i, m := range medianOf {
		byMedian[m] = append(byMedian[m], i)
	}
	medians := make([]int, 0, len(byMedian))
	for m := range byMedian {
		medians = append(medians, m)
	}
	sort.Ints(medians)

	clusters := make([]Cluster, 0, len(medians))
	for _, m := range medians {
		clusters = append(clusters, Cluster{Median: m, Members: byMedian[m]})
	}

	return &Solution{Objective: objective, Clusters: clusters}, nil
}
