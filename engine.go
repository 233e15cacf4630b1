package cpmp

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// Duals carries one value per master row: the coverage rows, the convexity
// rows and the cardinality row. Under the convention used throughout this
// package the reduced cost of a column is
//
//	cost - sum(Coverage[member]) - Convexity[median] - Cardinality
//
// so coverage duals are nonnegative and convexity/cardinality duals are
// nonpositive. In Farkas mode the same struct carries the infeasibility
// certificate (a dual ray) instead of an optimal dual solution.
type Duals struct {
	Coverage    []float64
	Convexity   []float64
	Cardinality float64
}

// Relaxation is the outcome of one LP solve over the currently unfixed
// columns.
type Relaxation struct {
	// Infeasible marks that the relaxation has no feasible point under
	// the current column set and restrictions; Farkas then holds a
	// certificate and Duals is nil.
	Infeasible bool

	// Z is the optimal objective value (feasible case only).
	Z float64

	// Values holds one primal value per master column; fixed columns are
	// reported as zero.
	Values []float64

	Duals  *Duals
	Farkas *Duals
}

// Relaxer is the relaxation-solving capability consumed from the engine:
// solve the master LP over all columns not fixed to zero and report either
// primal values with duals, or an infeasibility certificate.
type Relaxer interface {
	Solve(ma *Master, fixed []bool) (*Relaxation, error)
}

// SimplexRelaxer solves the master relaxation with gonum's simplex. Primal
// values come from the primal solve; dual values from an explicit solve of
// the dual LP; Farkas certificates from the homogeneous dual with a box
// normalization. Slower than a native LP engine exposing duals, but exact
// enough for the instance sizes this package targets, and trivially
// replaceable through the Relaxer interface.
type SimplexRelaxer struct {
	// Tol is the feasibility tolerance; zero selects 1e-6.
	Tol float64
}

func (sr *SimplexRelaxer) tolerance() float64 {
	if sr.Tol > 0 {
		return sr.Tol
	}
	return defaultTolerance
}

// Solve implements Relaxer.
func (sr *SimplexRelaxer) Solve(ma *Master, fixed []bool) (*Relaxation, error) {
	if len(fixed) != ma.NumColumns() {
		return nil, errors.Errorf("bound vector has length %d, master has %d columns", len(fixed), ma.NumColumns())
	}

	inst := ma.Instance()
	n := inst.NumLocations()

	var active []int
	for j := 0; j < ma.NumColumns(); j++ {
		if !fixed[j] {
			active = append(active, j)
		}
	}

	rel := &Relaxation{Values: make([]float64, ma.NumColumns())}

	// With no columns at all every coverage row is violated; the all-ones
	// coverage vector certifies that without any LP solve.
	if len(active) == 0 {
		rel.Infeasible = true
		rel.Farkas = canonicalRay(n)
		return rel, nil
	}

	z, x, err := sr.solvePrimal(ma, active)
	switch {
	case err == lp.ErrInfeasible:
		ray, ferr := sr.solveFarkas(ma, active)
		if ferr != nil {
			return nil, ferr
		}
		rel.Infeasible = true
		rel.Farkas = ray
		return rel, nil
	case err != nil:
		return nil, errors.Wrap(err, "solving master relaxation")
	}

	rel.Z = z
	for k, j := range active {
		rel.Values[j] = x[k]
	}

	duals, err := sr.solveDual(ma, active)
	if err != nil {
		return nil, err
	}
	rel.Duals = duals

	return rel, nil
}

// runSimplex wraps lp.Simplex. Column generation feeds it highly degenerate
// bases (many equal-cost columns tie on every pivot), on which Bland's rule
// can stall with a pivot failure; such runs are retried with a graded cost
// perturbation that lifts the ties. The reported objective is always computed
// against the unperturbed costs. Infeasibility and unboundedness are genuine
// outcomes and never retried: perturbing only c cannot change either.
func runSimplex(c []float64, A *mat.Dense, b []float64) (float64, []float64, error) {
	z, x, err := lp.Simplex(c, A, b, 0, nil)
	if err == nil || err == lp.ErrInfeasible || err == lp.ErrUnbounded {
		return z, x, err
	}

	scale := 1.0
	for _, v := range c {
		if a := math.Abs(v); a > scale {
			scale = a
		}
	}
	perturbed := make([]float64, len(c))
	for _, eps := range []float64{1e-10, 1e-8, 1e-6} {
		for i, v := range c {
			perturbed[i] = v + scale*eps*float64(i+1)
		}
		if _, x, err = lp.Simplex(perturbed, A, b, 0, nil); err == nil {
			return floats.Dot(c, x), x, nil
		}
		if err == lp.ErrInfeasible || err == lp.ErrUnbounded {
			return 0, nil, err
		}
	}
	return 0, nil, err
}

// canonicalRay is the Farkas certificate of a master without any columns.
func canonicalRay(n int) *Duals {
	ray := &Duals{
		Coverage:  make([]float64, n),
		Convexity: make([]float64, n),
	}
	for i := range ray.Coverage {
		ray.Coverage[i] = 1
	}
	return ray
}

// solvePrimal solves
//
//	min  cost'x
//	s.t. sum of columns containing l  >= 1   for every location l
//	     sum of columns with median m <= 1   for every median m
//	     sum of all columns           <= p
//	     x >= 0
//
// in the standard equality form required by lp.Simplex, with the coverage
// rows negated into <= form and one slack per row.
func (sr *SimplexRelaxer) solvePrimal(ma *Master, active []int) (float64, []float64, error) {
	inst := ma.Instance()
	n := inst.NumLocations()
	nv := len(active)
	nrows := 2*n + 1

	c := make([]float64, nv+nrows)
	b := make([]float64, nrows)
	A := mat.NewDense(nrows, nv+nrows, nil)

	for k, j := range active {
		col := ma.Column(j)
		c[k] = float64(col.Cost)
		for _, l := range col.Members {
			A.Set(l, k, -1)
		}
		A.Set(n+col.Median, k, 1)
		A.Set(2*n, k, 1)
	}
	for i := 0; i < n; i++ {
		b[i] = -1
		b[n+i] = 1
	}
	b[2*n] = float64(inst.NumClusters())
	for r := 0; r < nrows; r++ {
		A.Set(r, nv+r, 1)
	}

	z, x, err := runSimplex(c, A, b)
	if err != nil {
		return 0, nil, err
	}
	return z, x[:nv], nil
}

// solveDual recovers optimal duals by solving the dual LP explicitly. With
// the sign substitutions v = -vhat, w = -what the dual reads
//
//	max  sum(u) - sum(vhat) - p*what
//	s.t. sum(u[member]) - vhat[median] - what <= cost   for every column
//	     u, vhat, what >= 0
//
// which is always feasible and, the primal being feasible, bounded.
func (sr *SimplexRelaxer) solveDual(ma *Master, active []int) (*Duals, error) {
	inst := ma.Instance()
	n := inst.NumLocations()
	nv := len(active)

	// Only locations and medians occurring in an active column get a dual
	// variable; the others would be zero columns of the LP matrix and
	// their optimal duals are zero anyway.
	locPos := make([]int, n)
	medPos := make([]int, n)
	for i := range locPos {
		locPos[i] = -1
		medPos[i] = -1
	}
	ndual := 0
	for _, j := range active {
		col := ma.Column(j)
		for _, l := range col.Members {
			if locPos[l] < 0 {
				locPos[l] = ndual
				ndual++
			}
		}
	}
	for _, j := range active {
		col := ma.Column(j)
		if medPos[col.Median] < 0 {
			medPos[col.Median] = ndual
			ndual++
		}
	}
	wPos := ndual
	ndual++

	c := make([]float64, ndual+nv)
	b := make([]float64, nv)
	A := mat.NewDense(nv, ndual+nv, nil)

	for i := 0; i < n; i++ {
		if locPos[i] >= 0 {
			c[locPos[i]] = -1
		}
		if medPos[i] >= 0 {
			c[medPos[i]] = 1
		}
	}
	c[wPos] = float64(inst.NumClusters())

	for k, j := range active {
		col := ma.Column(j)
		for _, l := range col.Members {
			A.Set(k, locPos[l], 1)
		}
		A.Set(k, medPos[col.Median], -1)
		A.Set(k, wPos, -1)
		A.Set(k, ndual+k, 1)
		b[k] = float64(col.Cost)
	}

	_, y, err := runSimplex(c, A, b)
	if err != nil {
		return nil, errors.Wrap(err, "solving dual of master relaxation")
	}

	duals := &Duals{
		Coverage:    make([]float64, n),
		Convexity:   make([]float64, n),
		Cardinality: -y[wPos],
	}
	for i := 0; i < n; i++ {
		if locPos[i] >= 0 {
			duals.Coverage[i] = y[locPos[i]]
		}
		if medPos[i] >= 0 {
			duals.Convexity[i] = -y[medPos[i]]
		}
	}

	return duals, nil
}

// solveFarkas searches a certificate of primal infeasibility: a dual ray
// with nonpositive value on every existing column but positive value on the
// right hand sides. The homogeneous dual is normalized with unit box bounds
// so that the search is a bounded LP; a positive optimum is the certificate.
func (sr *SimplexRelaxer) solveFarkas(ma *Master, active []int) (*Duals, error) {
	inst := ma.Instance()
	n := inst.NumLocations()
	nv := len(active)
	ndual := 2*n + 1
	nrows := nv + ndual

	c := make([]float64, ndual+nrows)
	b := make([]float64, nrows)
	A := mat.NewDense(nrows, ndual+nrows, nil)

	for i := 0; i < n; i++ {
		c[i] = -1
		c[n+i] = 1
	}
	c[2*n] = float64(inst.NumClusters())

	for k, j := range active {
		col := ma.Column(j)
		for _, l := range col.Members {
			A.Set(k, l, 1)
		}
		A.Set(k, n+col.Median, -1)
		A.Set(k, 2*n, -1)
	}
	// box rows keep the homogeneous system bounded
	for d := 0; d < ndual; d++ {
		A.Set(nv+d, d, 1)
		b[nv+d] = 1
	}
	for r := 0; r < nrows; r++ {
		A.Set(r, ndual+r, 1)
	}

	z, y, err := runSimplex(c, A, b)
	if err != nil {
		return nil, errors.Wrap(err, "searching Farkas certificate")
	}
	if -z <= sr.tolerance() {
		return nil, errors.New("relaxation is infeasible but no Farkas certificate was found")
	}

	return raysToDuals(y, n), nil
}

// raysToDuals undoes the sign substitution of the dual variables.
func raysToDuals(y []float64, n int) *Duals {
	d := &Duals{
		Coverage:    make([]float64, n),
		Convexity:   make([]float64, n),
		Cardinality: -y[2*n],
	}
	for i := 0; i < n; i++ {
		d.Coverage[i] = y[i]
		d.Convexity[i] = -y[n+i]
	}
	return d
}
