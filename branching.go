package cpmp

import (
	"math"
	"sort"
)

// Assignments is the location x median matrix of (possibly fractional)
// assignment values induced by a relaxation solution: entry [i][j] is the
// summed value of all columns whose median is j and that contain i as a
// member. For an integral feasible solution every row holds exactly one
// 1-entry.
type Assignments [][]float64

// ComputeAssignments derives the assignment matrix from the master's columns
// and their values in the current relaxation solution.
func ComputeAssignments(ma *Master, values []float64) Assignments {
	n := ma.Instance().NumLocations()
	a := make(Assignments, n)
	for i := range a {
		a[i] = make([]float64, n)
	}

	for idx := 0; idx < ma.NumColumns(); idx++ {
		val := values[idx]
		if val == 0 {
			continue
		}
		col := ma.Column(idx)
		for _, l := range col.Members {
			a[l][col.Median] += val
		}
	}

	return a
}

func isIntegral(x, tol float64) bool {
	return math.Abs(x-math.Round(x)) <= tol
}

// ChooseLocation picks the location to branch on, or -1 if every assignment
// value is integral within the tolerance. It selects the location assigned
// fractionally to the most medians; ties are broken towards the location
// whose fractional mass on even-indexed medians is closest to half its total
// fractional mass, so that the alternating partition splits the mass most
// evenly.
func (a Assignments) ChooseLocation(tol float64) int {
	location := -1
	maxnfrac := 0
	minfracdiff := math.Inf(1)

	for i := range a {
		nfrac := 0
		totfrac := 0.0
		halffrac := 0.0

		for j, val := range a[i] {
			if !isIntegral(val, tol) {
				nfrac++
				totfrac += val
				if j%2 == 0 {
					halffrac += val
				}
			}
		}

		diff := math.Abs(halffrac - 0.5*totfrac)
		if nfrac > maxnfrac || (nfrac > 0 && nfrac == maxnfrac && diff < minfracdiff) {
			location = i
			maxnfrac = nfrac
			minfracdiff = diff
		}
	}

	return location
}

// BranchCandidate describes a branching decision: the chosen location and
// the two child restriction deltas. Left and Right are disjoint median masks
// that together cover exactly the medians not already forbidden for the
// location.
type BranchCandidate struct {
	Location int
	Left     []bool
	Right    []bool
}

// Children creates the two pending child constraints of the candidate.
func (bc *BranchCandidate) Children() (left, right *SemiAssignCons) {
	return NewSemiAssignCons(bc.Location, bc.Left), NewSemiAssignCons(bc.Location, bc.Right)
}

// Branch examines the assignment matrix and either reports that the solution
// is integral (ok is false) or returns the chosen location together with the
// two child forbidden-sets. Candidate medians are ordered by non-increasing
// assignment value (ties by median index), medians already forbidden for the
// location are skipped, and the remainder is dealt out alternately: the
// first candidate to the left branch, the second to the right, and so on.
func Branch(a Assignments, r *Restrictions, tol float64) (bc *BranchCandidate, ok bool) {
	location := a.ChooseLocation(tol)
	if location < 0 {
		return nil, false
	}

	n := len(a[location])
	sorted := make([]int, n)
	for j := range sorted {
		sorted[j] = j
	}
	row := a[location]
	sort.SliceStable(sorted, func(x, y int) bool {
		return row[sorted[x]] > row[sorted[y]]
	})

	bc = &BranchCandidate{
		Location: location,
		Left:     make([]bool, n),
		Right:    make([]bool, n),
	}

	// alternate over the remaining candidates only, so that the two
	// deltas partition the previously unforbidden medians
	ncandidates := 0
	for _, median := range sorted {
		if r.IsAssignmentForbidden(median, location) {
			continue
		}
		if ncandidates%2 == 0 {
			bc.Left[median] = true
		} else {
			bc.Right[median] = true
		}
		ncandidates++
	}

	return bc, true
}
