package cpmp

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Instance holds the immutable data of a capacitated p-median problem:
// a set of locations with pairwise distances, a demand per location and a
// capacity per location (the capacity only matters when the location acts as
// a median). The instance is validated once on construction and never
// modified afterwards.
type Instance struct {
	nlocations int
	nclusters  int

	// distances[i][j] is the cost of serving location i from median j.
	// The matrix is not required to be symmetric.
	distances [][]int64

	demands    []int64
	capacities []int64
}

// NewInstance validates and copies the given problem data.
// nclusters is the number p of medians to be selected.
func NewInstance(nclusters int, distances [][]int64, demands, capacities []int64) (*Instance, error) {
	n := len(distances)
	if n == 0 {
		return nil, errors.New("instance has no locations")
	}
	if nclusters < 1 {
		return nil, errors.Errorf("number of clusters must be positive, got %d", nclusters)
	}
	if nclusters > n {
		return nil, errors.Errorf("number of clusters %d exceeds number of locations %d", nclusters, n)
	}
	if len(demands) != n {
		return nil, errors.Errorf("demand vector has length %d, need %d", len(demands), n)
	}
	if len(capacities) != n {
		return nil, errors.Errorf("capacity vector has length %d, need %d", len(capacities), n)
	}

	inst := &Instance{
		nlocations: n,
		nclusters:  nclusters,
		distances:  make([][]int64, n),
		demands:    make([]int64, n),
		capacities: make([]int64, n),
	}

	for i, row := range distances {
		if len(row) != n {
			return nil, errors.Errorf("distance matrix row %d has length %d, need %d", i, len(row), n)
		}
		inst.distances[i] = make([]int64, n)
		for j, d := range row {
			if d < 0 {
				return nil, errors.Errorf("negative distance %d at (%d,%d)", d, i, j)
			}
			inst.distances[i][j] = d
		}
	}
	for i := 0; i < n; i++ {
		if demands[i] < 0 {
			return nil, errors.Errorf("negative demand %d for location %d", demands[i], i)
		}
		if capacities[i] < 0 {
			return nil, errors.Errorf("negative capacity %d for location %d", capacities[i], i)
		}
		inst.demands[i] = demands[i]
		inst.capacities[i] = capacities[i]
	}

	return inst, nil
}

// NumLocations returns the number of locations n.
func (inst *Instance) NumLocations() int { return inst.nlocations }

// NumClusters returns the number p of clusters to form.
func (inst *Instance) NumClusters() int { return inst.nclusters }

// Distance returns the cost of serving location from median.
func (inst *Instance) Distance(location, median int) int64 {
	return inst.distances[location][median]
}

// Demand returns the demand of a location.
func (inst *Instance) Demand(location int) int64 { return inst.demands[location] }

// Capacity returns the capacity of a location when used as a median.
func (inst *Instance) Capacity(location int) int64 { return inst.capacities[location] }

// String renders the raw instance data, mostly useful for debugging small
// instances.
func (inst *Instance) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "nlocations  : %3d\n", inst.nlocations)
	fmt.Fprintf(&b, "nclusters   : %3d\n", inst.nclusters)

	b.WriteString("distances   :\n")
	for i := 0; i < inst.nlocations; i++ {
		b.WriteString("   ")
		for j := 0; j < inst.nlocations; j++ {
			fmt.Fprintf(&b, " %4d", inst.distances[i][j])
		}
		b.WriteByte('\n')
	}

	b.WriteString("demands     :")
	for i := 0; i < inst.nlocations; i++ {
		fmt.Fprintf(&b, " %4d", inst.demands[i])
	}
	b.WriteByte('\n')

	b.WriteString("capacities  :")
	for i := 0; i < inst.nlocations; i++ {
		fmt.Fprintf(&b, " %4d", inst.capacities[i])
	}
	b.WriteByte('\n')

	return b.String()
}
