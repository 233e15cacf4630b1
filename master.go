package cpmp

import (
	"github.com/pkg/errors"
)

// Master holds the constraint structure of the restricted master problem and
// the columns generated so far. The three constraint families are created
// empty, before any column exists:
//
//   - one coverage row per location: at least one chosen cluster must
//     contain the location as a member;
//   - one convexity row per potential median: at most one cluster may use
//     the location as its median;
//   - a single cardinality row: at most p clusters may be chosen in total.
//
// Columns enter the relaxation exclusively through Attach and are never
// detached again, so the rows only ever grow.
type Master struct {
	inst *Instance

	columns []*Column
	index   map[string]int

	// coverage[l] lists the indices of columns containing location l.
	coverage [][]int

	// convexity[m] lists the indices of columns whose median is m.
	convexity [][]int

	// cardinality lists all column indices; every column enters the
	// p-median row with coefficient 1.
	cardinality []int
}

// NewMaster creates the master constraint set for an instance with empty
// column lists.
func NewMaster(inst *Instance) *Master {
	n := inst.NumLocations()
	return &Master{
		inst:      inst,
		index:     make(map[string]int),
		coverage:  make([][]int, n),
		convexity: make([][]int, n),
	}
}

// Attach adds a column to its coverage rows, its convexity row and the
// cardinality row, each with coefficient 1, and returns the column's index.
// A column equal to an already attached one (same median, same member set)
// is not attached again; ok is false in that case and the existing index is
// returned.
func (ma *Master) Attach(col *Column) (idx int, ok bool, err error) {
	n := ma.inst.NumLocations()
	if col.Median < 0 || col.Median >= n {
		return 0, false, errors.Errorf("column median %d out of range", col.Median)
	}
	if len(col.Members) == 0 {
		return 0, false, errors.New("column has no members")
	}
	for _, l := range col.Members {
		if l < 0 || l >= n {
			return 0, false, errors.Errorf("column member %d out of range", l)
		}
	}

	key := col.key()
	if prev, dup := ma.index[key]; dup {
		return prev, false, nil
	}

	idx = len(ma.columns)
	ma.columns = append(ma.columns, col)
	ma.index[key] = idx

	for _, l := range col.Members {
		ma.coverage[l] = append(ma.coverage[l], idx)
	}
	ma.convexity[col.Median] = append(ma.convexity[col.Median], idx)
	ma.cardinality = append(ma.cardinality, idx)

	return idx, true, nil
}

// NumColumns returns the number of attached columns.
func (ma *Master) NumColumns() int { return len(ma.columns) }

// Column returns the column at the given index.
func (ma *Master) Column(idx int) *Column { return ma.columns[idx] }

// Covering returns the indices of columns containing the location as member,
// i.e. the column list of the location's coverage row.
func (ma *Master) Covering(location int) []int { return ma.coverage[location] }

// WithMedian returns the indices of columns whose median is the given
// location, i.e. the column list of the location's convexity row.
func (ma *Master) WithMedian(median int) []int { return ma.convexity[median] }

// Instance returns the instance the master was built for.
func (ma *Master) Instance() *Instance { return ma.inst }
