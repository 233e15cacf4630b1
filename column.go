package cpmp

import (
	"fmt"
	"sort"
	"strings"
)

// Column represents one candidate cluster: a median location together with
// the set of locations it serves. A column is a decision variable of the
// master relaxation; its cost is the total distance of all members to the
// median. Columns are created during pricing and owned by the master once
// attached; they are never removed for the remainder of the run.
type Column struct {
	// Median is the location index acting as the cluster center.
	Median int

	// Members are the served locations in ascending order. The median
	// itself is usually a member, since its own coverage row must be
	// satisfied by some cluster containing it.
	Members []int

	// Cost is the sum of distances from all members to the median.
	Cost int64
}

// NewColumn builds a column for the given median and member set, computing
// its cost from the instance's distance matrix. The member slice is copied
// and sorted.
func NewColumn(inst *Instance, median int, members []int) *Column {
	ms := make([]int, len(members))
	copy(ms, members)
	sort.Ints(ms)

	var cost int64
	for _, l := range ms {
		cost += inst.Distance(l, median)
	}

	return &Column{
		Median:  median,
		Members: ms,
		Cost:    cost,
	}
}

// Contains reports whether the given location is a member of the cluster.
func (c *Column) Contains(location int) bool {
	i := sort.SearchInts(c.Members, location)
	return i < len(c.Members) && c.Members[i] == location
}

// TotalDemand sums the demand of all members.
func (c *Column) TotalDemand(inst *Instance) int64 {
	var d int64
	for _, l := range c.Members {
		d += inst.Demand(l)
	}
	return d
}

// key identifies a column up to equality of median and member set.
// Used by the master to deduplicate generated columns.
func (c *Column) key() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d:", c.Median)
	for i, l := range c.Members {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%d", l)
	}
	return b.String()
}

func (c *Column) String() string {
	return fmt.Sprintf("cluster{median: %d, members: %v, cost: %d}", c.Median, c.Members, c.Cost)
}
