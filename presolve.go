package cpmp

import (
	"sort"

	"github.com/pkg/errors"
)

// ScreenInstance performs cheap feasibility checks before any pricing or
// branching starts. It catches two kinds of provable infeasibility:
//
//   - a location whose demand exceeds every capacity can never be a member
//     of any capacity-feasible cluster, so its coverage row is hopeless;
//   - if even the p largest capacities cannot carry the total demand, no
//     selection of p medians can serve all locations.
//
// A nil result does not certify feasibility; it only means the search is
// worth starting.
func ScreenInstance(inst *Instance) error {
	n := inst.NumLocations()

	var maxcap int64
	caps := make([]int64, n)
	for i := 0; i < n; i++ {
		caps[i] = inst.Capacity(i)
		if caps[i] > maxcap {
			maxcap = caps[i]
		}
	}

	var totdemand int64
	for i := 0; i < n; i++ {
		d := inst.Demand(i)
		totdemand += d
		if d > maxcap {
			return errors.Wrapf(ErrInfeasible,
				"location %d has demand %d exceeding every capacity (max %d)", i, d, maxcap)
		}
	}

	sort.Slice(caps, func(a, b int) bool { return caps[a] > caps[b] })
	var topcap int64
	for i := 0; i < inst.NumClusters(); i++ {
		topcap += caps[i]
	}
	if topcap < totdemand {
		return errors.Wrapf(ErrInfeasible,
			"the %d largest capacities carry %d, total demand is %d", inst.NumClusters(), topcap, totdemand)
	}

	return nil
}
