package cpmp

import (
	"fmt"

	"github.com/pkg/errors"
)

// Restrictions records which (median, location) assignments are forbidden by
// the branching decisions on the path from the root to the node currently
// being explored. It is mutated exclusively by activating and deactivating
// semi-assignment constraints, which the search driver does in strict stack
// order, so the matrix always equals the union of the active path's
// decisions.
//
// ForbidAssignments, AllowAssignments and IsAssignmentForbidden form the
// sole interface through which this state is read and written. Both
// mutations are idempotent: forbidding an already forbidden pair or allowing
// a never forbidden one is a no-op.
type Restrictions struct {
	n int

	// forbidden[median][location]
	forbidden [][]bool
}

// NewRestrictions creates an empty restriction state for n locations.
func NewRestrictions(n int) *Restrictions {
	r := &Restrictions{
		n:         n,
		forbidden: make([][]bool, n),
	}
	for m := range r.forbidden {
		r.forbidden[m] = make([]bool, n)
	}
	return r
}

// ForbidAssignments forbids serving location from every median whose entry
// in the mask is true.
func (r *Restrictions) ForbidAssignments(location int, forbiddenMedians []bool) {
	for m, f := range forbiddenMedians {
		if f {
			r.forbidden[m][location] = true
		}
	}
}

// AllowAssignments re-allows serving location from every median whose entry
// in the mask is true.
func (r *Restrictions) AllowAssignments(location int, forbiddenMedians []bool) {
	for m, f := range forbiddenMedians {
		if f {
			r.forbidden[m][location] = false
		}
	}
}

// IsAssignmentForbidden reports whether location may currently not be served
// by median.
func (r *Restrictions) IsAssignmentForbidden(median, location int) bool {
	return r.forbidden[median][location]
}

// ConsState is the lifecycle state of a semi-assignment constraint.
type ConsState int

const (
	// ConsPending: created by branching but not yet active on the search path.
	ConsPending ConsState = iota
	// ConsActive: on the path to the node currently being explored; its
	// forbidden pairs are part of the restriction state.
	ConsActive
	// ConsInactive: the node has been left; the contribution to the
	// restriction state is removed. Columns it fixed stay fixed until the
	// engine restores their node-local bounds.
	ConsInactive
	// ConsDeleted: the node was backtracked past for good.
	ConsDeleted
)

func (s ConsState) String() string {
	switch s {
	case ConsPending:
		return "pending"
	case ConsActive:
		return "active"
	case ConsInactive:
		return "inactive"
	case ConsDeleted:
		return "deleted"
	}
	return fmt.Sprintf("ConsState(%d)", int(s))
}

// ColumnFixer is the engine capability used during propagation to fix an
// existing column's value to zero. IsFixed lets propagation skip columns
// whose bound already excludes them.
type ColumnFixer interface {
	FixToZero(col int)
	IsFixed(col int) bool
}

// SemiAssignCons is the branching constraint of the semi-assignment scheme:
// for one location, a set of medians that may not serve it in the subtree
// rooted at the constraint's node. The constraint walks through the states
// pending -> active -> inactive -> deleted as the search enters and leaves
// its node.
type SemiAssignCons struct {
	location  int
	forbidden []bool

	state ConsState

	// number of master columns already examined by propagation; a
	// re-propagation only scans columns attached since then.
	scanned int
}

// NewSemiAssignCons creates a pending constraint forbidding the masked
// medians for the given location. The mask is copied.
func NewSemiAssignCons(location int, forbiddenMedians []bool) *SemiAssignCons {
	mask := make([]bool, len(forbiddenMedians))
	copy(mask, forbiddenMedians)
	return &SemiAssignCons{
		location:  location,
		forbidden: mask,
		state:     ConsPending,
	}
}

// Location returns the location the constraint restricts.
func (c *SemiAssignCons) Location() int { return c.location }

// Forbidden reports whether the constraint forbids the given median.
func (c *SemiAssignCons) Forbidden(median int) bool { return c.forbidden[median] }

// ForbiddenMask returns a copy of the constraint's full median mask.
func (c *SemiAssignCons) ForbiddenMask() []bool {
	mask := make([]bool, len(c.forbidden))
	copy(mask, c.forbidden)
	return mask
}

// State returns the constraint's lifecycle state.
func (c *SemiAssignCons) State() ConsState { return c.state }

// Activate marks the constraint active and merges its forbidden pairs into
// the restriction state. Only pending or inactive constraints may be
// activated.
func (c *SemiAssignCons) Activate(r *Restrictions) error {
	if c.state != ConsPending && c.state != ConsInactive {
		return errors.Errorf("cannot activate %s semi-assignment constraint", c.state)
	}
	r.ForbidAssignments(c.location, c.forbidden)
	c.state = ConsActive
	return nil
}

// Deactivate removes the constraint's forbidden pairs from the restriction
// state. Columns fixed by earlier propagations are deliberately left alone:
// restoring their bounds is the engine's node-local concern.
func (c *SemiAssignCons) Deactivate(r *Restrictions) error {
	if c.state != ConsActive {
		return errors.Errorf("cannot deactivate %s semi-assignment constraint", c.state)
	}
	r.AllowAssignments(c.location, c.forbidden)
	c.state = ConsInactive
	return nil
}

// Delete marks the constraint as permanently discarded.
func (c *SemiAssignCons) Delete() error {
	if c.state == ConsActive {
		return errors.New("cannot delete an active semi-assignment constraint")
	}
	c.state = ConsDeleted
	return nil
}

// Propagate fixes to zero every not yet scanned column whose cluster assigns
// the constraint's location to one of its forbidden medians. Only columns
// attached since the previous propagation are examined; columns generated by
// pricing under an active constraint already respect it, so they are scanned
// at most once. Returns the indices of the columns fixed by this call.
func (c *SemiAssignCons) Propagate(ma *Master, fixer ColumnFixer) ([]int, error) {
	if c.state != ConsActive {
		return nil, errors.Errorf("cannot propagate %s semi-assignment constraint", c.state)
	}

	var fixed []int
	nvars := ma.NumColumns()
	for i := c.scanned; i < nvars; i++ {
		col := ma.Column(i)
		if fixer.IsFixed(i) {
			continue
		}
		if c.forbidden[col.Median] && col.Contains(c.location) {
			fixer.FixToZero(i)
			fixed = append(fixed, i)
		}
	}
	c.scanned = nvars

	return fixed, nil
}
