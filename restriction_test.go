package cpmp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// boundStub implements ColumnFixer for driving propagation in tests.
type boundStub struct {
	fixed map[int]bool
}

func newBoundStub() *boundStub { return &boundStub{fixed: make(map[int]bool)} }

func (b *boundStub) FixToZero(col int)   { b.fixed[col] = true }
func (b *boundStub) IsFixed(col int) bool { return b.fixed[col] }

func TestRestrictionsIdempotence(t *testing.T) {
	r := NewRestrictions(4)
	mask := []bool{true, false, true, false}

	assert.False(t, r.IsAssignmentForbidden(0, 2))

	r.ForbidAssignments(2, mask)
	assert.True(t, r.IsAssignmentForbidden(0, 2))
	assert.False(t, r.IsAssignmentForbidden(1, 2))
	assert.True(t, r.IsAssignmentForbidden(2, 2))
	assert.False(t, r.IsAssignmentForbidden(0, 1), "other locations untouched")

	// forbidding twice then allowing once restores the pre-forbid state
	r.ForbidAssignments(2, mask)
	r.AllowAssignments(2, mask)
	for m := 0; m < 4; m++ {
		assert.False(t, r.IsAssignmentForbidden(m, 2))
	}

	// allowing a never-forbidden pair is a no-op
	r.AllowAssignments(1, mask)
	for m := 0; m < 4; m++ {
		assert.False(t, r.IsAssignmentForbidden(m, 1))
	}
}

func TestSemiAssignConsStateMachine(t *testing.T) {
	r := NewRestrictions(3)
	cons := NewSemiAssignCons(1, []bool{true, false, true})

	assert.Equal(t, ConsPending, cons.State())
	assert.Error(t, cons.Deactivate(r), "pending constraint cannot deactivate")

	require.NoError(t, cons.Activate(r))
	assert.Equal(t, ConsActive, cons.State())
	assert.True(t, r.IsAssignmentForbidden(0, 1))
	assert.True(t, r.IsAssignmentForbidden(2, 1))
	assert.False(t, r.IsAssignmentForbidden(1, 1))

	assert.Error(t, cons.Activate(r), "active constraint cannot activate again")
	assert.Error(t, cons.Delete(), "active constraint cannot be deleted")

	require.NoError(t, cons.Deactivate(r))
	assert.Equal(t, ConsInactive, cons.State())
	assert.False(t, r.IsAssignmentForbidden(0, 1))
	assert.False(t, r.IsAssignmentForbidden(2, 1))

	// an inactive constraint may be re-activated
	require.NoError(t, cons.Activate(r))
	assert.True(t, r.IsAssignmentForbidden(0, 1))
	require.NoError(t, cons.Deactivate(r))

	require.NoError(t, cons.Delete())
	assert.Equal(t, ConsDeleted, cons.State())
	assert.Error(t, cons.Activate(r), "deleted constraint cannot activate")
}

func TestSemiAssignConsPropagate(t *testing.T) {
	inst := testInstance4(t)
	ma := NewMaster(inst)
	r := NewRestrictions(4)

	// columns 0 and 1 assign location 1 to median 0; column 2 does not
	_, _, err := ma.Attach(NewColumn(inst, 0, []int{0, 1}))
	require.NoError(t, err)
	_, _, err = ma.Attach(NewColumn(inst, 0, []int{1}))
	require.NoError(t, err)
	_, _, err = ma.Attach(NewColumn(inst, 2, []int{1, 2}))
	require.NoError(t, err)

	cons := NewSemiAssignCons(1, []bool{true, false, false, false})
	bounds := newBoundStub()

	_, err = cons.Propagate(ma, bounds)
	assert.Error(t, err, "pending constraint cannot propagate")

	require.NoError(t, cons.Activate(r))
	fixed, err := cons.Propagate(ma, bounds)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, fixed)
	assert.True(t, bounds.IsFixed(0))
	assert.True(t, bounds.IsFixed(1))
	assert.False(t, bounds.IsFixed(2), "column with a different median stays")

	// a second propagation only scans columns attached since the first
	fixed, err = cons.Propagate(ma, bounds)
	require.NoError(t, err)
	assert.Empty(t, fixed)

	_, _, err = ma.Attach(NewColumn(inst, 0, []int{1, 0, 2}))
	require.NoError(t, err)
	_, _, err = ma.Attach(NewColumn(inst, 1, []int{1}))
	require.NoError(t, err)

	fixed, err = cons.Propagate(ma, bounds)
	require.NoError(t, err)
	assert.Equal(t, []int{3}, fixed, "only the new column with the forbidden median is fixed")
}
