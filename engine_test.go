package cpmp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testInstance2(t *testing.T) *Instance {
	t.Helper()
	inst, err := NewInstance(1,
		[][]int64{{0, 5}, {7, 0}},
		[]int64{1, 1},
		[]int64{2, 2},
	)
	require.NoError(t, err)
	return inst
}

func TestSimplexRelaxerFeasible(t *testing.T) {
	inst := testInstance2(t)
	ma := NewMaster(inst)
	_, _, err := ma.Attach(NewColumn(inst, 0, []int{0, 1}))
	require.NoError(t, err)

	var sr SimplexRelaxer
	rel, err := sr.Solve(ma, []bool{false})
	require.NoError(t, err)

	require.False(t, rel.Infeasible)
	assert.InDelta(t, 7.0, rel.Z, 1e-6)
	require.Len(t, rel.Values, 1)
	assert.InDelta(t, 1.0, rel.Values[0], 1e-6)
	assert.Nil(t, rel.Farkas)

	duals := rel.Duals
	require.NotNil(t, duals)

	// sign conventions of the dual solution
	for i := 0; i < 2; i++ {
		assert.GreaterOrEqual(t, duals.Coverage[i], -1e-6)
		assert.LessOrEqual(t, duals.Convexity[i], 1e-6)
	}
	assert.LessOrEqual(t, duals.Cardinality, 1e-6)

	// the single column is basic, so its dual constraint is tight: the duals
	// it touches sum to its cost
	tight := duals.Coverage[0] + duals.Coverage[1] + duals.Convexity[0] + duals.Cardinality
	assert.InDelta(t, 7.0, tight, 1e-6)

	// strong duality
	total := duals.Coverage[0] + duals.Coverage[1]
	for i := 0; i < 2; i++ {
		total += duals.Convexity[i]
	}
	total += float64(inst.NumClusters()) * duals.Cardinality
	assert.InDelta(t, rel.Z, total, 1e-6)

	assert.InDelta(t, 0.0, duals.Convexity[1], 1e-6, "unused median carries a zero dual")
}

func TestSimplexRelaxerPicksCheaperColumn(t *testing.T) {
	inst := testInstance2(t)
	ma := NewMaster(inst)
	_, _, err := ma.Attach(NewColumn(inst, 0, []int{0, 1}))
	require.NoError(t, err)
	_, _, err = ma.Attach(NewColumn(inst, 1, []int{0, 1}))
	require.NoError(t, err)

	var sr SimplexRelaxer
	rel, err := sr.Solve(ma, []bool{false, false})
	require.NoError(t, err)
	require.False(t, rel.Infeasible)
	assert.InDelta(t, 5.0, rel.Z, 1e-6)
	assert.InDelta(t, 1.0, rel.Values[1], 1e-6)
	assert.InDelta(t, 0.0, rel.Values[0], 1e-6)

	// fixing the cheaper column to zero forces the other one
	rel, err = sr.Solve(ma, []bool{false, true})
	require.NoError(t, err)
	require.False(t, rel.Infeasible)
	assert.InDelta(t, 7.0, rel.Z, 1e-6)
	assert.InDelta(t, 1.0, rel.Values[0], 1e-6)
	assert.InDelta(t, 0.0, rel.Values[1], 1e-6, "fixed columns report a zero value")
}

func TestSimplexRelaxerCanonicalRay(t *testing.T) {
	inst := testInstance2(t)
	ma := NewMaster(inst)
	_, _, err := ma.Attach(NewColumn(inst, 0, []int{0, 1}))
	require.NoError(t, err)

	// with its only column fixed the master is trivially infeasible
	var sr SimplexRelaxer
	rel, err := sr.Solve(ma, []bool{true})
	require.NoError(t, err)
	require.True(t, rel.Infeasible)
	require.NotNil(t, rel.Farkas)
	assert.Nil(t, rel.Duals)
	assert.Equal(t, []float64{1, 1}, rel.Farkas.Coverage)
	assert.Equal(t, []float64{0, 0}, rel.Farkas.Convexity)
	assert.InDelta(t, 0.0, rel.Farkas.Cardinality, 1e-9)
}

func TestSimplexRelaxerFarkasCertificate(t *testing.T) {
	inst := testInstance2(t)
	ma := NewMaster(inst)

	// location 1 is covered by no column, so the relaxation is infeasible
	// and a nontrivial certificate is needed
	_, _, err := ma.Attach(NewColumn(inst, 0, []int{0}))
	require.NoError(t, err)

	var sr SimplexRelaxer
	rel, err := sr.Solve(ma, []bool{false})
	require.NoError(t, err)
	require.True(t, rel.Infeasible)
	ray := rel.Farkas
	require.NotNil(t, ray)

	// the ray must score every existing column nonpositively...
	col := ma.Column(0)
	score := ray.Convexity[col.Median] + ray.Cardinality
	for _, l := range col.Members {
		score += ray.Coverage[l]
	}
	assert.LessOrEqual(t, score, 1e-6)

	// ...while proving the right hand sides unreachable
	value := ray.Coverage[0] + ray.Coverage[1] +
		ray.Convexity[0] + ray.Convexity[1] +
		float64(inst.NumClusters())*ray.Cardinality
	assert.Greater(t, value, 1e-6)
}

func TestSimplexRelaxerBoundMismatch(t *testing.T) {
	inst := testInstance2(t)
	ma := NewMaster(inst)

	var sr SimplexRelaxer
	_, err := sr.Solve(ma, []bool{false, false})
	assert.Error(t, err)
}
