package minlp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuadraticHandler_ClassifiesConvexUpper(t *testing.T) {
	p := NewProblem("t")
	x := p.AddVariable("x", Continuous)
	y := p.AddVariable("y", Continuous)
	x.Ub, y.Ub = 10, 10
	// x^2 + y^2 <= 4, convex quadratic with an upper bound.
	p.AddConstraint("q", NewQuadraticGraph([]*Variable{x, y}, [][]float64{{1, 0}, {0, 1}}, []float64{0, 0}), negInf, 4)
	rel := RelaxInitFull(p)

	h := NewQuadraticHandler(DefaultOptions(), rel)
	require.Len(t, h.cons, 1)
	assert.Equal(t, quadConvexUpper, h.cons[0].kind)
	assert.Equal(t, 4.0, h.cons[0].rhs)
}

func TestQuadraticHandler_ClassifiesBilinear(t *testing.T) {
	p := NewProblem("t")
	x := p.AddVariable("x", Continuous)
	y := p.AddVariable("y", Continuous)
	x.Lb, x.Ub = 0, 4
	y.Lb, y.Ub = 0, 4
	// x*y <= 10, indefinite bilinear term.
	q := [][]float64{{0, 0.5}, {0.5, 0}}
	p.AddConstraint("bl", NewQuadraticGraph([]*Variable{x, y}, q, []float64{0, 0}), negInf, 10)
	rel := RelaxInitFull(p)

	h := NewQuadraticHandler(DefaultOptions(), rel)
	require.Len(t, h.cons, 1)
	assert.Equal(t, quadBilinear, h.cons[0].kind)
}

func TestQuadraticHandler_Separate_ConvexUpperAddsTangentCut(t *testing.T) {
	p := NewProblem("t")
	x := p.AddVariable("x", Continuous)
	y := p.AddVariable("y", Continuous)
	x.Ub, y.Ub = 10, 10
	p.AddConstraint("q", NewQuadraticGraph([]*Variable{x, y}, [][]float64{{1, 0}, {0, 1}}, []float64{0, 0}), negInf, 4)
	rel := RelaxInitFull(p)

	h := NewQuadraticHandler(DefaultOptions(), rel)
	// (3,3): x^2+y^2 = 18, violates <= 4.
	sol := &Solution{X: []float64{3, 3}}
	_, rMods, solFound, status := h.Separate(sol, &Node{}, rel, NewSolutionPool())
	require.Equal(t, SepaResolve, status)
	require.False(t, solFound)
	require.Len(t, rMods, 1)

	before := len(rel.Constraints)
	rMods[0].Apply(rel)
	assert.Equal(t, before+1, len(rel.Constraints))

	// The new cut must itself be violated at (3,3) (else it wouldn't help
	// separate the infeasible point) but satisfied at the feasible origin.
	cut := rel.Constraints[len(rel.Constraints)-1]
	assert.Greater(t, cut.Graph.Eval([]float64{3, 3}), cut.U+1e-9)
	assert.LessOrEqual(t, cut.Graph.Eval([]float64{0, 0}), cut.U+1e-9)
}

func TestQuadraticHandler_Separate_NoOpWhenFeasible(t *testing.T) {
	p := NewProblem("t")
	x := p.AddVariable("x", Continuous)
	y := p.AddVariable("y", Continuous)
	x.Ub, y.Ub = 10, 10
	p.AddConstraint("q", NewQuadraticGraph([]*Variable{x, y}, [][]float64{{1, 0}, {0, 1}}, []float64{0, 0}), negInf, 4)
	rel := RelaxInitFull(p)

	h := NewQuadraticHandler(DefaultOptions(), rel)
	sol := &Solution{X: []float64{1, 1}} // 1+1=2 <= 4, feasible.
	_, rMods, _, status := h.Separate(sol, &Node{}, rel, NewSolutionPool())
	assert.Equal(t, SepaContinue, status)
	assert.Empty(t, rMods)
}

func TestQuadraticHandler_Separate_McCormickEnvelope(t *testing.T) {
	p := NewProblem("t")
	x := p.AddVariable("x", Continuous)
	y := p.AddVariable("y", Continuous)
	x.Lb, x.Ub = 0, 4
	y.Lb, y.Ub = 0, 4
	q := [][]float64{{0, 0.5}, {0.5, 0}}
	p.AddConstraint("bl", NewQuadraticGraph([]*Variable{x, y}, q, []float64{0, 0}), negInf, 10)
	rel := RelaxInitFull(p)

	h := NewQuadraticHandler(DefaultOptions(), rel)
	sol := &Solution{X: []float64{2, 2}}
	_, rMods, _, status := h.Separate(sol, &Node{}, rel, NewSolutionPool())
	require.Equal(t, SepaResolve, status)
	require.Len(t, rMods, 2) // only the U-side pair, since L is -Inf.

	// Calling Separate again with the same box must not re-add the cuts.
	_, rMods2, _, status2 := h.Separate(sol, &Node{}, rel, NewSolutionPool())
	assert.Equal(t, SepaContinue, status2)
	assert.Empty(t, rMods2)
}

func TestQuadraticHandler_PresolveNode_TightensBound(t *testing.T) {
	p := NewProblem("t")
	x := p.AddVariable("x", Continuous)
	x.Lb, x.Ub = -10, 10
	// x^2 <= 4  =>  x in [-2, 2].
	p.AddConstraint("q", NewQuadraticGraph([]*Variable{x}, [][]float64{{1}}, []float64{0}), negInf, 4)
	rel := RelaxInitFull(p)

	h := NewQuadraticHandler(DefaultOptions(), rel)
	_, rMods, isInf := h.PresolveNode(rel, &Node{}, NewSolutionPool())
	require.False(t, isInf)
	require.NotEmpty(t, rMods)
	assert.InDelta(t, -2.0, rel.Variables[0].Lb, 1e-6)
	assert.InDelta(t, 2.0, rel.Variables[0].Ub, 1e-6)
}

func TestQuadraticRootBounds(t *testing.T) {
	// v^2 - 4 <= 0  =>  v in [-2,2].
	lo, hi, ok := quadraticRootBounds(1, 0, -4)
	require.True(t, ok)
	assert.InDelta(t, -2.0, lo, 1e-9)
	assert.InDelta(t, 2.0, hi, 1e-9)
}
