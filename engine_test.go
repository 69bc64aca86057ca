package minlp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildLPTestProblem is the classic two-variable textbook LP:
// minimize -x - 2y subject to -x+2y<=4, 3x+y<=9, x,y>=0.
// Optimal is x=2, y=3, obj=-8.
func buildLPTestProblem() *Problem {
	p := NewProblem("lp")
	x := p.AddVariable("x", Continuous)
	y := p.AddVariable("y", Continuous)
	x.Ub, y.Ub = posInf, posInf

	p.ObjGraph = NewLinearGraph([]*Variable{x, y}, []float64{-1, -2})
	p.AddConstraint("c1", NewLinearGraph([]*Variable{x, y}, []float64{-1, 2}), negInf, 4)
	p.AddConstraint("c2", NewLinearGraph([]*Variable{x, y}, []float64{3, 1}), negInf, 9)
	return p
}

func TestLPEngine_Solve_Optimal(t *testing.T) {
	p := buildLPTestProblem()
	rel := RelaxInitFull(p)
	e := NewLPEngine()
	e.Load(rel)

	status := e.Solve()
	require.Equal(t, ProvenOptimal, status)

	sol := e.Solution()
	require.NotNil(t, sol)
	assert.InDelta(t, -8.0, sol.Obj, 1e-6)
	assert.InDelta(t, 2.0, sol.X[0], 1e-6)
	assert.InDelta(t, 3.0, sol.X[1], 1e-6)
}

func TestLPEngine_ChangeBound_Resyncs(t *testing.T) {
	p := buildLPTestProblem()
	rel := RelaxInitFull(p)
	e := NewLPEngine()
	e.Load(rel)
	e.Solve()

	// Tighten x to [0,1]; the optimum must move off (2,3).
	e.ChangeBound(0, 0, 1)
	status := e.Solve()
	require.Equal(t, ProvenOptimal, status)
	sol := e.Solution()
	assert.LessOrEqual(t, sol.X[0], 1.0+1e-9)
}

func TestLPEngine_Infeasible(t *testing.T) {
	p := NewProblem("infeasible")
	x := p.AddVariable("x", Continuous)
	p.ObjGraph = NewLinearGraph([]*Variable{x}, []float64{1})
	p.AddConstraint("c1", NewLinearGraph([]*Variable{x}, []float64{1}), negInf, 1)
	p.AddConstraint("c2", NewLinearGraph([]*Variable{x}, []float64{1}), negInf, -5)
	x.Lb = 0

	rel := RelaxInitFull(p)
	e := NewLPEngine()
	e.Load(rel)
	status := e.Solve()
	assert.Equal(t, ProvenInfeasible, status)
}

func TestLPEngine_ObjectiveCutOff(t *testing.T) {
	p := buildLPTestProblem()
	rel := RelaxInitFull(p)
	e := NewLPEngine()
	e.Load(rel)
	e.SetDualObjLimit(-9) // the true optimum (-8) is >= -9, so it must be reported cut off.

	status := e.Solve()
	assert.Equal(t, ProvenObjectiveCutOff, status)
}

func TestLookupEngine(t *testing.T) {
	e, err := LookupEngine("gonum-lp")
	require.NoError(t, err)
	assert.NotNil(t, e)

	_, err = LookupEngine("does-not-exist")
	assert.Error(t, err)
}

func TestWarmStart_RefCounting(t *testing.T) {
	ws := &WarmStart{}
	assert.Equal(t, 0, ws.UseCnt())
	ws.IncrUseCnt()
	ws.IncrUseCnt()
	assert.Equal(t, 2, ws.UseCnt())
	ws.DecrUseCnt()
	assert.Equal(t, 1, ws.UseCnt())
}
