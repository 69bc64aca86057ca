package minlp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProblem_AddVariable_Defaults(t *testing.T) {
	p := NewProblem("t")
	v := p.AddVariable("x", Continuous)
	assert.Equal(t, 0, v.Index)
	assert.Equal(t, 0.0, v.Lb)
	assert.Equal(t, posInf, v.Ub)
	assert.True(t, v.Active)

	b := p.AddVariable("y", Binary)
	assert.Equal(t, 1, b.Index)
	assert.Equal(t, 0.0, b.Lb)
	assert.Equal(t, 1.0, b.Ub)
}

func TestProblem_AddConstraint_ClassifiesFunc(t *testing.T) {
	p := NewProblem("t")
	x := p.AddVariable("x", Continuous)
	y := p.AddVariable("y", Continuous)

	lin := NewLinearGraph([]*Variable{x, y}, []float64{1, 2})
	c := p.AddConstraint("c1", lin, negInf, 10)
	assert.Equal(t, FuncLinear, c.Func)
	assert.False(t, c.IsEquality())
	assert.False(t, c.IsRange())

	q := NewQuadraticGraph([]*Variable{x, y}, [][]float64{{1, 0}, {0, 1}}, []float64{0, 0})
	c2 := p.AddConstraint("c2", q, 0, 4)
	assert.Equal(t, FuncQuadratic, c2.Func)
	assert.True(t, c2.IsRange())
}

func TestProblem_CalculateSize(t *testing.T) {
	p := NewProblem("t")
	p.AddVariable("x", Continuous)
	p.AddVariable("i", Integer)
	p.AddVariable("b", Binary)
	lin := NewLinearGraph(p.Variables, []float64{1, 1, 1})
	p.AddConstraint("c", lin, negInf, 1)

	s := p.Size()
	assert.Equal(t, 3, s.Vars)
	assert.Equal(t, 1, s.Integers)
	assert.Equal(t, 1, s.Binaries)
	assert.Equal(t, 1, s.Cons)
	assert.Equal(t, 1, s.LinCons)
}

func TestVariable_IsFixed(t *testing.T) {
	v := &Variable{Type: Continuous, Lb: 1, Ub: 1}
	assert.True(t, v.IsFixed(1e-5))

	iv := &Variable{Type: Integer, Lb: 1, Ub: 1 + 1e-7}
	assert.True(t, iv.IsFixed(1e-5))

	iv2 := &Variable{Type: Integer, Lb: 1, Ub: 2}
	assert.False(t, iv2.IsFixed(1e-5))
}

func TestCGraph_EvalAndGrad_Linear(t *testing.T) {
	p := NewProblem("t")
	x := p.AddVariable("x", Continuous)
	y := p.AddVariable("y", Continuous)
	g := NewLinearGraph([]*Variable{x, y}, []float64{2, -3})

	assert.Equal(t, 2*5.0-3*1.0, g.Eval([]float64{5, 1}))

	grad := make([]float64, 2)
	g.Grad([]float64{5, 1}, grad)
	assert.Equal(t, []float64{2, -3}, grad)
}

func TestCGraph_EvalAndGrad_Quadratic(t *testing.T) {
	p := NewProblem("t")
	x := p.AddVariable("x", Continuous)
	y := p.AddVariable("y", Continuous)
	// f(x,y) = x^2 + y^2
	g := NewQuadraticGraph([]*Variable{x, y}, [][]float64{{1, 0}, {0, 1}}, []float64{0, 0})

	assert.Equal(t, 4.0+9.0, g.Eval([]float64{2, 3}))

	grad := make([]float64, 2)
	g.Grad([]float64{2, 3}, grad)
	assert.Equal(t, []float64{4, 6}, grad)
}

func TestCGraph_IsConvexQuadratic(t *testing.T) {
	x := &Variable{Index: 0}
	y := &Variable{Index: 1}
	convex := NewQuadraticGraph([]*Variable{x, y}, [][]float64{{1, 0}, {0, 1}}, []float64{0, 0})
	assert.True(t, convex.IsConvexQuadratic())

	indefinite := NewQuadraticGraph([]*Variable{x, y}, [][]float64{{0, 0.5}, {0.5, 0}}, []float64{0, 0})
	assert.False(t, indefinite.IsConvexQuadratic())
}

func TestCGraph_EvalInterval_Linear(t *testing.T) {
	x := &Variable{Index: 0}
	y := &Variable{Index: 1}
	g := NewLinearGraph([]*Variable{x, y}, []float64{2, -3})
	iv := g.EvalInterval([]Interval{{0, 1}, {0, 1}})
	assert.Equal(t, Interval{-3, 2}, iv)
}
