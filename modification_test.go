package minlp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestRelaxation() *Relaxation {
	p := NewProblem("t")
	x := p.AddVariable("x", Continuous)
	y := p.AddVariable("y", Continuous)
	lin := NewLinearGraph([]*Variable{x, y}, []float64{1, 1})
	p.AddConstraint("c", lin, 0, 10)
	return RelaxInitFull(p)
}

func TestBoundChg_ApplyUndo(t *testing.T) {
	rel := newTestRelaxation()
	oldLb, oldUb := rel.Variables[0].Lb, rel.Variables[0].Ub

	m := NewBoundChg(0, 2, 8, ScopeNodeLocal)
	m.Apply(rel)
	assert.Equal(t, 2.0, rel.Variables[0].Lb)
	assert.Equal(t, 8.0, rel.Variables[0].Ub)

	m.Undo(rel)
	assert.Equal(t, oldLb, rel.Variables[0].Lb)
	assert.Equal(t, oldUb, rel.Variables[0].Ub)
}

func TestRhsChg_ApplyUndo(t *testing.T) {
	rel := newTestRelaxation()
	oldL, oldU := rel.Constraints[0].L, rel.Constraints[0].U

	m := NewRhsChg(0, 1, 5, ScopeGlobal)
	m.Apply(rel)
	assert.Equal(t, 1.0, rel.Constraints[0].L)
	assert.Equal(t, 5.0, rel.Constraints[0].U)

	m.Undo(rel)
	assert.Equal(t, oldL, rel.Constraints[0].L)
	assert.Equal(t, oldU, rel.Constraints[0].U)
}

func TestCoefChg_ApplyUndo(t *testing.T) {
	rel := newTestRelaxation()
	g := rel.Constraints[0].Graph
	oldCoef := g.nodes[g.root].coefs[0]

	m := NewCoefChg(0, 0, 99, ScopeNodeLocal)
	m.Apply(rel)
	assert.Equal(t, 99.0, g.nodes[g.root].coefs[0])

	m.Undo(rel)
	assert.Equal(t, oldCoef, g.nodes[g.root].coefs[0])
}

func TestAddCon_ApplyUndo(t *testing.T) {
	rel := newTestRelaxation()
	before := len(rel.Constraints)

	lin := NewLinearGraph(rel.Variables, []float64{1, -1})
	m := NewAddCon("cut", lin, negInf, 0, ScopeNodeLocal)
	m.Apply(rel)
	assert.Equal(t, before+1, len(rel.Constraints))
	assert.Equal(t, -1, rel.OrigCon[len(rel.OrigCon)-1])

	m.Undo(rel)
	assert.Equal(t, before, len(rel.Constraints))
}

func TestDelCon_ApplyUndo(t *testing.T) {
	rel := newTestRelaxation()
	before := len(rel.Constraints)
	name := rel.Constraints[0].Name
	origCon := rel.OrigCon[0]

	m := NewDelCon(0, ScopeGlobal)
	m.Apply(rel)
	assert.Equal(t, before-1, len(rel.Constraints))

	m.Undo(rel)
	assert.Equal(t, before, len(rel.Constraints))
	assert.Equal(t, name, rel.Constraints[len(rel.Constraints)-1].Name)
	assert.Equal(t, origCon, rel.OrigCon[len(rel.OrigCon)-1])
}

func TestFixVar_ApplyUndo(t *testing.T) {
	rel := newTestRelaxation()
	oldLb, oldUb := rel.Variables[0].Lb, rel.Variables[0].Ub

	m := NewFixVar(0, 3, ScopeGlobal)
	m.Apply(rel)
	assert.Equal(t, 3.0, rel.Variables[0].Lb)
	assert.Equal(t, 3.0, rel.Variables[0].Ub)
	assert.False(t, rel.Variables[0].Active)

	m.Undo(rel)
	assert.Equal(t, oldLb, rel.Variables[0].Lb)
	assert.Equal(t, oldUb, rel.Variables[0].Ub)
	assert.True(t, rel.Variables[0].Active)
}

func TestApplyAllUndoAll_RoundTrip(t *testing.T) {
	rel := newTestRelaxation()
	snapshotLb, snapshotUb := rel.Variables[0].Lb, rel.Variables[1].Ub

	mods := []Modification{
		NewBoundChg(0, 1, 2, ScopeNodeLocal),
		NewBoundChg(1, 3, 4, ScopeNodeLocal),
	}
	ApplyAll(rel, mods)
	assert.Equal(t, 1.0, rel.Variables[0].Lb)
	assert.Equal(t, 4.0, rel.Variables[1].Ub)

	UndoAll(rel, mods)
	assert.Equal(t, snapshotLb, rel.Variables[0].Lb)
	assert.Equal(t, snapshotUb, rel.Variables[1].Ub)
}
