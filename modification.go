package minlp

// ModScope says whether a Modification is valid only within the node that
// created it (reverted on backtrack) or globally (kept for the rest of the
// solve, e.g. a presolve-time tightening).
type ModScope int

const (
	ScopeNodeLocal ModScope = iota
	ScopeGlobal
)

// Modification is a reversible delta over a Relaxation.
// undo(apply(x)) must reproduce x bit-identically; every concrete kind
// below stores exactly the old state it needs to guarantee that.
type Modification interface {
	Apply(rel *Relaxation)
	Undo(rel *Relaxation)
	Scope() ModScope
}

// BoundChg changes a variable's lower and/or upper bound.
type BoundChg struct {
	VarIndex     int
	NewLb, NewUb float64
	oldLb, oldUb float64
	scope        ModScope
	applied      bool
}

func NewBoundChg(varIndex int, newLb, newUb float64, scope ModScope) *BoundChg {
	return &BoundChg{VarIndex: varIndex, NewLb: newLb, NewUb: newUb, scope: scope}
}

func (m *BoundChg) Apply(rel *Relaxation) {
	v := rel.Variables[m.VarIndex]
	m.oldLb, m.oldUb = v.Lb, v.Ub
	v.Lb, v.Ub = m.NewLb, m.NewUb
	m.applied = true
}

func (m *BoundChg) Undo(rel *Relaxation) {
	if !m.applied {
		return
	}
	v := rel.Variables[m.VarIndex]
	v.Lb, v.Ub = m.oldLb, m.oldUb
	m.applied = false
}

func (m *BoundChg) Scope() ModScope { return m.scope }

// RhsChg changes a constraint's two-sided bounds.
type RhsChg struct {
	ConIndex   int
	NewL, NewU float64
	oldL, oldU float64
	scope      ModScope
	applied    bool
}

func NewRhsChg(conIndex int, newL, newU float64, scope ModScope) *RhsChg {
	return &RhsChg{ConIndex: conIndex, NewL: newL, NewU: newU, scope: scope}
}

func (m *RhsChg) Apply(rel *Relaxation) {
	c := rel.Constraints[m.ConIndex]
	m.oldL, m.oldU = c.L, c.U
	c.L, c.U = m.NewL, m.NewU
	m.applied = true
}

func (m *RhsChg) Undo(rel *Relaxation) {
	if !m.applied {
		return
	}
	c := rel.Constraints[m.ConIndex]
	c.L, c.U = m.oldL, m.oldU
	m.applied = false
}

func (m *RhsChg) Scope() ModScope { return m.scope }

// CoefChg changes a single coefficient of a linear constraint's underlying
// CGraph. Only constraints built with NewLinearGraph are supported, since
// that's the only graph kind with a well-defined per-variable coefficient.
type CoefChg struct {
	ConIndex int
	ChildIdx int
	NewCoef  float64
	oldCoef  float64
	scope    ModScope
	applied  bool
}

func NewCoefChg(conIndex, childIdx int, newCoef float64, scope ModScope) *CoefChg {
	return &CoefChg{ConIndex: conIndex, ChildIdx: childIdx, NewCoef: newCoef, scope: scope}
}

func (m *CoefChg) Apply(rel *Relaxation) {
	g := rel.Constraints[m.ConIndex].Graph
	n := &g.nodes[g.root]
	m.oldCoef = n.coefs[m.ChildIdx]
	n.coefs[m.ChildIdx] = m.NewCoef
	m.applied = true
}

func (m *CoefChg) Undo(rel *Relaxation) {
	if !m.applied {
		return
	}
	g := rel.Constraints[m.ConIndex].Graph
	n := &g.nodes[g.root]
	n.coefs[m.ChildIdx] = m.oldCoef
	m.applied = false
}

func (m *CoefChg) Scope() ModScope { return m.scope }

// AddCon adds a new constraint (e.g. a separating cut) to the relaxation.
type AddCon struct {
	Name       string
	Graph      *CGraph
	L, U       float64
	scope      ModScope
	addedIndex int
	applied    bool
}

func NewAddCon(name string, graph *CGraph, l, u float64, scope ModScope) *AddCon {
	return &AddCon{Name: name, Graph: graph, L: l, U: u, scope: scope}
}

func (m *AddCon) Apply(rel *Relaxation) {
	c := rel.AddCut(m.Name, m.Graph, m.L, m.U)
	m.addedIndex = c.Index
	m.applied = true
}

func (m *AddCon) Undo(rel *Relaxation) {
	if !m.applied {
		return
	}
	rel.RemoveCons([]int{m.addedIndex})
	m.applied = false
}

func (m *AddCon) Scope() ModScope { return m.scope }

// DelCon removes an existing constraint (e.g. a redundant row found by
// presolve). It stashes enough state to reinsert an equivalent constraint
// on undo.
type DelCon struct {
	ConIndex  int
	scope     ModScope
	saved     *Constraint
	savedOrig int
	applied   bool
}

func NewDelCon(conIndex int, scope ModScope) *DelCon {
	return &DelCon{ConIndex: conIndex, scope: scope}
}

func (m *DelCon) Apply(rel *Relaxation) {
	saved := *rel.Constraints[m.ConIndex]
	m.saved = &saved
	m.savedOrig = rel.OrigCon[m.ConIndex]
	rel.RemoveCons([]int{m.ConIndex})
	m.applied = true
}

func (m *DelCon) Undo(rel *Relaxation) {
	if !m.applied || m.saved == nil {
		return
	}
	// Reinsert at the end; constraint Index fields are renumbered so this
	// is equivalent in content, if not in position, to the pre-apply
	// state: bounds, graph and name are restored, the position is not.
	// QuadraticHandler addresses constraints by position (quadCon.conIndex),
	// so its bookkeeping does not follow a constraint moved this way.
	restored := *m.saved
	restored.Index = len(rel.Constraints)
	rel.Constraints = append(rel.Constraints, &restored)
	rel.OrigCon = append(rel.OrigCon, m.savedOrig)
	rel.Problem.sizeValid = false
	m.applied = false
}

func (m *DelCon) Scope() ModScope { return m.scope }

// FixVar fixes a variable to a single value (both bounds collapse to v) and
// marks it inactive, the precondition for presolve's fixed-variable purge.
type FixVar struct {
	VarIndex     int
	Value        float64
	oldLb, oldUb float64
	oldActive    bool
	scope        ModScope
	applied      bool
}

func NewFixVar(varIndex int, value float64, scope ModScope) *FixVar {
	return &FixVar{VarIndex: varIndex, Value: value, scope: scope}
}

func (m *FixVar) Apply(rel *Relaxation) {
	v := rel.Variables[m.VarIndex]
	m.oldLb, m.oldUb, m.oldActive = v.Lb, v.Ub, v.Active
	v.Lb, v.Ub = m.Value, m.Value
	v.Active = false
	m.applied = true
}

func (m *FixVar) Undo(rel *Relaxation) {
	if !m.applied {
		return
	}
	v := rel.Variables[m.VarIndex]
	v.Lb, v.Ub, v.Active = m.oldLb, m.oldUb, m.oldActive
	m.applied = false
}

func (m *FixVar) Scope() ModScope { return m.scope }

// ApplyAll applies a list of modifications in order.
func ApplyAll(rel *Relaxation, mods []Modification) {
	for _, m := range mods {
		m.Apply(rel)
	}
}

// UndoAll undoes a list of modifications in reverse order, the exact
// inverse of ApplyAll.
func UndoAll(rel *Relaxation, mods []Modification) {
	for i := len(mods) - 1; i >= 0; i-- {
		mods[i].Undo(rel)
	}
}
