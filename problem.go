package minlp

import "fmt"

// VarType classifies a Variable's domain.
type VarType int

const (
	Continuous VarType = iota
	Integer
	Binary
)

// Variable is one column of a Problem or Relaxation. Identity is its Index,
// which is stable for the lifetime of the Problem. Bound changes during the
// solve are recorded as Modifications (modification.go); handlers' presolve
// passes tighten bounds in place and return a matching BoundChg for each.
type Variable struct {
	Index int
	Name  string
	Type  VarType

	Lb, Ub float64

	// Value is the variable's last-known relaxation value; it is a cache,
	// not a source of truth, and is overwritten every time the engine
	// reports a new solution.
	Value float64

	// Active is false when the variable has been fixed/removed from the
	// relaxation by presolve or a modification.
	Active bool
}

// IsFixed reports whether this variable's bounds have collapsed to a point.
// For integer variables, ub-lb < epsInt counts as "fixed".
func (v *Variable) IsFixed(epsInt float64) bool {
	if v.Type == Continuous {
		return v.Ub-v.Lb < 1e-12
	}
	return v.Ub-v.Lb < epsInt
}

// ConFunc is the kind of function underlying a Constraint.
type ConFunc int

const (
	FuncLinear ConFunc = iota
	FuncQuadratic
	FuncNonlinear
)

// Constraint is one row of a Problem or Relaxation: a function (via its
// CGraph) bounded on both sides. Equality constraints have L == U; range
// constraints have finite, distinct L and U; single-sided constraints have
// the unused bound at +-Inf.
type Constraint struct {
	Index int
	Name  string

	Func ConFunc
	Graph *CGraph

	L, U float64
}

// IsEquality reports whether this constraint's bounds coincide.
func (c *Constraint) IsEquality() bool { return c.L == c.U }

// IsRange reports whether both bounds are finite and distinct.
func (c *Constraint) IsRange() bool {
	return c.L > negInf && c.U < posInf && c.L < c.U
}

// ObjSense is the direction of optimization.
type ObjSense int

const (
	Minimize ObjSense = iota
	Maximize
)

// ProblemSize is the set of summary counts maintained by calculateSize();
// these must stay consistent with the Problem's contents.
type ProblemSize struct {
	Vars     int
	Integers int
	Binaries int
	Cons     int
	LinCons  int
	QuadCons int
	NLCons   int
}

// Problem is the ordered entity store of variables, constraints, one
// objective, plus the derived ProblemSize.
type Problem struct {
	Name string

	Variables   []*Variable
	Constraints []*Constraint

	ObjGraph *CGraph
	ObjConst float64
	Sense    ObjSense

	size ProblemSize
	sizeValid bool
}

// NewProblem returns an empty Problem ready for variables and constraints
// to be added.
func NewProblem(name string) *Problem {
	return &Problem{Name: name, Sense: Minimize}
}

// AddVariable appends a new variable and returns it. Bounds default to
// [0, +Inf), or [0, 1] for a Binary.
func (p *Problem) AddVariable(name string, vtype VarType) *Variable {
	v := &Variable{
		Index:  len(p.Variables),
		Name:   name,
		Type:   vtype,
		Lb:     0,
		Ub:     posInf,
		Active: true,
	}
	if vtype == Binary {
		v.Lb, v.Ub = 0, 1
	}
	p.Variables = append(p.Variables, v)
	p.sizeValid = false
	return v
}

// AddConstraint appends a new constraint with the given function graph and
// two-sided bounds, and returns it.
func (p *Problem) AddConstraint(name string, graph *CGraph, l, u float64) *Constraint {
	c := &Constraint{
		Index: len(p.Constraints),
		Name:  name,
		Func:  graph.kind(),
		Graph: graph,
		L:     l,
		U:     u,
	}
	p.Constraints = append(p.Constraints, c)
	p.sizeValid = false
	return c
}

// CalculateSize recomputes and returns the Problem's summary counts, which
// must stay consistent with contents.
func (p *Problem) CalculateSize() ProblemSize {
	var s ProblemSize
	s.Vars = len(p.Variables)
	for _, v := range p.Variables {
		switch v.Type {
		case Integer:
			s.Integers++
		case Binary:
			s.Binaries++
		}
	}
	s.Cons = len(p.Constraints)
	for _, c := range p.Constraints {
		switch c.Func {
		case FuncLinear:
			s.LinCons++
		case FuncQuadratic:
			s.QuadCons++
		case FuncNonlinear:
			s.NLCons++
		}
	}
	p.size = s
	p.sizeValid = true
	return s
}

// Size returns the last-calculated ProblemSize, recomputing it first if
// stale.
func (p *Problem) Size() ProblemSize {
	if !p.sizeValid {
		return p.CalculateSize()
	}
	return p.size
}

func (p *Problem) String() string {
	s := p.Size()
	return fmt.Sprintf("Problem(%s): %d vars (%d int, %d bin), %d cons (%d lin, %d quad, %d nl)",
		p.Name, s.Vars, s.Integers, s.Binaries, s.Cons, s.LinCons, s.QuadCons, s.NLCons)
}
