package minlp

import (
	"fmt"
	"io"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// EngineStatus is the result code a relaxation solve reports back to the
// node processor.
type EngineStatus int

const (
	ProvenOptimal EngineStatus = iota
	ProvenLocalOptimal
	ProvenInfeasible
	ProvenLocalInfeasible
	ProvenUnbounded
	ProvenObjectiveCutOff
	EngineIterationLimit
	FailedFeas
	FailedInfeas
	ProvenFailedCQFeas
	ProvenFailedCQInfeas
	EngineError
)

func (s EngineStatus) String() string {
	switch s {
	case ProvenOptimal:
		return "ProvenOptimal"
	case ProvenLocalOptimal:
		return "ProvenLocalOptimal"
	case ProvenInfeasible:
		return "ProvenInfeasible"
	case ProvenLocalInfeasible:
		return "ProvenLocalInfeasible"
	case ProvenUnbounded:
		return "ProvenUnbounded"
	case ProvenObjectiveCutOff:
		return "ProvenObjectiveCutOff"
	case EngineIterationLimit:
		return "EngineIterationLimit"
	case FailedFeas:
		return "FailedFeas"
	case FailedInfeas:
		return "FailedInfeas"
	case ProvenFailedCQFeas:
		return "ProvenFailedCQFeas"
	case ProvenFailedCQInfeas:
		return "ProvenFailedCQInfeas"
	case EngineError:
		return "EngineError"
	default:
		return "UnknownEngineStatus"
	}
}

// EngineSolution is the primal/dual result of one Engine.Solve() call.
type EngineSolution struct {
	X      []float64 // indexed exactly like the Relaxation's Variables
	Obj    float64
	Status EngineStatus
}

// WarmStart is opaque to the core: a reference-counted handle that may be
// shared between a parent node and each of its children. gonum's
// lp.Simplex has no basis warm-start API: LPEngine hands out WarmStarts
// with an empty basis and LoadFromWarmStart ignores them, so every solve
// starts cold; the ref-count contract is what the rest of the package
// depends on.
type WarmStart struct {
	basis  []int
	useCnt int
}

// IncrUseCnt/DecrUseCnt implement a manual refcounting contract: a
// parent's warm start is shared with each child at branch time (one
// IncrUseCnt per child); DecrUseCnt is called when a node is done with it,
// and the payload is only truly released once the count reaches zero.
func (w *WarmStart) IncrUseCnt() { w.useCnt++ }
func (w *WarmStart) DecrUseCnt() { w.useCnt-- }
func (w *WarmStart) UseCnt() int { return w.useCnt }

// Engine is the uniform surface over LP/NLP solvers consumed by the node
// processor. LPEngine is the one built-in implementation.
type Engine interface {
	Load(rel *Relaxation)
	Solve() EngineStatus
	Solution() *EngineSolution
	SolutionValue() float64

	WarmStartCopy() *WarmStart
	LoadFromWarmStart(ws *WarmStart)

	ChangeBound(varIndex int, lb, ub float64)
	ChangeConstraint(conIndex int, l, u float64)
	ChangeObj(graph *CGraph, constant float64)
	NegateObj()
	AddConstraint(name string, graph *CGraph, l, u float64)
	RemoveCons(idxs []int)

	SetIterationLimit(n int)
	ResetIterationLimit()
	SetTimeLimit(d time.Duration)
	SetDualObjLimit(v float64)

	WriteLP(w io.Writer) error
	WriteStats(w io.Writer)
}

// EngineFactory constructs a fresh Engine. Registered by name in
// engineRegistry so the driver can look up a dynamically selected engine
// implementation by name.
type EngineFactory func() Engine

var engineRegistry = map[string]EngineFactory{
	"gonum-lp": func() Engine { return NewLPEngine() },
}

// LookupEngine resolves an engine implementation by name.
func LookupEngine(name string) (Engine, error) {
	f, ok := engineRegistry[name]
	if !ok {
		return nil, wrapf(ErrEngine, "no engine registered under name %q", name)
	}
	return f(), nil
}

// RegisterEngine adds a new named engine implementation to the factory.
func RegisterEngine(name string, f EngineFactory) {
	engineRegistry[name] = f
}

// LPEngine wraps gonum's lp.Simplex behind the Engine interface. Every
// mutator below marks one of boundChanged/consChanged/objChanged, but
// Solve() rebuilds the whole standard-form tableau on every call whatever
// those flags say (see sync).
type LPEngine struct {
	rel *Relaxation

	boundChanged bool
	consChanged  bool
	objChanged   bool

	iterLimit    int
	dualObjLimit float64
	hasDualLimit bool

	lastSol *EngineSolution

	// standard-form inputs, rebuilt from rel by sync() on every Solve.
	c []float64
	a *mat.Dense
	b []float64

	// shift applied to each structural variable so the standard-form
	// vector is always >= 0: x_i = shift[i] + y_i.
	shift []float64
	// nStruct is the number of structural (non-slack) columns.
	nStruct int

	stats struct {
		solves int
	}
}

// NewLPEngine constructs an unloaded LPEngine.
func NewLPEngine() *LPEngine {
	return &LPEngine{dualObjLimit: posInf}
}

func (e *LPEngine) Load(rel *Relaxation) {
	e.rel = rel
	e.boundChanged = true
	e.consChanged = true
	e.objChanged = true
}

func (e *LPEngine) ChangeBound(varIndex int, lb, ub float64) {
	e.rel.Variables[varIndex].Lb = lb
	e.rel.Variables[varIndex].Ub = ub
	e.boundChanged = true
}

func (e *LPEngine) ChangeConstraint(conIndex int, l, u float64) {
	e.rel.Constraints[conIndex].L = l
	e.rel.Constraints[conIndex].U = u
	e.consChanged = true
}

func (e *LPEngine) ChangeObj(graph *CGraph, constant float64) {
	e.rel.ObjGraph = graph
	e.rel.ObjConst = constant
	e.objChanged = true
}

func (e *LPEngine) NegateObj() {
	if e.rel.Sense == Minimize {
		e.rel.Sense = Maximize
	} else {
		e.rel.Sense = Minimize
	}
	e.objChanged = true
}

func (e *LPEngine) AddConstraint(name string, graph *CGraph, l, u float64) {
	e.rel.AddCut(name, graph, l, u)
	e.consChanged = true
}

func (e *LPEngine) RemoveCons(idxs []int) {
	e.rel.RemoveCons(idxs)
	e.consChanged = true
}

// SetIterationLimit records n, but lp.Simplex takes no iteration limit, so
// Solve always runs to completion regardless of it.
func (e *LPEngine) SetIterationLimit(n int) { e.iterLimit = n }
func (e *LPEngine) ResetIterationLimit()    { e.iterLimit = 0 }
func (e *LPEngine) SetTimeLimit(d time.Duration) { /* lp.Simplex has no deadline hook; nothing to do. */
}
func (e *LPEngine) SetDualObjLimit(v float64) {
	e.dualObjLimit = v
	e.hasDualLimit = true
}

// sync rebuilds the standard-form (c, A, b, shift) tuple from the current
// relaxation state. The Modification log mutates Relaxation's Variable and
// Constraint structs directly (not through this engine's Change* setters),
// so boundChanged/consChanged/objChanged can't be trusted as a dirty gate
// in general; since the problems this engine targets are small, sync
// simply rebuilds unconditionally every call rather than tracking which
// parts of the tableau a given modification touched.
func (e *LPEngine) sync() {
	n := len(e.rel.Variables)
	e.nStruct = n
	e.shift = make([]float64, n)
	ub := make([]float64, n)
	for i, v := range e.rel.Variables {
		lb := v.Lb
		if lb == negInf {
			lb = -1e7 // practical finite-lower-bound assumption for the simplex shift
		}
		e.shift[i] = lb
		if v.Ub == posInf {
			ub[i] = posInf
		} else {
			ub[i] = v.Ub - lb
		}
	}

	c := make([]float64, n)
	objGraph := e.rel.ObjGraph
	if objGraph != nil {
		coefMap := linearCoefMap(objGraph)
		for gi, coef := range coefMap {
			c[gi] = coef
		}
	}
	if e.rel.Sense == Maximize {
		for i := range c {
			c[i] = -c[i]
		}
	}

	// inequality rows (row <= rhs form), gathered from constraints and
	// from finite upper bounds on the shifted variables.
	var ineqRows [][]float64
	var ineqRhs []float64
	var eqRows [][]float64
	var eqRhs []float64

	addIneq := func(row []float64, rhs float64) {
		ineqRows = append(ineqRows, row)
		ineqRhs = append(ineqRhs, rhs)
	}

	for _, c := range e.rel.Constraints {
		if c.Func != FuncLinear {
			// nonlinear rows are not LP rows; the quadratic handler enforces
			// them through the linear cuts it adds to the relaxation.
			continue
		}
		coefMap := linearCoefMap(c.Graph)
		row := make([]float64, n)
		shiftTerm := 0.0
		for gi, coef := range coefMap {
			row[gi] = coef
			shiftTerm += coef * e.shift[gi]
		}
		if c.IsEquality() {
			eqRows = append(eqRows, row)
			eqRhs = append(eqRhs, c.L-shiftTerm)
			continue
		}
		if c.U < posInf {
			addIneq(row, c.U-shiftTerm)
		}
		if c.L > negInf {
			neg := make([]float64, n)
			for i, v := range row {
				neg[i] = -v
			}
			addIneq(neg, -(c.L - shiftTerm))
		}
	}

	for i := 0; i < n; i++ {
		if ub[i] < posInf {
			row := make([]float64, n)
			row[i] = 1
			addIneq(row, ub[i])
		}
	}

	// Convert inequalities to equalities via slack variables, generalized
	// to an arbitrary variable count.
	nSlack := len(ineqRows)
	totalVars := n + nSlack
	cFull := make([]float64, totalVars)
	copy(cFull, c)

	totalRows := len(eqRows) + nSlack
	data := make([]float64, totalRows*totalVars)
	bFull := make([]float64, totalRows)
	row := 0
	for i, r := range eqRows {
		copy(data[row*totalVars:row*totalVars+n], r)
		bFull[row] = eqRhs[i]
		row++
	}
	for i, r := range ineqRows {
		copy(data[row*totalVars:row*totalVars+n], r)
		data[row*totalVars+n+i] = 1
		bFull[row] = ineqRhs[i]
		row++
	}

	e.c = cFull
	if totalRows > 0 {
		e.a = mat.NewDense(totalRows, totalVars, data)
		e.b = bFull
	} else {
		e.a = nil
		e.b = nil
	}

	e.boundChanged, e.consChanged, e.objChanged = false, false, false
}

// linearCoefMap returns, for an opLinear CGraph, a map from the CGraph's
// *global* variable index (Variable.Index, which matches the Relaxation's
// Variables slice position by construction) to its coefficient.
func linearCoefMap(g *CGraph) map[int]float64 {
	n := &g.nodes[g.root]
	if n.kind != opLinear {
		panic("minlp: linearCoefMap: graph root is not opLinear")
	}
	m := make(map[int]float64, len(n.children))
	for i, childIdx := range n.children {
		leaf := &g.nodes[childIdx]
		m[g.vars[leaf.varIndex].Index] = n.coefs[i]
	}
	return m
}

func (e *LPEngine) Solve() EngineStatus {
	e.sync()
	e.stats.solves++

	var z float64
	var x []float64
	var err error
	if e.a == nil {
		// No rows at all: no linear constraint and no finite upper bound
		// (each finite ub adds a row above), so the relaxation is reported
		// unbounded.
		e.lastSol = &EngineSolution{Status: ProvenUnbounded}
		return ProvenUnbounded
	}

	z, x, err = lp.Simplex(e.c, e.a, e.b, 0, nil)
	if err != nil {
		switch err {
		case lp.ErrInfeasible:
			e.lastSol = &EngineSolution{Status: ProvenInfeasible}
			return ProvenInfeasible
		case lp.ErrUnbounded:
			e.lastSol = &EngineSolution{Status: ProvenUnbounded}
			return ProvenUnbounded
		case lp.ErrSingular:
			e.lastSol = &EngineSolution{Status: FailedFeas}
			return FailedFeas
		default:
			e.lastSol = &EngineSolution{Status: EngineError}
			return EngineError
		}
	}

	xStruct := make([]float64, e.nStruct)
	for i := 0; i < e.nStruct; i++ {
		xStruct[i] = x[i] + e.shift[i]
	}
	obj := z
	if e.rel.Sense == Maximize {
		obj = -z
	}
	obj += e.rel.ObjConst

	status := ProvenOptimal
	if e.hasDualLimit && obj >= e.dualObjLimit {
		status = ProvenObjectiveCutOff
	}

	e.lastSol = &EngineSolution{X: xStruct, Obj: obj, Status: status}
	return status
}

func (e *LPEngine) Solution() *EngineSolution { return e.lastSol }

func (e *LPEngine) SolutionValue() float64 {
	if e.lastSol == nil {
		return posInf
	}
	return e.lastSol.Obj
}

func (e *LPEngine) WarmStartCopy() *WarmStart {
	if e.lastSol == nil {
		return nil
	}
	return &WarmStart{}
}

func (e *LPEngine) LoadFromWarmStart(ws *WarmStart) {
	// no-op: the warm start carries no payload; see WarmStart doc comment.
}

func (e *LPEngine) WriteLP(w io.Writer) error {
	e.sync()
	_, err := fmt.Fprintf(w, "minimize c^T x\nc = %v\nA =\n%v\nb = %v\n", e.c, mat.Formatted(e.a), e.b)
	return err
}

func (e *LPEngine) WriteStats(w io.Writer) {
	fmt.Fprintf(w, "LPEngine: %d solves\n", e.stats.solves)
}
