package minlp

import "math"

// quadKind classifies one quadratic constraint the handler owns into a
// convex/concave/bilinear split. Both convex-upper (qf(x) <= u) and
// concave-lower (l <= qf(x)) constraints are enforced with tangent-plane
// cuts: for convex qf the tangent under-estimates (tangent(x) <= qf(x) <=
// u), for concave qf it over-estimates (tangent(x) >= qf(x) >= l) --
// either way the tangent plane at the current point is a valid (necessary)
// linear relaxation. McCormick envelopes handle the genuinely indefinite
// (neither convex nor concave) bilinear terms that arise from products of
// two variables, e.g. a -(x*y) objective term reformulated through an
// auxiliary constraint.
type quadKind int

const (
	quadConvexUpper  quadKind = iota // qf(x) <= rhs, qf convex.
	quadConcaveLower                 // rhs <= qf(x), qf concave.
	quadBilinear                     // indefinite 2-variable product, McCormick envelope.
)

// quadCon is the handler's own bookkeeping record for one owned
// constraint: which kind it is, its bound, and (for bilinear terms) the
// box the last envelope was built against.
type quadCon struct {
	conIndex int
	kind     quadKind
	rhs      float64

	// McCormick envelope cache: the four linear under/over-estimators
	// depend on the current box and are rebuilt whenever either variable's
	// box differs at all from envBox (exact comparison, no tolerance).
	envBox [2]Interval
}

// QuadraticHandler owns the problem's convex, concave, and bilinear
// quadratic constraints.
type QuadraticHandler struct {
	opt *Options

	cons []*quadCon

	aTol, rTol, eTol, bTol, vTol float64

	stats struct {
		cuts        int
		boundsTight int
	}
}

// NewQuadraticHandler classifies every quadratic constraint in rel at
// construction time, the same point the C++ constructor populates its
// LinQuadVec.
func NewQuadraticHandler(opt *Options, rel *Relaxation) *QuadraticHandler {
	h := &QuadraticHandler{
		opt:  opt,
		aTol: opt.ATol, rTol: opt.RTol, eTol: opt.ETol, bTol: opt.BTol, vTol: opt.VTol,
	}
	for i, c := range rel.Constraints {
		if c.Func != FuncQuadratic {
			continue
		}
		h.classify(i, c)
	}
	return h
}

func (h *QuadraticHandler) classify(idx int, c *Constraint) {
	n := &c.Graph.nodes[c.Graph.root]
	convex := c.Graph.IsConvexQuadratic()
	concave := isConcaveQuadratic(c.Graph)

	if !convex && !concave && len(n.children) == 2 {
		h.cons = append(h.cons, &quadCon{conIndex: idx, kind: quadBilinear})
		return
	}
	if c.U < posInf && convex {
		h.cons = append(h.cons, &quadCon{conIndex: idx, kind: quadConvexUpper, rhs: c.U})
	}
	if c.L > negInf && concave {
		h.cons = append(h.cons, &quadCon{conIndex: idx, kind: quadConcaveLower, rhs: c.L})
	}
}

// isConcaveQuadratic reports whether -Q is PSD, i.e. the quadratic form is
// concave.
func isConcaveQuadratic(g *CGraph) bool {
	n := &g.nodes[g.root]
	if n.kind != opQuadratic {
		return false
	}
	neg := make([][]float64, len(n.quad))
	for i := range n.quad {
		neg[i] = make([]float64, len(n.quad[i]))
		for j := range n.quad[i] {
			neg[i][j] = -n.quad[i][j]
		}
	}
	return isPSD(neg)
}

func (h *QuadraticHandler) Name() string { return "QuadraticHandler" }

// IsFeasible checks every owned constraint's activity directly against its
// real (possibly nonconvex) function -- ground truth, independent of
// whether the constraint is cuttable.
func (h *QuadraticHandler) IsFeasible(sol *Solution, rel *Relaxation) (feasible bool, shouldPrune bool, infMeasure float64) {
	feasible = true
	seen := map[int]bool{}
	for _, qc := range h.cons {
		if seen[qc.conIndex] {
			continue
		}
		seen[qc.conIndex] = true
		c := rel.Constraints[qc.conIndex]
		act := c.Graph.Eval(sol.X)
		tol := math.Max(h.aTol, h.rTol*math.Max(math.Abs(c.L), math.Abs(c.U)))
		if act < c.L-tol || act > c.U+tol {
			feasible = false
			viol := math.Max(c.L-act, act-c.U)
			if viol > infMeasure {
				infMeasure = viol
			}
		}
	}
	return feasible, false, infMeasure
}

// Separate adds a tangent-plane cut for each violated convex/concave
// constraint, and refreshes the McCormick envelope for each bilinear
// constraint whenever the box has moved since it was last built.
func (h *QuadraticHandler) Separate(sol *Solution, node *Node, rel *Relaxation, pool *SolutionPool) (pMods, rMods []Modification, solFound bool, status SeparationStatus) {
	status = SepaContinue
	nVars := len(rel.Variables)
	for _, qc := range h.cons {
		c := rel.Constraints[qc.conIndex]
		switch qc.kind {
		case quadConvexUpper:
			act := c.Graph.Eval(sol.X)
			if act <= qc.rhs+h.eTol {
				continue
			}
			cut, cutRhs := tangentCut(c.Graph, sol.X, nVars, qc.rhs)
			rMods = append(rMods, NewAddCon("cxq_tangent_upper", cut, negInf, cutRhs, ScopeNodeLocal))
			h.stats.cuts++
			status = SepaResolve
		case quadConcaveLower:
			act := c.Graph.Eval(sol.X)
			if act >= qc.rhs-h.eTol {
				continue
			}
			cut, cutRhs := tangentCut(c.Graph, sol.X, nVars, qc.rhs)
			rMods = append(rMods, NewAddCon("cxq_tangent_lower", cut, cutRhs, posInf, ScopeNodeLocal))
			h.stats.cuts++
			status = SepaResolve
		case quadBilinear:
			box := [2]Interval{}
			for i, v := range c.Graph.vars {
				rv := rel.Variables[v.Index]
				box[i] = Interval{rv.Lb, rv.Ub}
			}
			if box == qc.envBox {
				continue
			}
			qc.envBox = box
			mods := mccormickEnvelope(c.Graph, c, rel, nVars)
			if len(mods) > 0 {
				rMods = append(rMods, mods...)
				h.stats.cuts += len(mods)
				status = SepaResolve
			}
		}
	}
	return pMods, rMods, false, status
}

// tangentCut builds the linear cut grad(x*).x <= rhs - qf(x*) + grad(x*).x*
// (the convex case; the concave case uses the same formula as a lower
// bound instead) implementing the tangent-plane inequality
// grad(x*).(x-x*) + qf(x*) <= qf(x) <= rhs (or its mirror, rhs <= qf(x) <=
// grad(x*).(x-x*) + qf(x*) for concave qf), rearranged so the caller can
// compare the returned graph directly against the returned constant.
func tangentCut(g *CGraph, xstar []float64, nVars int, rhs float64) (*CGraph, float64) {
	grad := make([]float64, nVars)
	g.Grad(xstar, grad)
	val := g.Eval(xstar)
	dot := 0.0
	for i, gi := range grad {
		dot += gi * xstar[i]
	}
	vars := make([]*Variable, nVars)
	for _, v := range g.vars {
		vars[v.Index] = v
	}
	for i := range vars {
		if vars[i] == nil {
			vars[i] = &Variable{Index: i} // zero-coefficient placeholder; never dereferenced beyond Index by linearCoefMap.
		}
	}
	cg := NewLinearGraph(vars, grad)
	return cg, rhs - val + dot
}

// mccormickEnvelope returns the four standard McCormick linear
// under/over-estimators for a bilinear constraint L <= x*y <= U. Each
// estimator line, compared against the constraint's own L or U, is a
// necessary linear condition on (x,y) alone -- e.g. x*y <= U together with
// underestimator(x,y) <= x*y gives underestimator(x,y) <= U -- so the four
// lines add directly as ordinary linear global cuts, with no need for a
// separate w variable or a composite quad-minus-linear graph.
func mccormickEnvelope(g *CGraph, c *Constraint, rel *Relaxation, nVars int) []Modification {
	n := &g.nodes[g.root]
	if len(n.children) != 2 {
		return nil
	}
	xi := g.vars[g.nodes[n.children[0]].varIndex]
	yi := g.vars[g.nodes[n.children[1]].varIndex]
	x := rel.Variables[xi.Index]
	y := rel.Variables[yi.Index]
	if x.Lb == negInf || x.Ub == posInf || y.Lb == negInf || y.Ub == posInf {
		return nil // McCormick requires a finite box.
	}

	vars := make([]*Variable, nVars)
	for i := range vars {
		vars[i] = &Variable{Index: i}
	}
	vars[x.Index] = x
	vars[y.Index] = y

	mk := func(name string, a, b, rhs float64, upper bool) Modification {
		coefs := make([]float64, nVars)
		coefs[x.Index] = a
		coefs[y.Index] = b
		lg := NewLinearGraph(vars, coefs)
		if upper {
			return NewAddCon(name, lg, negInf, rhs, ScopeGlobal)
		}
		return NewAddCon(name, lg, rhs, posInf, ScopeGlobal)
	}
	var mods []Modification
	if c.U < posInf {
		// underestimator(x,y) <= U, in both corner forms.
		mods = append(mods, mk("mccormick_lo1", y.Lb, x.Lb, c.U+x.Lb*y.Lb, true))
		mods = append(mods, mk("mccormick_lo2", y.Ub, x.Ub, c.U+x.Ub*y.Ub, true))
	}
	if c.L > negInf {
		// overestimator(x,y) >= L, in both corner forms.
		mods = append(mods, mk("mccormick_hi1", y.Lb, x.Ub, c.L+x.Ub*y.Lb, false))
		mods = append(mods, mk("mccormick_hi2", y.Ub, x.Lb, c.L+x.Lb*y.Ub, false))
	}
	return mods
}

// Presolve performs no global tightening beyond what each node's
// PresolveNode already does.
func (h *QuadraticHandler) Presolve(rel *Relaxation) (mods []Modification, changed bool) {
	return nil, false
}

// PresolveNode tightens each variable's bounds by inverting its owned
// convex/concave quadratic constraints, holding every other variable at
// its current box.
func (h *QuadraticHandler) PresolveNode(rel *Relaxation, node *Node, pool *SolutionPool) (pMods, rMods []Modification, isInf bool) {
	seen := map[int]bool{}
	for _, qc := range h.cons {
		if qc.kind == quadBilinear || seen[qc.conIndex] {
			continue
		}
		seen[qc.conIndex] = true
		c := rel.Constraints[qc.conIndex]
		n := &c.Graph.nodes[c.Graph.root]
		for li, leaf := range n.children {
			vi := c.Graph.nodes[leaf].varIndex
			gv := c.Graph.vars[vi]
			v := rel.Variables[gv.Index]
			newLb, newUb, ok := invertQuadraticForVar(n, li, rel, c.Graph, c.L, c.U)
			if !ok {
				continue
			}
			if newLb > newUb+h.aTol {
				isInf = true
				return nil, nil, true
			}
			lb, ub := math.Max(v.Lb, newLb), math.Min(v.Ub, newUb)
			if lb-v.Lb > h.bTol || v.Ub-ub > h.bTol {
				rMods = append(rMods, NewBoundChg(v.Index, lb, ub, ScopeNodeLocal))
				v.Lb, v.Ub = lb, ub
				h.stats.boundsTight++
			}
		}
	}
	return nil, rMods, false
}

// invertQuadraticForVar solves a_v*v^2 + b_v*v + rest in [l,u] for the
// single variable at local leaf index li, holding every other variable at
// its current interval box, via the scalar quadratic formula applied to
// interval-valued coefficients (conservative, but sound: every bound
// returned is implied by the constraint for the current box).
func invertQuadraticForVar(n *cgNode, li int, rel *Relaxation, g *CGraph, l, u float64) (lo, hi float64, ok bool) {
	av := n.quad[li][li]
	if av == 0 {
		return 0, 0, false
	}
	bLo, bHi := n.coefs[li], n.coefs[li]
	for j := range n.children {
		if j == li {
			continue
		}
		gvj := g.vars[g.nodes[n.children[j]].varIndex]
		vj := rel.Variables[gvj.Index]
		q := n.quad[li][j] + n.quad[j][li]
		lo2, hi2 := q*vj.Lb, q*vj.Ub
		if lo2 > hi2 {
			lo2, hi2 = hi2, lo2
		}
		bLo += lo2
		bHi += hi2
	}
	lo, hi = negInf, posInf
	for _, b := range []float64{bLo, bHi} {
		l1, h1, ok1 := quadraticRootBounds(av, b, -u)
		if ok1 {
			lo = math.Max(lo, l1)
			hi = math.Min(hi, h1)
		}
	}
	if lo == negInf && hi == posInf {
		return 0, 0, false
	}
	return lo, hi, true
}

// quadraticRootBounds returns the interval of v satisfying a*v^2+b*v+c<=0
// for a>0. For a<=0 it returns ok=false, so its caller derives no bound
// from a term with a negative square coefficient.
func quadraticRootBounds(a, b, c float64) (lo, hi float64, ok bool) {
	if a <= 0 {
		return negInf, posInf, false
	}
	disc := b*b - 4*a*c
	if disc < 0 {
		return posInf, negInf, true // empty: lo>hi signals infeasible to the caller.
	}
	sq := math.Sqrt(disc)
	r1, r2 := (-b-sq)/(2*a), (-b+sq)/(2*a)
	if r1 > r2 {
		r1, r2 = r2, r1
	}
	return r1, r2, true
}

// GetBranchingCandidates never yields candidates: the convex/concave cuts
// and McCormick envelope are the enforcement mechanism for this handler's
// constraints. No dedicated spatial brancher is implemented to tighten the
// McCormick box further by branching on it.
func (h *QuadraticHandler) GetBranchingCandidates(rel *Relaxation, x []float64) (cands []*BrCand, isInf bool) {
	return nil, false
}

func (h *QuadraticHandler) GetBrMod(cand *BrCand, x []float64, rel *Relaxation, dir BranchDirection) Modification {
	panic("minlp: QuadraticHandler never produces branching candidates")
}

func (h *QuadraticHandler) GetBranches(cand *BrCand, x []float64, rel *Relaxation, pool *SolutionPool) Branches {
	panic("minlp: QuadraticHandler never produces branching candidates")
}

func (h *QuadraticHandler) WriteStats() string {
	return formatStats("QuadraticHandler", map[string]int{
		"cuts":             h.stats.cuts,
		"bounds_tightened": h.stats.boundsTight,
	})
}
