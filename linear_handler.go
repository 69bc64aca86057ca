package minlp

import "math"

// LinearHandler owns all linear constraints and variable bounds. Its
// presolve purges redundant constraints, dual-fixes, and propagates
// bounds. Fixed variables are counted (vars_purged) but stay in the
// relaxation, and no pass improves coefficients: the CoefImprove toggle is
// not read.
type LinearHandler struct {
	opt *Options

	// per-handler toggles; all default true via NewLinearHandler, but are
	// independently switchable.
	PurgeFixed     bool
	PurgeRedundant bool
	DualFix        bool
	CoefImprove    bool
	BoundPropagate bool

	stats struct {
		presolveIters   int
		boundsTightened int
		consPurged      int
		varsPurged      int
	}
}

// NewLinearHandler constructs a LinearHandler with every presolve duty on.
func NewLinearHandler(opt *Options) *LinearHandler {
	return &LinearHandler{
		opt:            opt,
		PurgeFixed:     true,
		PurgeRedundant: true,
		DualFix:        true,
		CoefImprove:    true,
		BoundPropagate: true,
	}
}

func (h *LinearHandler) Name() string { return "LinearHandler" }

func (h *LinearHandler) linearConstraints(rel *Relaxation) []*Constraint {
	var out []*Constraint
	for _, c := range rel.Constraints {
		if c.Func == FuncLinear {
			out = append(out, c)
		}
	}
	return out
}

// IsFeasible checks every linear constraint's activity against its bounds
// (within aTol/rTol) and every integer variable's integrality (within
// intTol).
func (h *LinearHandler) IsFeasible(sol *Solution, rel *Relaxation) (feasible bool, shouldPrune bool, infMeasure float64) {
	feasible = true
	for _, v := range rel.Variables {
		if v.Type == Continuous || !v.Active {
			continue
		}
		frac := fracPart(sol.X[v.Index])
		violation := math.Min(frac, 1-frac)
		if violation > h.opt.IntTol {
			feasible = false
			if violation > infMeasure {
				infMeasure = violation
			}
		}
	}
	for _, c := range h.linearConstraints(rel) {
		act := c.Graph.Eval(sol.X)
		tol := math.Max(h.opt.ATol, h.opt.RTol*math.Max(math.Abs(c.L), math.Abs(c.U)))
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

// Separate is a no-op for the linear handler: a linear relaxation solved
// exactly by the LP engine has no further valid cuts to add beyond what's
// already in the tableau. It exists to satisfy the Handler interface and
// to keep the door open for cutting-plane extensions (e.g. Gomory cuts)
// without changing the interface.
func (h *LinearHandler) Separate(sol *Solution, node *Node, rel *Relaxation, pool *SolutionPool) (pMods, rMods []Modification, solFound bool, status SeparationStatus) {
	return nil, nil, false, SepaContinue
}

// Presolve runs the global, pre-tree tightening pass: count fixed
// variables (without removing them), dual-fix, a bound-propagation fixed
// point, then purge redundant (always-satisfied) constraints.
func (h *LinearHandler) Presolve(rel *Relaxation) (mods []Modification, changed bool) {
	if h.PurgeFixed {
		for _, v := range rel.Variables {
			if v.Active && v.IsFixed(h.opt.IntTol) {
				h.stats.varsPurged++
			}
		}
	}
	if h.DualFix {
		dfMods := h.dualFix(rel)
		mods = append(mods, dfMods...)
	}
	if h.BoundPropagate {
		bpMods, _ := h.propagateBounds(rel, ScopeGlobal)
		mods = append(mods, bpMods...)
	}
	if h.PurgeRedundant {
		mods = append(mods, h.purgeRedundant(rel)...)
	}
	changed = len(mods) > 0
	return mods, changed
}

// dualFix fixes a continuous variable with a nonzero objective coefficient
// to the bound the objective prefers, and only when the variable appears in
// no linear constraint; a variable that appears in any row is left to bound
// propagation.
func (h *LinearHandler) dualFix(rel *Relaxation) []Modification {
	if rel.ObjGraph == nil {
		return nil
	}
	objCoef := linearCoefMap(rel.ObjGraph)
	var mods []Modification
	for _, v := range rel.Variables {
		if !v.Active || v.Type != Continuous {
			continue
		}
		c, ok := objCoef[v.Index]
		if !ok || c == 0 {
			continue
		}
		if rel.Sense == Maximize {
			c = -c
		}
		appearsPositive, appearsNegative := false, false
		for _, con := range h.linearConstraints(rel) {
			coefs := linearCoefMap(con.Graph)
			if coef, ok := coefs[v.Index]; ok {
				if coef > 0 {
					appearsPositive = true
				} else if coef < 0 {
					appearsNegative = true
				}
			}
		}
		if appearsPositive && appearsNegative {
			continue
		}
		// minimize c*x: if c>0, smaller x is better => fix at lb if no
		// constraint prevents it (heuristic: only fix when variable is
		// otherwise unconstrained in the binding direction).
		if appearsPositive || appearsNegative {
			continue // presence in any row means propagation, not dual-fix, should decide it
		}
		if c > 0 && v.Lb > negInf {
			mods = append(mods, NewBoundChg(v.Index, v.Lb, v.Lb, ScopeGlobal))
		} else if c < 0 && v.Ub < posInf {
			mods = append(mods, NewBoundChg(v.Index, v.Ub, v.Ub, ScopeGlobal))
		}
	}
	return mods
}

// propagateBounds iterates interval bound propagation through every linear
// row to a fixed point (or until no bound improves by more than bTol),
// reporting infeasibility if any propagated interval becomes empty by more
// than aTol. scope tags the emitted BoundChgs: ScopeGlobal from the
// pre-tree Presolve pass, ScopeNodeLocal from a node's PresolveNode.
func (h *LinearHandler) propagateBounds(rel *Relaxation, scope ModScope) (mods []Modification, isInf bool) {
	const maxIter = 50
	for iter := 0; iter < maxIter; iter++ {
		improved := false
		for _, con := range h.linearConstraints(rel) {
			coefs := linearCoefMap(con.Graph)
			for vi, coef := range coefs {
				if coef == 0 {
					continue
				}
				v := rel.Variables[vi]
				if !v.Active {
					continue
				}
				// isolate v: coef*x_v in [L - restSup, U - restInf]
				restLo, restHi := 0.0, 0.0
				for vj, cj := range coefs {
					if vj == vi {
						continue
					}
					vj_ := rel.Variables[vj]
					if cj >= 0 {
						restLo += cj * vj_.Lb
						restHi += cj * vj_.Ub
					} else {
						restLo += cj * vj_.Ub
						restHi += cj * vj_.Lb
					}
				}
				var newLo, newHi float64
				if coef > 0 {
					newLo = (con.L - restHi) / coef
					newHi = (con.U - restLo) / coef
				} else {
					newLo = (con.U - restLo) / coef
					newHi = (con.L - restHi) / coef
				}
				if newLo > newHi+h.opt.ATol {
					isInf = true
					return mods, isInf
				}
				nb := math.Max(v.Lb, newLo)
				ne := math.Min(v.Ub, newHi)
				if nb > ne+h.opt.ATol {
					isInf = true
					return mods, isInf
				}
				if nb-v.Lb > h.opt.BTol || v.Ub-ne > h.opt.BTol {
					mods = append(mods, NewBoundChg(vi, math.Max(v.Lb, nb), math.Min(v.Ub, ne), scope))
					v.Lb, v.Ub = math.Max(v.Lb, nb), math.Min(v.Ub, ne)
					improved = true
					h.stats.boundsTightened++
				}
			}
		}
		if !improved {
			break
		}
	}
	return mods, isInf
}

// purgeRedundant removes linear constraints whose interval image already
// lies within [L,U] for the current variable bounds -- they can never bind.
func (h *LinearHandler) purgeRedundant(rel *Relaxation) []Modification {
	var mods []Modification
	for i, con := range rel.Constraints {
		if con.Func != FuncLinear {
			continue
		}
		box := boxFor(con.Graph, rel)
		iv := con.Graph.EvalInterval(box)
		if iv.Lo >= con.L-h.opt.ATol && iv.Hi <= con.U+h.opt.ATol {
			mods = append(mods, NewDelCon(i, ScopeGlobal))
			h.stats.consPurged++
		}
	}
	return mods
}

func boxFor(g *CGraph, rel *Relaxation) []Interval {
	box := make([]Interval, len(rel.Variables))
	for i, v := range rel.Variables {
		box[i] = Interval{v.Lb, v.Ub}
	}
	return box
}

// PresolveNode is the node-local counterpart to Presolve: bound propagation
// on the driver's shared relaxation, with the node's path modifications
// applied.
func (h *LinearHandler) PresolveNode(rel *Relaxation, node *Node, pool *SolutionPool) (pMods, rMods []Modification, isInf bool) {
	if !h.BoundPropagate {
		return nil, nil, false
	}
	mods, isInf := h.propagateBounds(rel, ScopeNodeLocal)
	return nil, mods, isInf
}

// GetBranchingCandidates returns every integer-typed variable whose
// relaxed value is fractional by more than IntTol, scored by
// min(frac, 1-frac).
func (h *LinearHandler) GetBranchingCandidates(rel *Relaxation, x []float64) (cands []*BrCand, isInf bool) {
	for _, v := range rel.Variables {
		if v.Type == Continuous || !v.Active {
			continue
		}
		frac := fracPart(x[v.Index])
		score := math.Min(frac, 1-frac)
		if score > h.opt.IntTol {
			cands = append(cands, &BrCand{VarIndex: v.Index, Value: x[v.Index], Score: score, Handler: h})
		}
	}
	return cands, false
}

// GetBrMod returns the bound change implementing one side of a standard
// floor/ceil integer branch.
func (h *LinearHandler) GetBrMod(cand *BrCand, x []float64, rel *Relaxation, dir BranchDirection) Modification {
	v := rel.Variables[cand.VarIndex]
	floor := math.Floor(cand.Value)
	if dir == BranchDown {
		return NewBoundChg(cand.VarIndex, v.Lb, floor, ScopeNodeLocal)
	}
	return NewBoundChg(cand.VarIndex, floor+1, v.Ub, ScopeNodeLocal)
}

// GetBranches returns the standard two-way x <= floor(x*) / x >= ceil(x*)
// disjunction.
func (h *LinearHandler) GetBranches(cand *BrCand, x []float64, rel *Relaxation, pool *SolutionPool) Branches {
	down := h.GetBrMod(cand, x, rel, BranchDown)
	up := h.GetBrMod(cand, x, rel, BranchUp)
	return Branches{
		{Mods: []Modification{down}},
		{Mods: []Modification{up}},
	}
}

func (h *LinearHandler) WriteStats() string {
	return formatStats("LinearHandler", map[string]int{
		"bounds_tightened": h.stats.boundsTightened,
		"cons_purged":      h.stats.consPurged,
		"vars_purged":      h.stats.varsPurged,
	})
}

func fracPart(v float64) float64 {
	f := v - math.Floor(v)
	if f < 0 {
		f += 1
	}
	return f
}
