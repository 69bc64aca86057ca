package minlp

import "math"

// pseudoCost tracks one variable's average dual-bound improvement in each
// branch direction, the quantity reliability branching scores candidates
// by. Gains are averaged as observed; they are not divided by the distance
// the branched bound moved.
type pseudoCost struct {
	downSum, upSum float64
	downCnt, upCnt int
}

func (p *pseudoCost) downAvg() float64 {
	if p.downCnt == 0 {
		return 1
	}
	return p.downSum / float64(p.downCnt)
}

func (p *pseudoCost) upAvg() float64 {
	if p.upCnt == 0 {
		return 1
	}
	return p.upSum / float64(p.upCnt)
}

func (p *pseudoCost) reliable(tau int) bool {
	return p.downCnt >= tau && p.upCnt >= tau
}

// ReliabilityBrancher is a reliability-branching strategy: reliable
// variables are scored by pseudo-cost product, unreliable ones are
// strong-branched (a trial solve in each direction) up to maxDepth
// candidates per FindBranches call.
type ReliabilityBrancher struct {
	engine Engine

	tau      int
	maxDepth int
	iterLim  int

	pc map[int]*pseudoCost

	// pending records the last branch this brancher issued, consumed by
	// UpdateAfterSolve to attribute the child's bound gain back to the
	// parent's pseudo-cost entry.
	pending map[NodeID]pendingBranch

	stats struct {
		branches       int
		strongBranches int
	}
}

type pendingBranch struct {
	varIndex     int
	value        float64
	parentLb     float64
	childrenLeft int
}

// NewReliabilityBrancher derives tau and maxDepth from the problem's
// integer/binary counts.
func NewReliabilityBrancher(size ProblemSize, iterLim int) *ReliabilityBrancher {
	ib := size.Integers + size.Binaries
	tau := clampI((ib)/10, 2, 4)
	maxDepth := clampI(size.Integers+size.Binaries/20+2, 0, 10)
	return &ReliabilityBrancher{
		tau:      tau,
		maxDepth: maxDepth,
		iterLim:  iterLim,
		pc:       make(map[int]*pseudoCost),
		pending:  make(map[NodeID]pendingBranch),
	}
}

func (b *ReliabilityBrancher) SetEngine(e Engine) { b.engine = e }

func (b *ReliabilityBrancher) costFor(varIndex int) *pseudoCost {
	pc, ok := b.pc[varIndex]
	if !ok {
		pc = &pseudoCost{}
		b.pc[varIndex] = pc
	}
	return pc
}

// FindBranches scores every candidate: reliable variables by pseudo-cost
// product (tie-break by sum), unreliable variables by a strong-branching
// trial solve capped at maxDepth trials for this call.
func (b *ReliabilityBrancher) FindBranches(rel *Relaxation, node *Node, sol *Solution, pool *SolutionPool, handlers []Handler) (Branches, BrancherStatus, []Modification) {
	cands, isInf := pickCandidates(handlers, rel, sol.X)
	if isInf {
		return nil, PrunedByBrancher, nil
	}
	if len(cands) == 0 {
		return nil, NotModifiedByBrancher, nil
	}

	type scored struct {
		cand     *BrCand
		score    float64
		tieBreak float64
	}
	var best *scored
	trialsLeft := b.maxDepth

	for _, c := range cands {
		pc := b.costFor(c.VarIndex)
		var sc scored
		sc.cand = c
		if pc.reliable(b.tau) || trialsLeft <= 0 || b.engine == nil {
			down, up := pc.downAvg(), pc.upAvg()
			sc.score = down * up
			sc.tieBreak = down + up
		} else {
			downGain, upGain, infeasDown, infeasUp := b.strongBranch(rel, c, sol.Obj)
			trialsLeft--
			b.stats.strongBranches++
			if infeasDown && infeasUp {
				return nil, PrunedByBrancher, nil
			}
			if infeasDown || infeasUp {
				// one side is infeasible: fix the variable to the other
				// side right now rather than branching.
				dir := BranchUp
				if infeasUp {
					dir = BranchDown
				}
				mod := c.Handler.GetBrMod(c, sol.X, rel, dir)
				return nil, ModifiedByBrancher, []Modification{mod}
			}
			sc.score = downGain * upGain
			sc.tieBreak = downGain + upGain
		}
		if best == nil || sc.score > best.score || (sc.score == best.score && sc.tieBreak > best.tieBreak) ||
			(sc.score == best.score && sc.tieBreak == best.tieBreak && sc.cand.VarIndex < best.cand.VarIndex) {
			cp := sc
			best = &cp
		}
	}

	b.stats.branches++
	branches := best.cand.Handler.GetBranches(best.cand, sol.X, rel, pool)
	b.pending[node.ID] = pendingBranch{
		varIndex:     best.cand.VarIndex,
		value:        best.cand.Value,
		parentLb:     node.Lb,
		childrenLeft: len(branches),
	}
	return branches, NotModifiedByBrancher, nil
}

// strongBranch trial-solves both children of cand, returning the dual-bound
// gain over parentObj in each direction (0 if the trial didn't improve,
// since pseudo-costs are never negative) and whether either side proved
// infeasible. iterLim is passed to Engine.SetIterationLimit; LPEngine does
// not enforce it, so with that engine each trial is a full solve.
func (b *ReliabilityBrancher) strongBranch(rel *Relaxation, cand *BrCand, parentObj float64) (downGain, upGain float64, infeasDown, infeasUp bool) {
	v := rel.Variables[cand.VarIndex]
	oldLb, oldUb := v.Lb, v.Ub

	b.engine.SetIterationLimit(b.iterLim)
	defer b.engine.ResetIterationLimit()

	trial := func(lb, ub float64) (gain float64, infeasible bool) {
		v.Lb, v.Ub = lb, ub
		b.engine.ChangeBound(cand.VarIndex, lb, ub)
		status := b.engine.Solve()
		v.Lb, v.Ub = oldLb, oldUb
		b.engine.ChangeBound(cand.VarIndex, oldLb, oldUb)
		switch status {
		case ProvenInfeasible, ProvenLocalInfeasible:
			return 0, true
		case ProvenOptimal, ProvenLocalOptimal, EngineIterationLimit:
			g := b.engine.SolutionValue() - parentObj
			return math.Max(g, 0), false
		default:
			return 0, false
		}
	}

	floor := math.Floor(cand.Value)
	downGain, infeasDown = trial(oldLb, floor)
	upGain, infeasUp = trial(floor+1, oldUb)
	pc := b.costFor(cand.VarIndex)
	if !infeasDown {
		pc.downSum += downGain
		pc.downCnt++
	}
	if !infeasUp {
		pc.upSum += upGain
		pc.upCnt++
	}
	return downGain, upGain, infeasDown, infeasUp
}

// UpdateAfterSolve folds a child's realized bound gain into its branching
// variable's pseudo-cost, called only on the first iteration of the node.
// The child's own direction (down/up) is read back off the BoundChg its
// branch applied to the parent's candidate variable.
func (b *ReliabilityBrancher) UpdateAfterSolve(node *Node, sol *Solution) {
	pend, ok := b.pending[node.Parent]
	if !ok {
		return
	}
	gain := node.Lb - pend.parentLb
	if gain < 0 {
		gain = 0
	}
	pc := b.costFor(pend.varIndex)
	if dir, found := branchDirectionOf(node, pend.varIndex, pend.value); found {
		if dir == BranchDown {
			pc.downSum += gain
			pc.downCnt++
		} else {
			pc.upSum += gain
			pc.upCnt++
		}
	}
	pend.childrenLeft--
	if pend.childrenLeft <= 0 {
		delete(b.pending, node.Parent)
	} else {
		b.pending[node.Parent] = pend
	}
}

// branchDirectionOf inspects node's own modifications for the BoundChg a
// branch applied to varIndex, inferring direction from where it placed the
// bound relative to the fractional value that was branched on.
func branchDirectionOf(node *Node, varIndex int, value float64) (dir BranchDirection, ok bool) {
	for _, m := range node.AllMods() {
		bc, isBound := m.(*BoundChg)
		if !isBound || bc.VarIndex != varIndex {
			continue
		}
		if bc.NewUb <= math.Floor(value)+0.5 {
			return BranchDown, true
		}
		return BranchUp, true
	}
	return 0, false
}

func (b *ReliabilityBrancher) WriteStats() string {
	return formatStats("ReliabilityBrancher", map[string]int{
		"branches":        b.stats.branches,
		"strong_branches": b.stats.strongBranches,
	})
}
