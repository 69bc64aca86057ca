package minlp

import (
	"math"

	"github.com/sirupsen/logrus"
)

// Processor runs the per-node state machine: presolve, solve, classify,
// pseudo-cost update, feasibility, root heuristics, separate, branch. An
// earlier draft's presolve-node loop double-counted its iteration
// variable; it is now a single `for` loop with one increment, guarded by a
// `changed` flag instead.
type Processor struct {
	opt      *Options
	log      *logrus.Logger
	engine   Engine
	handlers []Handler
	brancher Brancher

	numSolutions int
	firstIter    bool

	stats struct {
		nodesProcessed int
		solves         int
		presolveRounds int
	}
}

// NewProcessor wires an Engine, the ordered handler list (handler
// invocations occur in a fixed, configuration-defined order), and a
// Brancher into one node processor.
func NewProcessor(opt *Options, log *logrus.Logger, engine Engine, handlers []Handler, brancher Brancher) *Processor {
	return &Processor{opt: opt, log: log, engine: engine, handlers: handlers, brancher: brancher}
}

// classify maps an engine status plus the node's and incumbent's bounds to
// a node status and a prune decision, as a pure function.
func classify(status EngineStatus, lb float64, incumbent float64, opt *Options) (ns NodeStatus, prune bool, statKey string) {
	switch status {
	case ProvenInfeasible, ProvenLocalInfeasible:
		return NodeInfeasible, true, "inf"
	case ProvenFailedCQInfeas:
		return NodeInfeasible, true, "inf+prob"
	case ProvenObjectiveCutOff:
		return NodeHitUb, true, "ub"
	case ProvenOptimal, ProvenLocalOptimal, EngineIterationLimit:
		tol := math.Max(opt.ATol, opt.RTol*math.Abs(incumbent))
		if incumbent < posInf && lb >= incumbent-tol {
			return NodeHitUb, true, "ub"
		}
		if status == EngineIterationLimit {
			return NodeContinue, false, "prob"
		}
		return NodeContinue, false, ""
	case FailedFeas, ProvenFailedCQFeas:
		return NodeContinue, false, "prob"
	case FailedInfeas:
		return NodeInfeasible, true, "inf+prob"
	case EngineError:
		if opt.ContOnErr {
			return NodeContinue, false, "prob"
		}
		return NodeInfeasible, true, "prob"
	case ProvenUnbounded:
		panic("minlp: relaxation reported unbounded; problem is unbounded or malformed")
	default:
		panic("minlp: processor.classify: unhandled engine status")
	}
}

// Process runs the full per-node loop against node/rel, recording every
// modification it applies onto node so the driver can undo them on
// backtrack. numSolutionsAdded counts only solutions newly admitted into
// pool during this call.
func (p *Processor) Process(node *Node, rel *Relaxation, pool *SolutionPool) (numSolutionsAdded int) {
	p.stats.nodesProcessed++
	p.firstIter = true

	for {
		// 1. Presolve node.
		freq := p.opt.PresolveFreq
		if freq <= 0 {
			freq = 1
		}
		if node.ID == 0 || int(node.ID)%freq == 0 {
			if p.presolveNode(node, rel, pool) {
				node.Status = NodeInfeasible
				return numSolutionsAdded
			}
		}

		// 2. Solve. node.WarmStart, if any, was inherited from the parent
		// at branch time; load it as a hint, then release the parent's
		// reference (it has done its job for this node).
		if node.WarmStart != nil {
			p.engine.LoadFromWarmStart(node.WarmStart)
		}
		node.RemoveWarmStart()
		p.engine.SetDualObjLimit(math.Min(pool.BestSolutionValue(), p.opt.ObjCutOff))
		p.stats.solves++
		status := p.engine.Solve()
		node.WarmStart = p.engine.WarmStartCopy()

		// 3. Classify.
		ns, prune, statKey := classify(status, node.Lb, pool.BestSolutionValue(), p.opt)
		_ = statKey
		sol := p.engine.Solution()
		if sol != nil && sol.X != nil {
			node.Lb = math.Max(node.Lb, sol.Obj)
		}
		if prune {
			node.Status = ns
			return numSolutionsAdded
		}
		node.Status = ns
		if sol == nil || sol.X == nil {
			// FailedFeas/ProvenFailedCQFeas/EngineError-with-ContOnErr:
			// no usable relaxation point was produced. Leave the node
			// Continue with its inherited lb so the tree manager re-queues
			// it (and it will be retried, typically after a sibling
			// tightens shared global state); nothing further can be done
			// against a point that doesn't exist.
			return numSolutionsAdded
		}

		// 4. Pseudo-cost update, first iteration only.
		if p.firstIter {
			p.brancher.UpdateAfterSolve(node, &Solution{X: sol.X, Obj: sol.Obj})
			p.firstIter = false
		}

		cur := &Solution{X: sol.X, Obj: sol.Obj, Feasible: true}

		// 5. Feasibility.
		allFeasible := true
		for _, h := range p.handlers {
			feasible, shouldPrune, _ := h.IsFeasible(cur, rel)
			if shouldPrune {
				node.Status = NodeInfeasible
				return numSolutionsAdded
			}
			if !feasible {
				allFeasible = false
				break
			}
		}
		if allFeasible {
			pool.AddSolution(cur)
			numSolutionsAdded++
			node.Status = NodeOptimal
			return numSolutionsAdded
		}

		// 7. Separation (root heuristics, step 6, are a driver-level
		// concern invoked once before the root's first Process call; see
		// driver.go).
		resolve := false
		for _, h := range p.handlers {
			pMods, rMods, solFound, sepStatus := h.Separate(cur, node, rel, pool)
			for _, m := range pMods {
				m.Apply(rel)
				node.AddPMod(m)
			}
			for _, m := range rMods {
				m.Apply(rel)
				node.AddRMod(m)
			}
			if solFound {
				pool.AddSolution(cur)
				numSolutionsAdded++
			}
			switch sepStatus {
			case SepaPrune:
				node.Status = NodeInfeasible
				return numSolutionsAdded
			case SepaResolve:
				resolve = true
			}
		}
		if resolve {
			continue
		}

		// 8. Branch. Warm-start refcounting for the children happens in
		// the driver once the branch count is known (one IncrUseCnt per
		// child).
		branches, brStatus, brMods := p.brancher.FindBranches(rel, node, cur, pool, p.handlers)
		switch brStatus {
		case PrunedByBrancher:
			node.Status = NodeInfeasible
			return numSolutionsAdded
		case ModifiedByBrancher:
			for _, m := range brMods {
				m.Apply(rel)
				node.AddRMod(m)
			}
			continue
		default:
			node.Branches = branchesToNodes(branches)
			node.Status = NodeBranched
			return numSolutionsAdded
		}
	}
}

// branchesToNodes wraps each Branch's modification list into a *Node shell
// the driver fills in with a real id/parent via TreeManager.NewChild; the
// Mods are carried on ProblemMods since handler-originated changes default
// to problem scope.
func branchesToNodes(branches Branches) []*Node {
	nodes := make([]*Node, len(branches))
	for i, b := range branches {
		nodes[i] = &Node{ProblemMods: b.Mods, Status: NodeNew}
	}
	return nodes
}

// presolveNode iterates every handler's PresolveNode until a full pass adds
// no new modification (the corrected version of the C++ loop: one `for`
// with one increment, guarded by `changed`, instead of the double-counted
// `for(...;++it;...){ ++it; ...}`).
func (p *Processor) presolveNode(node *Node, rel *Relaxation, pool *SolutionPool) (isInfeasible bool) {
	const maxIter = 20
	for iter := 0; iter < maxIter; iter++ {
		p.stats.presolveRounds++
		changed := false
		for _, h := range p.handlers {
			// handlers tighten rel in place before returning their BoundChgs,
			// so the old bounds each BoundChg must restore are taken here.
			before := make([]Interval, len(rel.Variables))
			for i, v := range rel.Variables {
				before[i] = Interval{v.Lb, v.Ub}
			}
			pMods, rMods, isInf := h.PresolveNode(rel, node, pool)
			if isInf {
				for i, v := range rel.Variables {
					v.Lb, v.Ub = before[i].Lo, before[i].Hi
				}
				return true
			}
			for _, m := range pMods {
				m.Apply(rel)
				node.AddPMod(m)
				changed = true
			}
			for _, m := range rMods {
				m.Apply(rel)
				if bc, ok := m.(*BoundChg); ok {
					bc.oldLb, bc.oldUb = before[bc.VarIndex].Lo, before[bc.VarIndex].Hi
					before[bc.VarIndex] = Interval{bc.NewLb, bc.NewUb}
				}
				node.AddRMod(m)
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	return false
}

// RunRootHeuristics runs every registered heuristic against the root node,
// once, before its first Process call.
func (p *Processor) RunRootHeuristics(node *Node, rel *Relaxation, pool *SolutionPool, heuristics []Heuristic) {
	for _, h := range heuristics {
		h.Run(node, rel, pool)
	}
}

// Heuristic is a primal heuristic invoked once at the root; the stock
// build registers none, but the interface is part of the driver's wiring
// surface.
type Heuristic interface {
	Run(node *Node, rel *Relaxation, pool *SolutionPool)
	Name() string
}

func (p *Processor) WriteStats() string {
	return formatStats("Processor", map[string]int{
		"nodes_processed": p.stats.nodesProcessed,
		"solves":          p.stats.solves,
		"presolve_rounds": p.stats.presolveRounds,
	})
}
