package minlp

import (
	"context"
	"math"
	"time"

	"github.com/sirupsen/logrus"
)

// SolveStatus is the terminal outcome of a Driver.Solve call.
type SolveStatus int

const (
	NotStarted SolveStatus = iota
	SolvedOptimal
	SolvedGapLimit
	SolvedInfeasible
	SolvedUnbounded
	SolveError
	TimeLimitReached
	IterationLimitReached
	NodeLimitReached
)

func (s SolveStatus) String() string {
	switch s {
	case NotStarted:
		return "NotStarted"
	case SolvedOptimal:
		return "SolvedOptimal"
	case SolvedGapLimit:
		return "SolvedGapLimit"
	case SolvedInfeasible:
		return "SolvedInfeasible"
	case SolvedUnbounded:
		return "SolvedUnbounded"
	case SolveError:
		return "SolveError"
	case TimeLimitReached:
		return "TimeLimitReached"
	case IterationLimitReached:
		return "IterationLimitReached"
	case NodeLimitReached:
		return "NodeLimitReached"
	default:
		return "UnknownSolveStatus"
	}
}

// Result is what Driver.Solve returns: the terminal status, the best known
// bounds, and the incumbent if one was found.
type Result struct {
	Status SolveStatus
	Lb, Ub float64
	Best   *Solution
	Nodes  int
}

// Driver runs the top-level branch-and-bound loop. It owns the tree
// manager, the node processor, and the relaxation that both mutate in
// place via the modification log.
type Driver struct {
	opt    *Options
	log    *logrus.Logger
	engine Engine
	tree   *TreeManager
	proc   *Processor
	pool   *SolutionPool
}

// NewDriver wires a Driver from its already-constructed collaborators; the
// caller (cmd/minlpsolve or a test) is responsible for building Options,
// the logger, the engine, the handler list, and the brancher -- nothing
// here reaches for a package-level default.
func NewDriver(opt *Options, log *logrus.Logger, engine Engine, handlers []Handler, brancher Brancher) *Driver {
	brancher.SetEngine(engine)
	return &Driver{
		opt:    opt,
		log:    log,
		engine: engine,
		tree:   NewTreeManager(log),
		proc:   NewProcessor(opt, log, engine, handlers, brancher),
		pool:   NewSolutionPool(),
	}
}

// Solve runs the branch-and-bound loop to completion, termination, or
// cancellation of ctx.
func (d *Driver) Solve(ctx context.Context, p *Problem) Result {
	defer func() {
		d.log.WithFields(logrus.Fields{
			"tree":      d.tree.WriteStats(),
			"processor": d.proc.WriteStats(),
		}).Info("solve finished")
	}()

	rootRel := RelaxInitFull(p)
	d.engine.Load(rootRel)
	root := d.tree.InsertRoot()

	deadline := time.Time{}
	if d.opt.TimeLimit > 0 {
		deadline = time.Now().Add(d.opt.TimeLimit)
	}

	status := NotStarted
	firstNode := true

	for {
		if err := ctx.Err(); err != nil {
			status = d.terminalStatusOr(TimeLimitReached)
			break
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			status = TimeLimitReached
			break
		}
		if d.opt.NodeLimit > 0 && d.proc.stats.nodesProcessed >= d.opt.NodeLimit {
			status = NodeLimitReached
			break
		}

		lb := d.tree.GetLb()
		ub := d.pool.BestSolutionValue()
		if d.gapClosed(lb, ub) {
			status = d.terminalStatusOr(SolvedOptimal)
			break
		}

		node := d.tree.GetCandidate()
		if node == nil {
			status = d.terminalStatusOr(SolvedOptimal)
			break
		}

		tol := math.Max(d.opt.AbsGap, d.opt.RelGap*math.Abs(ub))
		if ub < posInf && node.Lb >= ub-tol {
			d.tree.PruneNode(node)
			continue
		}

		path := d.pathFromRoot(node)
		d.applyPath(rootRel, path)

		rel := rootRel

		if firstNode {
			// Root heuristics run once, before the root's first Process
			// call. The stock build registers none.
			d.proc.RunRootHeuristics(node, rel, d.pool, nil)
			firstNode = false
		}

		d.proc.Process(node, rel, d.pool)

		if node.Status == NodeBranched {
			d.tree.NotifyBranched(node, len(node.Branches))
			for _, shell := range node.Branches {
				child := d.tree.NewChild(node)
				child.ProblemMods = shell.ProblemMods
				child.RelaxationMods = shell.RelaxationMods
				if node.WarmStart != nil {
					node.WarmStart.IncrUseCnt()
					child.WarmStart = node.WarmStart
				}
				d.tree.InsertCandidate(child)
			}
		} else {
			d.tree.BranchedNodeDone(node)
		}

		d.undoPath(rootRel, path)
	}

	d.tree.SetUb(d.pool.BestSolutionValue())
	return Result{
		Status: status,
		Lb:     d.tree.GetLb(),
		Ub:     d.pool.BestSolutionValue(),
		Best:   d.pool.BestSolution(),
		Nodes:  d.proc.stats.nodesProcessed,
	}
}

// gapClosed reports whether the absolute/relative optimality gap
// termination rule is satisfied.
func (d *Driver) gapClosed(lb, ub float64) bool {
	if ub == posInf {
		return false
	}
	gap := ub - lb
	return gap <= math.Max(d.opt.AbsGap, d.opt.RelGap*math.Abs(ub))
}

// terminalStatusOr reports SolvedInfeasible if no feasible solution was
// ever found and the tree is exhausted, SolvedOptimal/SolvedGapLimit
// otherwise, falling back to the caller-supplied candidate status for
// stop conditions (cancellation).
func (d *Driver) terminalStatusOr(candidate SolveStatus) SolveStatus {
	if candidate == TimeLimitReached {
		return TimeLimitReached
	}
	if d.pool.NumSolutions() == 0 {
		return SolvedInfeasible
	}
	lb, ub := d.tree.GetLb(), d.pool.BestSolutionValue()
	if d.gapClosed(lb, ub) {
		return SolvedOptimal
	}
	return SolvedGapLimit
}

// pathFromRoot returns the ancestor chain from root to node, inclusive,
// using the tree manager's arena.
func (d *Driver) pathFromRoot(node *Node) []*Node {
	var rev []*Node
	for n := node; n != nil; n = d.tree.Parent(n) {
		rev = append(rev, n)
	}
	path := make([]*Node, len(rev))
	for i, n := range rev {
		path[len(rev)-1-i] = n
	}
	return path
}

// applyPath reconstructs node's relaxation state by applying every
// ancestor's (and the node's own) stored modifications in root-to-node
// order. Ancestors' modifications were undone after their own Process
// call returned, so they must be reapplied here -- the relaxation object
// is mutated in place and shared across the whole solve; the driver owns
// it.
func (d *Driver) applyPath(rel *Relaxation, path []*Node) {
	for _, n := range path {
		ApplyAll(rel, n.AllMods())
	}
}

// undoPath is the exact inverse of applyPath, undone in reverse
// (node-to-root) order, restoring the relaxation to its pre-visit state
// before the driver selects the next candidate.
func (d *Driver) undoPath(rel *Relaxation, path []*Node) {
	for i := len(path) - 1; i >= 0; i-- {
		UndoAll(rel, path[i].AllMods())
	}
}
