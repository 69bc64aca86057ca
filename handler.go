package minlp

// SeparationStatus is the outcome of a Handler.Separate call: Continue
// means nothing material changed, Resolve means the relaxation was
// materially altered and must be re-solved, Prune means no child of this
// node can improve on the incumbent.
type SeparationStatus int

const (
	SepaContinue SeparationStatus = iota
	SepaResolve
	SepaPrune
)

// BranchDirection selects which side of a two-way branch a modification
// implements.
type BranchDirection int

const (
	BranchDown BranchDirection = iota // x <= floor(x*)
	BranchUp                          // x >= ceil(x*)
)

// BrCand is a branching candidate surfaced by a handler's
// GetBranchingCandidates: a variable (or, for future handler kinds, a more
// general disjunction) with a violation score.
type BrCand struct {
	VarIndex int
	Value    float64 // the candidate's current relaxation value
	Score    float64 // handler-assigned violation score; higher is more attractive
	Handler  Handler
}

// Branch is one child modification bundle produced by Handler.GetBranches:
// applying Mods to the parent's relaxation (via the node the branch is
// attached to) produces the child subproblem.
type Branch struct {
	Mods []Modification
}

// Branches is the ordered set of children a branch produces, usually two.
type Branches []*Branch

// Handler is the polymorphic capability set for one class of constraints:
// feasibility test, separation, presolve, bound propagation, and
// branching-candidate generation. All operations are expected to be
// idempotent under identical inputs. The driver owns each handler for the
// whole solve.
type Handler interface {
	// IsFeasible examines whether sol violates any constraint this
	// handler owns. shouldPrune true means the handler has determined the
	// node is infeasible or dominated, independent of the feasible bool.
	IsFeasible(sol *Solution, rel *Relaxation) (feasible bool, shouldPrune bool, infMeasure float64)

	// Separate appends cuts/modifications to pMods/rMods (owned by node
	// once pushed there by the caller) and may discover a feasible primal
	// point, in which case it returns solFound=true.
	Separate(sol *Solution, node *Node, rel *Relaxation, pool *SolutionPool) (pMods, rMods []Modification, solFound bool, status SeparationStatus)

	// Presolve performs global, pre-tree tightening, returning the
	// modifications it wants applied and whether anything changed.
	Presolve(rel *Relaxation) (mods []Modification, changed bool)

	// PresolveNode performs node-local tightening, reporting whether it
	// proved the node infeasible.
	PresolveNode(rel *Relaxation, node *Node, pool *SolutionPool) (pMods, rMods []Modification, isInfeasible bool)

	// GetBranchingCandidates yields candidates scored by local violation.
	GetBranchingCandidates(rel *Relaxation, x []float64) (cands []*BrCand, isInfeasible bool)

	// GetBrMod returns the modification implementing one branch direction
	// for a candidate this handler produced.
	GetBrMod(cand *BrCand, x []float64, rel *Relaxation, dir BranchDirection) Modification

	// GetBranches returns the full k-ary branch for a candidate.
	GetBranches(cand *BrCand, x []float64, rel *Relaxation, pool *SolutionPool) Branches

	WriteStats() string
	Name() string
}
