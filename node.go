package minlp

// NodeID identifies a Node within a Tree's arena. The root's parent is
// NoParent. IDs are never reused within a solve.
type NodeID int64

// NoParent is the sentinel parent id of the root node, used instead of a
// nil pointer: the tree is an arena of nodes indexed by id, and parent
// links are ids, not pointers.
const NoParent NodeID = -1

// NodeStatus is the lifecycle state of a Node.
type NodeStatus int

const (
	NodeNew NodeStatus = iota
	NodeContinue
	NodeOptimal
	NodeInfeasible
	NodeHitUb
	NodeBranched
	NodeStopped
)

func (s NodeStatus) String() string {
	switch s {
	case NodeNew:
		return "New"
	case NodeContinue:
		return "Continue"
	case NodeOptimal:
		return "Optimal"
	case NodeInfeasible:
		return "Infeasible"
	case NodeHitUb:
		return "HitUb"
	case NodeBranched:
		return "Branched"
	case NodeStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// Node is one element of the branch-and-bound search tree.
// Its two modification lists, applied in order on top of the parent's
// relaxation state, reproduce this node's relaxation; undoing them in
// reverse restores the parent.
type Node struct {
	ID     NodeID
	Parent NodeID
	Depth  int

	Lb float64

	Status NodeStatus

	ProblemMods    []Modification
	RelaxationMods []Modification

	WarmStart *WarmStart

	// set by the processor from the brancher's branches once this node has
	// been split; consumed by the driver to enqueue children.
	Branches []*Node
}

// NewRootNode returns the tree root: no parent, depth 0, lb -Inf (the
// weakest possible bound, tightened by the first solve).
func NewRootNode() *Node {
	return &Node{ID: 0, Parent: NoParent, Depth: 0, Lb: negInf, Status: NodeNew}
}

// AddPMod appends a problem-scope modification, owned by this node for
// undo on backtrack. Every modification a handler pushes into pMods/rMods
// is owned by the node it was applied to.
func (n *Node) AddPMod(m Modification) { n.ProblemMods = append(n.ProblemMods, m) }

// AddRMod appends a relaxation-scope modification, owned by this node.
func (n *Node) AddRMod(m Modification) { n.RelaxationMods = append(n.RelaxationMods, m) }

// AllMods returns the node's problem-scope mods followed by its
// relaxation-scope mods, the order in which applyPath (driver.go) applies
// them; undoPath reverts them in reverse.
func (n *Node) AllMods() []Modification {
	all := make([]Modification, 0, len(n.ProblemMods)+len(n.RelaxationMods))
	all = append(all, n.ProblemMods...)
	all = append(all, n.RelaxationMods...)
	return all
}

// RemoveWarmStart releases this node's reference to its warm start: the
// processor releases it when the child begins solving, and the warm start
// itself is freed once its use count reaches zero.
func (n *Node) RemoveWarmStart() {
	if n.WarmStart == nil {
		return
	}
	n.WarmStart.DecrUseCnt()
	n.WarmStart = nil
}
