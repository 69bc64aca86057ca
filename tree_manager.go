package minlp

import (
	"container/heap"

	"github.com/sirupsen/logrus"
)

// NodeSelector orders open nodes for the tree manager's getCandidate; the
// default is best-bound-first with depth as a tiebreak, but the policy is
// pluggable.
type NodeSelector interface {
	Less(a, b *Node) bool
}

// bestBoundDFS orders by (lb ascending, depth descending, id ascending):
// best dual bound first, deepest node as the tiebreak to keep memory
// bounded like a depth-first search, id as the final deterministic
// tiebreak.
type bestBoundDFS struct{}

func (bestBoundDFS) Less(a, b *Node) bool {
	if a.Lb != b.Lb {
		return a.Lb < b.Lb
	}
	if a.Depth != b.Depth {
		return a.Depth > b.Depth
	}
	return a.ID < b.ID
}

// nodeHeap is a container/heap.Interface view over an arena of open nodes.
type nodeHeap struct {
	nodes []*Node
	sel   NodeSelector
}

func (h nodeHeap) Len() int            { return len(h.nodes) }
func (h nodeHeap) Less(i, j int) bool  { return h.sel.Less(h.nodes[i], h.nodes[j]) }
func (h nodeHeap) Swap(i, j int)       { h.nodes[i], h.nodes[j] = h.nodes[j], h.nodes[i] }
func (h *nodeHeap) Push(x interface{}) { h.nodes = append(h.nodes, x.(*Node)) }
func (h *nodeHeap) Pop() interface{} {
	old := h.nodes
	n := len(old)
	item := old[n-1]
	h.nodes = old[:n-1]
	return item
}

// TreeManager owns the whole search tree's node arena: the open-node heap,
// the by-id index for parent/child lookups, and the running lb/ub
// bookkeeping. Nodes are never removed from the arena map once created --
// only from the open heap -- so parent lookups remain valid for the whole
// solve.
type TreeManager struct {
	log *logrus.Logger

	arena  map[NodeID]*Node
	open   *nodeHeap
	nextID NodeID

	ub float64

	stats struct {
		created  int
		pruned   int
		branched int
	}
}

// NewTreeManager returns an empty tree manager using the default
// best-bound/depth-first selector.
func NewTreeManager(log *logrus.Logger) *TreeManager {
	return NewTreeManagerWithSelector(log, bestBoundDFS{})
}

// NewTreeManagerWithSelector returns an empty tree manager using sel for
// open-node ordering.
func NewTreeManagerWithSelector(log *logrus.Logger, sel NodeSelector) *TreeManager {
	h := &nodeHeap{sel: sel}
	heap.Init(h)
	return &TreeManager{
		log:   log,
		arena: make(map[NodeID]*Node),
		open:  h,
		ub:    posInf,
	}
}

// InsertRoot creates and enqueues the root node.
func (t *TreeManager) InsertRoot() *Node {
	n := NewRootNode()
	t.arena[n.ID] = n
	heap.Push(t.open, n)
	t.nextID = 1
	t.stats.created++
	return n
}

// NewChild allocates a fresh node under parent, not yet inserted into the
// open set (the caller inserts it via InsertCandidate once its branch mods
// are attached).
func (t *TreeManager) NewChild(parent *Node) *Node {
	n := &Node{ID: t.nextID, Parent: parent.ID, Depth: parent.Depth + 1, Lb: parent.Lb, Status: NodeNew}
	t.nextID++
	t.arena[n.ID] = n
	t.stats.created++
	return n
}

// InsertCandidate pushes an already-constructed node onto the open heap.
func (t *TreeManager) InsertCandidate(n *Node) {
	heap.Push(t.open, n)
}

// GetCandidate pops and returns the best open node, or nil if the tree is
// empty.
func (t *TreeManager) GetCandidate() *Node {
	if t.open.Len() == 0 {
		return nil
	}
	return heap.Pop(t.open).(*Node)
}

// BranchedNodeDone records that node produced no further children (it was
// fathomed: infeasible, bound-dominated, or yielded a solution) by logging
// it at debug level; the node stays in the tree's node map.
func (t *TreeManager) BranchedNodeDone(node *Node) {
	t.log.WithFields(logrus.Fields{"node": node.ID, "status": node.Status.String(), "lb": node.Lb}).Debug("node fathomed")
}

// PruneNode records a node pruned without ever being processed (its own
// lb already exceeded the incumbent when popped).
func (t *TreeManager) PruneNode(node *Node) {
	t.stats.pruned++
	t.log.WithFields(logrus.Fields{"node": node.ID, "lb": node.Lb, "ub": t.ub}).Debug("node pruned by bound")
}

// NotifyBranched records that node produced children, for stats only; the
// driver is responsible for actually calling NewChild/InsertCandidate per
// branch.
func (t *TreeManager) NotifyBranched(node *Node, nChildren int) {
	t.stats.branched++
	t.log.WithFields(logrus.Fields{"node": node.ID, "children": nChildren}).Debug("node branched")
}

// GetSize reports the number of nodes currently in the open set.
func (t *TreeManager) GetSize() int { return t.open.Len() }

// GetLb returns the minimum lb over the open set -- the global dual bound
// -- or +Inf if the tree is empty (proven optimal/infeasible).
func (t *TreeManager) GetLb() float64 {
	if t.open.Len() == 0 {
		return posInf
	}
	best := posInf
	for _, n := range t.open.nodes {
		if n.Lb < best {
			best = n.Lb
		}
	}
	return best
}

// SetUb records the current incumbent objective, used only for log
// annotation (the driver itself is the source of truth for the cutoff fed
// to the engine).
func (t *TreeManager) SetUb(v float64) { t.ub = v }

// GetUb returns the last-recorded incumbent objective.
func (t *TreeManager) GetUb() float64 { return t.ub }

// Parent returns node's parent, or nil at the root.
func (t *TreeManager) Parent(node *Node) *Node {
	if node.Parent == NoParent {
		return nil
	}
	return t.arena[node.Parent]
}

func (t *TreeManager) WriteStats() string {
	return formatStats("TreeManager", map[string]int{
		"created":  t.stats.created,
		"pruned":   t.stats.pruned,
		"branched": t.stats.branched,
	})
}
