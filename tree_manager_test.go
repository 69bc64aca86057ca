package minlp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTreeManager_InsertRootAndCandidate(t *testing.T) {
	tm := NewTreeManager(nopLogger())
	root := tm.InsertRoot()
	assert.Equal(t, NodeID(0), root.ID)
	assert.Equal(t, NoParent, root.Parent)
	assert.Equal(t, 1, tm.GetSize())

	got := tm.GetCandidate()
	assert.Same(t, root, got)
	assert.Equal(t, 0, tm.GetSize())
}

func TestTreeManager_GetCandidate_EmptyReturnsNil(t *testing.T) {
	tm := NewTreeManager(nopLogger())
	assert.Nil(t, tm.GetCandidate())
}

func TestTreeManager_BestBoundOrdering(t *testing.T) {
	tm := NewTreeManager(nopLogger())
	root := tm.InsertRoot()
	tm.GetCandidate() // pop root to make room for children.

	a := tm.NewChild(root)
	a.Lb = 5
	tm.InsertCandidate(a)

	b := tm.NewChild(root)
	b.Lb = 2
	tm.InsertCandidate(b)

	c := tm.NewChild(root)
	c.Lb = 8
	tm.InsertCandidate(c)

	first := tm.GetCandidate()
	assert.Same(t, b, first) // lowest lb first.
	second := tm.GetCandidate()
	assert.Same(t, a, second)
	third := tm.GetCandidate()
	assert.Same(t, c, third)
}

func TestTreeManager_DepthTiebreak(t *testing.T) {
	tm := NewTreeManager(nopLogger())
	root := tm.InsertRoot()
	tm.GetCandidate()

	shallow := tm.NewChild(root)
	shallow.Lb = 1
	shallow.Depth = 1
	tm.InsertCandidate(shallow)

	deep := tm.NewChild(root)
	deep.Lb = 1
	deep.Depth = 5
	tm.InsertCandidate(deep)

	first := tm.GetCandidate()
	assert.Same(t, deep, first) // same lb: deepest node wins (DFS-like tiebreak).
}

func TestTreeManager_Parent(t *testing.T) {
	tm := NewTreeManager(nopLogger())
	root := tm.InsertRoot()
	tm.GetCandidate()

	child := tm.NewChild(root)
	assert.Same(t, root, tm.Parent(child))
	assert.Nil(t, tm.Parent(root))
}

func TestTreeManager_GetLb_EmptyTreeIsPosInf(t *testing.T) {
	tm := NewTreeManager(nopLogger())
	assert.Equal(t, posInf, tm.GetLb())

	root := tm.InsertRoot()
	root.Lb = 3
	assert.Equal(t, 3.0, tm.GetLb())
}

func TestTreeManager_WriteStats(t *testing.T) {
	tm := NewTreeManager(nopLogger())
	root := tm.InsertRoot()
	tm.GetCandidate()
	tm.PruneNode(root)
	s := tm.WriteStats()
	require.Contains(t, s, "pruned=1")
	require.Contains(t, s, "created=1")
}
