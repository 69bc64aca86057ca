package minlp

// BrancherStatus is the outcome of one Brancher.FindBranches call.
type BrancherStatus int

const (
	NotModifiedByBrancher BrancherStatus = iota
	ModifiedByBrancher
	PrunedByBrancher
)

// Brancher selects a branching candidate among those handlers surface and
// turns it into child branches. The driver owns exactly one
// Brancher instance for the whole solve.
type Brancher interface {
	// FindBranches asks every handler for branching candidates, picks one
	// per this brancher's strategy, and returns the branches to apply. A
	// non-nil mods return (with status ModifiedByBrancher) means the
	// brancher itself tightened the relaxation (e.g. strong-branching
	// proved one side infeasible) and the node must be re-solved instead
	// of branched.
	FindBranches(rel *Relaxation, node *Node, sol *Solution, pool *SolutionPool, handlers []Handler) (branches Branches, status BrancherStatus, mods []Modification)

	// UpdateAfterSolve lets pseudo-cost-based branchers observe the bound
	// improvement a branch produced; no-op for stateless strategies.
	UpdateAfterSolve(node *Node, sol *Solution)

	SetEngine(e Engine)
	WriteStats() string
}

// pickCandidates asks every handler for branching candidates in order and
// returns all of them pooled together, unsorted; ranking and tie-breaking
// are left to each brancher.
func pickCandidates(handlers []Handler, rel *Relaxation, x []float64) (cands []*BrCand, isInf bool) {
	for _, h := range handlers {
		hc, inf := h.GetBranchingCandidates(rel, x)
		if inf {
			return nil, true
		}
		cands = append(cands, hc...)
	}
	return cands, false
}

// MaxViolationBrancher picks the candidate with the largest score,
// breaking ties by lowest variable id.
type MaxViolationBrancher struct {
	stats struct{ branches int }
}

func NewMaxViolationBrancher() *MaxViolationBrancher { return &MaxViolationBrancher{} }

func (b *MaxViolationBrancher) SetEngine(e Engine) {}

func (b *MaxViolationBrancher) FindBranches(rel *Relaxation, node *Node, sol *Solution, pool *SolutionPool, handlers []Handler) (Branches, BrancherStatus, []Modification) {
	cands, isInf := pickCandidates(handlers, rel, sol.X)
	if isInf {
		return nil, PrunedByBrancher, nil
	}
	if len(cands) == 0 {
		return nil, NotModifiedByBrancher, nil
	}
	best := cands[0]
	for _, c := range cands[1:] {
		if c.Score > best.Score || (c.Score == best.Score && c.VarIndex < best.VarIndex) {
			best = c
		}
	}
	b.stats.branches++
	return best.Handler.GetBranches(best, sol.X, rel, pool), NotModifiedByBrancher, nil
}

func (b *MaxViolationBrancher) UpdateAfterSolve(node *Node, sol *Solution) {}

func (b *MaxViolationBrancher) WriteStats() string {
	return formatStats("MaxViolationBrancher", map[string]int{"branches": b.stats.branches})
}

// LexicographicBrancher picks the first candidate in ascending variable-id
// order, independent of score.
type LexicographicBrancher struct {
	stats struct{ branches int }
}

func NewLexicographicBrancher() *LexicographicBrancher { return &LexicographicBrancher{} }

func (b *LexicographicBrancher) SetEngine(e Engine) {}

func (b *LexicographicBrancher) FindBranches(rel *Relaxation, node *Node, sol *Solution, pool *SolutionPool, handlers []Handler) (Branches, BrancherStatus, []Modification) {
	cands, isInf := pickCandidates(handlers, rel, sol.X)
	if isInf {
		return nil, PrunedByBrancher, nil
	}
	if len(cands) == 0 {
		return nil, NotModifiedByBrancher, nil
	}
	first := cands[0]
	for _, c := range cands[1:] {
		if c.VarIndex < first.VarIndex {
			first = c
		}
	}
	b.stats.branches++
	return first.Handler.GetBranches(first, sol.X, rel, pool), NotModifiedByBrancher, nil
}

func (b *LexicographicBrancher) UpdateAfterSolve(node *Node, sol *Solution) {}

func (b *LexicographicBrancher) WriteStats() string {
	return formatStats("LexicographicBrancher", map[string]int{"branches": b.stats.branches})
}
