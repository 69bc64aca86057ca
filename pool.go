package minlp

import "sort"

// Solution is a primal vector plus objective value and feasibility tag.
// X is indexed the same as the Relaxation's Variables the solution was
// produced against.
type Solution struct {
	X        []float64
	Obj      float64
	Feasible bool
}

// SolutionPool is the set of feasible primal solutions found during the
// solve, plus the current best objective cutoff.
type SolutionPool struct {
	solutions []*Solution
}

// NewSolutionPool returns an empty pool.
func NewSolutionPool() *SolutionPool {
	return &SolutionPool{}
}

// AddSolution inserts a new feasible solution into the pool, keeping the
// pool sorted best-first.
func (p *SolutionPool) AddSolution(sol *Solution) {
	cp := &Solution{X: append([]float64(nil), sol.X...), Obj: sol.Obj, Feasible: sol.Feasible}
	p.solutions = append(p.solutions, cp)
	sort.Slice(p.solutions, func(i, j int) bool {
		return p.solutions[i].Obj < p.solutions[j].Obj
	})
}

// BestSolution returns the incumbent (lowest objective) solution, or nil if
// the pool is empty.
func (p *SolutionPool) BestSolution() *Solution {
	if len(p.solutions) == 0 {
		return nil
	}
	return p.solutions[0]
}

// BestSolutionValue returns the incumbent's objective, or +Inf if no
// feasible solution has been found yet. The node processor feeds the
// smaller of this and Options.ObjCutOff to Engine.SetDualObjLimit before
// every solve.
func (p *SolutionPool) BestSolutionValue() float64 {
	best := p.BestSolution()
	if best == nil {
		return posInf
	}
	return best.Obj
}

// NumSolutions reports how many feasible solutions the pool holds.
func (p *SolutionPool) NumSolutions() int { return len(p.solutions) }
