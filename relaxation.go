package minlp

// Relaxation is a continuous (or convex continuous over-approximation) of
// the original Problem. It maintains a back-map from each
// relaxation variable/constraint to its originator so handlers can report
// violations in terms the original Problem understands.
type Relaxation struct {
	*Problem

	// OrigVar/OrigCon map a relaxation variable/constraint index back to
	// the index of the Problem entity it was derived from. -1 means the
	// entity was added during relaxation (e.g. a cut) and has no
	// originator.
	OrigVar []int
	OrigCon []int
}

// RelaxInitFull builds the root relaxation of a Problem: for the stock
// handlers in this package, linear and convex-quadratic constructs relax
// one-to-one (variables keep their bounds, constraints keep their
// function), so the "relaxation" at the root is structurally identical to
// the Problem, just wrapped with identity back-maps. Integrality is
// enforced by the brancher's modifications, not by the relaxation itself.
func RelaxInitFull(p *Problem) *Relaxation {
	rel := &Relaxation{
		Problem: cloneProblem(p),
	}
	rel.OrigVar = make([]int, len(p.Variables))
	for i := range rel.OrigVar {
		rel.OrigVar[i] = i
	}
	rel.OrigCon = make([]int, len(p.Constraints))
	for i := range rel.OrigCon {
		rel.OrigCon[i] = i
	}
	return rel
}

// cloneProblem makes a deep-enough copy of a Problem so the relaxation's
// variables/constraints can be mutated by the modification log without
// perturbing the original Problem. CGraphs are shared, not copied; only the
// mutable Variable/Constraint structs are copied, so a CoefChg applied to
// the relaxation also changes the original Problem's graph.
func cloneProblem(p *Problem) *Problem {
	np := &Problem{
		Name:     p.Name,
		ObjGraph: p.ObjGraph,
		ObjConst: p.ObjConst,
		Sense:    p.Sense,
	}
	np.Variables = make([]*Variable, len(p.Variables))
	for i, v := range p.Variables {
		cp := *v
		np.Variables[i] = &cp
	}
	np.Constraints = make([]*Constraint, len(p.Constraints))
	for i, c := range p.Constraints {
		cp := *c
		np.Constraints[i] = &cp
	}
	np.CalculateSize()
	return np
}

// AddCut appends a new, relaxation-local constraint (e.g. a separating
// hyperplane) and returns it. It has no originator in the Problem.
func (r *Relaxation) AddCut(name string, graph *CGraph, l, u float64) *Constraint {
	c := r.Problem.AddConstraint(name, graph, l, u)
	r.OrigCon = append(r.OrigCon, -1)
	return c
}

// RemoveCons removes the constraints at the given indices from the
// relaxation in one filtering pass and renumbers the remaining ones.
func (r *Relaxation) RemoveCons(idxs []int) {
	remove := make(map[int]bool, len(idxs))
	for _, i := range idxs {
		remove[i] = true
	}
	var cons []*Constraint
	var orig []int
	for i, c := range r.Constraints {
		if remove[i] {
			continue
		}
		c.Index = len(cons)
		cons = append(cons, c)
		orig = append(orig, r.OrigCon[i])
	}
	r.Constraints = cons
	r.OrigCon = orig
	r.Problem.sizeValid = false
}
