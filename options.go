package minlp

import "time"

// BrancherKind selects which Brancher implementation the driver wires up.
type BrancherKind string

const (
	BrancherReliability  BrancherKind = "rel"
	BrancherMaxViolation BrancherKind = "maxvio"
	BrancherLexicographic BrancherKind = "lex"
)

// Options is the solver's option database: the only process-wide mutable
// state, constructed at startup and passed as an explicit dependency to
// every component. There is no package-level instance of this type; every
// component that needs it receives one explicitly.
type Options struct {
	// Presolve toggles.
	Presolve    bool
	NLPresolve  bool
	LinPresolve bool

	UseNativeCGraph bool

	Brancher BrancherKind

	// Termination tolerances.
	SolAbsTol float64
	SolRelTol float64
	ObjCutOff float64
	AbsGap    float64
	RelGap    float64

	// Node processor tuning.
	PresolveFreq int

	// Handler tolerances shared by the stock handlers.
	IntTol float64 // integrality tolerance
	ATol   float64 // absolute feasibility tolerance
	RTol   float64 // relative feasibility tolerance
	ETol   float64 // constraint-violation tolerance
	BTol   float64 // bound-change threshold
	VTol   float64 // bounds-equal threshold

	// Limits.
	TimeLimit time.Duration
	NodeLimit int

	// ContOnErr: if true, a handler or engine error on a node degrades the
	// node to Continue (inheriting the parent's lb) instead of Infeasible.
	ContOnErr bool

	DisplayProblem bool
	DisplaySize    bool
}

// DefaultOptions returns a reasonable default configuration: intTol 1e-5
// for the linear handler's branching-candidate cutoff, presolveNode
// running on every node by default, etc.
func DefaultOptions() *Options {
	return &Options{
		Presolve:        true,
		NLPresolve:      true,
		LinPresolve:     true,
		UseNativeCGraph: true,
		Brancher:        BrancherReliability,
		SolAbsTol:       1e-6,
		SolRelTol:       1e-9,
		ObjCutOff:       posInf,
		AbsGap:          1e-6,
		RelGap:          1e-4,
		PresolveFreq:    1,
		IntTol:          1e-5,
		ATol:            1e-6,
		RTol:            1e-9,
		ETol:            1e-6,
		BTol:            1e-7,
		VTol:            1e-9,
		TimeLimit:       0, // 0 == unlimited
		NodeLimit:       0, // 0 == unlimited
		ContOnErr:       true,
		DisplayProblem:  false,
		DisplaySize:     false,
	}
}
