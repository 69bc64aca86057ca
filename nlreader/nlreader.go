// Package nlreader parses a minimal, line-oriented problem format into a
// minlp.Problem. It is explicitly not an AMPL .nl parser -- just a
// stand-in input path real enough to drive the CLI and end-to-end tests.
//
// Grammar, one statement per line, blank lines and lines starting with
// '#' ignored:
//
//	var <name> <cont|int|bin> [<lb> <ub>]
//	con <name> <l> <u> lin <coef>...
//	con <name> <l> <u> quad <coef>... ; <q00> <q01> ... <qnn>
//	obj <min|max> lin <coef>...
//	obj <min|max> quad <coef>... ; <q00> <q01> ... <qnn>
//
// Coefficient lists are given in variable-declaration order and must
// cover every declared variable (zero for variables the row doesn't
// touch). The quadratic matrix, if present, follows a ';' as a flattened
// row-major n*n block.
package nlreader

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/gominlp/bnb"
)

// Read parses the line-oriented format from r into a fresh minlp.Problem.
func Read(r io.Reader) (*minlp.Problem, error) {
	p := minlp.NewProblem("nlreader")
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "var":
			if err := readVar(p, fields, lineNo); err != nil {
				return nil, err
			}
		case "con":
			if err := readCon(p, fields, lineNo); err != nil {
				return nil, err
			}
		case "obj":
			if err := readObj(p, fields, lineNo); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("nlreader: line %d: unknown statement %q", lineNo, fields[0])
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("nlreader: %w", err)
	}
	return p, nil
}

func readVar(p *minlp.Problem, fields []string, lineNo int) error {
	if len(fields) < 3 {
		return fmt.Errorf("nlreader: line %d: var needs a name and a type", lineNo)
	}
	name := fields[1]
	var vtype minlp.VarType
	switch fields[2] {
	case "cont":
		vtype = minlp.Continuous
	case "int":
		vtype = minlp.Integer
	case "bin":
		vtype = minlp.Binary
	default:
		return fmt.Errorf("nlreader: line %d: unknown variable type %q", lineNo, fields[2])
	}
	v := p.AddVariable(name, vtype)
	if len(fields) >= 5 {
		lb, err := parseBound(fields[3])
		if err != nil {
			return fmt.Errorf("nlreader: line %d: bad lower bound: %w", lineNo, err)
		}
		ub, err := parseBound(fields[4])
		if err != nil {
			return fmt.Errorf("nlreader: line %d: bad upper bound: %w", lineNo, err)
		}
		v.Lb, v.Ub = lb, ub
	}
	return nil
}

func parseBound(s string) (float64, error) {
	switch s {
	case "-inf":
		return math.Inf(-1), nil
	case "+inf", "inf":
		return math.Inf(1), nil
	default:
		return strconv.ParseFloat(s, 64)
	}
}

func readCon(p *minlp.Problem, fields []string, lineNo int) error {
	if len(fields) < 5 {
		return fmt.Errorf("nlreader: line %d: con needs name, l, u, and a function", lineNo)
	}
	name := fields[1]
	l, err := parseBound(fields[2])
	if err != nil {
		return fmt.Errorf("nlreader: line %d: bad l: %w", lineNo, err)
	}
	u, err := parseBound(fields[3])
	if err != nil {
		return fmt.Errorf("nlreader: line %d: bad u: %w", lineNo, err)
	}
	g, err := readFunc(p, fields[4:], lineNo)
	if err != nil {
		return err
	}
	p.AddConstraint(name, g, l, u)
	return nil
}

func readObj(p *minlp.Problem, fields []string, lineNo int) error {
	if len(fields) < 3 {
		return fmt.Errorf("nlreader: line %d: obj needs a sense and a function", lineNo)
	}
	switch fields[1] {
	case "min":
		p.Sense = minlp.Minimize
	case "max":
		p.Sense = minlp.Maximize
	default:
		return fmt.Errorf("nlreader: line %d: unknown objective sense %q", lineNo, fields[1])
	}
	g, err := readFunc(p, fields[2:], lineNo)
	if err != nil {
		return err
	}
	p.ObjGraph = g
	return nil
}

// readFunc parses either "lin <coef>..." or "quad <coef>... ; <q...>"
// into a CGraph over every variable declared so far.
func readFunc(p *minlp.Problem, fields []string, lineNo int) (*minlp.CGraph, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("nlreader: line %d: missing function kind", lineNo)
	}
	n := len(p.Variables)
	vars := make([]*minlp.Variable, n)
	copy(vars, p.Variables)

	switch fields[0] {
	case "lin":
		coefs, err := parseFloats(fields[1:], n, lineNo)
		if err != nil {
			return nil, err
		}
		return minlp.NewLinearGraph(vars, coefs), nil
	case "quad":
		semi := indexOf(fields, ";")
		if semi < 0 {
			return nil, fmt.Errorf("nlreader: line %d: quad function needs a ';' before the matrix block", lineNo)
		}
		coefs, err := parseFloats(fields[1:semi], n, lineNo)
		if err != nil {
			return nil, err
		}
		flat, err := parseFloats(fields[semi+1:], n*n, lineNo)
		if err != nil {
			return nil, err
		}
		q := make([][]float64, n)
		for i := range q {
			q[i] = flat[i*n : (i+1)*n]
		}
		return minlp.NewQuadraticGraph(vars, q, coefs), nil
	default:
		return nil, fmt.Errorf("nlreader: line %d: unknown function kind %q", lineNo, fields[0])
	}
}

func indexOf(fields []string, s string) int {
	for i, f := range fields {
		if f == s {
			return i
		}
	}
	return -1
}

func parseFloats(fields []string, want int, lineNo int) ([]float64, error) {
	if len(fields) != want {
		return nil, fmt.Errorf("nlreader: line %d: expected %d coefficients, got %d", lineNo, want, len(fields))
	}
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("nlreader: line %d: bad coefficient %q: %w", lineNo, f, err)
		}
		out[i] = v
	}
	return out, nil
}
