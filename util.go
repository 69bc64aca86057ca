package minlp

import (
	"fmt"
	"math"
	"sort"
)

var (
	posInf = math.Inf(1)
	negInf = math.Inf(-1)
)

func clampI(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// formatStats renders a handler's stats counters as a single stable-order
// line, e.g. "LinearHandler: bounds_tightened=3 cons_purged=1 vars_purged=0".
func formatStats(name string, counters map[string]int) string {
	keys := make([]string, 0, len(counters))
	for k := range counters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	s := name + ":"
	for _, k := range keys {
		s += fmt.Sprintf(" %s=%d", k, counters[k])
	}
	return s
}
