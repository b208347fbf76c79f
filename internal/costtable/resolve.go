// =============================================================================
// Plan Cost Extractor - Overlap Resolver
// =============================================================================
//
// Multiple dialects may claim the same lines. The resolver prunes the
// candidate list in three passes:
//
//   1. A catch-all detection is dropped when its dollar-line set is a subset
//      of a specific detection's set, or its span lies inside a specific
//      span. Partially covered catch-alls survive.
//   2. A specific detection is dropped when its dollar-line set is a subset
//      of a stronger, overlapping specific detection's set.
//   3. Detections with identical non-empty dollar-line sets collapse to the
//      strongest one.
//
// "Stronger" means higher confidence, then the longer span, then earlier
// registration, then the earlier start.
//
// =============================================================================

package costtable

import (
	"sort"

	"github.com/ginjaninja78/plan-cost-extractor/internal/types"
)

// detection is a candidate table plus the facts the resolver ranks by.
type detection struct {
	table      types.DetectedTable
	order      int
	confidence float64
	catchAll   bool
}

func (d detection) spanLen() int {
	return d.table.SpanEnd - d.table.SpanStart
}

// stronger reports whether a outranks b.
func stronger(a, b detection) bool {
	if a.confidence != b.confidence {
		return a.confidence > b.confidence
	}
	if a.spanLen() != b.spanLen() {
		return a.spanLen() > b.spanLen()
	}
	if a.order != b.order {
		return a.order < b.order
	}
	return a.table.SpanStart < b.table.SpanStart
}

func overlaps(a, b types.DetectedTable) bool {
	return a.SpanStart <= b.SpanEnd && b.SpanStart <= a.SpanEnd
}

func contains(outer, inner types.DetectedTable) bool {
	return outer.SpanStart <= inner.SpanStart && inner.SpanEnd <= outer.SpanEnd
}

// subset reports whether every element of a is in b. Both are sorted.
func subset(a, b []int) bool {
	j := 0
	for _, v := range a {
		for j < len(b) && b[j] < v {
			j++
		}
		if j == len(b) || b[j] != v {
			return false
		}
	}
	return true
}

func sameSet(a, b []int) bool {
	return len(a) == len(b) && subset(a, b)
}

// resolve applies the three pruning passes and orders the survivors by
// span start, then registration order.
func resolve(found []detection) []types.DetectedTable {
	dropped := make([]bool, len(found))

	// Pass 1: catch-all against specific.
	for i, c := range found {
		if !c.catchAll {
			continue
		}
		for _, s := range found {
			if s.catchAll {
				continue
			}
			cd := c.table.DollarLineIndices
			if (len(cd) > 0 && subset(cd, s.table.DollarLineIndices)) || contains(s.table, c.table) {
				dropped[i] = true
				break
			}
		}
	}

	// Pass 2: specific against stronger specific.
	for i, d := range found {
		if d.catchAll || dropped[i] || len(d.table.DollarLineIndices) == 0 {
			continue
		}
		for j, e := range found {
			if i == j || e.catchAll || dropped[j] {
				continue
			}
			if overlaps(d.table, e.table) && stronger(e, d) &&
				subset(d.table.DollarLineIndices, e.table.DollarLineIndices) {
				dropped[i] = true
				break
			}
		}
	}

	// Pass 3: identical dollar sets.
	for i, d := range found {
		if dropped[i] || len(d.table.DollarLineIndices) == 0 {
			continue
		}
		for j, e := range found {
			if i == j || dropped[j] {
				continue
			}
			if sameSet(d.table.DollarLineIndices, e.table.DollarLineIndices) && stronger(e, d) {
				dropped[i] = true
				break
			}
		}
	}

	survivors := make([]detection, 0, len(found))
	for i, d := range found {
		if !dropped[i] {
			survivors = append(survivors, d)
		}
	}
	sort.SliceStable(survivors, func(a, b int) bool {
		if survivors[a].table.SpanStart != survivors[b].table.SpanStart {
			return survivors[a].table.SpanStart < survivors[b].table.SpanStart
		}
		return survivors[a].order < survivors[b].order
	})

	out := make([]types.DetectedTable, len(survivors))
	for i, d := range survivors {
		out[i] = d.table
	}
	return out
}
