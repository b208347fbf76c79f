package costtable

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ginjaninja78/plan-cost-extractor/internal/types"
)

func candidate(id string, order int, confidence float64, catchAll bool, start, end int, dollars ...int) detection {
	if dollars == nil {
		dollars = []int{}
	}
	return detection{
		table: types.DetectedTable{
			ID:                id,
			SpanStart:         start,
			SpanEnd:           end,
			DollarLineIndices: dollars,
			Normalized:        types.Normalized{PatternID: id},
		},
		order:      order,
		confidence: confidence,
		catchAll:   catchAll,
	}
}

func resolvedIDs(found ...detection) []string {
	out := []string{}
	for _, t := range resolve(found) {
		out = append(out, t.ID)
	}
	return out
}

func TestResolve_CatchAll(t *testing.T) {
	tests := []struct {
		name  string
		found []detection
		want  []string
	}{
		{
			name: "identical dollar lines drop the catch-all",
			found: []detection{
				candidate("specific", 0, 0.80, false, 10, 14, 11, 12, 13),
				candidate("catchall", 11, 0.45, true, 11, 13, 11, 12, 13),
			},
			want: []string{"specific"},
		},
		{
			name: "subset drops the catch-all",
			found: []detection{
				candidate("specific", 0, 0.80, false, 10, 20, 11, 12, 13, 14),
				candidate("catchall", 11, 0.45, true, 12, 22, 12, 13),
			},
			want: []string{"specific"},
		},
		{
			name: "contained span drops the catch-all",
			found: []detection{
				candidate("specific", 0, 0.80, false, 10, 20, 11),
				candidate("catchall", 11, 0.45, true, 12, 18, 13, 14, 15),
			},
			want: []string{"specific"},
		},
		{
			name: "partially covered catch-all survives",
			found: []detection{
				candidate("specific", 0, 0.80, false, 10, 14, 11, 12, 13),
				candidate("catchall", 11, 0.45, true, 12, 18, 12, 13, 16, 17),
			},
			want: []string{"specific", "catchall"},
		},
		{
			name: "disjoint catch-all survives",
			found: []detection{
				candidate("catchall", 11, 0.45, true, 30, 34, 31, 32, 33),
				candidate("specific", 0, 0.80, false, 10, 14, 11, 12, 13),
			},
			want: []string{"specific", "catchall"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolvedIDs(tt.found...))
		})
	}
}

func TestResolve_SpecificTieBreak(t *testing.T) {
	tests := []struct {
		name  string
		found []detection
		want  []string
	}{
		{
			name: "higher confidence wins",
			found: []detection{
				candidate("weak", 3, 0.75, false, 10, 20, 11, 12, 13),
				candidate("strong", 5, 0.85, false, 10, 14, 11, 12, 13),
			},
			want: []string{"strong"},
		},
		{
			name: "longer span wins at equal confidence",
			found: []detection{
				candidate("short", 1, 0.85, false, 10, 13, 11, 12),
				candidate("long", 2, 0.85, false, 9, 15, 11, 12, 14),
			},
			want: []string{"long"},
		},
		{
			name: "earlier registration wins at equal confidence and span",
			found: []detection{
				candidate("later", 4, 0.80, false, 10, 14, 11, 12),
				candidate("earlier", 2, 0.80, false, 10, 14, 11, 12),
			},
			want: []string{"earlier"},
		},
		{
			name: "weaker superset is kept",
			found: []detection{
				candidate("strong", 0, 0.90, false, 10, 12, 11),
				candidate("weak", 6, 0.75, false, 10, 16, 11, 13, 15),
			},
			want: []string{"strong", "weak"},
		},
		{
			name: "non-overlapping subsets are kept",
			found: []detection{
				candidate("first", 0, 0.90, false, 0, 2, 1),
				candidate("second", 6, 0.75, false, 5, 7, 6),
			},
			want: []string{"first", "second"},
		},
		{
			name: "empty dollar sets are never collapsed",
			found: []detection{
				candidate("a", 0, 0.90, false, 0, 2),
				candidate("b", 1, 0.85, false, 5, 7),
			},
			want: []string{"a", "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolvedIDs(tt.found...))
		})
	}
}

func TestResolve_OrdersBySpanThenRegistration(t *testing.T) {
	got := resolvedIDs(
		candidate("c", 9, 0.55, false, 40, 45, 41, 42),
		candidate("b", 3, 0.80, false, 10, 14, 11),
		candidate("a", 0, 0.90, false, 10, 12, 12),
	)
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestSubset(t *testing.T) {
	assert.True(t, subset([]int{}, []int{1}))
	assert.True(t, subset([]int{1, 3}, []int{1, 2, 3}))
	assert.False(t, subset([]int{1, 4}, []int{1, 2, 3}))
	assert.True(t, sameSet([]int{1, 2}, []int{1, 2}))
	assert.False(t, sameSet([]int{1}, []int{1, 2}))
}
