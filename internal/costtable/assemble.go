package costtable

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/ginjaninja78/plan-cost-extractor/internal/money"
	"github.com/ginjaninja78/plan-cost-extractor/internal/types"
)

// detectionNamespace seeds the deterministic detection IDs.
var detectionNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// DetectionID returns the stable ID of a detection. Scanning the same lines
// twice yields the same IDs.
func DetectionID(patternID string, spanStart, spanEnd int) string {
	data := fmt.Sprintf("%s:%d:%d", patternID, spanStart, spanEnd)
	return uuid.NewSHA1(detectionNamespace, []byte(data)).String()
}

// assemble packages a parse result into a DetectedTable, clamping the span
// and dollar lines to the input.
func assemble(p PatternDefinition, lines []string, start int, res *types.ParseResult) types.DetectedTable {
	end := res.SpanEnd
	if end < start {
		end = start
	}
	if end >= len(lines) {
		end = len(lines) - 1
	}

	dollars := res.DollarLineIndices
	if dollars == nil {
		for j := start; j <= end; j++ {
			if money.ContainsAmount(lines[j]) {
				dollars = append(dollars, j)
			}
		}
	}

	return types.DetectedTable{
		ID:                DetectionID(p.ID, start, end),
		Title:             tableTitle(p, lines, start, res.Title),
		SpanStart:         start,
		SpanEnd:           end,
		DollarLineIndices: clampIndices(dollars, start, end),
		Table:             res.Table,
		Normalized:        res.Normalized,
	}
}

// clampIndices keeps the unique indices inside [start, end], sorted.
func clampIndices(indices []int, start, end int) []int {
	seen := make(map[int]bool, len(indices))
	out := make([]int, 0, len(indices))
	for _, idx := range indices {
		if idx < start || idx > end || seen[idx] {
			continue
		}
		seen[idx] = true
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

// tableTitle picks the parser's title, else the nearest caption above the
// block, else a digit-free header line, else the pattern description.
func tableTitle(p PatternDefinition, lines []string, start int, parsed string) string {
	if t := strings.TrimSpace(parsed); t != "" {
		return t
	}
	if t := captionAbove(lines, start); t != "" {
		return t
	}
	if h := strings.TrimSpace(lines[start]); h != "" && !digitRe.MatchString(h) {
		return h
	}
	return p.Description
}
