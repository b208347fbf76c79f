package costtable

import (
	"regexp"
	"sort"
	"strings"

	"github.com/ginjaninja78/plan-cost-extractor/internal/money"
	"github.com/ginjaninja78/plan-cost-extractor/internal/types"
)

// Shared row-regex fragments.
const (
	num       = money.Number
	amt       = money.Amount
	amtRange  = money.Amount + `(?:` + money.RangeSep + `\$?\s?` + money.Number + `)?`
	unitToken = `[A-Za-z][A-Za-z./]*(?:\s[A-Za-z][A-Za-z./]*)?`
)

// sizeTailRe splits "Grassed Waterway 1,200 ft" into name and size.
var sizeTailRe = regexp.MustCompile(`^(.*?[A-Za-z)].*?)\s+(` + num + `\s*` + unitToken + `)$`)

// dialect carries the static facts a parser needs about its own pattern.
type dialect struct {
	id         string
	confidence float64
	minRows    int
}

type verdict int

const (
	rowMatched verdict = iota
	rowMissed
	rowNeutral
)

// block accumulates one candidate table while a dialect walks its body.
type block struct {
	dialect
	lines []string
	start int
	last  int

	columns   []string
	raw       []types.RawRow
	rows      []types.NormalizedRow
	dollar    map[int]bool
	reported  *float64
	subtotals []types.Subtotal

	// totalOf interprets the figures of a total line. Defaults to the last
	// figure.
	totalOf func(figures []float64) float64

	// finish attaches dialect extras once rows are final.
	finish func(n *types.Normalized)
}

func (d dialect) newBlock(lines []string, start int, columns ...string) *block {
	return &block{
		dialect: d,
		lines:   lines,
		start:   start,
		last:    start,
		columns: columns,
		dollar:  make(map[int]bool),
	}
}

// addRow completes a row and records its source lines.
func (b *block) addRow(ll logicalLine, raw types.RawRow, row types.NormalizedRow) {
	completeRow(&row)
	row.SourceLines = append([]int(nil), ll.indices...)
	b.rows = append(b.rows, row)
	b.raw = append(b.raw, raw)
	if hasMoney(row) {
		b.markDollarLines(ll)
	}
	b.touch(ll.last())
}

func (b *block) markDollarLines(ll logicalLine) {
	for _, idx := range ll.indices {
		if digitRe.MatchString(b.lines[idx]) {
			b.dollar[idx] = true
		}
	}
}

func (b *block) touch(idx int) {
	if idx > b.last {
		b.last = idx
	}
}

// walk feeds logical lines to handle until a total line, too many misses in
// a row, or the end of input. A total line closes the block.
func (b *block) walk(lls []logicalLine, maxMisses int, handle func(ll logicalLine) verdict) {
	misses := 0
	for _, ll := range lls {
		if figures, ok := parseTotalLine(ll.text); ok {
			if len(b.rows) == 0 {
				return
			}
			total := figures[len(figures)-1]
			if b.totalOf != nil {
				total = b.totalOf(figures)
			}
			b.reported = types.Float(total)
			b.markDollarLines(ll)
			b.touch(ll.last())
			return
		}

		switch handle(ll) {
		case rowMatched:
			misses = 0
		case rowMissed:
			misses++
			if misses > maxMisses {
				return
			}
		}
	}
}

// result validates the row count and assembles the parse result. It returns
// nil when the block holds fewer rows than the dialect requires.
func (b *block) result() *types.ParseResult {
	if len(b.rows) < b.minRows || len(b.rows) == 0 {
		return nil
	}

	n := types.Normalized{
		Rows:              b.rows,
		TotalReported:     b.reported,
		PatternID:         b.id,
		PatternConfidence: b.confidence,
		Subtotals:         b.subtotals,
	}
	aggregate(&n)
	if b.finish != nil {
		b.finish(&n)
	}

	indices := make([]int, 0, len(b.dollar))
	for idx := range b.dollar {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	return &types.ParseResult{
		Table: types.RawTable{
			Columns: b.columns,
			Rows:    b.raw,
			Total:   b.reported,
		},
		Normalized:        n,
		DollarLineIndices: indices,
		SpanEnd:           b.last,
	}
}

// splitNameSize separates a trailing "N unit" size from a row name.
func splitNameSize(name string) (string, string) {
	m := sizeTailRe.FindStringSubmatch(strings.TrimSpace(name))
	if m == nil {
		return name, ""
	}
	_, unitRaw, _ := money.SplitSize(m[2])
	if _, known := money.NormalizeUnit(unitRaw); !known {
		return name, ""
	}
	return m[1], m[2]
}

// densityProbe counts the lines in [start, end of the bounded window] for
// which match returns true.
func densityProbe(lines []string, start, window int, match func(string) bool) int {
	end := blockEnd(lines, start, window)
	count := 0
	for j := start; j <= end; j++ {
		if match(lines[j]) {
			count++
		}
	}
	return count
}
