package costtable

import (
	"regexp"
	"strings"

	"github.com/ginjaninja78/plan-cost-extractor/internal/money"
	"github.com/ginjaninja78/plan-cost-extractor/internal/types"
)

// narrative_cost_block: loose "name $amount" mentions, one figure per line.
// Needs narrativeMinLines qualifying lines inside a narrativeWindow-line
// window so incidental dollar amounts in prose do not fire.

const (
	narrativeMinLines = 4
	narrativeWindow   = 10
)

var narrativeRowRe = regexp.MustCompile(`^\s*([A-Za-z][^$\d]*?)\s*[:=\-–—]?\s*(` + amt + `)\s*\.?\s*$`)

func isNarrativeLine(line string) bool {
	if !narrativeRowRe.MatchString(line) {
		return false
	}
	_, isTotal := parseTotalLine(line)
	return !isTotal && len(money.FindAmounts(line)) == 1
}

func narrativeCostBlock() PatternDefinition {
	d := dialect{id: "narrative_cost_block", confidence: 0.55, minRows: narrativeMinLines}
	columns := []string{"Item", "Amount"}

	return PatternDefinition{
		ID:          d.id,
		Description: "Narrative cost mentions: one name and one dollar figure per line",
		Confidence:  d.confidence,
		MinRows:     d.minRows,
		HeaderTest: func(line string, lines []string, i int) bool {
			if !isNarrativeLine(line) {
				return false
			}
			return densityProbe(lines, i, narrativeWindow, isNarrativeLine) >= narrativeMinLines
		},
		Parse: func(lines []string, start int) *types.ParseResult {
			b := d.newBlock(lines, start, columns...)
			end := blockEnd(lines, start, maxScanNarrative)
			b.walk(mergeContinuations(lines, start, end), 0, func(ll logicalLine) verdict {
				if !isNarrativeLine(ll.text) {
					return rowMissed
				}
				m := narrativeRowRe.FindStringSubmatch(ll.text)
				row := newRow(ll.name(strings.TrimSpace(m[1])))
				setTotalCost(&row, m[2])
				b.addRow(ll, types.RawRow{row.Name, m[2]}, row)
				return rowMatched
			})
			return b.result()
		},
	}
}
