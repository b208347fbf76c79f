package costtable

import (
	"regexp"
	"strings"

	"github.com/ginjaninja78/plan-cost-extractor/internal/money"
	"github.com/ginjaninja78/plan-cost-extractor/internal/types"
)

// coded_budget: rows led by an alphanumeric code ("A1.", "B12") with a
// trailing amount, optionally grouped under headings and closed by
// "Subtotal:" lines.

var (
	codedRowRe   = regexp.MustCompile(`^\s*([A-Z]{1,2}\d{1,3}(?:\.\d{1,2})?)[.):]?\s+(.+?)[\s.:]*\s(` + amtRange + `)\s*$`)
	subtotalRe   = regexp.MustCompile(`(?i)^\s*(sub-?\s?totals?\b[^$\d]*?)[\s:=]*(` + amtRange + `)\s*$`)
	codeLetterRe = regexp.MustCompile(`^[A-Z]+`)
)

func isCodedLine(line string) bool {
	return codedRowRe.MatchString(line)
}

func codedBudget() PatternDefinition {
	d := dialect{id: "coded_budget", confidence: 0.65, minRows: 3}
	columns := []string{"Code", "Description", "Amount"}

	return PatternDefinition{
		ID:          d.id,
		Description: "Coded budget lines (A1., B12) with trailing amounts and subtotals",
		Confidence:  d.confidence,
		MinRows:     d.minRows,
		HeaderTest: func(line string, lines []string, i int) bool {
			if !isCodedLine(line) {
				return false
			}
			return densityProbe(lines, i, 40, isCodedLine) >= 3
		},
		Parse: func(lines []string, start int) *types.ParseResult {
			b := d.newBlock(lines, start, columns...)
			caption := captionAbove(lines, start)
			heading := caption

			end := blockEnd(lines, start, maxScanCoded)
			b.walk(mergeContinuations(lines, start, end), 4, func(ll logicalLine) verdict {
				if m := subtotalRe.FindStringSubmatch(ll.text); m != nil {
					v, ok := money.ParseMoneyOrRange(m[2])
					if !ok {
						return rowMissed
					}
					label := strings.TrimSpace(strings.TrimRight(m[1], ": "))
					if heading != "" {
						label = label + " " + heading
					}
					b.subtotals = append(b.subtotals, types.Subtotal{Label: label, Amount: v, LineIndex: ll.first()})
					b.markDollarLines(ll)
					b.touch(ll.last())
					return rowMatched
				}

				m := codedRowRe.FindStringSubmatch(ll.text)
				if m == nil {
					if !digitRe.MatchString(ll.text) {
						heading = cleanName(ll.text)
						return rowNeutral
					}
					return rowMissed
				}

				row := newRow(ll.name(m[2]))
				row.Code = types.String(m[1])
				section := heading
				if section == "" {
					section = codeLetterRe.FindString(m[1])
				}
				row.Section = types.String(section)
				setTotalCost(&row, m[3])

				b.addRow(ll, types.RawRow{m[1], row.Name, m[3]}, row)
				return rowMatched
			})
			res := b.result()
			if res != nil {
				res.Title = caption
			}
			return res
		},
	}
}
