// =============================================================================
// Plan Cost Extractor - Cost-Share Dialects
// =============================================================================
//
// Tables that split a practice's cost between payers.
//
//   funding_sources   parallel contributor columns (Producer / NRCS or
//                     Agency / Other / optional Total) or inline labeled rows
//                     "Producer=$100, NRCS=$200, Other=$50". Contributor sums
//                     are tracked independently; a missing row total is the
//                     sum of the contributions.
//
//   landowner_match   Practice / Cost / Landowner Match (or Cost Share)
//
// =============================================================================

package costtable

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ginjaninja78/plan-cost-extractor/internal/money"
	"github.com/ginjaninja78/plan-cost-extractor/internal/types"
)

// cell is a contributor amount or an explicit "nothing" marker.
const cell = `\$\s?` + num + `|-+|—|–|[Nn]/[Aa]`

var (
	fundingHeaderRe = regexp.MustCompile(`(?i)\bproducer\b.*\b(?:nrcs|agency|federal|state|eqip)\b.*\bother\b`)
	fundingColumnRe = regexp.MustCompile(`^(.+?)\s+(` + cell + `)\s+(` + cell + `)\s+(` + cell + `)(?:\s+(` + cell + `))?\s*$`)
	fundingLabelRe  = regexp.MustCompile(`(?i)^(.*?)[\s:,-]*\bproducer\s*[=:]\s*(` + cell + `)[,;]?\s*(?:nrcs|agency|federal|state)\s*[=:]\s*(` + cell + `)[,;]?\s*other\s*[=:]\s*(` + cell + `)(?:[,;]?\s*total\s*[=:]\s*(` + cell + `))?\s*\.?\s*$`)
)

func fundingSources() PatternDefinition {
	d := dialect{id: "funding_sources", confidence: 0.85, minRows: 2}
	columns := []string{"Practice", "Producer", "NRCS", "Other", "Total"}

	return PatternDefinition{
		ID:          d.id,
		Description: "Multi-funding-source table: Producer / NRCS (Agency) / Other / Total",
		Confidence:  d.confidence,
		MinRows:     d.minRows,
		HeaderTest: func(line string, lines []string, i int) bool {
			if fundingHeaderRe.MatchString(line) && !fundingLabelRe.MatchString(line) {
				return true
			}
			if !fundingLabelRe.MatchString(line) {
				return false
			}
			return densityProbe(lines, i, 20, fundingLabelRe.MatchString) >= 2
		},
		Parse: func(lines []string, start int) *types.ParseResult {
			bodyStart := start
			if !fundingLabelRe.MatchString(lines[start]) {
				bodyStart = start + 1
			}

			b := d.newBlock(lines, start, columns...)
			b.totalOf = func(figures []float64) float64 {
				if len(figures) == 3 {
					return money.Sum(figures)
				}
				return figures[len(figures)-1]
			}
			b.finish = func(n *types.Normalized) {
				n.FundingTotals = fundingTotals(n.Rows)
			}

			end := blockEnd(lines, bodyStart, maxScanHeader)
			b.walk(mergeContinuations(lines, bodyStart, end), 3, func(ll logicalLine) verdict {
				m := fundingLabelRe.FindStringSubmatch(ll.text)
				if m == nil {
					m = fundingColumnRe.FindStringSubmatch(ll.text)
				}
				if m == nil {
					if isHeading(ll.text) {
						return rowNeutral
					}
					return rowMissed
				}

				name := strings.TrimSpace(m[1])
				if name == "" {
					name = fmt.Sprintf("Row %d", len(b.rows)+1)
				}
				row, ok := fundingRow(ll.name(name), m[2], m[3], m[4], m[5])
				if !ok {
					return rowMissed
				}
				b.addRow(ll, types.RawRow{row.Name, m[2], m[3], m[4], m[5]}, row)
				return rowMatched
			})
			return b.result()
		},
	}
}

// fundingRow builds a row from the contributor cells. The row total is the
// explicit total when present, otherwise the sum of the contributions.
func fundingRow(name, producer, nrcs, other, total string) (types.NormalizedRow, bool) {
	row := newRow(name)
	row.ProducerContribution = contribution(producer)
	row.NRCSContribution = contribution(nrcs)
	row.OtherContribution = contribution(other)

	var parts []float64
	for _, c := range []*float64{row.ProducerContribution, row.NRCSContribution, row.OtherContribution} {
		if c != nil {
			parts = append(parts, *c)
		}
	}
	if len(parts) == 0 {
		return row, false
	}

	if total == "" || !setTotalCost(&row, total) {
		row.TotalCost = types.Float(money.Sum(parts))
	}

	if t := *row.TotalCost; t > 0 {
		row.ProducerShare = share(row.ProducerContribution, t)
		row.NRCSShare = share(row.NRCSContribution, t)
		row.OtherShare = share(row.OtherContribution, t)
	}
	return row, true
}

func contribution(token string) *float64 {
	if v, ok := money.ParseMoney(token); ok {
		return types.Float(v)
	}
	return nil
}

func share(part *float64, total float64) *float64 {
	if part == nil {
		return nil
	}
	v, ok := money.Div(*part, total)
	if !ok {
		return nil
	}
	return types.Float(v)
}

// =============================================================================
// landowner_match
// =============================================================================

var (
	landownerHeaderRe = regexp.MustCompile(`(?i)\b(?:practice|bmp|item|component)s?\b.*\bcost\b.*\b(?:landowner|cost[\s-]?share|match)\b`)
	landownerRowRe    = regexp.MustCompile(`^(.+?)(?:\s+(` + num + `\s*` + unitToken + `))?\s+(` + amtRange + `)\s+(` + amtRange + `)\s*$`)
)

func landownerMatch() PatternDefinition {
	d := dialect{id: "landowner_match", confidence: 0.80, minRows: 2}
	columns := []string{"Practice", "Size", "Cost", "Landowner Match"}

	return headerPattern(d, "Practice / Cost / Landowner Match (cost share)", landownerHeaderRe, columns,
		func(ll logicalLine) (types.RawRow, types.NormalizedRow, bool) {
			m := landownerRowRe.FindStringSubmatch(ll.text)
			if m == nil {
				return nil, types.NormalizedRow{}, false
			}
			row := newRow(ll.name(m[1]))
			setSize(&row, m[2])
			setTotalCost(&row, m[3])
			if v, ok := money.ParseMoneyOrRange(m[4]); ok {
				row.LandownerMatch = types.Float(v)
			}
			return types.RawRow{row.Name, m[2], m[3], m[4]}, row, true
		})
}
