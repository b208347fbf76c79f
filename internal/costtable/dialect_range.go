// =============================================================================
// Plan Cost Extractor - Range and Rate Dialects
// =============================================================================
//
//   cost_range_minmax   explicit Low/High (Minimum/Maximum) estimate columns;
//                       keeps both ends per row and per block, totalCost is
//                       the midpoint
//   range_cost_table    density probe on "$X - $Y" lines; every range is
//                       resolved to its midpoint
//   per_unit_rate       density probe on "$X/unit ... N unit ... $Y" lines
//
// =============================================================================

package costtable

import (
	"regexp"

	"github.com/ginjaninja78/plan-cost-extractor/internal/money"
	"github.com/ginjaninja78/plan-cost-extractor/internal/types"
)

// =============================================================================
// cost_range_minmax
// =============================================================================

var (
	minMaxHeaderRe  = regexp.MustCompile(`(?i)\b(?:low|min(?:imum)?)\b.*\b(?:high|max(?:imum)?)\b`)
	minMaxCostRe    = regexp.MustCompile(`(?i)\b(?:costs?|estimates?|budget)\b`)
	minMaxPairRowRe = regexp.MustCompile(`^(.+?)(?:\s+(` + num + `\s*` + unitToken + `))?\s+(` + amt + `)\s+(` + amt + `)\s*$`)
	minMaxSpanRowRe = regexp.MustCompile(`^(.+?)(?:\s+(` + num + `\s*` + unitToken + `))?\s+(` + money.AmountRange + `)\s*$`)
)

func costRangeMinMax() PatternDefinition {
	d := dialect{id: "cost_range_minmax", confidence: 0.80, minRows: 2}
	columns := []string{"Practice", "Size", "Low", "High"}

	return PatternDefinition{
		ID:          d.id,
		Description: "Low / High (Minimum / Maximum) cost estimate columns",
		Confidence:  d.confidence,
		MinRows:     d.minRows,
		HeaderTest: func(line string, _ []string, _ int) bool {
			return minMaxHeaderRe.MatchString(line) && minMaxCostRe.MatchString(line) && !digitRe.MatchString(line)
		},
		Parse: func(lines []string, start int) *types.ParseResult {
			b := d.newBlock(lines, start, columns...)
			b.totalOf = func(figures []float64) float64 {
				if len(figures) == 2 {
					return money.Midpoint(figures[0], figures[1])
				}
				return figures[len(figures)-1]
			}
			b.finish = func(n *types.Normalized) {
				n.RangeTotals = rangeTotals(n.Rows)
			}

			end := blockEnd(lines, start+1, maxScanHeader)
			b.walk(mergeContinuations(lines, start+1, end), 3, func(ll logicalLine) verdict {
				var name, size, lowTok, highTok string
				if m := minMaxPairRowRe.FindStringSubmatch(ll.text); m != nil {
					name, size, lowTok, highTok = m[1], m[2], m[3], m[4]
				} else if m := minMaxSpanRowRe.FindStringSubmatch(ll.text); m != nil {
					name, size = m[1], m[2]
					lowTok = m[3]
				} else {
					if isHeading(ll.text) {
						return rowNeutral
					}
					return rowMissed
				}

				var low, high float64
				if highTok == "" {
					var ok bool
					if low, high, ok = money.ParseRange(lowTok); !ok {
						return rowMissed
					}
				} else {
					lo, okLo := money.ParseMoney(lowTok)
					hi, okHi := money.ParseMoney(highTok)
					if !okLo || !okHi {
						return rowMissed
					}
					low, high = min(lo, hi), max(lo, hi)
				}

				row := newRow(ll.name(name))
				setSize(&row, size)
				row.CostLow = types.Float(low)
				row.CostHigh = types.Float(high)
				row.TotalCost = types.Float(money.Midpoint(low, high))
				rawCost := lowTok
				if highTok != "" {
					rawCost = lowTok + " - " + highTok
				}
				row.RawCost = types.String(rawCost)

				b.addRow(ll, types.RawRow{row.Name, size, money.FormatPlain(low), money.FormatPlain(high)}, row)
				return rowMatched
			})
			return b.result()
		},
	}
}

// =============================================================================
// range_cost_table
// =============================================================================

var (
	rangeRowRe = regexp.MustCompile(`^(.+?)\s+(?:(` + num + `)\s*(` + unitToken + `)\s+)?(` + amtRange + `)(?:\s*(?:/|per)\s*([A-Za-z][A-Za-z.]*))?(?:\s+(` + amtRange + `))?\s*$`)
)

// isRangeLine reports whether the line carries a "$X - $Y" figure and is
// not a total.
func isRangeLine(line string) bool {
	if len(money.FindRanges(line)) == 0 {
		return false
	}
	_, isTotal := parseTotalLine(line)
	return !isTotal
}

func rangeCostTable() PatternDefinition {
	d := dialect{id: "range_cost_table", confidence: 0.75, minRows: 3}
	columns := []string{"Practice", "Quantity", "Unit", "Unit Cost", "Total Cost"}

	return PatternDefinition{
		ID:          d.id,
		Description: "Rows priced as $X - $Y ranges, resolved to the midpoint",
		Confidence:  d.confidence,
		MinRows:     d.minRows,
		HeaderTest: func(line string, lines []string, i int) bool {
			if !isRangeLine(line) {
				return false
			}
			return densityProbe(lines, i, 30, isRangeLine) >= 3
		},
		Parse: func(lines []string, start int) *types.ParseResult {
			b := d.newBlock(lines, start, columns...)
			end := blockEnd(lines, start, maxScanProbe)
			b.walk(mergeContinuations(lines, start, end), 2, func(ll logicalLine) verdict {
				m := rangeRowRe.FindStringSubmatch(ll.text)
				if m == nil {
					if isHeading(ll.text) {
						return rowNeutral
					}
					return rowMissed
				}

				row := newRow(ll.name(m[1]))
				setQuantity(&row, m[2])
				setUnit(&row, m[3])
				if m[2] != "" {
					row.RawSize = types.String(m[2] + " " + m[3])
				}
				switch {
				case m[6] != "":
					setUnitCost(&row, m[4])
					setTotalCost(&row, m[6])
				case m[5] != "":
					setUnitCost(&row, m[4])
					if row.Unit == nil {
						setUnit(&row, m[5])
					}
				default:
					setTotalCost(&row, m[4])
				}
				if !hasMoney(row) {
					return rowMissed
				}

				b.addRow(ll, types.RawRow{row.Name, m[2], m[3], m[4], m[6]}, row)
				return rowMatched
			})
			return b.result()
		},
	}
}

// =============================================================================
// per_unit_rate
// =============================================================================

var perUnitRowRe = regexp.MustCompile(`(?i)^(.+?)\s+(` + amt + `)\s*(?:/|per)\s*([a-z][a-z.]*)\s*(?:[x×@*]\s*)?(` + num + `)\s*(` + unitToken + `)?\s*(?:=\s*)?(` + amt + `)?\s*$`)

func perUnitRate() PatternDefinition {
	d := dialect{id: "per_unit_rate", confidence: 0.75, minRows: 2}
	columns := []string{"Practice", "Rate", "Rate Unit", "Quantity", "Unit", "Total"}

	return PatternDefinition{
		ID:          d.id,
		Description: "Per-unit rate lines: $X/unit x N unit = $Y",
		Confidence:  d.confidence,
		MinRows:     d.minRows,
		HeaderTest: func(line string, lines []string, i int) bool {
			if !perUnitRowRe.MatchString(line) {
				return false
			}
			return densityProbe(lines, i, 20, perUnitRowRe.MatchString) >= 2
		},
		Parse: func(lines []string, start int) *types.ParseResult {
			b := d.newBlock(lines, start, columns...)
			end := blockEnd(lines, start, maxScanProbe)
			b.walk(mergeContinuations(lines, start, end), 1, func(ll logicalLine) verdict {
				m := perUnitRowRe.FindStringSubmatch(ll.text)
				if m == nil {
					if isHeading(ll.text) {
						return rowNeutral
					}
					return rowMissed
				}

				row := newRow(ll.name(m[1]))
				setUnitCost(&row, m[2])
				setQuantity(&row, m[4])
				if m[5] != "" {
					setUnit(&row, m[5])
				} else {
					setUnit(&row, m[3])
				}
				if m[6] != "" {
					setTotalCost(&row, m[6])
				}

				b.addRow(ll, types.RawRow{row.Name, m[2], m[3], m[4], m[5], m[6]}, row)
				return rowMatched
			})
			return b.result()
		},
	}
}
