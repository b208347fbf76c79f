// =============================================================================
// Plan Cost Extractor - Fixed-Header Dialects
// =============================================================================
//
// Dialects recognized by a literal multi-column header signature. The body
// starts on the line after the header and is read row by row until a total
// line, a bounding rule, or too many lines that fail the row regex.
//
// DIALECTS:
//   practice_unit_nrcs_costs  Practice | Average Unit (NRCS) Cost | Units | Total Cost
//   practice_size_cost        Practice/BMP | Size/Amount | Cost
//   bmp_quantity_unit_cost    BMP | Quantity | Unit | Unit Cost | Total
//   bmp_cost_list             Practice/BMP/Item | Cost
//
// =============================================================================

package costtable

import (
	"regexp"
	"strings"

	"github.com/ginjaninja78/plan-cost-extractor/internal/types"
)

// rowParser turns one logical line into a raw and a normalized row.
type rowParser func(ll logicalLine) (types.RawRow, types.NormalizedRow, bool)

// headerPattern builds a PatternDefinition for a fixed-header dialect.
func headerPattern(d dialect, description string, header *regexp.Regexp, columns []string, parseRow rowParser) PatternDefinition {
	return PatternDefinition{
		ID:          d.id,
		Description: description,
		Confidence:  d.confidence,
		MinRows:     d.minRows,
		HeaderTest: func(line string, _ []string, _ int) bool {
			return header.MatchString(line)
		},
		Parse: func(lines []string, start int) *types.ParseResult {
			b := d.newBlock(lines, start, columns...)
			end := blockEnd(lines, start+1, maxScanHeader)
			b.walk(mergeContinuations(lines, start+1, end), 3, func(ll logicalLine) verdict {
				raw, row, ok := parseRow(ll)
				if !ok {
					if isHeading(ll.text) {
						return rowNeutral
					}
					return rowMissed
				}
				b.addRow(ll, raw, row)
				return rowMatched
			})
			return b.result()
		},
	}
}

// =============================================================================
// practice_unit_nrcs_costs
// =============================================================================

var (
	practiceUnitHeaderRe = regexp.MustCompile(`(?i)\bpractices?\b.*\baverage\s+unit\b.*\bcost\b.*\bunits?\b.*\btotal\s+cost\b`)
	practiceUnitRowRe    = regexp.MustCompile(`^(.+?)\s+(` + amtRange + `)\s+(` + num + `)\s+(` + unitToken + `)(?:\s+(` + amtRange + `))?\s*$`)
)

func practiceUnitNRCSCosts() PatternDefinition {
	d := dialect{id: "practice_unit_nrcs_costs", confidence: 0.90, minRows: 1}
	columns := []string{"Practice", "Average Unit Cost", "Units", "Total Cost"}

	return headerPattern(d, "Practice / Average Unit (NRCS) Cost / Units / Total Cost", practiceUnitHeaderRe, columns,
		func(ll logicalLine) (types.RawRow, types.NormalizedRow, bool) {
			m := practiceUnitRowRe.FindStringSubmatch(ll.text)
			if m == nil {
				return nil, types.NormalizedRow{}, false
			}
			row := newRow(ll.name(m[1]))
			setUnitCost(&row, m[2])
			setQuantity(&row, m[3])
			setUnit(&row, m[4])
			row.RawSize = types.String(m[3] + " " + m[4])
			if m[5] != "" {
				setTotalCost(&row, m[5])
			}
			return types.RawRow{row.Name, m[2], m[3] + " " + m[4], m[5]}, row, true
		})
}

// =============================================================================
// practice_size_cost
// =============================================================================

var (
	practiceSizeHeaderRe = regexp.MustCompile(`(?i)^\s*(?:practice|bmp)s?\b.*\bsize\b.*\bcost\b`)
	practiceSizeRowRe    = regexp.MustCompile(`^(.+?)\s+(` + num + `\s*` + unitToken + `)\s+(` + amtRange + `)\s*$`)
)

func practiceSizeCost() PatternDefinition {
	d := dialect{id: "practice_size_cost", confidence: 0.85, minRows: 2}
	columns := []string{"Practice", "Size/Amount", "Cost"}

	return headerPattern(d, "Practice/BMP / Size/Amount / Cost", practiceSizeHeaderRe, columns,
		func(ll logicalLine) (types.RawRow, types.NormalizedRow, bool) {
			m := practiceSizeRowRe.FindStringSubmatch(ll.text)
			if m == nil {
				return nil, types.NormalizedRow{}, false
			}
			row := newRow(ll.name(m[1]))
			setSize(&row, m[2])
			setTotalCost(&row, m[3])
			return types.RawRow{row.Name, m[2], m[3]}, row, true
		})
}

// =============================================================================
// bmp_quantity_unit_cost
// =============================================================================

var (
	quantityUnitHeaderRe = regexp.MustCompile(`(?i)\bquantity\b.*\bunits?\b.*\bunit\s+(?:cost|price|rate)\b.*\btotal\b`)
	quantityUnitRowRe    = regexp.MustCompile(`^(.+?)\s+(` + num + `)\s+(` + unitToken + `)\s+(` + amtRange + `)(?:\s+(` + amtRange + `))?\s*$`)
)

func bmpQuantityUnitCost() PatternDefinition {
	d := dialect{id: "bmp_quantity_unit_cost", confidence: 0.85, minRows: 2}
	columns := []string{"BMP", "Quantity", "Unit", "Unit Cost", "Total"}

	return headerPattern(d, "BMP / Quantity / Unit / Unit Cost / Total", quantityUnitHeaderRe, columns,
		func(ll logicalLine) (types.RawRow, types.NormalizedRow, bool) {
			m := quantityUnitRowRe.FindStringSubmatch(ll.text)
			if m == nil {
				return nil, types.NormalizedRow{}, false
			}
			row := newRow(ll.name(m[1]))
			setQuantity(&row, m[2])
			setUnit(&row, m[3])
			setUnitCost(&row, m[4])
			if m[5] != "" {
				setTotalCost(&row, m[5])
			}
			return types.RawRow{row.Name, m[2], m[3], m[4], m[5]}, row, true
		})
}

// =============================================================================
// bmp_cost_list
// =============================================================================

var (
	costListHeaderRe = regexp.MustCompile(`(?i)^\s*(?:practice|bmp|item|activity|component|description)s?(?:\s*/\s*(?:practice|bmp|item|activity)s?)?(?:\s+(?:name|description))?\s+(?:estimated\s+|total\s+)?(?:cost|amount|budget)s?\s*:?\s*$`)
	costListRowRe    = regexp.MustCompile(`^([^$]*?[A-Za-z][^$]*?)[\s.:]*\s*(` + amtRange + `)\s*$`)
)

func bmpCostList() PatternDefinition {
	d := dialect{id: "bmp_cost_list", confidence: 0.80, minRows: 3}
	columns := []string{"Practice", "Cost"}

	return headerPattern(d, "Practice/BMP/Item / Cost two-column list", costListHeaderRe, columns,
		func(ll logicalLine) (types.RawRow, types.NormalizedRow, bool) {
			m := costListRowRe.FindStringSubmatch(ll.text)
			if m == nil {
				return nil, types.NormalizedRow{}, false
			}
			name, size := splitNameSize(strings.TrimSpace(m[1]))
			row := newRow(ll.name(name))
			setSize(&row, size)
			setTotalCost(&row, m[2])
			return types.RawRow{row.Name, m[2]}, row, true
		})
}
