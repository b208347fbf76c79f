package costtable

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ginjaninja78/plan-cost-extractor/internal/money"
	"github.com/ginjaninja78/plan-cost-extractor/internal/types"
)

// adaptive_dollar_cluster is the recall backstop. It fires on any cluster
// of at least clusterMinLines row-shaped dollar lines within clusterWindow
// lines that no specific header signature claims. Its detections are pruned
// against the specific dialects by the overlap resolver.

const (
	clusterMinLines = 3
	clusterWindow   = 12
	clusterMaxGap   = 2
)

var (
	firstFigureRe = regexp.MustCompile(`[$\d]`)
	sizeInLineRe  = regexp.MustCompile(`(?:^|\s)(` + num + `)\s*([A-Za-z][A-Za-z./]*(?:\s(?:ft|yd|feet|yards))?)`)
)

// headerSignatures are the literal headers whose bodies belong to a
// specific dialect.
var headerSignatures = []*regexp.Regexp{
	practiceUnitHeaderRe,
	practiceSizeHeaderRe,
	quantityUnitHeaderRe,
	fundingHeaderRe,
	landownerHeaderRe,
	costListHeaderRe,
}

// isRowShaped reports whether a line looks like a table row: a "$" figure
// plus at least one more number, and not a total.
func isRowShaped(line string) bool {
	if !money.ContainsAmount(line) || money.CountNumbers(line) < 2 {
		return false
	}
	_, isTotal := parseTotalLine(line)
	return !isTotal
}

// claimedByHeader reports whether a specific header signature sits in the
// few lines above index.
func claimedByHeader(lines []string, index int) bool {
	for j := index - 1; j >= 0 && j >= index-3; j-- {
		for _, re := range headerSignatures {
			if re.MatchString(lines[j]) {
				return true
			}
		}
	}
	return false
}

func adaptiveDollarCluster() PatternDefinition {
	d := dialect{id: "adaptive_dollar_cluster", confidence: 0.45, minRows: clusterMinLines}
	columns := []string{"Description", "Source Line"}

	return PatternDefinition{
		ID:          d.id,
		Description: "Catch-all: cluster of row-shaped dollar lines",
		Confidence:  d.confidence,
		MinRows:     d.minRows,
		CatchAll:    true,
		HeaderTest: func(line string, lines []string, i int) bool {
			if !isRowShaped(line) || claimedByHeader(lines, i) {
				return false
			}
			return densityProbe(lines, i, clusterWindow, isRowShaped) >= clusterMinLines
		},
		Parse: func(lines []string, start int) *types.ParseResult {
			b := d.newBlock(lines, start, columns...)
			end := blockEnd(lines, start, maxScanCluster)
			b.walk(mergeContinuations(lines, start, end), clusterMaxGap, func(ll logicalLine) verdict {
				if !isRowShaped(ll.text) {
					return rowMissed
				}
				row := clusterRow(ll, len(b.rows)+1)
				b.addRow(ll, types.RawRow{row.Name, ll.text}, row)
				return rowMatched
			})
			return b.result()
		},
	}
}

// clusterRow reads a row with no column knowledge: the name is the text
// before the first figure, the last dollar figure is the total, the first
// "N unit" with a known unit the size, and with a size the first figure the
// unit cost.
func clusterRow(ll logicalLine, ordinal int) types.NormalizedRow {
	text := ll.text
	name := text
	if loc := firstFigureRe.FindStringIndex(text); loc != nil {
		name = text[:loc[0]]
	}
	name = ll.name(name)
	if cleanName(name) == "" {
		name = fmt.Sprintf("Item %d", ordinal)
	}
	row := newRow(name)

	figures := lineFigures(text)
	if len(figures) > 0 {
		tokens := figureRe.FindAllString(text, -1)
		setTotalCost(&row, tokens[len(tokens)-1])
	}

	withoutFigures := figureRe.ReplaceAllString(text, " ")
	for _, m := range sizeInLineRe.FindAllStringSubmatch(withoutFigures, -1) {
		if _, known := money.NormalizeUnit(m[2]); known {
			setSize(&row, strings.TrimSpace(m[1]+" "+m[2]))
			break
		}
	}
	if len(figures) > 1 && row.Quantity != nil {
		row.UnitCost = types.Float(figures[0])
	}
	return row
}
