// =============================================================================
// Plan Cost Extractor - Block Bounding Rules
// =============================================================================
//
// Shared rules that stop a candidate block from absorbing unrelated text.
// A block ends at the first of:
//   1. a section boundary line (Goal, Objective, Section, Table N,
//      Implementation Plan at the start of the line)
//   2. two consecutive blank lines
//   3. the dialect's hard maximum scan length
//
// =============================================================================

package costtable

import (
	"regexp"
	"strings"

	"github.com/ginjaninja78/plan-cost-extractor/internal/money"
)

var (
	boundaryRe = regexp.MustCompile(`(?i)^\s*(?:goals?|objectives?|section|table\s+\d+|implementation\s+plan)\b`)

	// totalLineRe matches "Total", "TOTAL", "Grand Total", "Total Cost:" and
	// captures the figures that follow. Free text after "Total" is a row
	// name ("Total Maximum Daily Load ..."), not a total.
	totalLineRe = regexp.MustCompile(`(?i)^\s*(?:grand\s+|estimated\s+|project\s+)?totals?\b(?:\s+(?:estimated\s+)?(?:costs?|budget|amount|project\s+costs?))?\s*(?:[:=]\s*)?([$\d(-].*)?$`)

	digitRe = regexp.MustCompile(`\d`)
)

// Default scan lengths per dialect family.
const (
	maxScanHeader    = 80
	maxScanProbe     = 120
	maxScanCoded     = 200
	maxScanNarrative = 40
	maxScanCluster   = 60
)

// isBoundary reports whether line opens a new document section.
func isBoundary(line string) bool {
	return boundaryRe.MatchString(line)
}

func isBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}

// blockEnd returns the last line index a block starting its body at
// bodyStart may consume. It returns bodyStart-1 when the body is empty.
// Trailing blank lines are never part of a block.
func blockEnd(lines []string, bodyStart, maxLines int) int {
	limit := bodyStart + maxLines
	if limit > len(lines) {
		limit = len(lines)
	}

	end := bodyStart - 1
	for j := bodyStart; j < limit; j++ {
		line := lines[j]
		if isBoundary(line) {
			break
		}
		if isBlank(line) {
			if j+1 < len(lines) && isBlank(lines[j+1]) {
				break
			}
			continue
		}
		end = j
	}
	return end
}

// parseTotalLine recognizes a reported total. Ranges resolve to their
// midpoint. The returned amounts are every figure on the line, in order, so
// multi-column totals can be interpreted by the caller.
func parseTotalLine(line string) (amounts []float64, ok bool) {
	m := totalLineRe.FindStringSubmatch(line)
	if m == nil {
		return nil, false
	}
	amounts = lineFigures(m[1])
	return amounts, len(amounts) > 0
}

// lineFigures returns every dollar figure in s. A "$X - $Y" range counts as
// one figure at its midpoint.
func lineFigures(s string) []float64 {
	var out []float64
	rest := s
	for {
		loc := figureRe.FindStringIndex(rest)
		if loc == nil {
			break
		}
		if v, ok := money.ParseMoneyOrRange(rest[loc[0]:loc[1]]); ok {
			out = append(out, v)
		}
		rest = rest[loc[1]:]
	}
	return out
}

// figureRe matches a range before a single amount so ranges are not split.
var figureRe = regexp.MustCompile(money.AmountRange + `|` + money.Amount)

// captionAbove returns the nearest non-blank, digit-free line within three
// lines above start, or "".
func captionAbove(lines []string, start int) string {
	for j := start - 1; j >= 0 && j >= start-3; j-- {
		line := strings.TrimSpace(lines[j])
		if line == "" {
			continue
		}
		if digitRe.MatchString(line) && !isBoundary(line) {
			return ""
		}
		return strings.TrimSuffix(line, ":")
	}
	return ""
}
