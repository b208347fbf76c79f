package costtable

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/ginjaninja78/plan-cost-extractor/internal/money"
)

// logicalLine is one row candidate after continuation merging. It keeps
// every physical line index it was built from.
type logicalLine struct {
	text    string
	indices []int

	// nameTail holds wrapped description text that followed the row's
	// figures. Parsers append it to the parsed name.
	nameTail string
}

func (l logicalLine) first() int { return l.indices[0] }
func (l logicalLine) last() int  { return l.indices[len(l.indices)-1] }

// name joins a parsed name with any wrapped tail.
func (l logicalLine) name(parsed string) string {
	parsed = strings.TrimSpace(parsed)
	if l.nameTail == "" {
		return parsed
	}
	return strings.TrimSpace(parsed + " " + l.nameTail)
}

var (
	loneFigureRe = regexp.MustCompile(`^\s*(?:` + money.AmountRange + `|` + money.Amount + `)\s*$`)
	codeLeadRe   = regexp.MustCompile(`^\s*[A-Z]{1,2}\d{1,3}(?:\.\d{1,2})?[.):]?\s`)
	letterRe     = regexp.MustCompile(`[A-Za-z]`)
)

// isHeading reports whether a text-only line reads as a heading or label
// rather than a wrapped row name.
func isHeading(line string) bool {
	t := strings.TrimSpace(line)
	if strings.HasSuffix(t, ":") || isBoundary(t) || codeLeadRe.MatchString(t) || subtotalRe.MatchString(t) {
		return true
	}
	if _, ok := parseTotalLine(t); ok {
		return true
	}
	return isAllCaps(t)
}

func isAllCaps(s string) bool {
	letters := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsLower(r) {
				return false
			}
		}
	}
	return letters > 3
}

// isWrapTail reports whether a text-only line continues the previous row's
// description.
func isWrapTail(prev, line string) bool {
	t := strings.TrimSpace(line)
	if t == "" {
		return false
	}
	r := []rune(t)[0]
	if unicode.IsLower(r) || r == '(' || r == '&' {
		return true
	}
	p := strings.TrimSpace(prev)
	return strings.HasSuffix(p, "-") || strings.HasSuffix(p, ",") || strings.HasSuffix(p, "&") ||
		strings.HasSuffix(strings.ToLower(p), " and") || strings.HasSuffix(strings.ToLower(p), " of")
}

// mergeContinuations folds the physical lines in [from, to] into logical
// rows. Blank lines are dropped but break continuation.
//
// Rules:
//   - a lone "$amount" or range line is appended to the previous row
//   - a text-only wrap tail is attached to the previous money row's name
//   - a non-heading text-only line directly above a money row becomes that
//     row's name prefix
func mergeContinuations(lines []string, from, to int) []logicalLine {
	var out []logicalLine
	afterBlank := true
	pending := ""
	pendingIdx := -1

	for j := from; j <= to && j < len(lines); j++ {
		line := strings.TrimSpace(lines[j])
		if line == "" {
			if pendingIdx >= 0 {
				out = append(out, logicalLine{text: pending, indices: []int{pendingIdx}})
				pending, pendingIdx = "", -1
			}
			afterBlank = true
			continue
		}

		hasPrev := len(out) > 0 && !afterBlank && pendingIdx < 0
		afterBlank = false

		if loneFigureRe.MatchString(line) && hasPrev {
			prev := &out[len(out)-1]
			prev.text += " " + line
			prev.indices = append(prev.indices, j)
			continue
		}

		if !digitRe.MatchString(line) && letterRe.MatchString(line) {
			if hasPrev && money.ContainsAmount(out[len(out)-1].text) && isWrapTail(out[len(out)-1].text, line) {
				prev := &out[len(out)-1]
				prev.nameTail = strings.TrimSpace(prev.nameTail + " " + line)
				prev.indices = append(prev.indices, j)
				continue
			}
			next := j + 1
			if pendingIdx < 0 && !isHeading(line) && next <= to && next < len(lines) &&
				money.ContainsAmount(lines[next]) && !loneFigureRe.MatchString(lines[next]) &&
				!isHeading(lines[next]) {
				pending, pendingIdx = line, j
				continue
			}
		}

		if pendingIdx >= 0 {
			out = append(out, logicalLine{
				text:    pending + " " + line,
				indices: []int{pendingIdx, j},
			})
			pending, pendingIdx = "", -1
			continue
		}
		out = append(out, logicalLine{text: line, indices: []int{j}})
	}

	if pendingIdx >= 0 {
		out = append(out, logicalLine{text: pending, indices: []int{pendingIdx}})
	}
	return out
}
