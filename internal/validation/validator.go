// =============================================================================
// Plan Cost Extractor - Validation Engine
// =============================================================================
//
// This module audits detected cost tables after the scan. It re-checks the
// structural guarantees every detection must satisfy and flags figures a
// reviewer should look at before the numbers are used.
//
// VALIDATION STRATEGY:
//   Validation is performed at three levels:
//   1. Table-level: span bounds, dollar lines, confidence, row minimum
//   2. Row-level: names, negative amounts, unit arithmetic
//   3. Document-level: duplicate dollar-line sets across tables
//
// ERROR HANDLING:
//   - Findings are collected, not thrown
//   - Each finding names the table, the row and the rule it violated
//   - Errors mark a broken detection; warnings mark suspicious figures
//     (for example a reported total that disagrees with the row sum)
//
// =============================================================================

package validation

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/ginjaninja78/plan-cost-extractor/internal/money"
	"github.com/ginjaninja78/plan-cost-extractor/internal/types"
)

// Severity levels.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// sumTolerance bounds float drift when re-adding row totals.
const sumTolerance = 1e-6

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// ValidationError represents a single audit finding.
type ValidationError struct {
	// Severity is SeverityError or SeverityWarning.
	Severity string `json:"severity"`

	// Rule names the check that produced the finding.
	Rule string `json:"rule"`

	// Message is a human-readable description.
	Message string `json:"message"`

	// TableID and PatternID identify the detection.
	TableID   string `json:"tableId"`
	PatternID string `json:"patternId"`

	// RowIndex is the 0-based normalized row, or -1 for table findings.
	RowIndex int `json:"rowIndex"`

	// Value is the offending value, formatted.
	Value string `json:"value,omitempty"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	where := fmt.Sprintf("table %s (%s)", shortID(e.TableID), e.PatternID)
	if e.RowIndex >= 0 {
		where += fmt.Sprintf(", row %d", e.RowIndex+1)
	}
	msg := fmt.Sprintf("[%s] %s, rule '%s': %s", strings.ToUpper(e.Severity), where, e.Rule, e.Message)
	if e.Value != "" {
		msg += fmt.Sprintf(" (value: '%s')", e.Value)
	}
	return msg
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// =============================================================================
// VALIDATION RESULT
// =============================================================================

// ValidationResult contains the results of validation.
type ValidationResult struct {
	// IsValid is true if there are no errors.
	IsValid bool `json:"isValid"`

	// Errors contains all findings, warnings included.
	Errors []*ValidationError `json:"findings"`

	ErrorCount      int `json:"errorCount"`
	WarningCount    int `json:"warningCount"`
	TablesValidated int `json:"tablesValidated"`
	RowsValidated   int `json:"rowsValidated"`
}

// =============================================================================
// VALIDATOR
// =============================================================================

// ValidationOptions contains options for validation.
type ValidationOptions struct {
	// DiscrepancyTolerance is the absolute reported-vs-computed difference
	// above which a warning is raised.
	// Default: 0.01
	DiscrepancyTolerance float64

	// MinRows maps pattern IDs to their declared row minimum. Patterns not
	// listed are not checked.
	MinRows map[string]int

	// MinConfidence and MaxConfidence bound patternConfidence.
	// Default: 0.45 and 0.95
	MinConfidence float64
	MaxConfidence float64

	// TreatWarningsAsErrors makes any warning invalidate the result.
	TreatWarningsAsErrors bool
}

// DefaultValidationOptions returns the default validation options.
func DefaultValidationOptions() ValidationOptions {
	return ValidationOptions{
		DiscrepancyTolerance: 0.01,
		MinRows:              map[string]int{},
		MinConfidence:        0.45,
		MaxConfidence:        0.95,
	}
}

// Validator audits detected tables.
type Validator struct {
	options ValidationOptions
}

// NewValidator creates a Validator with default options.
func NewValidator() *Validator {
	return &Validator{options: DefaultValidationOptions()}
}

// NewValidatorWithOptions creates a Validator with custom options. Zero
// values fall back to the defaults.
func NewValidatorWithOptions(options ValidationOptions) *Validator {
	def := DefaultValidationOptions()
	if options.DiscrepancyTolerance <= 0 {
		options.DiscrepancyTolerance = def.DiscrepancyTolerance
	}
	if options.MinRows == nil {
		options.MinRows = def.MinRows
	}
	if options.MinConfidence == 0 && options.MaxConfidence == 0 {
		options.MinConfidence, options.MaxConfidence = def.MinConfidence, def.MaxConfidence
	}
	return &Validator{options: options}
}

// =============================================================================
// MAIN VALIDATION FUNCTION
// =============================================================================

// Validate audits tables with default options and returns the findings.
func Validate(tables []types.DetectedTable) []*ValidationError {
	return NewValidator().ValidateAll(tables).Errors
}

// ValidateAll audits every table plus the cross-table rules.
func (v *Validator) ValidateAll(tables []types.DetectedTable) *ValidationResult {
	result := &ValidationResult{
		IsValid:         true,
		Errors:          make([]*ValidationError, 0),
		TablesValidated: len(tables),
	}

	var findings []*ValidationError
	for i := range tables {
		findings = append(findings, v.ValidateTable(&tables[i])...)
		result.RowsValidated += len(tables[i].Normalized.Rows)
	}
	findings = append(findings, duplicateDollarSets(tables)...)

	for _, f := range findings {
		result.Errors = append(result.Errors, f)
		if f.Severity == SeverityError {
			result.ErrorCount++
			result.IsValid = false
		} else {
			result.WarningCount++
			if v.options.TreatWarningsAsErrors {
				result.IsValid = false
			}
		}
	}

	return result
}

// ValidateTable audits a single table and its rows.
func (v *Validator) ValidateTable(t *types.DetectedTable) []*ValidationError {
	a := auditor{table: t}
	n := &t.Normalized

	// Span.
	if t.SpanStart < 0 {
		a.fail("span_bounds", strconv.Itoa(t.SpanStart), "span starts before the first line")
	}
	if t.SpanStart > t.SpanEnd {
		a.fail("span_bounds", fmt.Sprintf("%d..%d", t.SpanStart, t.SpanEnd), "span start is after span end")
	}
	for _, idx := range t.DollarLineIndices {
		if idx < t.SpanStart || idx > t.SpanEnd {
			a.fail("dollar_lines_in_span", strconv.Itoa(idx), "dollar line outside the span")
		}
	}
	if !sort.IntsAreSorted(t.DollarLineIndices) {
		a.warn("dollar_lines_sorted", "", "dollar line indices are not sorted")
	}

	// Pattern.
	if n.PatternConfidence < v.options.MinConfidence || n.PatternConfidence > v.options.MaxConfidence {
		a.fail("confidence_range", fmt.Sprintf("%.2f", n.PatternConfidence),
			fmt.Sprintf("confidence outside [%.2f, %.2f]", v.options.MinConfidence, v.options.MaxConfidence))
	}
	if minRows, ok := v.options.MinRows[n.PatternID]; ok && len(n.Rows) < minRows {
		a.fail("row_minimum", strconv.Itoa(len(n.Rows)), fmt.Sprintf("fewer than %d rows", minRows))
	}

	// Aggregates.
	v.checkTotals(&a, n)
	checkFunding(&a, n)
	checkRanges(&a, n)
	checkSubtotals(&a, t)

	// Rows.
	for i := range n.Rows {
		v.checkRow(&a, i, &n.Rows[i])
	}

	return a.findings
}

// =============================================================================
// TABLE CHECKS
// =============================================================================

func (v *Validator) checkTotals(a *auditor, n *types.Normalized) {
	var totals []float64
	for _, r := range n.Rows {
		if r.TotalCost != nil {
			totals = append(totals, *r.TotalCost)
		}
	}

	switch {
	case len(totals) == 0 && n.TotalComputed != nil:
		a.fail("total_computed", money.FormatPlain(*n.TotalComputed), "computed total without any row total")
	case len(totals) > 0 && n.TotalComputed == nil:
		a.fail("total_computed", "", "row totals present but no computed total")
	case len(totals) > 0:
		if want := money.Sum(totals); !near(*n.TotalComputed, want, sumTolerance) {
			a.fail("total_computed", money.FormatPlain(*n.TotalComputed),
				fmt.Sprintf("computed total differs from row sum %s", money.FormatPlain(want)))
		}
	}

	if n.TotalReported != nil && n.TotalComputed != nil {
		want := money.Sub(*n.TotalReported, *n.TotalComputed)
		if n.Discrepancy == nil || !near(*n.Discrepancy, want, sumTolerance) {
			a.fail("discrepancy", "", "discrepancy is not reported minus computed")
		} else if math.Abs(want) > v.options.DiscrepancyTolerance {
			a.warn("discrepancy_tolerance", money.FormatPlain(want),
				fmt.Sprintf("reported total %s differs from row sum %s",
					money.FormatPlain(*n.TotalReported), money.FormatPlain(*n.TotalComputed)))
		}
	} else if n.Discrepancy != nil {
		a.fail("discrepancy", money.FormatPlain(*n.Discrepancy), "discrepancy without both totals")
	}
}

func checkFunding(a *auditor, n *types.Normalized) {
	if n.FundingTotals == nil {
		return
	}
	check := func(label string, got *float64, pick func(types.NormalizedRow) *float64) {
		var vals []float64
		for _, r := range n.Rows {
			if p := pick(r); p != nil {
				vals = append(vals, *p)
			}
		}
		if len(vals) == 0 {
			if got != nil {
				a.fail("funding_totals", label, "contributor total without contributions")
			}
			return
		}
		if got == nil || !near(*got, money.Sum(vals), sumTolerance) {
			a.fail("funding_totals", label, "contributor total differs from the contributions")
		}
	}
	check("producer", n.ProducerComputed, func(r types.NormalizedRow) *float64 { return r.ProducerContribution })
	check("nrcs", n.NRCSComputed, func(r types.NormalizedRow) *float64 { return r.NRCSContribution })
	check("other", n.OtherComputed, func(r types.NormalizedRow) *float64 { return r.OtherContribution })

	for i, r := range n.Rows {
		if r.ProducerShare == nil || r.NRCSShare == nil || r.OtherShare == nil {
			continue
		}
		if sum := *r.ProducerShare + *r.NRCSShare + *r.OtherShare; !near(sum, 1, 1e-3) {
			a.rowWarn(i, "funding_shares", fmt.Sprintf("%.4f", sum), "contributor shares do not add up to the row total")
		}
	}
}

func checkRanges(a *auditor, n *types.Normalized) {
	for i, r := range n.Rows {
		if r.CostLow != nil && r.CostHigh != nil && *r.CostLow > *r.CostHigh {
			a.rowWarn(i, "range_order", fmt.Sprintf("%s - %s", money.FormatPlain(*r.CostLow), money.FormatPlain(*r.CostHigh)),
				"low end of the range exceeds the high end")
		}
	}
	if n.RangeTotals != nil && n.TotalLow != nil && n.TotalHigh != nil && *n.TotalLow > *n.TotalHigh {
		a.warn("range_order", "", "summed low end exceeds the summed high end")
	}
}

func checkSubtotals(a *auditor, t *types.DetectedTable) {
	for _, s := range t.Normalized.Subtotals {
		if s.LineIndex < t.SpanStart || s.LineIndex > t.SpanEnd {
			a.fail("subtotal_in_span", strconv.Itoa(s.LineIndex), fmt.Sprintf("subtotal %q outside the span", s.Label))
		}
	}
}

// =============================================================================
// ROW CHECKS
// =============================================================================

func (v *Validator) checkRow(a *auditor, i int, r *types.NormalizedRow) {
	if strings.TrimSpace(r.Name) == "" {
		a.rowWarn(i, "row_name", "", "row has no name")
	}
	if r.TotalCost == nil {
		a.rowWarn(i, "row_total", "", "row has no total cost")
	}

	amounts := []struct {
		label string
		value *float64
	}{
		{"quantity", r.Quantity},
		{"unitCost", r.UnitCost},
		{"totalCost", r.TotalCost},
	}
	for _, amt := range amounts {
		if amt.value != nil && *amt.value < 0 {
			a.rowWarn(i, "negative_amount", money.FormatPlain(*amt.value), amt.label+" is negative")
		}
	}

	// Rows whose three figures were all parsed may still disagree; a
	// synthesized figure always agrees by construction.
	if r.Quantity != nil && r.UnitCost != nil && r.TotalCost != nil {
		product := money.Mul(*r.Quantity, *r.UnitCost)
		if diff := math.Abs(product - *r.TotalCost); diff > v.options.DiscrepancyTolerance && diff > 0.01*math.Abs(*r.TotalCost) {
			a.rowWarn(i, "unit_arithmetic", money.FormatPlain(*r.TotalCost),
				fmt.Sprintf("quantity x unit cost is %s", money.FormatPlain(product)))
		}
	}

	for _, idx := range r.SourceLines {
		if idx < a.table.SpanStart || idx > a.table.SpanEnd {
			a.rowFail(i, "source_lines_in_span", strconv.Itoa(idx), "source line outside the span")
		}
	}
}

// =============================================================================
// DOCUMENT CHECKS
// =============================================================================

func duplicateDollarSets(tables []types.DetectedTable) []*ValidationError {
	var findings []*ValidationError
	seen := make(map[string]int)
	for i, t := range tables {
		if len(t.DollarLineIndices) == 0 {
			continue
		}
		key := fmt.Sprint(t.DollarLineIndices)
		if j, ok := seen[key]; ok {
			findings = append(findings, &ValidationError{
				Severity:  SeverityError,
				Rule:      "unique_dollar_lines",
				Message:   fmt.Sprintf("same dollar lines as table %s (%s)", shortID(tables[j].ID), tables[j].Normalized.PatternID),
				TableID:   t.ID,
				PatternID: t.Normalized.PatternID,
				RowIndex:  -1,
				Value:     key,
			})
			continue
		}
		seen[key] = i
	}
	return findings
}

// =============================================================================
// HELPERS
// =============================================================================

type auditor struct {
	table    *types.DetectedTable
	findings []*ValidationError
}

func (a *auditor) add(severity string, row int, rule, value, msg string) {
	a.findings = append(a.findings, &ValidationError{
		Severity:  severity,
		Rule:      rule,
		Message:   msg,
		TableID:   a.table.ID,
		PatternID: a.table.Normalized.PatternID,
		RowIndex:  row,
		Value:     value,
	})
}

func (a *auditor) fail(rule, value, msg string) { a.add(SeverityError, -1, rule, value, msg) }
func (a *auditor) warn(rule, value, msg string) { a.add(SeverityWarning, -1, rule, value, msg) }
func (a *auditor) rowFail(row int, rule, value, msg string) {
	a.add(SeverityError, row, rule, value, msg)
}
func (a *auditor) rowWarn(row int, rule, value, msg string) {
	a.add(SeverityWarning, row, rule, value, msg)
}

func near(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}
