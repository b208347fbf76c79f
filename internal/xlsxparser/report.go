package xlsxparser

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/plan-cost-extractor/internal/types"
	"github.com/ginjaninja78/plan-cost-extractor/internal/validation"
)

// SummarySheet is the name of the first worksheet of a report workbook.
const SummarySheet = "Summary"

// FindingsSheet lists audit findings when there are any.
const FindingsSheet = "Findings"

const maxSheetName = 31

var (
	summaryHeader = []interface{}{
		"#", "Sheet", "Title", "Pattern", "Confidence", "Span Start", "Span End",
		"Rows", "Total Reported", "Total Computed", "Discrepancy",
	}
	tableHeader = []interface{}{
		"Name", "Quantity", "Unit", "Unit Cost", "Total Cost",
		"Code", "Section", "Cost Low", "Cost High",
		"Producer", "NRCS", "Other", "Landowner Match", "Source Lines",
	}
	findingsHeader = []interface{}{"Severity", "Rule", "Table", "Pattern", "Row", "Message", "Value"}
)

// WriteReport renders a report as an XLSX workbook: a summary sheet, one
// sheet per detected table and, when the audit found anything, a findings
// sheet.
func WriteReport(w io.Writer, report *types.Report, audit *validation.ValidationResult) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SummarySheet); err != nil {
		return fmt.Errorf("failed to name summary sheet: %w", err)
	}

	styles, err := newReportStyles(f)
	if err != nil {
		return err
	}

	if err := writeSummary(f, styles, report); err != nil {
		return err
	}
	for i := range report.Tables {
		if err := writeTableSheet(f, styles, i, &report.Tables[i]); err != nil {
			return err
		}
	}
	if audit != nil && len(audit.Errors) > 0 {
		if err := writeFindings(f, styles, audit); err != nil {
			return err
		}
	}

	f.SetActiveSheet(0)
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// TableSheetName returns the worksheet name used for the i-th table.
func TableSheetName(i int, t *types.DetectedTable) string {
	name := fmt.Sprintf("%02d %s", i+1, t.Normalized.PatternID)
	name = strings.Map(func(r rune) rune {
		switch r {
		case '[', ']', ':', '*', '?', '/', '\\':
			return '_'
		}
		return r
	}, name)
	if len(name) > maxSheetName {
		name = name[:maxSheetName]
	}
	return name
}

// =============================================================================
// SHEETS
// =============================================================================

type reportStyles struct {
	header int
	money  int
	ratio  int
}

func newReportStyles(f *excelize.File) (reportStyles, error) {
	var s reportStyles
	var err error

	s.header, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"D9E1F2"}},
	})
	if err != nil {
		return s, fmt.Errorf("failed to create header style: %w", err)
	}
	// 4 is the built-in "#,##0.00" format.
	s.money, err = f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return s, fmt.Errorf("failed to create money style: %w", err)
	}
	// 2 is "0.00".
	s.ratio, err = f.NewStyle(&excelize.Style{NumFmt: 2})
	if err != nil {
		return s, fmt.Errorf("failed to create ratio style: %w", err)
	}
	return s, nil
}

func writeSummary(f *excelize.File, styles reportStyles, report *types.Report) error {
	meta := [][]interface{}{
		{"Source", report.Source},
		{"Profile", report.Profile},
		{"Generated", report.GeneratedAt.Format("2006-01-02 15:04:05")},
		{"Lines", report.LineCount},
		{"Tables", len(report.Tables)},
		{"Rows", report.RowCount()},
	}
	for i, row := range meta {
		if err := setRow(f, SummarySheet, i+1, row); err != nil {
			return err
		}
	}

	headerRow := len(meta) + 2
	if err := setRow(f, SummarySheet, headerRow, summaryHeader); err != nil {
		return err
	}
	if err := styleRow(f, SummarySheet, headerRow, len(summaryHeader), styles.header); err != nil {
		return err
	}

	for i := range report.Tables {
		t := &report.Tables[i]
		n := t.Normalized
		row := []interface{}{
			i + 1, TableSheetName(i, t), t.Title, n.PatternID, n.PatternConfidence,
			t.SpanStart, t.SpanEnd, len(n.Rows),
			cellValue(n.TotalReported), cellValue(n.TotalComputed), cellValue(n.Discrepancy),
		}
		r := headerRow + 1 + i
		if err := setRow(f, SummarySheet, r, row); err != nil {
			return err
		}
		if err := styleRange(f, SummarySheet, 5, r, 5, r, styles.ratio); err != nil {
			return err
		}
		if err := styleRange(f, SummarySheet, 9, r, 11, r, styles.money); err != nil {
			return err
		}
	}

	return f.SetColWidth(SummarySheet, "C", "C", 40)
}

func writeTableSheet(f *excelize.File, styles reportStyles, i int, t *types.DetectedTable) error {
	sheet := TableSheetName(i, t)
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
	}

	title := t.Title
	if title == "" {
		title = t.Normalized.PatternID
	}
	if err := setRow(f, sheet, 1, []interface{}{title}); err != nil {
		return err
	}
	if err := setRow(f, sheet, 3, tableHeader); err != nil {
		return err
	}
	if err := styleRow(f, sheet, 3, len(tableHeader), styles.header); err != nil {
		return err
	}

	for j, r := range t.Normalized.Rows {
		row := []interface{}{
			r.Name, cellValue(r.Quantity), stringValue(r.Unit), cellValue(r.UnitCost), cellValue(r.TotalCost),
			stringValue(r.Code), stringValue(r.Section), cellValue(r.CostLow), cellValue(r.CostHigh),
			cellValue(r.ProducerContribution), cellValue(r.NRCSContribution), cellValue(r.OtherContribution),
			cellValue(r.LandownerMatch), joinInts(r.SourceLines),
		}
		rowNum := 4 + j
		if err := setRow(f, sheet, rowNum, row); err != nil {
			return err
		}
		if err := styleRange(f, sheet, 4, rowNum, 5, rowNum, styles.money); err != nil {
			return err
		}
		if err := styleRange(f, sheet, 8, rowNum, 13, rowNum, styles.money); err != nil {
			return err
		}
	}

	footer := 4 + len(t.Normalized.Rows) + 1
	totals := [][]interface{}{
		{"Total Reported", nil, nil, nil, cellValue(t.Normalized.TotalReported)},
		{"Total Computed", nil, nil, nil, cellValue(t.Normalized.TotalComputed)},
		{"Discrepancy", nil, nil, nil, cellValue(t.Normalized.Discrepancy)},
	}
	for k, row := range totals {
		if err := setRow(f, sheet, footer+k, row); err != nil {
			return err
		}
		if err := styleRange(f, sheet, 5, footer+k, 5, footer+k, styles.money); err != nil {
			return err
		}
	}

	return f.SetColWidth(sheet, "A", "A", 40)
}

func writeFindings(f *excelize.File, styles reportStyles, audit *validation.ValidationResult) error {
	if _, err := f.NewSheet(FindingsSheet); err != nil {
		return fmt.Errorf("failed to create findings sheet: %w", err)
	}
	if err := setRow(f, FindingsSheet, 1, findingsHeader); err != nil {
		return err
	}
	if err := styleRow(f, FindingsSheet, 1, len(findingsHeader), styles.header); err != nil {
		return err
	}
	for i, e := range audit.Errors {
		var row interface{}
		if e.RowIndex >= 0 {
			row = e.RowIndex + 1
		}
		values := []interface{}{e.Severity, e.Rule, e.TableID, e.PatternID, row, e.Message, e.Value}
		if err := setRow(f, FindingsSheet, i+2, values); err != nil {
			return err
		}
	}
	return f.SetColWidth(FindingsSheet, "F", "F", 60)
}

// =============================================================================
// CELL HELPERS
// =============================================================================

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write %s!%s: %w", sheet, cell, err)
	}
	return nil
}

func styleRow(f *excelize.File, sheet string, row, cols, style int) error {
	return styleRange(f, sheet, 1, row, cols, row, style)
}

func styleRange(f *excelize.File, sheet string, col1, row1, col2, row2, style int) error {
	from, err := excelize.CoordinatesToCellName(col1, row1)
	if err != nil {
		return err
	}
	to, err := excelize.CoordinatesToCellName(col2, row2)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, from, to, style)
}

// cellValue turns an optional number into a cell value; nil leaves the
// cell empty.
func cellValue(p *float64) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func stringValue(p *string) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, ",")
}
