// =============================================================================
// Plan Cost Extractor - XML Report Writer
// =============================================================================
//
// This module renders a document report as XML for systems that ingest
// cost data in that form.
//
// OUTPUT STRUCTURE:
//
//	<costReport source="plan.txt" profile="default" generatedAt="..." lines="120">
//	  <table n="1" id="..." pattern="practice_unit_nrcs_costs" confidence="0.90"
//	         spanStart="10" spanEnd="14">
//	    <title>Practice Average Unit NRCS Cost Units Total Cost</title>
//	    <dollarLines>11 12 13</dollarLines>
//	    <row n="1" sourceLines="11">
//	      <name>Critical Area Planting</name>
//	      <quantity>32</quantity>
//	      <unit>acre</unit>
//	      <unitCost>248.10</unitCost>
//	      <totalCost>7939.20</totalCost>
//	    </row>
//	    <totals reported="7939.20" computed="7939.20" discrepancy="0.00"/>
//	  </table>
//	  <audit valid="true" errors="0" warnings="0"/>
//	</costReport>
//
// Optional values are omitted rather than written empty.
//
// =============================================================================

package xmlwriter

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/ginjaninja78/plan-cost-extractor/internal/money"
	"github.com/ginjaninja78/plan-cost-extractor/internal/types"
	"github.com/ginjaninja78/plan-cost-extractor/internal/validation"
)

// =============================================================================
// GENERATION OPTIONS
// =============================================================================

// GenerateOptions contains options for XML generation.
type GenerateOptions struct {
	// Indent is the indentation string. Empty writes compact XML.
	// Default: "  "
	Indent string

	// IncludeXMLDeclaration adds the <?xml ...?> header.
	// Default: true
	IncludeXMLDeclaration bool

	// RootElement names the document element.
	// Default: "costReport"
	RootElement string
}

// DefaultGenerateOptions returns the default generation options.
func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{
		Indent:                "  ",
		IncludeXMLDeclaration: true,
		RootElement:           "costReport",
	}
}

// =============================================================================
// MAIN GENERATION FUNCTION
// =============================================================================

// Generate renders report with the default options.
func Generate(report *types.Report, audit *validation.ValidationResult) ([]byte, error) {
	return GenerateWithOptions(report, audit, DefaultGenerateOptions())
}

// GenerateWithOptions renders report as XML.
//
// PARAMETERS:
//   - report: The detected tables of one document.
//   - audit: The audit result, or nil to omit the audit element.
//   - options: Formatting options.
//
// RETURNS:
//   - The XML document.
//   - An error if marshaling fails.
func GenerateWithOptions(report *types.Report, audit *validation.ValidationResult, options GenerateOptions) ([]byte, error) {
	doc := buildDocument(report, audit)
	if options.RootElement != "" {
		doc.XMLName = xml.Name{Local: options.RootElement}
	}

	var buffer bytes.Buffer
	if options.IncludeXMLDeclaration {
		buffer.WriteString(xml.Header)
	}

	enc := xml.NewEncoder(&buffer)
	enc.Indent("", options.Indent)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("failed to marshal XML: %w", err)
	}
	buffer.WriteByte('\n')

	return buffer.Bytes(), nil
}

// =============================================================================
// DOCUMENT MODEL
// =============================================================================

type xmlReport struct {
	XMLName     xml.Name
	Source      string     `xml:"source,attr"`
	Profile     string     `xml:"profile,attr"`
	GeneratedAt string     `xml:"generatedAt,attr"`
	Lines       int        `xml:"lines,attr"`
	Tables      []xmlTable `xml:"table"`
	Audit       *xmlAudit  `xml:"audit,omitempty"`
}

type xmlTable struct {
	N           int           `xml:"n,attr"`
	ID          string        `xml:"id,attr"`
	Pattern     string        `xml:"pattern,attr"`
	Confidence  string        `xml:"confidence,attr"`
	SpanStart   int           `xml:"spanStart,attr"`
	SpanEnd     int           `xml:"spanEnd,attr"`
	Title       string        `xml:"title,omitempty"`
	DollarLines string        `xml:"dollarLines"`
	Rows        []xmlRow      `xml:"row"`
	Subtotals   []xmlSubtotal `xml:"subtotal"`
	Totals      xmlTotals     `xml:"totals"`
}

type xmlRow struct {
	N                    int     `xml:"n,attr"`
	SourceLines          string  `xml:"sourceLines,attr,omitempty"`
	Name                 string  `xml:"name"`
	Quantity             *string `xml:"quantity,omitempty"`
	Unit                 *string `xml:"unit,omitempty"`
	UnitRaw              *string `xml:"unitRaw,omitempty"`
	UnitCost             *string `xml:"unitCost,omitempty"`
	TotalCost            *string `xml:"totalCost,omitempty"`
	RawSize              *string `xml:"rawSize,omitempty"`
	RawCost              *string `xml:"rawCost,omitempty"`
	Code                 *string `xml:"code,omitempty"`
	Section              *string `xml:"section,omitempty"`
	CostLow              *string `xml:"costLow,omitempty"`
	CostHigh             *string `xml:"costHigh,omitempty"`
	LandownerMatch       *string `xml:"landownerMatch,omitempty"`
	ProducerContribution *string `xml:"funding>producer,omitempty"`
	NRCSContribution     *string `xml:"funding>nrcs,omitempty"`
	OtherContribution    *string `xml:"funding>other,omitempty"`
}

type xmlSubtotal struct {
	Label  string `xml:"label,attr"`
	Line   int    `xml:"line,attr"`
	Amount string `xml:",chardata"`
}

type xmlTotals struct {
	Reported    string `xml:"reported,attr,omitempty"`
	Computed    string `xml:"computed,attr,omitempty"`
	Discrepancy string `xml:"discrepancy,attr,omitempty"`
	Low         string `xml:"low,attr,omitempty"`
	High        string `xml:"high,attr,omitempty"`
	Producer    string `xml:"producer,attr,omitempty"`
	NRCS        string `xml:"nrcs,attr,omitempty"`
	Other       string `xml:"other,attr,omitempty"`
}

type xmlAudit struct {
	Valid    bool         `xml:"valid,attr"`
	Errors   int          `xml:"errors,attr"`
	Warnings int          `xml:"warnings,attr"`
	Findings []xmlFinding `xml:"finding"`
}

type xmlFinding struct {
	Severity string `xml:"severity,attr"`
	Rule     string `xml:"rule,attr"`
	Table    string `xml:"table,attr"`
	Row      int    `xml:"row,attr,omitempty"`
	Message  string `xml:",chardata"`
}

// =============================================================================
// DOCUMENT BUILDING
// =============================================================================

func buildDocument(report *types.Report, audit *validation.ValidationResult) *xmlReport {
	doc := &xmlReport{
		XMLName:     xml.Name{Local: "costReport"},
		Source:      report.Source,
		Profile:     report.Profile,
		GeneratedAt: report.GeneratedAt.UTC().Format("2006-01-02T15:04:05Z"),
		Lines:       report.LineCount,
		Tables:      make([]xmlTable, 0, len(report.Tables)),
	}

	for i, t := range report.Tables {
		doc.Tables = append(doc.Tables, buildTable(i+1, &t))
	}

	if audit != nil {
		a := &xmlAudit{Valid: audit.IsValid, Errors: audit.ErrorCount, Warnings: audit.WarningCount}
		for _, f := range audit.Errors {
			finding := xmlFinding{Severity: f.Severity, Rule: f.Rule, Table: f.TableID, Message: f.Message}
			if f.RowIndex >= 0 {
				finding.Row = f.RowIndex + 1
			}
			a.Findings = append(a.Findings, finding)
		}
		doc.Audit = a
	}

	return doc
}

func buildTable(n int, t *types.DetectedTable) xmlTable {
	norm := t.Normalized
	table := xmlTable{
		N:           n,
		ID:          t.ID,
		Pattern:     norm.PatternID,
		Confidence:  strconv.FormatFloat(norm.PatternConfidence, 'f', 2, 64),
		SpanStart:   t.SpanStart,
		SpanEnd:     t.SpanEnd,
		Title:       t.Title,
		DollarLines: joinInts(t.DollarLineIndices),
		Totals: xmlTotals{
			Reported:    amount(norm.TotalReported),
			Computed:    amount(norm.TotalComputed),
			Discrepancy: amount(norm.Discrepancy),
		},
	}

	if norm.RangeTotals != nil {
		table.Totals.Low = amount(norm.TotalLow)
		table.Totals.High = amount(norm.TotalHigh)
	}
	if norm.FundingTotals != nil {
		table.Totals.Producer = amount(norm.ProducerComputed)
		table.Totals.NRCS = amount(norm.NRCSComputed)
		table.Totals.Other = amount(norm.OtherComputed)
	}

	for i, r := range norm.Rows {
		table.Rows = append(table.Rows, xmlRow{
			N:                    i + 1,
			SourceLines:          joinInts(r.SourceLines),
			Name:                 r.Name,
			Quantity:             number(r.Quantity),
			Unit:                 r.Unit,
			UnitRaw:              r.UnitRaw,
			UnitCost:             amountPtr(r.UnitCost),
			TotalCost:            amountPtr(r.TotalCost),
			RawSize:              r.RawSize,
			RawCost:              r.RawCost,
			Code:                 r.Code,
			Section:              r.Section,
			CostLow:              amountPtr(r.CostLow),
			CostHigh:             amountPtr(r.CostHigh),
			LandownerMatch:       amountPtr(r.LandownerMatch),
			ProducerContribution: amountPtr(r.ProducerContribution),
			NRCSContribution:     amountPtr(r.NRCSContribution),
			OtherContribution:    amountPtr(r.OtherContribution),
		})
	}

	for _, s := range norm.Subtotals {
		table.Subtotals = append(table.Subtotals, xmlSubtotal{
			Label:  s.Label,
			Line:   s.LineIndex,
			Amount: money.FormatPlain(s.Amount),
		})
	}

	return table
}

// =============================================================================
// VALUE FORMATTING
// =============================================================================

func amount(p *float64) string {
	if p == nil {
		return ""
	}
	return money.FormatPlain(*p)
}

func amountPtr(p *float64) *string {
	if p == nil {
		return nil
	}
	s := money.FormatPlain(*p)
	return &s
}

func number(p *float64) *string {
	if p == nil {
		return nil
	}
	s := strconv.FormatFloat(*p, 'f', -1, 64)
	return &s
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, " ")
}
