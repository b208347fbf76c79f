// =============================================================================
// Plan Cost Extractor - Shared Types
// =============================================================================
//
// This package contains the data model shared by the detection engine and
// every consumer of its output. Types defined here are used by:
//   - costtable  (produces them)
//   - converter  (post-processes row names, writes reports)
//   - validation (audits them)
//   - xmlwriter / xlsxparser (render them)
//
// All types are JSON-serializable; field names follow the camelCase keys the
// downstream report-assembly step expects.
//
// =============================================================================

package types

import "time"

// =============================================================================
// RAW TABLE
// =============================================================================

// RawRow is one row of a raw table. Cells are aligned with RawTable.Columns.
type RawRow []string

// RawTable is the dialect's literal reading of a cost block before
// normalization.
type RawTable struct {
	// Columns names the cells of every row, in order.
	Columns []string `json:"columns"`

	// Rows contains the raw cell text for each recognized row.
	Rows []RawRow `json:"rows"`

	// Total is the reported total read from the block, or nil.
	Total *float64 `json:"total"`
}

// =============================================================================
// NORMALIZED ROW
// =============================================================================

// NormalizedRow is the canonical row shape every dialect emits.
//
// The first block of fields is shared by all dialects. The remaining fields
// are dialect-specific and stay nil unless the producing dialect (see
// Normalized.PatternID) fills them.
type NormalizedRow struct {
	Name      string   `json:"name"`
	Quantity  *float64 `json:"quantity"`
	Unit      *string  `json:"unit"`
	UnitRaw   *string  `json:"unitRaw"`
	UnitCost  *float64 `json:"unitCost"`
	TotalCost *float64 `json:"totalCost"`
	RawSize   *string  `json:"rawSize"`
	RawCost   *string  `json:"rawCost"`

	// Landowner match dialect.
	LandownerMatch *float64 `json:"landownerMatch,omitempty"`

	// Multi-funding-source dialect. Shares are fractions of TotalCost.
	ProducerContribution *float64 `json:"producerContribution,omitempty"`
	NRCSContribution     *float64 `json:"nrcsContribution,omitempty"`
	OtherContribution    *float64 `json:"otherContribution,omitempty"`
	ProducerShare        *float64 `json:"producerShare,omitempty"`
	NRCSShare            *float64 `json:"nrcsShare,omitempty"`
	OtherShare           *float64 `json:"otherShare,omitempty"`

	// Range dialects that retain both ends of a "$X - $Y" figure.
	CostLow  *float64 `json:"costLow,omitempty"`
	CostHigh *float64 `json:"costHigh,omitempty"`

	// Coded budget dialect.
	Code    *string `json:"code,omitempty"`
	Section *string `json:"section,omitempty"`

	// SourceLines lists the physical line indices merged into this row.
	SourceLines []int `json:"sourceLines,omitempty"`
}

// =============================================================================
// NORMALIZED BLOCK
// =============================================================================

// FundingTotals carries the independent contributor sums of a
// multi-funding-source table.
type FundingTotals struct {
	ProducerComputed *float64 `json:"producerComputed"`
	NRCSComputed     *float64 `json:"nrcsComputed"`
	OtherComputed    *float64 `json:"otherComputed"`
}

// RangeTotals carries the summed low and high ends of a range table that
// retains min/max.
type RangeTotals struct {
	TotalLow  *float64 `json:"totalLow"`
	TotalHigh *float64 `json:"totalHigh"`
}

// Subtotal is a "Subtotal:" line recorded by the coded budget dialect.
type Subtotal struct {
	Label     string  `json:"label"`
	Amount    float64 `json:"amount"`
	LineIndex int     `json:"lineIndex"`
}

// Normalized holds the canonical rows of a detection plus its aggregates.
//
// It is a tagged variant: PatternID discriminates which of the optional
// dialect extras (FundingTotals, RangeTotals, Subtotals) may be present.
type Normalized struct {
	Rows              []NormalizedRow `json:"rows"`
	TotalReported     *float64        `json:"totalReported"`
	TotalComputed     *float64        `json:"totalComputed"`
	Discrepancy       *float64        `json:"discrepancy"`
	PatternID         string          `json:"patternId"`
	PatternConfidence float64         `json:"patternConfidence"`

	*FundingTotals
	*RangeTotals
	Subtotals []Subtotal `json:"subtotals,omitempty"`
}

// =============================================================================
// PARSE RESULT / DETECTED TABLE
// =============================================================================

// ParseResult is what a dialect parser returns for one candidate block.
type ParseResult struct {
	Table      RawTable
	Normalized Normalized

	// DollarLineIndices is optional; when nil the scanner derives it from
	// the span.
	DollarLineIndices []int

	// SpanEnd is the last line index the parser consumed.
	SpanEnd int

	// Title is the caption the parser chose for the block, if any.
	Title string
}

// DetectedTable is one surviving detection, the unit the engine returns.
type DetectedTable struct {
	ID                string     `json:"id"`
	Title             string     `json:"title"`
	SpanStart         int        `json:"spanStart"`
	SpanEnd           int        `json:"spanEnd"`
	DollarLineIndices []int      `json:"dollarLineIndices"`
	Table             RawTable   `json:"table"`
	Normalized        Normalized `json:"normalized"`
}

// =============================================================================
// DOCUMENT REPORT
// =============================================================================

// Report is everything detected in one input document. It is the envelope
// the report writers render; the audit travels alongside it.
type Report struct {
	// Source is the input file name.
	Source string `json:"source"`

	// Profile is the code of the profile used for the scan.
	Profile string `json:"profile"`

	// GeneratedAt is when the scan finished.
	GeneratedAt time.Time `json:"generatedAt"`

	// LineCount is the number of lines scanned.
	LineCount int `json:"lineCount"`

	// Tables are the surviving detections in span order.
	Tables []DetectedTable `json:"tables"`
}

// RowCount returns the number of normalized rows across all tables.
func (r *Report) RowCount() int {
	n := 0
	for _, t := range r.Tables {
		n += len(t.Normalized.Rows)
	}
	return n
}

// =============================================================================
// POINTER HELPERS
// =============================================================================

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

// String returns a pointer to s, or nil when s is empty.
func String(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the value behind p, or 0 when p is nil.
func Deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
