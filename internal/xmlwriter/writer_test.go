package xmlwriter

import (
	"encoding/xml"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/plan-cost-extractor/internal/types"
	"github.com/ginjaninja78/plan-cost-extractor/internal/validation"
)

func fundingReport() *types.Report {
	return &types.Report{
		Source:      "plan.txt",
		Profile:     "swcd",
		GeneratedAt: time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC),
		LineCount:   4,
		Tables: []types.DetectedTable{{
			ID:                "abc",
			Title:             "Funding Sources",
			SpanStart:         0,
			SpanEnd:           3,
			DollarLineIndices: []int{1, 2},
			Normalized: types.Normalized{
				PatternID:         "funding_sources",
				PatternConfidence: 0.85,
				Rows: []types.NormalizedRow{{
					Name:                 "Cover Crop & Seeding",
					TotalCost:            types.Float(350),
					ProducerContribution: types.Float(100),
					NRCSContribution:     types.Float(200),
					OtherContribution:    types.Float(50),
					SourceLines:          []int{1},
				}, {
					Name:      "Fence",
					Quantity:  types.Float(1200.5),
					TotalCost: types.Float(10),
				}},
				TotalComputed: types.Float(360),
				FundingTotals: &types.FundingTotals{
					ProducerComputed: types.Float(100),
					NRCSComputed:     types.Float(200),
					OtherComputed:    types.Float(50),
				},
			},
		}},
	}
}

func TestGenerate(t *testing.T) {
	audit := &validation.ValidationResult{
		IsValid:      true,
		WarningCount: 1,
		Errors: []*validation.ValidationError{{
			Severity: validation.SeverityWarning, Rule: "row_total", Message: "row has no total cost",
			TableID: "abc", RowIndex: 1,
		}},
	}

	out, err := Generate(fundingReport(), audit)
	require.NoError(t, err)
	doc := string(out)

	assert.True(t, strings.HasPrefix(doc, xml.Header))
	assert.Contains(t, doc, `<costReport source="plan.txt" profile="swcd" generatedAt="2026-10-17T09:30:00Z" lines="4">`)
	assert.Contains(t, doc, `pattern="funding_sources" confidence="0.85"`)
	assert.Contains(t, doc, `<name>Cover Crop &amp; Seeding</name>`)
	assert.Contains(t, doc, `<producer>100.00</producer>`)
	assert.Contains(t, doc, `<quantity>1200.5</quantity>`)
	assert.Contains(t, doc, `<dollarLines>1 2</dollarLines>`)
	assert.Contains(t, doc, `computed="360.00"`)
	assert.Contains(t, doc, `nrcs="200.00"`)
	assert.NotContains(t, doc, `reported=`, "absent totals are omitted")
	assert.Contains(t, doc, `<finding severity="warning" rule="row_total" table="abc" row="2">row has no total cost</finding>`)

	// The second row has no funding figures, so no funding element.
	assert.Equal(t, 1, strings.Count(doc, "<funding>"))
}

func TestGenerate_RoundTripsAsXML(t *testing.T) {
	out, err := GenerateWithOptions(fundingReport(), nil, GenerateOptions{RootElement: "plan"})
	require.NoError(t, err)

	var parsed struct {
		XMLName xml.Name
		Tables  []struct {
			Pattern string `xml:"pattern,attr"`
			Rows    []struct {
				Name string `xml:"name"`
			} `xml:"row"`
		} `xml:"table"`
	}
	require.NoError(t, xml.Unmarshal(out, &parsed))

	assert.Equal(t, "plan", parsed.XMLName.Local)
	require.Len(t, parsed.Tables, 1)
	assert.Equal(t, "funding_sources", parsed.Tables[0].Pattern)
	require.Len(t, parsed.Tables[0].Rows, 2)
	assert.Equal(t, "Fence", parsed.Tables[0].Rows[1].Name)
	assert.NotContains(t, string(out), "<audit")
	assert.False(t, strings.HasPrefix(string(out), "<?xml"))
}

func TestGenerate_EmptyReport(t *testing.T) {
	out, err := Generate(&types.Report{Source: "empty.txt"}, &validation.ValidationResult{IsValid: true})
	require.NoError(t, err)
	assert.Contains(t, string(out), `<audit valid="true" errors="0" warnings="0"></audit>`)
}
