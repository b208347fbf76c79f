package costtable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/plan-cost-extractor/internal/types"
)

var codedBudgetLines = []string{
	"Personnel",
	"A1. Project coordinator $12,000",
	"A2. Field technician $8,000",
	"Subtotal: $20,000",
	"Equipment",
	"B1. GPS unit $3,500",
	"Total $23,500",
}

// scanOne scans lines and requires exactly one surviving table.
func scanOne(t *testing.T, lines []string) types.DetectedTable {
	t.Helper()
	tables := Scan(DefaultRegistry(), lines)
	require.Len(t, tables, 1, "detections: %+v", tables)
	return tables[0]
}

func TestPracticeUnit_ContinuationLines(t *testing.T) {
	lines := []string{
		"Practice Average Unit NRCS Cost Units Total Cost",
		"Critical Area",
		"Planting $248.10 32 acres $7,939.20",
		"Fence $2.50 1,000 ft",
		"$2,500.00",
		"Grassed Waterway $1,200 3 acres $3,600",
		"(includes seeding)",
	}

	tbl := scanOne(t, lines)
	rows := tbl.Normalized.Rows
	require.Len(t, rows, 3)

	assert.Equal(t, "Critical Area Planting", rows[0].Name)
	assert.Equal(t, []int{1, 2}, rows[0].SourceLines)

	assert.Equal(t, "Fence", rows[1].Name)
	assert.Equal(t, 1000.0, *rows[1].Quantity)
	assert.Equal(t, "ft", *rows[1].Unit)
	assert.InDelta(t, 2500, *rows[1].TotalCost, 1e-9)
	assert.Equal(t, []int{3, 4}, rows[1].SourceLines)

	assert.Equal(t, "Grassed Waterway (includes seeding)", rows[2].Name)
	assert.Equal(t, []int{2, 3, 4, 5}, tbl.DollarLineIndices)
	assert.Equal(t, 6, tbl.SpanEnd)
}

func TestPracticeSizeCost_StopsAtSectionBoundary(t *testing.T) {
	lines := []string{
		"Practice Size/Amount Cost",
		"Grassed Waterway 1,200 ft $4,800",
		"Cover Crop 40 acres $2,000",
		"Goal 2: Reduce erosion",
		"Terrace 500 ft $3,000",
	}

	tbl := scanOne(t, lines)
	assert.Equal(t, "practice_size_cost", tbl.Normalized.PatternID)
	assert.Equal(t, 2, tbl.SpanEnd)
	require.Len(t, tbl.Normalized.Rows, 2)

	row := tbl.Normalized.Rows[0]
	assert.Equal(t, "Grassed Waterway", row.Name)
	assert.Equal(t, 1200.0, *row.Quantity)
	assert.Equal(t, "ft", *row.Unit)
	assert.Equal(t, "1,200 ft", *row.RawSize)
	assert.InDelta(t, 4.0, *row.UnitCost, 1e-9, "unit cost back-computed from total / quantity")

	assert.Equal(t, "acre", *tbl.Normalized.Rows[1].Unit)
}

func TestPracticeSizeCost_RowNamedTotalIsNotReportedTotal(t *testing.T) {
	lines := []string{
		"Practice Size/Amount Cost",
		"Grassed Waterway 1,200 ft $4,800",
		"Total Maximum Daily Load monitoring 12 ea $3,000",
		"Terrace 500 ft $2,500",
		"Total $10,300",
	}

	tbl := scanOne(t, lines)
	n := tbl.Normalized
	assert.Equal(t, "practice_size_cost", n.PatternID)
	require.Len(t, n.Rows, 3)
	assert.Equal(t, "Total Maximum Daily Load monitoring", n.Rows[1].Name)
	assert.Equal(t, "each", *n.Rows[1].Unit)

	require.NotNil(t, n.TotalReported)
	assert.InDelta(t, 10300, *n.TotalReported, 1e-9)
	assert.InDelta(t, 10300, *n.TotalComputed, 1e-9)
	assert.Equal(t, 4, tbl.SpanEnd)
}

func TestBMPQuantityUnitCost_SynthesizesTotal(t *testing.T) {
	lines := []string{
		"BMP Quantity Unit Unit Cost Total",
		"Streambank Protection 250 ft $40.00 $10,000",
		"Stream Crossing 2 each $3,500",
	}

	tbl := scanOne(t, lines)
	assert.Equal(t, "bmp_quantity_unit_cost", tbl.Normalized.PatternID)
	rows := tbl.Normalized.Rows
	require.Len(t, rows, 2)

	assert.InDelta(t, 10000, *rows[0].TotalCost, 1e-9)
	assert.NotNil(t, rows[0].RawCost)

	assert.Equal(t, "each", *rows[1].Unit)
	assert.InDelta(t, 3500, *rows[1].UnitCost, 1e-9)
	assert.InDelta(t, 7000, *rows[1].TotalCost, 1e-9)
	assert.Nil(t, rows[1].RawCost)
	assert.InDelta(t, 17000, *tbl.Normalized.TotalComputed, 1e-9)
}

func TestNormalizer_NeverOverwritesParsedTotal(t *testing.T) {
	lines := []string{
		"BMP Quantity Unit Unit Cost Total",
		"Streambank Protection 250 ft $40.00 $9,500",
		"Stream Crossing 2 each $3,500 $7,000",
	}

	tbl := scanOne(t, lines)
	assert.InDelta(t, 9500, *tbl.Normalized.Rows[0].TotalCost, 1e-9)
	assert.InDelta(t, 40, *tbl.Normalized.Rows[0].UnitCost, 1e-9)
}

func TestFundingSources_ColumnLayout(t *testing.T) {
	lines := []string{
		"Practice Producer NRCS Other Total",
		"Waste Storage $1,000 $3,000 $500 $4,500",
		"Fencing $200 $600 - $800",
		"Total $1,200 $3,600 $500",
	}

	tbl := scanOne(t, lines)
	n := tbl.Normalized
	assert.Equal(t, "funding_sources", n.PatternID)
	require.Len(t, n.Rows, 2)

	fencing := n.Rows[1]
	assert.Nil(t, fencing.OtherContribution)
	assert.Nil(t, fencing.OtherShare)
	assert.InDelta(t, 800, *fencing.TotalCost, 1e-9)
	assert.InDelta(t, 0.25, *fencing.ProducerShare, 1e-9)
	assert.InDelta(t, 0.75, *fencing.NRCSShare, 1e-9)

	assert.InDelta(t, 5300, *n.TotalReported, 1e-9, "three-column total line is summed")
	assert.InDelta(t, 5300, *n.TotalComputed, 1e-9)
	assert.InDelta(t, 0, *n.Discrepancy, 1e-9)
	assert.InDelta(t, 1200, *n.ProducerComputed, 1e-9)
	assert.InDelta(t, 3600, *n.NRCSComputed, 1e-9)
	assert.InDelta(t, 500, *n.OtherComputed, 1e-9)
	assert.Equal(t, []int{1, 2, 3}, tbl.DollarLineIndices)
}

func TestLandownerMatch(t *testing.T) {
	lines := []string{
		"Practice Cost Landowner Match",
		"Cover Crop 40 ac $2,000 $500",
		"Fencing $3,000 $750",
	}

	tbl := scanOne(t, lines)
	assert.Equal(t, "landowner_match", tbl.Normalized.PatternID)
	rows := tbl.Normalized.Rows
	require.Len(t, rows, 2)

	assert.Equal(t, "Cover Crop", rows[0].Name)
	assert.Equal(t, "acre", *rows[0].Unit)
	assert.InDelta(t, 2000, *rows[0].TotalCost, 1e-9)
	assert.InDelta(t, 500, *rows[0].LandownerMatch, 1e-9)
	assert.InDelta(t, 50, *rows[0].UnitCost, 1e-9)

	assert.InDelta(t, 750, *rows[1].LandownerMatch, 1e-9)
	assert.InDelta(t, 5000, *tbl.Normalized.TotalComputed, 1e-9)
}

func TestCostRangeMinMax_RetainsBothEnds(t *testing.T) {
	lines := []string{
		"Practice Low Estimate High Estimate",
		"Fence $1,000 $2,000",
		"Pond $5,000 - $9,000",
		"Total $6,000 $11,000",
	}

	tbl := scanOne(t, lines)
	n := tbl.Normalized
	assert.Equal(t, "cost_range_minmax", n.PatternID)
	require.Len(t, n.Rows, 2)

	assert.InDelta(t, 1000, *n.Rows[0].CostLow, 1e-9)
	assert.InDelta(t, 2000, *n.Rows[0].CostHigh, 1e-9)
	assert.InDelta(t, 1500, *n.Rows[0].TotalCost, 1e-9)
	assert.InDelta(t, 7000, *n.Rows[1].TotalCost, 1e-9)

	require.NotNil(t, n.RangeTotals)
	assert.InDelta(t, 6000, *n.TotalLow, 1e-9)
	assert.InDelta(t, 11000, *n.TotalHigh, 1e-9)
	assert.InDelta(t, 8500, *n.TotalReported, 1e-9)
	assert.InDelta(t, 0, *n.Discrepancy, 1e-9)
}

func TestPerUnitRate(t *testing.T) {
	lines := []string{
		"Cover Crop $45/ac 120 ac $5,400",
		"Prescribed Grazing $12 per acre x 300 acres = $3,600",
	}

	tbl := scanOne(t, lines)
	assert.Equal(t, "per_unit_rate", tbl.Normalized.PatternID)
	rows := tbl.Normalized.Rows
	require.Len(t, rows, 2)

	assert.Equal(t, "Cover Crop", rows[0].Name)
	assert.InDelta(t, 45, *rows[0].UnitCost, 1e-9)
	assert.Equal(t, 120.0, *rows[0].Quantity)
	assert.Equal(t, "acre", *rows[0].Unit)

	assert.Equal(t, "Prescribed Grazing", rows[1].Name)
	assert.Equal(t, 300.0, *rows[1].Quantity)
	assert.InDelta(t, 3600, *rows[1].TotalCost, 1e-9)
}

func TestBMPCostList(t *testing.T) {
	lines := []string{
		"Practice/BMP Cost",
		"Grade Stabilization Structure ......... $15,000",
		"Fencing 2,000 ft $6,000",
		"Critical Area Planting $2,500 - $3,500",
		"Total $24,000",
	}

	tbl := scanOne(t, lines)
	n := tbl.Normalized
	assert.Equal(t, "bmp_cost_list", n.PatternID)
	require.Len(t, n.Rows, 3)

	assert.Equal(t, "Grade Stabilization Structure", n.Rows[0].Name)
	assert.Equal(t, "Fencing", n.Rows[1].Name)
	assert.Equal(t, 2000.0, *n.Rows[1].Quantity)
	assert.InDelta(t, 3, *n.Rows[1].UnitCost, 1e-9)
	assert.InDelta(t, 3000, *n.Rows[2].TotalCost, 1e-9, "range resolved to midpoint")

	assert.InDelta(t, 24000, *n.TotalReported, 1e-9)
	assert.InDelta(t, 0, *n.Discrepancy, 1e-9)
}

func TestCodedBudget(t *testing.T) {
	tbl := scanOne(t, codedBudgetLines)
	n := tbl.Normalized
	assert.Equal(t, "coded_budget", n.PatternID)
	assert.Equal(t, 1, tbl.SpanStart)
	assert.Equal(t, 6, tbl.SpanEnd)
	assert.Equal(t, "Personnel", tbl.Title)

	require.Len(t, n.Rows, 3)
	assert.Equal(t, "A1", *n.Rows[0].Code)
	assert.Equal(t, "Project coordinator", n.Rows[0].Name)
	assert.Equal(t, "Personnel", *n.Rows[0].Section)
	assert.Equal(t, "B1", *n.Rows[2].Code)
	assert.Equal(t, "Equipment", *n.Rows[2].Section)

	require.Len(t, n.Subtotals, 1)
	assert.Equal(t, 3, n.Subtotals[0].LineIndex)
	assert.InDelta(t, 20000, n.Subtotals[0].Amount, 1e-9)

	assert.InDelta(t, 23500, *n.TotalReported, 1e-9)
	assert.InDelta(t, 23500, *n.TotalComputed, 1e-9, "subtotals are not rows")
	assert.Equal(t, []int{1, 2, 3, 5, 6}, tbl.DollarLineIndices)
}

func TestCodedBudget_TitleFromCaption(t *testing.T) {
	res := codedBudget().Parse(codedBudgetLines, 1)
	require.NotNil(t, res)
	assert.Equal(t, "Personnel", res.Title)

	res = codedBudget().Parse(codedBudgetLines[1:], 0)
	require.NotNil(t, res)
	assert.Empty(t, res.Title)
}

func TestCodedBudget_SectionFallsBackToCodeLetter(t *testing.T) {
	lines := []string{
		"A1. Survey $1,000",
		"A2. Design $2,000",
		"B1. Construction $9,000",
	}

	tbl := scanOne(t, lines)
	assert.Equal(t, "A", *tbl.Normalized.Rows[0].Section)
	assert.Equal(t, "B", *tbl.Normalized.Rows[2].Section)
}

func TestAdaptiveCluster_UndocumentedLayout(t *testing.T) {
	lines := []string{
		"Installation of the following is planned:",
		"Well decommissioning 3 each at $1,200 for $3,600",
		"Heavy use area 2 each at $4,000 for $8,000",
		"Watering facility 4 each at $900 for $3,600",
	}

	tbl := scanOne(t, lines)
	n := tbl.Normalized
	assert.Equal(t, "adaptive_dollar_cluster", n.PatternID)
	assert.Equal(t, 0.45, n.PatternConfidence)
	require.Len(t, n.Rows, 3)

	row := n.Rows[0]
	assert.Equal(t, "Well decommissioning", row.Name)
	assert.Equal(t, 3.0, *row.Quantity)
	assert.Equal(t, "each", *row.Unit)
	assert.InDelta(t, 1200, *row.UnitCost, 1e-9)
	assert.InDelta(t, 3600, *row.TotalCost, 1e-9)
	assert.InDelta(t, 15200, *n.TotalComputed, 1e-9)
}

func TestDefaultRegistry_DeclaredMinimumsHold(t *testing.T) {
	for _, p := range DefaultRegistry().Patterns() {
		assert.GreaterOrEqual(t, p.Confidence, 0.45, p.ID)
		assert.LessOrEqual(t, p.Confidence, 0.95, p.ID)
		assert.GreaterOrEqual(t, p.MinRows, 1, p.ID)
		assert.NotNil(t, p.HeaderTest, p.ID)
		assert.NotNil(t, p.Parse, p.ID)
	}
}
