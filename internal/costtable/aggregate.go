package costtable

import (
	"github.com/ginjaninja78/plan-cost-extractor/internal/money"
	"github.com/ginjaninja78/plan-cost-extractor/internal/types"
)

// aggregate fills TotalComputed and Discrepancy from the rows and the
// already-set TotalReported.
func aggregate(n *types.Normalized) {
	n.TotalComputed = sumOptional(n.Rows, func(r types.NormalizedRow) *float64 { return r.TotalCost })
	n.Discrepancy = nil
	if n.TotalReported != nil && n.TotalComputed != nil {
		n.Discrepancy = types.Float(money.Sub(*n.TotalReported, *n.TotalComputed))
	}
}

// sumOptional sums the non-nil values picked from rows. It returns nil when
// no row has a value.
func sumOptional(rows []types.NormalizedRow, pick func(types.NormalizedRow) *float64) *float64 {
	var vals []float64
	for _, r := range rows {
		if v := pick(r); v != nil {
			vals = append(vals, *v)
		}
	}
	if len(vals) == 0 {
		return nil
	}
	return types.Float(money.Sum(vals))
}

// fundingTotals sums each contributor column independently.
func fundingTotals(rows []types.NormalizedRow) *types.FundingTotals {
	return &types.FundingTotals{
		ProducerComputed: sumOptional(rows, func(r types.NormalizedRow) *float64 { return r.ProducerContribution }),
		NRCSComputed:     sumOptional(rows, func(r types.NormalizedRow) *float64 { return r.NRCSContribution }),
		OtherComputed:    sumOptional(rows, func(r types.NormalizedRow) *float64 { return r.OtherContribution }),
	}
}

// rangeTotals sums the low and high ends of every row.
func rangeTotals(rows []types.NormalizedRow) *types.RangeTotals {
	return &types.RangeTotals{
		TotalLow:  sumOptional(rows, func(r types.NormalizedRow) *float64 { return r.CostLow }),
		TotalHigh: sumOptional(rows, func(r types.NormalizedRow) *float64 { return r.CostHigh }),
	}
}
