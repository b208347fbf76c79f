// =============================================================================
// Plan Cost Extractor - Row Normalizer
// =============================================================================
//
// Maps heterogeneous raw fields into the canonical NormalizedRow shape.
//
// RULES:
//   - Quantity and unit come from an explicit units column or from a combined
//     "Size/Amount" field split by money.SplitSize.
//   - Units are canonicalized through the shared alias table; the text as
//     written is kept in UnitRaw.
//   - TotalCost = UnitCost x Quantity when TotalCost is absent.
//   - UnitCost = TotalCost / Quantity when UnitCost is absent.
//   - A parsed figure is never overwritten by a computed one.
//
// =============================================================================

package costtable

import (
	"strings"

	"github.com/ginjaninja78/plan-cost-extractor/internal/money"
	"github.com/ginjaninja78/plan-cost-extractor/internal/types"
)

// newRow starts a row with a cleaned name.
func newRow(name string) types.NormalizedRow {
	return types.NormalizedRow{Name: cleanName(name)}
}

// cleanName strips leader dots, bullets and trailing separators.
func cleanName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimLeft(name, "•*-–· ")
	name = strings.TrimRight(name, ".:=-–— ")
	return strings.Join(strings.Fields(name), " ")
}

// setSize fills Quantity/Unit/UnitRaw/RawSize from a combined size field.
func setSize(r *types.NormalizedRow, field string) {
	field = strings.TrimSpace(field)
	if field == "" {
		return
	}
	r.RawSize = types.String(field)
	qty, unitRaw, _ := money.SplitSize(field)
	if qty != nil {
		r.Quantity = qty
	}
	setUnit(r, unitRaw)
}

// setQuantity fills Quantity from an explicit quantity column.
func setQuantity(r *types.NormalizedRow, field string) {
	if v, ok := money.ParseQuantity(field); ok {
		r.Quantity = types.Float(v)
	}
}

// setUnit canonicalizes an explicit unit token.
func setUnit(r *types.NormalizedRow, raw string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return
	}
	r.UnitRaw = types.String(raw)
	if code, _ := money.NormalizeUnit(raw); code != "" {
		r.Unit = types.String(code)
	}
}

// setUnitCost parses an amount or range into UnitCost.
func setUnitCost(r *types.NormalizedRow, token string) bool {
	v, ok := money.ParseMoneyOrRange(token)
	if ok {
		r.UnitCost = types.Float(v)
	}
	return ok
}

// setTotalCost parses an amount or range into TotalCost and records the raw
// token.
func setTotalCost(r *types.NormalizedRow, token string) bool {
	v, ok := money.ParseMoneyOrRange(token)
	if ok {
		r.TotalCost = types.Float(v)
		r.RawCost = types.String(strings.TrimSpace(token))
	}
	return ok
}

// completeRow applies the one-directional derivation rules.
func completeRow(r *types.NormalizedRow) {
	if r.TotalCost == nil && r.UnitCost != nil && r.Quantity != nil {
		r.TotalCost = types.Float(money.Mul(*r.UnitCost, *r.Quantity))
	}
	if r.UnitCost == nil && r.TotalCost != nil && r.Quantity != nil && *r.Quantity > 0 {
		if v, ok := money.Div(*r.TotalCost, *r.Quantity); ok {
			r.UnitCost = types.Float(v)
		}
	}
}

// hasMoney reports whether the row carries any monetary figure.
func hasMoney(r types.NormalizedRow) bool {
	return r.TotalCost != nil || r.UnitCost != nil || r.CostLow != nil ||
		r.ProducerContribution != nil || r.NRCSContribution != nil || r.OtherContribution != nil
}
