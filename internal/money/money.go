// =============================================================================
// Plan Cost Extractor - Money and Unit Utilities
// =============================================================================
//
// Pure helpers shared by every dialect parser:
//   - Currency tokens ("$1,234.56", "(1,000)") to numbers
//   - "$X - $Y" ranges and their midpoint
//   - Quantities with thousands separators
//   - Unit tokens to a canonical unit code through an alias table
//   - Combined "Size/Amount" fields ("32 acres") split into quantity + unit
//
// Arithmetic on parsed figures goes through shopspring/decimal so that
// cent-level amounts add up exactly before being handed back as float64.
//
// =============================================================================

package money

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// REGULAR EXPRESSION FRAGMENTS
// =============================================================================

// Number matches an unsigned number with optional thousands separators and
// decimals, e.g. "1,200" or "248.10".
const Number = `\d[\d,]*(?:\.\d+)?`

// Amount matches a dollar-prefixed amount, e.g. "$7,939.20" or "$ 12".
const Amount = `\$\s?` + Number

// RangeSep matches the separators used between the two ends of a range.
const RangeSep = `\s*(?:-|–|—|to)\s*`

// AmountRange matches "$X - $Y" (the second "$" is optional).
const AmountRange = Amount + RangeSep + `\$?\s?` + Number

var (
	amountRe      = regexp.MustCompile(Amount)
	amountRangeRe = regexp.MustCompile(AmountRange)
	numberRe      = regexp.MustCompile(Number)
	cleanNumberRe = regexp.MustCompile(`^(?:\d+(?:\.\d+)?|\.\d+)$`)
	rangeRe       = regexp.MustCompile(`^\$?\s?(` + Number + `)` + RangeSep + `\$?\s?(` + Number + `)$`)
	sizeRe        = regexp.MustCompile(`^\s*(\d[\d,]*(?:\.\d+)?|\.\d+)\s*([A-Za-z][A-Za-z .'/-]*?)?\s*$`)
	spaceRe       = regexp.MustCompile(`\s+`)
)

// =============================================================================
// CURRENCY
// =============================================================================

// ParseMoney parses a currency token into a number.
//
// Accepted forms: "$1,234.56", "1234", "$ 12.5", "-$40", "(1,000)".
// Parentheses denote a negative amount. Anything that is not a plain amount
// returns ok=false.
func ParseMoney(token string) (float64, bool) {
	d, ok := parseDecimal(token)
	if !ok {
		return 0, false
	}
	return d.InexactFloat64(), true
}

// parseDecimal is the shared parser behind ParseMoney and ParseQuantity.
func parseDecimal(token string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(token)
	if s == "" {
		return decimal.Zero, false
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	if strings.HasPrefix(s, "-") {
		negative = !negative
		s = strings.TrimSpace(s[1:])
	}

	s = strings.TrimPrefix(s, "$")
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "-") {
		negative = !negative
		s = strings.TrimSpace(s[1:])
	}
	s = strings.ReplaceAll(s, ",", "")

	if !cleanNumberRe.MatchString(s) {
		return decimal.Zero, false
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	if negative {
		d = d.Neg()
	}
	return d, true
}

// ParseRange parses "$X - $Y" (also "X to Y", en/em dash) into its two ends.
// A single amount is not a range.
func ParseRange(token string) (low, high float64, ok bool) {
	m := rangeRe.FindStringSubmatch(strings.TrimSpace(token))
	if m == nil {
		return 0, 0, false
	}
	lo, okLo := ParseMoney(m[1])
	hi, okHi := ParseMoney(m[2])
	if !okLo || !okHi {
		return 0, 0, false
	}
	if lo > hi {
		lo, hi = hi, lo
	}
	return lo, hi, true
}

// ParseMoneyOrRange parses either a single amount or a range. Ranges are
// resolved to their midpoint.
func ParseMoneyOrRange(token string) (float64, bool) {
	if lo, hi, ok := ParseRange(token); ok {
		return Midpoint(lo, hi), true
	}
	return ParseMoney(token)
}

// Midpoint returns the arithmetic midpoint of low and high.
func Midpoint(low, high float64) float64 {
	return decimal.NewFromFloat(low).
		Add(decimal.NewFromFloat(high)).
		Div(decimal.NewFromInt(2)).
		InexactFloat64()
}

// FormatPlain renders v with two decimals and no currency symbol or
// separators, e.g. "7939.20".
func FormatPlain(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// ContainsAmount reports whether the line carries at least one "$" amount.
func ContainsAmount(line string) bool {
	return amountRe.MatchString(line)
}

// FindAmounts returns every "$" amount token in the line, in order.
func FindAmounts(line string) []string {
	return amountRe.FindAllString(line, -1)
}

// FindRanges returns every "$X - $Y" token in the line, in order.
func FindRanges(line string) []string {
	return amountRangeRe.FindAllString(line, -1)
}

// CountNumbers returns the number of numeric tokens in the line, "$" amounts
// included.
func CountNumbers(line string) int {
	return len(numberRe.FindAllString(line, -1))
}

// =============================================================================
// QUANTITIES
// =============================================================================

// ParseQuantity parses a plain numeric quantity such as "1,200" or "32.5".
func ParseQuantity(token string) (float64, bool) {
	s := strings.TrimSpace(token)
	if strings.HasPrefix(s, "$") {
		return 0, false
	}
	return ParseMoney(s)
}

// SplitSize splits a combined size field like "32 acres" or "1,200 ft" into
// a quantity, the raw unit token and its canonical unit code.
//
// RETURNS:
//   - qty: nil when the field does not start with a number.
//   - unitRaw: the unit text as written ("" when absent).
//   - unit: the canonical code for unitRaw ("" when absent).
func SplitSize(field string) (qty *float64, unitRaw, unit string) {
	m := sizeRe.FindStringSubmatch(field)
	if m == nil {
		return nil, "", ""
	}
	if v, ok := ParseQuantity(m[1]); ok {
		qty = &v
	}
	unitRaw = strings.TrimSpace(m[2])
	if unitRaw != "" {
		unit, _ = NormalizeUnit(unitRaw)
	}
	return qty, unitRaw, unit
}

// =============================================================================
// UNITS
// =============================================================================

// unitAliases maps lower-cased unit spellings to canonical unit codes.
var unitAliases = map[string]string{
	"ac": "acre", "acre": "acre", "acres": "acre",

	"ft": "ft", "feet": "ft", "foot": "ft", "lf": "ft", "lin ft": "ft",
	"linear ft": "ft", "linear feet": "ft", "linear foot": "ft", "l.f": "ft",

	"ea": "each", "each": "each", "no": "each", "number": "each",
	"unit": "each", "units": "each", "item": "each", "items": "each",

	"sq ft": "sqft", "sqft": "sqft", "sf": "sqft", "square feet": "sqft",
	"square foot": "sqft", "ft2": "sqft",

	"sq yd": "sqyd", "sy": "sqyd", "square yards": "sqyd", "square yard": "sqyd",

	"cy": "cuyd", "cu yd": "cuyd", "cuyd": "cuyd", "cubic yards": "cuyd",
	"cubic yard": "cuyd", "yd3": "cuyd",

	"yd": "yd", "yds": "yd", "yard": "yd", "yards": "yd",

	"mi": "mile", "mile": "mile", "miles": "mile",

	"gal": "gal", "gallon": "gal", "gallons": "gal",

	"ton": "ton", "tons": "ton", "tn": "ton",

	"lb": "lb", "lbs": "lb", "pound": "lb", "pounds": "lb",

	"hr": "hour", "hrs": "hour", "hour": "hour", "hours": "hour",

	"yr": "year", "yrs": "year", "year": "year", "years": "year",

	"day": "day", "days": "day",

	"structure": "structure", "structures": "structure", "struct": "structure",

	"ls": "lump_sum", "lump sum": "lump_sum", "lump": "lump_sum",

	"head": "head", "hd": "head",

	"plan": "plan", "plans": "plan",
}

// NormalizeUnit canonicalizes a unit token through the shared alias table.
//
// Unknown units are returned lower-cased and trimmed with ok=false so callers
// can still keep what was written.
func NormalizeUnit(raw string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.Trim(key, ".,;:")
	key = spaceRe.ReplaceAllString(key, " ")
	key = strings.TrimPrefix(key, "per ")
	if key == "" {
		return "", false
	}

	if code, ok := unitAliases[key]; ok {
		return code, true
	}
	if strings.HasSuffix(key, "s") {
		if code, ok := unitAliases[strings.TrimSuffix(key, "s")]; ok {
			return code, true
		}
	}
	return key, false
}

// =============================================================================
// DECIMAL ARITHMETIC
// =============================================================================

// Sum adds the values exactly and returns the result as float64.
func Sum(values []float64) float64 {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(decimal.NewFromFloat(v))
	}
	return total.InexactFloat64()
}

// Sub returns a - b computed in decimal.
func Sub(a, b float64) float64 {
	return decimal.NewFromFloat(a).Sub(decimal.NewFromFloat(b)).InexactFloat64()
}

// Mul returns a * b computed in decimal.
func Mul(a, b float64) float64 {
	return decimal.NewFromFloat(a).Mul(decimal.NewFromFloat(b)).InexactFloat64()
}

// Div returns a / b computed in decimal; ok is false when b is zero.
func Div(a, b float64) (float64, bool) {
	if b == 0 {
		return 0, false
	}
	return decimal.NewFromFloat(a).Div(decimal.NewFromFloat(b)).InexactFloat64(), true
}
