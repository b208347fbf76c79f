package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMoney(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"$1,234.56", 1234.56, true},
		{"1234", 1234, true},
		{"$ 12.5", 12.5, true},
		{"(1,000)", -1000, true},
		{"-$40", -40, true},
		{"$.50", 0.5, true},
		{"", 0, false},
		{"$", 0, false},
		{"acres", 0, false},
		{"$12abc", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseMoney(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}

func TestParseRange(t *testing.T) {
	lo, hi, ok := ParseRange("$1,000 - $3,000")
	require.True(t, ok)
	assert.Equal(t, 1000.0, lo)
	assert.Equal(t, 3000.0, hi)
	assert.Equal(t, 2000.0, Midpoint(lo, hi))

	lo, hi, ok = ParseRange("$500 to 250")
	require.True(t, ok)
	assert.Equal(t, 250.0, lo, "ends are ordered")
	assert.Equal(t, 500.0, hi)

	_, _, ok = ParseRange("$1,000")
	assert.False(t, ok)
}

func TestParseMoneyOrRange(t *testing.T) {
	v, ok := ParseMoneyOrRange("$10 – $20")
	require.True(t, ok)
	assert.Equal(t, 15.0, v)

	v, ok = ParseMoneyOrRange("$7,939.20")
	require.True(t, ok)
	assert.Equal(t, 7939.20, v)
}

func TestFindAmounts(t *testing.T) {
	line := "Critical Area Planting $248.10 32 acres $7,939.20"
	assert.Equal(t, []string{"$248.10", "$7,939.20"}, FindAmounts(line))
	assert.True(t, ContainsAmount(line))
	assert.Equal(t, 3, CountNumbers(line))
	assert.False(t, ContainsAmount("Cover crop on 40 acres"))
	assert.Equal(t, []string{"$1,000 - $2,000"}, FindRanges("Fence $1,000 - $2,000 total"))
}

func TestNormalizeUnit(t *testing.T) {
	tests := map[string]string{
		"ac":      "acre",
		"Acres":   "acre",
		"acre":    "acre",
		"ft":      "ft",
		"feet":    "ft",
		"LF":      "ft",
		"ea":      "each",
		"each":    "each",
		"no.":     "each",
		"sq ft":   "sqft",
		"cu  yd":  "cuyd",
		"per ac":  "acre",
		"Miles":   "mile",
		"gallons": "gal",
	}
	for raw, want := range tests {
		got, ok := NormalizeUnit(raw)
		assert.True(t, ok, raw)
		assert.Equal(t, want, got, raw)
	}

	got, ok := NormalizeUnit("Widgets")
	assert.False(t, ok)
	assert.Equal(t, "widgets", got)

	for _, raw := range []string{"a", "as", "A."} {
		_, ok := NormalizeUnit(raw)
		assert.False(t, ok, "single letters are not units: %q", raw)
	}
}

func TestSplitSize(t *testing.T) {
	qty, raw, unit := SplitSize("32 acres")
	require.NotNil(t, qty)
	assert.Equal(t, 32.0, *qty)
	assert.Equal(t, "acres", raw)
	assert.Equal(t, "acre", unit)

	qty, raw, unit = SplitSize("1,200 ft")
	require.NotNil(t, qty)
	assert.Equal(t, 1200.0, *qty)
	assert.Equal(t, "ft", raw)
	assert.Equal(t, "ft", unit)

	qty, raw, unit = SplitSize("5")
	require.NotNil(t, qty)
	assert.Equal(t, 5.0, *qty)
	assert.Empty(t, raw)
	assert.Empty(t, unit)

	qty, _, _ = SplitSize("several acres")
	assert.Nil(t, qty)
}

func TestDecimalArithmetic(t *testing.T) {
	assert.Equal(t, 0.3, Sum([]float64{0.1, 0.2}))
	assert.Equal(t, 7939.2, Mul(248.10, 32))
	assert.Equal(t, 0.0, Sub(7939.20, 7939.20))

	v, ok := Div(7939.20, 32)
	require.True(t, ok)
	assert.InDelta(t, 248.10, v, 1e-9)

	_, ok = Div(1, 0)
	assert.False(t, ok)
}

func TestFormatPlain(t *testing.T) {
	assert.Equal(t, "7939.20", FormatPlain(7939.2))
	assert.Equal(t, "1000.00", FormatPlain(1000))
	assert.Equal(t, "-0.50", FormatPlain(-0.5))
}
