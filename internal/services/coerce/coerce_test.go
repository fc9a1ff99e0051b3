package coerce

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseDate_Formats(t *testing.T) {
	cases := map[string]time.Time{
		"20240601":            date(2024, 6, 1),
		"2024/6/1":            date(2024, 6, 1),
		"2024/06/01":          date(2024, 6, 1),
		"6/1/2024":            date(2024, 6, 1),
		"25/6/2024":           date(2024, 6, 25),
		"2024-06-01":          date(2024, 6, 1),
		"2024-6-1":            date(2024, 6, 1),
		"2024.6.1":            date(2024, 6, 1),
		" 2024/06/01 10:22 ":  date(2024, 6, 1),
		"2024-06-01T09:00:00": date(2024, 6, 1),
		"２０２４/０６/０１":          date(2024, 6, 1),
	}
	for in, want := range cases {
		got, ok := ParseDate(in)
		require.True(t, ok, in)
		assert.True(t, want.Equal(got), "%q: got %s", in, got)
	}
}

func TestParseDate_AmbiguousSlashIsMonthFirst(t *testing.T) {
	got, ok := ParseDate("03/04/2024")
	require.True(t, ok)
	assert.Equal(t, time.March, got.Month())
	assert.Equal(t, 4, got.Day())
}

func TestParseDate_Invalid(t *testing.T) {
	for _, in := range []string{"", "not-a-date", "2024-13-01", "2024-02-31", "13/13/2024", "2024年6月1日"} {
		_, ok := ParseDate(in)
		assert.False(t, ok, in)
	}
}

func TestParseAmount(t *testing.T) {
	cases := map[string]string{
		"¥50,000":    "50000",
		"-¥3,000":    "-3000",
		"¥-3,000":    "-3000",
		"￥１２，３４５":    "12345",
		"NT$1,234.5": "1234.5",
		" 1 000 ":    "1000",
		"+250":       "250",
		"$12.34":     "12.34",
		"100円":       "100",
		"":           "0",
		"abc":        "0",

		"\u22123,000":  "-3000",
		"¥\u22121,500": "-1500",
	}
	for in, want := range cases {
		got := ParseAmount(in)
		assert.True(t, decimal.RequireFromString(want).Equal(got), "%q: got %s", in, got)
	}
}

func TestParseAmount_IdempotentOnOwnOutput(t *testing.T) {
	for _, in := range []string{"¥50,000", "-¥3,000", "1,234.56", "", "junk", "０.５"} {
		first := ParseAmount(in)
		second := ParseAmount(first.String())
		assert.True(t, first.Equal(second), in)
	}
}

func TestTransactionCode(t *testing.T) {
	assert.Equal(t, "RB2406010000", TransactionCode("RB", date(2024, 6, 1), decimal.NewFromInt(50000)))
	assert.Equal(t, "RB2406023000", TransactionCode("RB", date(2024, 6, 2), decimal.NewFromInt(-3000)))
	assert.Equal(t, "RB2406020050", TransactionCode("RB", date(2024, 6, 2), decimal.NewFromInt(50)))
	assert.Equal(t, "X2412311234", TransactionCode("X", date(2024, 12, 31), decimal.RequireFromString("1234.99")))
}
