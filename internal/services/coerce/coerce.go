// Package coerce converts loosely formatted CSV cells into typed values.
package coerce

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/width"
)

var (
	compactDate = regexp.MustCompile(`^(\d{4})(\d{2})(\d{2})$`)
	slashYMD    = regexp.MustCompile(`^(\d{4})/(\d{1,2})/(\d{1,2})$`)
	slashMDY    = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	dashYMD     = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
	dotYMD      = regexp.MustCompile(`^(\d{4})\.(\d{1,2})\.(\d{1,2})$`)
)

// minus signs width.Narrow leaves alone
var minusSigns = strings.NewReplacer("\u2212", "-", "\u2012", "-", "\u2013", "-")

// currency words that are not unicode currency symbols
var currencyWords = []string{"NT", "JPY", "TWD", "USD", "円", "元"}

// ParseDate tries YYYYMMDD, YYYY/M/D, M/D/YYYY, YYYY-MM-DD and YYYY.M.D in
// that order. A slash date whose first component exceeds 12 is read day-first.
// A trailing time of day is ignored. ok is false when nothing matches; callers
// decide whether to drop the row or fall back.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(width.Narrow.String(s))
	if i := strings.IndexAny(s, " T"); i > 0 {
		s = s[:i]
	}
	if s == "" {
		return time.Time{}, false
	}

	if m := compactDate.FindStringSubmatch(s); m != nil {
		return build(m[1], m[2], m[3])
	}
	if m := slashYMD.FindStringSubmatch(s); m != nil {
		return build(m[1], m[2], m[3])
	}
	if m := slashMDY.FindStringSubmatch(s); m != nil {
		first, _ := strconv.Atoi(m[1])
		if first > 12 {
			return build(m[3], m[2], m[1])
		}
		return build(m[3], m[1], m[2])
	}
	if m := dashYMD.FindStringSubmatch(s); m != nil {
		return build(m[1], m[2], m[3])
	}
	if m := dotYMD.FindStringSubmatch(s); m != nil {
		return build(m[1], m[2], m[3])
	}
	return time.Time{}, false
}

func build(y, m, d string) (time.Time, bool) {
	year, _ := strconv.Atoi(y)
	month, _ := strconv.Atoi(m)
	day, _ := strconv.Atoi(d)
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// reject rollovers such as 2024-02-31
	if t.Month() != time.Month(month) || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

// ParseAmount strips currency symbols, thousand separators (ASCII and
// full-width) and whitespace. Empty or non-numeric input yields zero, not an
// error; callers that need to tell zero from absent check the cell first.
func ParseAmount(s string) decimal.Decimal {
	s = minusSigns.Replace(width.Narrow.String(s))
	for _, w := range currencyWords {
		s = strings.ReplaceAll(s, w, "")
	}

	var b strings.Builder
	for _, r := range s {
		switch {
		case r == ',', unicode.IsSpace(r), unicode.Is(unicode.Sc, r):
			continue
		}
		b.WriteRune(r)
	}

	clean := strings.TrimPrefix(b.String(), "+")
	if clean == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// TransactionCode derives the audit reference of a bank row:
// bank code + YYMMDD + last four digits of the absolute integer amount.
func TransactionCode(bankCode string, date time.Time, amount decimal.Decimal) string {
	digits := strconv.FormatInt(amount.Abs().IntPart(), 10)
	if len(digits) < 4 {
		digits = strings.Repeat("0", 4-len(digits)) + digits
	}
	return bankCode + date.Format("060102") + digits[len(digits)-4:]
}
