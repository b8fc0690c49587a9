// Package locale parses the Dutch textual values found in the legacy export.
// Every parser returns ok=false instead of an error: an unparseable value is
// treated as absent.
package locale

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CenturyPivot is the boundary for two digit years: YY <= 30 is 20YY, anything
// above is 19YY. Every date parser in this module uses it.
const CenturyPivot = 30

var shortMonths = map[string]time.Month{
	"jan": time.January,
	"feb": time.February,
	"mrt": time.March,
	"apr": time.April,
	"mei": time.May,
	"jun": time.June,
	"jul": time.July,
	"aug": time.August,
	"sep": time.September,
	"okt": time.October,
	"nov": time.November,
	"dec": time.December,
}

var longMonths = map[string]time.Month{
	"januari":   time.January,
	"februari":  time.February,
	"maart":     time.March,
	"april":     time.April,
	"mei":       time.May,
	"juni":      time.June,
	"juli":      time.July,
	"augustus":  time.August,
	"september": time.September,
	"oktober":   time.October,
	"november":  time.November,
	"december":  time.December,
}

var (
	shortDate = regexp.MustCompile(`^(\d{1,2})-([a-z]{3})-(\d{2})$`)
	longDate  = regexp.MustCompile(`^(\d{1,2})\s+([a-z]+)\s+(\d{4})$`)
	isoDate   = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
	nonDigits = regexp.MustCompile(`\D`)
)

// ParseDate accepts "3-nov-64", "17 maart 2025" and "2025-03-17" and returns
// the date as YYYY-MM-DD.
func ParseDate(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", false
	}

	var (
		day, year int
		month     time.Month
		ok        bool
	)

	switch {
	case shortDate.MatchString(s):
		m := shortDate.FindStringSubmatch(s)
		if month, ok = shortMonths[m[2]]; !ok {
			return "", false
		}
		day, _ = strconv.Atoi(m[1])
		year, _ = strconv.Atoi(m[3])
		year = ExpandYear(year)
	case longDate.MatchString(s):
		m := longDate.FindStringSubmatch(s)
		if month, ok = longMonths[m[2]]; !ok {
			return "", false
		}
		day, _ = strconv.Atoi(m[1])
		year, _ = strconv.Atoi(m[3])
	case isoDate.MatchString(s):
		m := isoDate.FindStringSubmatch(s)
		year, _ = strconv.Atoi(m[1])
		mon, _ := strconv.Atoi(m[2])
		month = time.Month(mon)
		day, _ = strconv.Atoi(m[3])
	default:
		return "", false
	}

	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || t.Month() != month || t.Year() != year {
		// 31-feb would otherwise normalize into march.
		return "", false
	}
	return fmt.Sprintf("%04d-%02d-%02d", year, int(month), day), true
}

// ExpandYear maps a two digit year onto a century using CenturyPivot.
func ExpandYear(yy int) int {
	if yy <= CenturyPivot {
		return 2000 + yy
	}
	return 1900 + yy
}

// ParseDutchDecimal parses "1.234,56": dots are thousands separators and the
// comma is the decimal point.
func ParseDutchDecimal(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Decimal{}, false
	}
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	return parseDecimal(s)
}

// ParseDecimal parses a dot decimal such as "412.80".
func ParseDecimal(s string) (decimal.Decimal, bool) {
	return parseDecimal(strings.TrimSpace(s))
}

func parseDecimal(s string) (decimal.Decimal, bool) {
	if s == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// ParseInteger drops every non digit before parsing, so "1.200" and "12 st"
// both parse.
func ParseInteger(s string) (int64, bool) {
	digits := nonDigits.ReplaceAllString(s, "")
	if digits == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
