package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/bizops-engine/generic"
)

// =============================================================================
// DATES
// =============================================================================

// dateLayouts are tried in order. ISO first: it is what the APIs return.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"01/02/2006",
	"1/2/2006",
	"01/02/06",
	"1/2/06",
	"2006/01/02",
	"01-02-2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"20060102",
}

// Excel stores dates as days since 1899-12-30. Only serials in this window
// are accepted so that a stray year or count is not read as a date.
const (
	minExcelSerial = 20000 // 1954-10-03
	maxExcelSerial = 80000 // 2119-01-10
)

var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// ParseDate parses s leniently. Unparseable input returns the zero TimePoint
// and an error wrapping generic.ErrParseFailure; blank input returns the zero
// TimePoint and no error.
func ParseDate(s string) (generic.TimePoint, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return generic.TimePoint{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return generic.DateOf(t), nil
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial >= minExcelSerial && serial <= maxExcelSerial {
		return generic.DateOf(excelEpoch.AddDate(0, 0, int(serial))), nil
	}
	return generic.TimePoint{}, fmt.Errorf("%w: date %q", generic.ErrParseFailure, s)
}

// =============================================================================
// AMOUNTS
// =============================================================================

// ParseAmount reads accounting-formatted money. A value wrapped in
// parentheses is negative. Dollar signs, commas and spaces are ignored.
// Blank input is zero with no error; anything unparseable is zero with an
// error wrapping generic.ErrParseFailure.
func ParseAmount(s string) (decimal.Decimal, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return decimal.Zero, nil
	}

	negative := false
	clean := raw
	if strings.HasPrefix(clean, "(") && strings.HasSuffix(clean, ")") {
		negative = true
		clean = clean[1 : len(clean)-1]
	}
	clean = strings.NewReplacer("$", "", ",", "", " ", "").Replace(clean)

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: amount %q", generic.ErrParseFailure, raw)
	}
	if negative {
		d = d.Abs().Neg()
	}
	return d, nil
}

// ParseRate reads a commission rate as a decimal fraction. "10%" and "0.1"
// both mean one tenth.
func ParseRate(s string) (decimal.Decimal, error) {
	raw := strings.TrimSpace(s)
	if strings.HasSuffix(raw, "%") {
		d, err := decimal.NewFromString(strings.TrimSpace(strings.TrimSuffix(raw, "%")))
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: rate %q", generic.ErrParseFailure, raw)
		}
		return d.Div(decimal.NewFromInt(100)), nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: rate %q", generic.ErrParseFailure, raw)
	}
	return d, nil
}

// ParseBool accepts the spellings people type into spreadsheets.
func ParseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes", "true", "t", "1", "x":
		return true
	}
	return false
}
