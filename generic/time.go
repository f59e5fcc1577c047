package generic

import (
	"fmt"
	"time"
)

// =============================================================================
// TIME POINT - Calendar date used for every business date in a report
// =============================================================================

// TimePoint is a calendar date. The zero TimePoint stands for a missing date
// (unparseable input, open-ended rule end). Time is always midnight UTC.
type TimePoint struct {
	Time time.Time
}

// Constructors
func NewTimePoint(year int, month time.Month, day int) TimePoint {
	return TimePoint{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day.
func DateOf(t time.Time) TimePoint {
	return NewTimePoint(t.Year(), t.Month(), t.Day())
}

// Comparison
func (tp TimePoint) Before(other TimePoint) bool        { return tp.Time.Before(other.Time) }
func (tp TimePoint) Equal(other TimePoint) bool         { return tp.Time.Equal(other.Time) }
func (tp TimePoint) After(other TimePoint) bool         { return tp.Time.After(other.Time) }
func (tp TimePoint) BeforeOrEqual(other TimePoint) bool { return !tp.After(other) }
func (tp TimePoint) AfterOrEqual(other TimePoint) bool  { return !tp.Before(other) }

// Properties
func (tp TimePoint) Year() int         { return tp.Time.Year() }
func (tp TimePoint) Month() time.Month { return tp.Time.Month() }
func (tp TimePoint) IsZero() bool      { return tp.Time.IsZero() }

// YearMonth returns the month bucket this date falls into.
func (tp TimePoint) YearMonth() YearMonth {
	return YearMonth{Year: tp.Year(), Month: tp.Month()}
}

// String is the ISO date, or "" for the zero TimePoint.
func (tp TimePoint) String() string {
	if tp.IsZero() {
		return ""
	}
	return tp.Time.Format("2006-01-02")
}

// =============================================================================
// YEAR-MONTH - Aggregation bucket for monthly commission
// =============================================================================

type YearMonth struct {
	Year  int
	Month time.Month
}

// LastDay returns the last calendar day of the month.
func (ym YearMonth) LastDay() TimePoint { return EndOfMonth(ym.Year, ym.Month) }

func (ym YearMonth) String() string { return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month)) }

// =============================================================================
// TIME UTILITIES
// =============================================================================

func DaysBetween(from, to TimePoint) int {
	return int(to.Time.Sub(from.Time).Hours() / 24)
}
func StartOfYear(year int) TimePoint { return NewTimePoint(year, time.January, 1) }
func EndOfYear(year int) TimePoint   { return NewTimePoint(year, time.December, 31) }
func EndOfMonth(year int, month time.Month) TimePoint {
	return DateOf(time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1))
}

// DaysInYear is 366 for leap years, 365 otherwise.
func DaysInYear(year int) int {
	return DaysBetween(StartOfYear(year), StartOfYear(year+1))
}
