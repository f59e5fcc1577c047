package generic

// =============================================================================
// PERIOD - The report window
// =============================================================================

// Period is an inclusive date range [Start, End].
//
// Examples:
//   - Commission report for 2024: Jan 1 - Dec 31
//   - Bonus worksheet as of June 30: Jan 1 - Jun 30 (elapsed part of the year)
type Period struct {
	Start TimePoint
	End   TimePoint
}

// CalendarYear returns Jan 1 - Dec 31 of year.
func CalendarYear(year int) Period {
	return Period{Start: StartOfYear(year), End: EndOfYear(year)}
}

// Contains returns true if the time point is within the period [Start, End].
// A zero time point is never contained.
func (p Period) Contains(t TimePoint) bool {
	if t.IsZero() {
		return false
	}
	return t.AfterOrEqual(p.Start) && t.BeforeOrEqual(p.End)
}

// Days counts the days in the period, both bounds included.
// Returns 0 when End is before Start.
func (p Period) Days() int {
	if p.End.Before(p.Start) {
		return 0
	}
	return DaysBetween(p.Start, p.End) + 1
}

// Validate rejects periods that end before they start.
func (p Period) Validate() error {
	if p.End.Before(p.Start) {
		return ErrInvalidPeriod
	}
	return nil
}

// String returns a string representation of the period.
func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// =============================================================================
// YEAR-TO-DATE - Elapsed part of a calendar year
// =============================================================================

// YearToDate is the elapsed part of asOf's calendar year: Jan 1 through asOf.
type YearToDate struct {
	Year int
	AsOf TimePoint
}

// NewYearToDate clamps asOf into year so that a report for a past year is
// treated as complete. For a year that has not started AsOf is Dec 31 of the
// prior year: the period is empty and ElapsedDays is 0.
func NewYearToDate(year int, asOf TimePoint) YearToDate {
	full := CalendarYear(year)
	switch {
	case asOf.IsZero() || asOf.After(full.End):
		asOf = full.End
	case asOf.Before(full.Start):
		asOf = EndOfYear(year - 1)
	}
	return YearToDate{Year: year, AsOf: asOf}
}

// Started reports whether any of the year has elapsed.
func (y YearToDate) Started() bool { return y.ElapsedDays() > 0 }

// Period returns [Jan 1, AsOf].
func (y YearToDate) Period() Period {
	return Period{Start: StartOfYear(y.Year), End: y.AsOf}
}

// ElapsedDays counts Jan 1 through AsOf inclusive.
func (y YearToDate) ElapsedDays() int { return y.Period().Days() }

// TotalDays is the length of the calendar year.
func (y YearToDate) TotalDays() int { return DaysInYear(y.Year) }
