// internal/schema/date.go
//
// Apply – validation engine: calendar values.
//
// Context
//   Dates arrive either as an ISO string (“2025-03-01”) or, far more often,
//   as separate day/month/year inputs.  Part-based values are normalised to
//   integers so a second validation pass yields an identical value.
//
//   Ranges enforce end ≥ start, an earliest start relative to today, and a
//   maximum duration measured in calendar months from the start.
//
//------------------------------------------------------------------------------

package schema

import (
	"time"
)

const isoDate = "2006-01-02"

// -----------------------------------------------------------------------------
// Part helpers
// -----------------------------------------------------------------------------

// PartsToTime converts a {day, month, year} map into a UTC midnight time.
// It rejects impossible dates such as 31 February.
func PartsToTime(v any) (time.Time, bool) {
	m, isMap := AsMap(v)
	if !isMap {
		return time.Time{}, false
	}
	d, okD := AsInt(m["day"])
	mo, okM := AsInt(m["month"])
	y, okY := AsInt(m["year"])
	if !okD || !okM || !okY {
		return time.Time{}, false
	}
	return makeDate(y, mo, d)
}

func makeDate(y, mo, d int) (time.Time, bool) {
	if y < 1000 || y > 9999 || mo < 1 || mo > 12 || d < 1 || d > 31 {
		return time.Time{}, false
	}
	t := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d || int(t.Month()) != mo {
		return time.Time{}, false
	}
	return t, true
}

// TimeToParts is the inverse of PartsToTime.
func TimeToParts(t time.Time) map[string]any {
	return map[string]any{"day": t.Day(), "month": int(t.Month()), "year": t.Year()}
}

// -----------------------------------------------------------------------------
// ISO date
// -----------------------------------------------------------------------------

// DateSchema validates an ISO yyyy-mm-dd string.
type DateSchema struct {
	past bool
}

// Date returns an ISO date schema.
func Date() *DateSchema { return &DateSchema{} }

// Past rejects dates after today.
func (s *DateSchema) Past() *DateSchema { s.past = true; return s }

// Validate implements Schema.
func (s *DateSchema) Validate(v any, c Context) Outcome {
	str, isScalar := AsString(v)
	if !isScalar {
		return outcome(v, fail(TypeDateBase, nil))
	}
	t, err := time.Parse(isoDate, str)
	if err != nil {
		return outcome(str, fail(TypeDateBase, nil))
	}
	if s.past && t.After(c.Today()) {
		return outcome(str, fail(TypeDateMax, map[string]any{"limit": c.Today().Format(isoDate)}))
	}
	return ok(t.Format(isoDate))
}

// -----------------------------------------------------------------------------
// Day / month / year
// -----------------------------------------------------------------------------

// DatePartsSchema validates a {day, month, year} map.
type DatePartsSchema struct {
	minAge int
	past   bool
}

// DateParts returns a date-parts schema.
func DateParts() *DatePartsSchema { return &DatePartsSchema{} }

// MinAge requires the date to be at least years before today, e.g. for a
// date of birth.
func (s *DatePartsSchema) MinAge(years int) *DatePartsSchema { s.minAge = years; return s }

// Past rejects dates after today.
func (s *DatePartsSchema) Past() *DatePartsSchema { s.past = true; return s }

// Validate implements Schema.
func (s *DatePartsSchema) Validate(v any, c Context) Outcome {
	t, valid := PartsToTime(v)
	if !valid {
		return outcome(v, fail(TypeDateBase, nil))
	}
	out := TimeToParts(t)
	today := c.Today()

	if s.minAge > 0 && t.After(today.AddDate(-s.minAge, 0, 0)) {
		return outcome(out, fail(TypeMinAge, map[string]any{"limit": s.minAge}))
	}
	if s.past && t.After(today) {
		return outcome(out, fail(TypeDateMax, map[string]any{"limit": today.Format(isoDate)}))
	}
	return ok(out)
}

// MonthYearSchema validates a {month, year} map.
type MonthYearSchema struct{}

// MonthYear returns a month-year schema.
func MonthYear() MonthYearSchema { return MonthYearSchema{} }

// Validate implements Schema.
func (MonthYearSchema) Validate(v any, _ Context) Outcome {
	m, isMap := AsMap(v)
	if !isMap {
		return outcome(v, fail(TypeDateBase, nil))
	}
	mo, okM := AsInt(m["month"])
	y, okY := AsInt(m["year"])
	if !okM || !okY {
		return outcome(v, fail(TypeDateBase, nil))
	}
	if _, valid := makeDate(y, mo, 1); !valid {
		return outcome(v, fail(TypeDateBase, nil))
	}
	return ok(map[string]any{"month": mo, "year": y})
}

// DayMonthSchema validates a {day, month} map such as a financial year end.
// 29 February is allowed.
type DayMonthSchema struct{}

// DayMonth returns a day-month schema.
func DayMonth() DayMonthSchema { return DayMonthSchema{} }

// Validate implements Schema.
func (DayMonthSchema) Validate(v any, _ Context) Outcome {
	m, isMap := AsMap(v)
	if !isMap {
		return outcome(v, fail(TypeDateBase, nil))
	}
	d, okD := AsInt(m["day"])
	mo, okM := AsInt(m["month"])
	if !okD || !okM {
		return outcome(v, fail(TypeDateBase, nil))
	}
	// 2000 is a leap year, so every real day-month pair is representable.
	if _, valid := makeDate(2000, mo, d); !valid {
		return outcome(v, fail(TypeDateBase, nil))
	}
	return ok(map[string]any{"day": d, "month": mo})
}

// -----------------------------------------------------------------------------
// Date range
// -----------------------------------------------------------------------------

// DateRangeSchema validates {startDate: parts, endDate: parts}.
type DateRangeSchema struct {
	minStartDays      int
	maxDurationMonths int
}

// DateRange returns a date-range schema.
func DateRange() *DateRangeSchema { return &DateRangeSchema{} }

// MinStartDays requires the start date to be at least n days after today.
func (s *DateRangeSchema) MinStartDays(n int) *DateRangeSchema { s.minStartDays = n; return s }

// MaxDurationMonths caps the end date at start + n calendar months.
func (s *DateRangeSchema) MaxDurationMonths(n int) *DateRangeSchema {
	s.maxDurationMonths = n
	return s
}

// Validate implements Schema.
func (s *DateRangeSchema) Validate(v any, c Context) Outcome {
	m, isMap := AsMap(v)
	if !isMap {
		return outcome(v, fail(TypeObjectBase, nil))
	}
	if IsEmpty(m["startDate"]) || IsEmpty(m["endDate"]) {
		return outcome(v, fail(TypeRangeIncomplete, nil))
	}

	start, okStart := PartsToTime(m["startDate"])
	end, okEnd := PartsToTime(m["endDate"])
	var details []Detail
	if !okStart {
		details = append(details, nest("startDate", []Detail{fail(TypeDateBase, nil)})...)
	}
	if !okEnd {
		details = append(details, nest("endDate", []Detail{fail(TypeDateBase, nil)})...)
	}
	if len(details) > 0 {
		return outcome(v, details...)
	}

	out := map[string]any{"startDate": TimeToParts(start), "endDate": TimeToParts(end)}

	earliest := c.Today().AddDate(0, 0, s.minStartDays)
	if start.Before(earliest) {
		details = append(details, nest("startDate", []Detail{
			fail(TypeRangeMinDate, map[string]any{"limit": earliest.Format(isoDate)}),
		})...)
	}
	if end.Before(start) {
		details = append(details, nest("endDate", []Detail{fail(TypeRangeBeforeStart, nil)})...)
	} else if s.maxDurationMonths > 0 {
		latest := start.AddDate(0, s.maxDurationMonths, 0)
		if end.After(latest) {
			details = append(details, nest("endDate", []Detail{
				fail(TypeRangeOutsideLimit, map[string]any{"limit": s.maxDurationMonths}),
			})...)
		}
	}
	return outcome(out, details...)
}
