// internal/locale/format.go
//
// Locale-aware display formatting for numbers, money, and dates.
//
// Context
// -------
// Display values are plain strings handed to a renderer, so formatting
// decisions live here rather than in templates.  Numbers use x/text CLDR
// data.  Dates use a small month-name table because x/text has no calendar
// formatting and time.Format only knows English names.
package locale

import (
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var monthNames = map[Locale][12]string{
	EN: {
		"January", "February", "March", "April", "May", "June",
		"July", "August", "September", "October", "November", "December",
	},
	CY: {
		"Ionawr", "Chwefror", "Mawrth", "Ebrill", "Mai", "Mehefin",
		"Gorffennaf", "Awst", "Medi", "Hydref", "Tachwedd", "Rhagfyr",
	},
}

// Number formats n with locale digit grouping, e.g. 12,500 or 12,500.5.
func Number(n float64, l Locale) string {
	p := message.NewPrinter(l.Tag())
	return p.Sprint(number.Decimal(n, number.MaxFractionDigits(2)))
}

// Currency formats a pound sterling amount.  Whole amounts drop the pence
// (“£7,000”); fractional amounts always show two places (“£12.50”).
func Currency(amount float64, l Locale) string {
	p := message.NewPrinter(l.Tag())
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	if amount == math.Trunc(amount) {
		return sign + "£" + p.Sprint(number.Decimal(amount, number.MaxFractionDigits(0)))
	}
	return sign + "£" + p.Sprint(number.Decimal(amount,
		number.MinFractionDigits(2), number.MaxFractionDigits(2)))
}

// MonthName returns the localized name of month m (1-12), or "" when m is
// out of range.
func MonthName(m time.Month, l Locale) string {
	if m < time.January || m > time.December {
		return ""
	}
	names, ok := monthNames[l]
	if !ok {
		names = monthNames[EN]
	}
	return names[m-1]
}

// Date formats t as “1 March 2025” / “1 Mawrth 2025”.
func Date(t time.Time, l Locale) string {
	return fmt.Sprintf("%d %s %d", t.Day(), MonthName(t.Month(), l), t.Year())
}

// MonthYear formats “March 2025”.
func MonthYear(m time.Month, year int, l Locale) string {
	return fmt.Sprintf("%s %d", MonthName(m, l), year)
}

// DayMonth formats “31 March”.
func DayMonth(day int, m time.Month, l Locale) string {
	return fmt.Sprintf("%d %s", day, MonthName(m, l))
}

// DateRange formats two dates joined by an en dash.  A single date is shown
// when both ends fall on the same day.
func DateRange(start, end time.Time, l Locale) string {
	if start.Equal(end) {
		return Date(start, l)
	}
	return Date(start, l) + "–" + Date(end, l)
}

// YesNo renders a yes/no answer.
func YesNo(v string, l Locale) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "yes":
		return T("Yes", "Ydw").In(l)
	case "no":
		return T("No", "Nac ydw").In(l)
	default:
		return v
	}
}
