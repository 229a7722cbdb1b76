package scanner

import (
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/MisterBeardy/saintcalendar-sub000/internal/model"
)

// ParseDate parses a full calendar date as entered in the sheets:
// MM/DD/YYYY, M/D/YYYY, or YYYY-MM-DD.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, eris.New("empty date")
	}
	for _, layout := range []string{"1/2/2006", "01/02/2006", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, eris.Errorf("unparseable date %q", s)
}

// ParseMonthDay parses a recurring feast date: MM/DD with an optional
// /YYYY suffix. Returns the month/day and the year (0 when absent).
func ParseMonthDay(s string) (model.MonthDay, int, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, "/")
	if len(parts) != 2 && len(parts) != 3 {
		return model.MonthDay{}, 0, eris.Errorf("unparseable month/day %q", s)
	}

	month, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || month < 1 || month > 12 {
		return model.MonthDay{}, 0, eris.Errorf("invalid month in %q", s)
	}
	day, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || day < 1 || day > 31 {
		return model.MonthDay{}, 0, eris.Errorf("invalid day in %q", s)
	}

	year := 0
	if len(parts) == 3 {
		year, err = strconv.Atoi(strings.TrimSpace(parts[2]))
		if err != nil || year < 1900 || year > 2200 {
			return model.MonthDay{}, 0, eris.Errorf("invalid year in %q", s)
		}
	}

	md := model.MonthDay{Month: time.Month(month), Day: day}
	// 31st of a 30-day month can never be a real date in any year.
	if day > daysInMonthMax(md.Month) {
		return model.MonthDay{}, 0, eris.Errorf("impossible day %d for month %d", day, month)
	}
	return md, year, nil
}

// ConstructEventDate combines a feast month/day with a year. It returns
// ok=false when the combination is not a real calendar date (Feb 29 in a
// non-leap year); it never silently adjusts.
func ConstructEventDate(md model.MonthDay, year int) (time.Time, bool) {
	if md.IsZero() || year == 0 {
		return time.Time{}, false
	}
	t := time.Date(year, md.Month, md.Day, 0, 0, 0, 0, time.UTC)
	if t.Month() != md.Month || t.Day() != md.Day {
		// time.Date normalized an overflow, so the input was invalid.
		return time.Time{}, false
	}
	return t, true
}

// daysInMonthMax is the day count of the month in its longest year.
func daysInMonthMax(m time.Month) int {
	switch m {
	case time.February:
		return 29
	case time.April, time.June, time.September, time.November:
		return 30
	default:
		return 31
	}
}
