package dateutil

import (
	"fmt"
	"time"
)

// KST is the fixed challenge timezone (UTC+9). Attendance days are bucketed
// under this offset regardless of the server's execution timezone.
var KST = time.FixedZone("KST", 9*60*60)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD string into a KST calendar date (midnight KST).
func ParseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, s, KST)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: use YYYY-MM-DD", s)
	}
	return d, nil
}

// FormatDate renders a date as YYYY-MM-DD.
func FormatDate(d time.Time) string {
	return d.In(KST).Format(DateLayout)
}

// Today returns the current KST calendar date.
func Today() time.Time {
	return DateOf(time.Now())
}

// DateOf returns the KST calendar date containing the given instant.
func DateOf(t time.Time) time.Time {
	y, m, d := t.In(KST).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, KST)
}

// DayRangeUTC returns the UTC instant range covering the given KST calendar
// day: local midnight through the last nanosecond of the day. A commit at
// 2025-03-09T15:30:00Z is 2025-03-10T00:30:00+09:00 and falls in the window
// for 2025-03-10.
func DayRangeUTC(date time.Time) (start, end time.Time) {
	start = DateOf(date).UTC()
	end = start.Add(24*time.Hour - time.Nanosecond)
	return start, end
}

// DaysInclusive returns the number of calendar days in [start, end],
// boundaries included.
func DaysInclusive(start, end time.Time) int {
	return int(DateOf(end).Sub(DateOf(start))/(24*time.Hour)) + 1
}

// DatesBetween returns every KST calendar date in [start, end] in ascending
// order.
func DatesBetween(start, end time.Time) []time.Time {
	start, end = DateOf(start), DateOf(end)
	if end.Before(start) {
		return nil
	}
	dates := make([]time.Time, 0, DaysInclusive(start, end))
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates
}

// NextMidnight returns the first KST midnight strictly after the given
// instant.
func NextMidnight(now time.Time) time.Time {
	return DateOf(now).AddDate(0, 0, 1)
}
