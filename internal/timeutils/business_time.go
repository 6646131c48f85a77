// Package timeutils provides the duration helpers shared by the metric
// calculators.
package timeutils

import "time"

// HoursBetween returns the wall-clock hours from start to end, or 0 when
// either timestamp is missing or the interval is inverted.
func HoursBetween(start, end time.Time) float64 {
	if start.IsZero() || end.IsZero() || start.After(end) {
		return 0
	}
	return end.Sub(start).Hours()
}

// BusinessHours returns the hours between two timestamps excluding
// Saturdays and Sundays. Weekdays count in full, walking the interval one
// calendar day at a time in the timestamps' own location.
func BusinessHours(start, end time.Time) float64 {
	if start.IsZero() || end.IsZero() || start.After(end) {
		return 0
	}

	var total float64
	current := start
	for current.Before(end) {
		// Segment runs to midnight or to end, whichever comes first.
		dayEnd := time.Date(current.Year(), current.Month(), current.Day()+1, 0, 0, 0, 0, current.Location())
		segmentEnd := dayEnd
		if end.Before(dayEnd) {
			segmentEnd = end
		}

		if wd := current.Weekday(); wd != time.Saturday && wd != time.Sunday {
			total += segmentEnd.Sub(current).Hours()
		}
		current = segmentEnd
	}
	return total
}
