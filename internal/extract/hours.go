// Business-hours validation shared by extraction and slot generation.
package extract

import "time"

// Business-hour bounds. Meetings run Monday through Friday from OpeningHour
// up to (not including) ClosingHour, skipping the lunch hour.
const (
	OpeningHour = 9
	ClosingHour = 18
	LunchHour   = 13
)

// WithinBusinessHours reports whether t is a bookable instant relative to
// now: strictly in the future, on a weekday, inside opening hours, and not
// during lunch.
func WithinBusinessHours(t, now time.Time) bool {
	if !t.After(now) {
		return false
	}
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	h := t.Hour()
	if h < OpeningHour || h >= ClosingHour {
		return false
	}
	if h == LunchHour {
		return false
	}
	return true
}
