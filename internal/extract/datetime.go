// Date/time extraction for scheduling replies.
//
// The pattern ladder is ordered; the first hit wins. Ambiguity ("a las 3")
// is resolved by a fixed heuristic rather than asking for clarification:
// bare hours 1-7 are shifted to the afternoon, and a time already past today
// rolls to tomorrow. This is an accepted approximation.
package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	dayAtTimePattern  = regexp.MustCompile(`(?i)\b(hoy|mañana|manana)\b.*?\ba\s+las?\s+(\d{1,2})(?::(\d{2}))?`)
	clockTimePattern  = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\b`)
	aLasHourPattern   = regexp.MustCompile(`(?i)\ba\s+las?\s+(\d{1,2})\b`)
	bareHourPattern   = regexp.MustCompile(`(?i)\b(?:las?\s+)?(\d{1,2})\b`)
	afternoonKeywords = regexp.MustCompile(`(?i)\b(tarde|noche)\b`)
)

// ExtractDateTime scans the message for a meeting date/time candidate
// relative to now in the given location. ok is false when nothing matched.
func ExtractDateTime(text string, now time.Time, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = now.Location()
	}
	now = now.In(loc)
	pm := afternoonKeywords.MatchString(text)

	if m := dayAtTimePattern.FindStringSubmatch(text); m != nil {
		day := now
		if strings.EqualFold(m[1], "mañana") || strings.EqualFold(m[1], "manana") {
			day = now.AddDate(0, 0, 1)
		}
		hour, _ := strconv.Atoi(m[2])
		minute := 0
		if m[3] != "" {
			minute, _ = strconv.Atoi(m[3])
		}
		return buildCandidate(day, hour, minute, pm, now), true
	}

	if m := clockTimePattern.FindStringSubmatch(text); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		return buildCandidate(now, hour, minute, pm, now), true
	}

	if m := aLasHourPattern.FindStringSubmatch(text); m != nil {
		hour, _ := strconv.Atoi(m[1])
		return buildCandidate(now, hour, 0, pm, now), true
	}

	if m := bareHourPattern.FindStringSubmatch(text); m != nil {
		hour, _ := strconv.Atoi(m[1])
		if hour >= 1 && hour <= 23 {
			return buildCandidate(now, hour, 0, pm, now), true
		}
	}

	return time.Time{}, false
}

// buildCandidate assembles a candidate on the given day, applying the PM
// heuristic and rolling past times to the next day.
func buildCandidate(day time.Time, hour, minute int, pm bool, now time.Time) time.Time {
	if pm && hour < 12 {
		hour += 12
	} else if hour >= 1 && hour <= 7 {
		// Bare small hours are assumed to mean the afternoon.
		hour += 12
	}

	t := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location())
	if !t.After(now) {
		t = t.AddDate(0, 0, 1)
	}
	return t
}
