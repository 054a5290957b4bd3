package jobs

import (
	"fmt"
	"time"
)

// NextInstant returns the next hour:00 local time strictly after now.
// Exactly hour:00:00.000 rolls over to the following day.
func NextInstant(now time.Time, hour int) time.Time {
	y, m, d := now.Date()
	target := time.Date(y, m, d, hour, 0, 0, 0, now.Location())
	if !target.After(now) {
		target = time.Date(y, m, d+1, hour, 0, 0, 0, now.Location())
	}
	return target
}

// hourLabel renders an hour as 12-hour clock text, e.g. 2 -> "2AM"
func hourLabel(hour int) string {
	suffix := "AM"
	if hour >= 12 {
		suffix = "PM"
	}
	h := hour % 12
	if h == 0 {
		h = 12
	}
	return fmt.Sprintf("%d%s", h, suffix)
}
