// Package relativetime renders timestamps as human readable "ago" labels.
package relativetime

import (
	"fmt"
	"time"
)

// Never is the label used when there is no timestamp to format.
const Never = "Never"

// Format renders the distance between t and now as a coarse label.
// Both timestamps are compared as-is, callers are expected to pass UTC.
func Format(t, now time.Time) string {
	diff := now.Sub(t)
	if diff < time.Minute {
		return "Just now"
	}
	if diff < time.Hour {
		return fmt.Sprintf("%d minutes ago", int(diff.Minutes()))
	}
	if diff < 24*time.Hour {
		hours := int(diff.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	}

	days := int(diff.Hours() / 24)
	switch {
	case days == 1:
		return "1 day ago"
	case days < 7:
		return fmt.Sprintf("%d days ago", days)
	case days < 30:
		weeks := days / 7
		if weeks == 1 {
			return "1 week ago"
		}
		return fmt.Sprintf("%d weeks ago", weeks)
	case days < 365:
		months := days / 30
		if months == 1 {
			return "1 month ago"
		}
		return fmt.Sprintf("%d months ago", months)
	default:
		return fmt.Sprintf("%d years ago", days/365)
	}
}

// FormatOrNever renders t relative to now, or Never when t is nil.
func FormatOrNever(t *time.Time, now time.Time) string {
	if t == nil {
		return Never
	}
	return Format(*t, now)
}
