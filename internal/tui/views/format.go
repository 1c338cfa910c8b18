package views

import (
	"strings"
	"time"
)

// formatTime shows the time of day for today and the date otherwise.
func formatTime(t time.Time, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	t, now = t.Local(), now.Local()
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04")
	}
	if t.Year() == now.Year() && now.YearDay()-t.YearDay() == 1 {
		return "ontem"
	}
	return t.Format("02/01/06")
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
