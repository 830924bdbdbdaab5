package fitness

import (
	"math"
	"time"
)

// ProgressPercentage returns current/target as a percentage capped at 100 and
// rounded to two decimals. A non-positive target yields 0.
func ProgressPercentage(current, target float64) float64 {
	if target <= 0 {
		return 0
	}
	pct := math.Round(current/target*100*100) / 100
	return math.Min(100, pct)
}

// IsOverdue reports whether an open goal has passed its target date
func IsOverdue(targetDate *Date, completed bool, now time.Time) bool {
	if targetDate == nil || completed {
		return false
	}
	return targetDate.Before(DateOf(now))
}

// Decorate fills the derived fields of g
func (g *Goal) Decorate(now time.Time) {
	g.ProgressPercentage = ProgressPercentage(g.CurrentValue, g.TargetValue)
	g.IsOverdue = IsOverdue(g.TargetDate, g.IsCompleted, now)
}

// DurationMinutes returns the rounded number of minutes between start and end.
// It returns nil unless both are set and end is after start.
func DurationMinutes(start, end *time.Time) *int {
	if start == nil || end == nil || !end.After(*start) {
		return nil
	}
	minutes := int(math.Round(end.Sub(*start).Minutes()))
	return &minutes
}

// NewPage computes pagination metadata for a listing
func NewPage(total, limit, offset int) Page {
	return Page{
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: offset+limit < total,
	}
}
