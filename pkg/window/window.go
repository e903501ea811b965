// Package window decides which warning thresholds are due for a target date.
package window

import (
	"math"
	"time"

	"github.com/ogulcanaydogan/Expiry-Guardian/pkg/model"
)

const day = 24 * time.Hour

// DaysRemaining returns the whole days from now until target, rounded down.
// Any target in the past yields a negative value.
func DaysRemaining(now, target time.Time) int {
	return int(math.Floor(float64(target.Sub(now)) / float64(day)))
}

// Evaluate returns every threshold that has been crossed but not yet sent,
// ordered 90day, 60day, 30day, 7day. A sweep that runs late still sees all
// the windows it skipped over. Nothing is due once the target has passed.
func Evaluate(now, target time.Time, alreadySent map[model.Threshold]bool) []model.Threshold {
	days := DaysRemaining(now, target)
	if days < 0 {
		return nil
	}

	var due []model.Threshold
	for _, t := range model.Thresholds {
		if days <= t.Window() && !alreadySent[t] {
			due = append(due, t)
		}
	}
	return due
}

// PriorityFor maps a threshold to the trigger priority it implies.
func PriorityFor(t model.Threshold) model.Priority {
	switch t {
	case model.Threshold7:
		return model.PriorityCritical
	case model.Threshold30:
		return model.PriorityHigh
	case model.Threshold60:
		return model.PriorityMedium
	default:
		return model.PriorityLow
	}
}

// PriorityForDue derives the priority from the smallest window in due.
// An empty list is low priority.
func PriorityForDue(due []model.Threshold) model.Priority {
	if len(due) == 0 {
		return model.PriorityLow
	}
	nearest := due[0]
	for _, t := range due[1:] {
		if t.Window() < nearest.Window() {
			nearest = t
		}
	}
	return PriorityFor(nearest)
}

// Nearest returns the smallest threshold whose window contains the days
// remaining until target, if any.
func Nearest(now, target time.Time) (model.Threshold, bool) {
	days := DaysRemaining(now, target)
	if days < 0 {
		return "", false
	}
	for i := len(model.Thresholds) - 1; i >= 0; i-- {
		t := model.Thresholds[i]
		if days <= t.Window() {
			return t, true
		}
	}
	return "", false
}
