package schedule

import (
	"time"

	"github.com/openhours/doorkeeper/internal/domain"
)

// Matcher decides whether the scheduled open action should fire at a given
// instant. It is a pure predicate over its inputs: no clock, no state.
type Matcher struct{}

// ShouldFire reports whether the daily open action fires at now. The caller
// must pass now already localized to the config timezone.
//
// It fires only on the exact open minute of a scheduled day, outside every
// break. Break containment is half-open: a time equal to a break's start is
// in the break, a time equal to its end is not. There is no catch-up for a
// missed minute; retrying a failed command is the executor's concern.
func (Matcher) ShouldFire(now time.Time, cfg *domain.ScheduleConfig) bool {
	if cfg == nil || !cfg.ScheduleEnabled {
		return false
	}

	day := domain.WeekdayOf(now.Weekday())
	open := cfg.OpenTime(day)
	if open == nil {
		return false
	}

	at := domain.TimeOfDay{Hour: now.Hour(), Minute: now.Minute()}
	for _, b := range cfg.BreaksFor(day) {
		if b.Contains(at) {
			return false
		}
	}

	return at == *open
}
