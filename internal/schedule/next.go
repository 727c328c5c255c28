package schedule

import (
	"fmt"
	"time"

	"github.com/openhours/doorkeeper/internal/domain"
	"github.com/robfig/cron/v3"
)

// NextOpening computes the next scheduled open after now by turning each
// weekly open time into a standard cron expression. Returns false when the
// schedule is disabled or every day is off.
func NextOpening(now time.Time, cfg *domain.ScheduleConfig) (time.Time, bool) {
	if cfg == nil || !cfg.ScheduleEnabled {
		return time.Time{}, false
	}

	now = now.In(cfg.Location())

	var next time.Time
	for _, day := range domain.Weekdays {
		open := cfg.OpenTime(day)
		if open == nil {
			continue
		}
		expr := fmt.Sprintf("%d %d * * %d", open.Minute, open.Hour, day.CronDay())
		sched, err := cron.ParseStandard(expr)
		if err != nil {
			// Open times are validated on the way in; treat as day off.
			continue
		}
		candidate := sched.Next(now)
		if next.IsZero() || candidate.Before(next) {
			next = candidate
		}
	}

	return next, !next.IsZero()
}
