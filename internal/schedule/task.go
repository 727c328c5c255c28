package schedule

import (
	"sort"
	"time"

	"github.com/openhours/doorkeeper/internal/domain"
)

// TaskKind says which schedule entry produced a task.
type TaskKind string

const (
	TaskOpenTime   TaskKind = "open_time"
	TaskBreakStart TaskKind = "break_start"
	TaskBreakEnd   TaskKind = "break_end"
)

// Task is one scheduled actuator command: a plain value dispatched by a
// single generic handler instead of per-day callback closures.
type Task struct {
	Day  domain.Weekday
	At   domain.TimeOfDay
	Kind TaskKind
}

// Action maps the task kind to the actuator command it triggers: the lock
// closes when a break starts and opens at the open time and at break ends.
func (t Task) Action() domain.Action {
	if t.Kind == TaskBreakStart {
		return domain.ActionLock
	}
	return domain.ActionUnlock
}

// BuildTasks flattens the weekly table into the full ordered task list.
// Days without an open time contribute nothing; their breaks are moot
// because the lock never opened.
func BuildTasks(cfg *domain.ScheduleConfig) []Task {
	var tasks []Task
	for _, day := range domain.Weekdays {
		open := cfg.OpenTime(day)
		if open == nil {
			continue
		}
		tasks = append(tasks, Task{Day: day, At: *open, Kind: TaskOpenTime})
		for _, b := range cfg.BreaksFor(day) {
			tasks = append(tasks,
				Task{Day: day, At: b.Start, Kind: TaskBreakStart},
				Task{Day: day, At: b.End, Kind: TaskBreakEnd},
			)
		}
	}

	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].Day != tasks[j].Day {
			return dayIndex(tasks[i].Day) < dayIndex(tasks[j].Day)
		}
		return tasks[i].At.Minutes() < tasks[j].At.Minutes()
	})
	return tasks
}

func dayIndex(day domain.Weekday) int {
	for i, d := range domain.Weekdays {
		if d == day {
			return i
		}
	}
	return len(domain.Weekdays)
}

// Due returns the tasks that fire at now's exact minute. Open-time tasks go
// through the full ShouldFire predicate so an open time inside a break
// stays silent; break-edge tasks only require the schedule to be enabled.
// Tasks sharing a minute and an action collapse into one, e.g. an open
// time equal to a break end yields a single unlock.
func Due(now time.Time, cfg *domain.ScheduleConfig) []Task {
	if cfg == nil || !cfg.ScheduleEnabled {
		return nil
	}

	day := domain.WeekdayOf(now.Weekday())
	at := domain.TimeOfDay{Hour: now.Hour(), Minute: now.Minute()}

	var m Matcher
	seen := make(map[domain.Action]bool)
	var due []Task
	for _, task := range BuildTasks(cfg) {
		if task.Day != day || task.At != at {
			continue
		}
		if task.Kind == TaskOpenTime && !m.ShouldFire(now, cfg) {
			continue
		}
		if seen[task.Action()] {
			continue
		}
		seen[task.Action()] = true
		due = append(due, task)
	}
	return due
}
