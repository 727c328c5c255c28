package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrBadTimeOfDay  = errors.New("time of day must be HH:MM with hour 0-23 and minute 0-59")
	ErrBadInterval   = errors.New("break interval must be HH:MM-HH:MM with end after start")
	ErrLockNotFound  = errors.New("no locks available for this account")
	ErrNoAccessToken = errors.New("could not obtain access token")
)

// Weekday is one of the 7 fixed day labels used as keys in the persisted
// schedule. The labels are lowercase English abbreviations and never depend
// on the runtime locale.
type Weekday string

const (
	Monday    Weekday = "mon"
	Tuesday   Weekday = "tue"
	Wednesday Weekday = "wed"
	Thursday  Weekday = "thu"
	Friday    Weekday = "fri"
	Saturday  Weekday = "sat"
	Sunday    Weekday = "sun"
)

// Weekdays lists all labels in week order, Monday first.
var Weekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

var goWeekdays = map[time.Weekday]Weekday{
	time.Monday:    Monday,
	time.Tuesday:   Tuesday,
	time.Wednesday: Wednesday,
	time.Thursday:  Thursday,
	time.Friday:    Friday,
	time.Saturday:  Saturday,
	time.Sunday:    Sunday,
}

// WeekdayOf maps a time.Weekday to its fixed label.
func WeekdayOf(d time.Weekday) Weekday {
	return goWeekdays[d]
}

// Valid reports whether w is one of the 7 fixed labels.
func (w Weekday) Valid() bool {
	for _, d := range Weekdays {
		if d == w {
			return true
		}
	}
	return false
}

// CronDay returns the day-of-week field value (0=Sunday) for a standard
// cron expression.
func (w Weekday) CronDay() int {
	for gd, label := range goWeekdays {
		if label == w {
			return int(gd)
		}
	}
	return 0
}

// TimeOfDay is a minute-granularity wall-clock time. The zero value is
// midnight.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses strict "HH:MM" with both fields two digits.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	if len(s) != 5 || s[2] != ':' {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrBadTimeOfDay, s)
	}
	for _, i := range [4]int{0, 1, 3, 4} {
		if s[i] < '0' || s[i] > '9' {
			return TimeOfDay{}, fmt.Errorf("%w: %q", ErrBadTimeOfDay, s)
		}
	}
	h := int(s[0]-'0')*10 + int(s[1]-'0')
	m := int(s[3]-'0')*10 + int(s[4]-'0')
	if h > 23 || m > 59 {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrBadTimeOfDay, s)
	}
	return TimeOfDay{Hour: h, Minute: m}, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Minutes returns the offset from midnight in minutes.
func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}

// Before reports whether t is strictly earlier than other.
func (t TimeOfDay) Before(other TimeOfDay) bool {
	return t.Minutes() < other.Minutes()
}

// MarshalJSON writes the "HH:MM" string form.
func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

// UnmarshalJSON reads the "HH:MM" string form.
func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// BreakInterval is a sub-window of a day during which the lock must stay
// closed. Containment is half-open: the start minute is inside the break,
// the end minute is not. Overnight intervals are not allowed.
type BreakInterval struct {
	Start TimeOfDay
	End   TimeOfDay
}

// ParseBreakInterval parses strict "HH:MM-HH:MM" where end is later than
// start within the same day.
func ParseBreakInterval(s string) (BreakInterval, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 2 {
		return BreakInterval{}, fmt.Errorf("%w: %q", ErrBadInterval, s)
	}
	start, err := ParseTimeOfDay(parts[0])
	if err != nil {
		return BreakInterval{}, fmt.Errorf("%w: %q", ErrBadInterval, s)
	}
	end, err := ParseTimeOfDay(parts[1])
	if err != nil {
		return BreakInterval{}, fmt.Errorf("%w: %q", ErrBadInterval, s)
	}
	if !start.Before(end) {
		return BreakInterval{}, fmt.Errorf("%w: %q", ErrBadInterval, s)
	}
	return BreakInterval{Start: start, End: end}, nil
}

func (b BreakInterval) String() string {
	return b.Start.String() + "-" + b.End.String()
}

// Contains reports whether t falls inside [Start, End).
func (b BreakInterval) Contains(t TimeOfDay) bool {
	return t.Minutes() >= b.Start.Minutes() && t.Minutes() < b.End.Minutes()
}

func (b BreakInterval) MarshalJSON() ([]byte, error) {
	return []byte(`"` + b.String() + `"`), nil
}

func (b *BreakInterval) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, err := ParseBreakInterval(s)
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// DefaultTimezone is used when the persisted config carries no timezone or
// an unknown one.
const DefaultTimezone = "Asia/Novosibirsk"

// ScheduleConfig is the persisted weekly open-time table. It is read as an
// immutable snapshot at the top of every scheduling decision and mutated
// only by the bot or CLI, which write the whole structure back atomically.
type ScheduleConfig struct {
	Timezone        string                      `json:"timezone"`
	ScheduleEnabled bool                        `json:"schedule_enabled"`
	OpenTimes       map[Weekday]*TimeOfDay      `json:"open_times"`
	Breaks          map[Weekday][]BreakInterval `json:"breaks"`
}

// DefaultScheduleConfig returns a weekday-only 09:00 schedule with no
// breaks in the fallback timezone.
func DefaultScheduleConfig() *ScheduleConfig {
	nine := TimeOfDay{Hour: 9}
	cfg := &ScheduleConfig{
		Timezone:        DefaultTimezone,
		ScheduleEnabled: true,
		OpenTimes:       make(map[Weekday]*TimeOfDay, len(Weekdays)),
		Breaks:          make(map[Weekday][]BreakInterval, len(Weekdays)),
	}
	for _, day := range Weekdays {
		cfg.Breaks[day] = nil
		switch day {
		case Saturday, Sunday:
			cfg.OpenTimes[day] = nil
		default:
			t := nine
			cfg.OpenTimes[day] = &t
		}
	}
	return cfg
}

// Location resolves the config timezone, falling back to DefaultTimezone
// and finally UTC if even the fallback cannot be loaded.
func (c *ScheduleConfig) Location() *time.Location {
	if loc, err := time.LoadLocation(c.Timezone); err == nil {
		return loc
	}
	if loc, err := time.LoadLocation(DefaultTimezone); err == nil {
		return loc
	}
	return time.UTC
}

// OpenTime returns the scheduled open time for the given day, or nil when
// the day is off or the label is unknown.
func (c *ScheduleConfig) OpenTime(day Weekday) *TimeOfDay {
	if !day.Valid() {
		return nil
	}
	return c.OpenTimes[day]
}

// BreaksFor returns the break intervals for the given day. Unknown labels
// have no breaks.
func (c *ScheduleConfig) BreaksFor(day Weekday) []BreakInterval {
	if !day.Valid() {
		return nil
	}
	return c.Breaks[day]
}

// Clone returns a deep copy so mutations never leak into another snapshot.
func (c *ScheduleConfig) Clone() *ScheduleConfig {
	out := &ScheduleConfig{
		Timezone:        c.Timezone,
		ScheduleEnabled: c.ScheduleEnabled,
		OpenTimes:       make(map[Weekday]*TimeOfDay, len(c.OpenTimes)),
		Breaks:          make(map[Weekday][]BreakInterval, len(c.Breaks)),
	}
	for day, t := range c.OpenTimes {
		if t == nil {
			out.OpenTimes[day] = nil
			continue
		}
		cp := *t
		out.OpenTimes[day] = &cp
	}
	for day, breaks := range c.Breaks {
		out.Breaks[day] = append([]BreakInterval(nil), breaks...)
	}
	return out
}
