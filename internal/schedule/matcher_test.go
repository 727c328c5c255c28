package schedule_test

import (
	"testing"
	"time"

	"github.com/openhours/doorkeeper/internal/domain"
	"github.com/openhours/doorkeeper/internal/schedule"
)

// at builds a Monday at the given wall-clock time. 2024-01-01 is a Monday.
func at(hour, minute int) time.Time {
	return time.Date(2024, 1, 1, hour, minute, 0, 0, time.UTC)
}

func testConfig() *domain.ScheduleConfig {
	cfg := domain.DefaultScheduleConfig()
	cfg.Timezone = "UTC"
	return cfg
}

func TestShouldFire_DisabledScheduleNeverFires(t *testing.T) {
	cfg := testConfig()
	cfg.ScheduleEnabled = false

	var m schedule.Matcher
	for hour := 0; hour < 24; hour++ {
		if m.ShouldFire(at(hour, 0), cfg) {
			t.Fatalf("fired at %02d:00 with schedule disabled", hour)
		}
	}
}

func TestShouldFire_DayOffNeverFires(t *testing.T) {
	cfg := testConfig()
	cfg.OpenTimes[domain.Monday] = nil

	var m schedule.Matcher
	for hour := 0; hour < 24; hour++ {
		for _, minute := range []int{0, 59} {
			if m.ShouldFire(at(hour, minute), cfg) {
				t.Fatalf("fired at %02d:%02d on a day off", hour, minute)
			}
		}
	}
}

func TestShouldFire_ExactMinuteMatchOnly(t *testing.T) {
	cfg := testConfig() // Monday opens at 09:00

	tests := []struct {
		now  time.Time
		want bool
	}{
		{at(9, 0), true},
		{at(8, 59), false},
		{at(9, 1), false},
		{at(21, 0), false},
	}

	var m schedule.Matcher
	for _, tt := range tests {
		if got := m.ShouldFire(tt.now, cfg); got != tt.want {
			t.Errorf("ShouldFire(%s) = %v, want %v", tt.now.Format("15:04"), got, tt.want)
		}
	}
}

func TestShouldFire_BreakBoundaries(t *testing.T) {
	b, err := domain.ParseBreakInterval("13:00-14:00")
	if err != nil {
		t.Fatalf("parse break: %v", err)
	}

	tests := []struct {
		name string
		open domain.TimeOfDay
		now  time.Time
		want bool
	}{
		{"open time equals break start", domain.TimeOfDay{Hour: 13}, at(13, 0), false},
		{"open time equals break end", domain.TimeOfDay{Hour: 14}, at(14, 0), true},
		{"open time inside break", domain.TimeOfDay{Hour: 13, Minute: 30}, at(13, 30), false},
		{"open time before break", domain.TimeOfDay{Hour: 12}, at(12, 0), true},
	}

	var m schedule.Matcher
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			open := tt.open
			cfg.OpenTimes[domain.Monday] = &open
			cfg.Breaks[domain.Monday] = []domain.BreakInterval{b}

			if got := m.ShouldFire(tt.now, cfg); got != tt.want {
				t.Errorf("ShouldFire(%s) = %v, want %v", tt.now.Format("15:04"), got, tt.want)
			}
		})
	}
}

func TestShouldFire_Idempotent(t *testing.T) {
	cfg := testConfig()
	now := at(9, 0)

	var m schedule.Matcher
	first := m.ShouldFire(now, cfg)
	for i := 0; i < 10; i++ {
		if m.ShouldFire(now, cfg) != first {
			t.Fatal("ShouldFire changed its answer on identical inputs")
		}
	}
}

func TestShouldFire_NilConfig(t *testing.T) {
	var m schedule.Matcher
	if m.ShouldFire(at(9, 0), nil) {
		t.Fatal("fired with nil config")
	}
}
