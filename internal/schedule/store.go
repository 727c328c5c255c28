package schedule

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/openhours/doorkeeper/internal/domain"
)

// Store reads and writes the schedule config file. Loads are lenient:
// a missing or unparseable file and missing keys fall back to defaults,
// and malformed entries are skipped with a warning so a bad edit can
// never take the polling loop down. Saves replace the whole file
// atomically.
type Store struct {
	path   string
	logger *slog.Logger

	mu sync.Mutex // serializes read-modify-write cycles
}

func NewStore(path string, logger *slog.Logger) *Store {
	return &Store{
		path:   path,
		logger: logger.With("component", "schedule_store"),
	}
}

// rawConfig mirrors the persisted JSON layout with everything kept as
// strings so one malformed entry does not fail the whole decode.
type rawConfig struct {
	Timezone        *string             `json:"timezone"`
	ScheduleEnabled *bool               `json:"schedule_enabled"`
	OpenTimes       map[string]*string  `json:"open_times"`
	Breaks          map[string][]string `json:"breaks"`
}

// Load returns the current config snapshot. The caller owns the returned
// value; the store never hands out shared state.
func (s *Store) Load() (*domain.ScheduleConfig, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("schedule config not found, using defaults", "path", s.path)
		return domain.DefaultScheduleConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read schedule config: %w", err)
	}

	var raw rawConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		s.logger.Warn("schedule config is not valid JSON, using defaults", "path", s.path, "error", err)
		return domain.DefaultScheduleConfig(), nil
	}
	return s.fromRaw(&raw), nil
}

func (s *Store) fromRaw(raw *rawConfig) *domain.ScheduleConfig {
	cfg := domain.DefaultScheduleConfig()

	if raw.Timezone != nil {
		if _, err := time.LoadLocation(*raw.Timezone); err != nil {
			s.logger.Warn("unknown timezone in schedule config, keeping fallback",
				"timezone", *raw.Timezone, "fallback", domain.DefaultTimezone)
		} else {
			cfg.Timezone = *raw.Timezone
		}
	}
	if raw.ScheduleEnabled != nil {
		cfg.ScheduleEnabled = *raw.ScheduleEnabled
	}

	if raw.OpenTimes != nil {
		for _, day := range domain.Weekdays {
			cfg.OpenTimes[day] = nil
		}
		for label, value := range raw.OpenTimes {
			day := domain.Weekday(label)
			if !day.Valid() {
				s.logger.Warn("ignoring unknown day label in open_times", "label", label)
				continue
			}
			if value == nil {
				continue
			}
			t, err := domain.ParseTimeOfDay(*value)
			if err != nil {
				s.logger.Warn("skipping malformed open time", "day", day, "value", *value, "error", err)
				continue
			}
			cfg.OpenTimes[day] = &t
		}
	}

	if raw.Breaks != nil {
		for label, values := range raw.Breaks {
			day := domain.Weekday(label)
			if !day.Valid() {
				s.logger.Warn("ignoring unknown day label in breaks", "label", label)
				continue
			}
			var breaks []domain.BreakInterval
			for _, value := range values {
				b, err := domain.ParseBreakInterval(value)
				if err != nil {
					s.logger.Warn("skipping malformed break", "day", day, "value", value, "error", err)
					continue
				}
				breaks = append(breaks, b)
			}
			cfg.Breaks[day] = breaks
		}
	}

	return cfg
}

// Save writes the whole config via a temp file and rename so readers
// never observe a half-written file.
func (s *Store) Save(cfg *domain.ScheduleConfig) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode schedule config: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".schedule-*.json")
	if err != nil {
		return fmt.Errorf("create temp config: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp config: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace schedule config: %w", err)
	}
	return nil
}

// Update runs a read-modify-write cycle under the store lock and returns
// the saved snapshot.
func (s *Store) Update(fn func(*domain.ScheduleConfig) error) (*domain.ScheduleConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.Load()
	if err != nil {
		return nil, err
	}
	if err := fn(cfg); err != nil {
		return nil, err
	}
	if err := s.Save(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
