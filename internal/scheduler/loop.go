package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/openhours/doorkeeper/internal/domain"
	"github.com/openhours/doorkeeper/internal/executor"
	"github.com/openhours/doorkeeper/internal/metrics"
	"github.com/openhours/doorkeeper/internal/schedule"
	"github.com/openhours/doorkeeper/internal/ttlock"
)

// ConfigSource yields a fresh schedule snapshot per tick.
type ConfigSource interface {
	Load() (*domain.ScheduleConfig, error)
}

// Actuator is the slice of the vendor client the loop needs.
type Actuator interface {
	Authenticate(ctx context.Context) (string, error)
	Unlock(ctx context.Context, token string, lockID int64) (ttlock.Result, error)
	Lock(ctx context.Context, token string, lockID int64) (ttlock.Result, error)
}

// Runner executes one action through the retry policy.
type Runner interface {
	Execute(ctx context.Context, call executor.ActionCall, target executor.Target) executor.Report
}

// Notifier is the primary channel used for loop-level messages.
type Notifier interface {
	Primary(ctx context.Context, text string)
}

// Loop is the single-threaded polling scheduler. Each tick it reloads the
// config, collects due tasks, and runs the executor synchronously — the
// tick is suspended for the whole retry sequence, so no two scheduled
// actions ever overlap.
type Loop struct {
	source   ConfigSource
	actuator Actuator
	exec     Runner
	notifier Notifier
	logger   *slog.Logger
	interval time.Duration
	lockID   int64

	now func() time.Time // test hook

	// firedMinute/firedKeys dedupe sub-minute ticks: a task fires at most
	// once per trigger minute, and a minute missed entirely is skipped
	// with no catch-up.
	firedMinute string
	firedKeys   map[string]bool
}

func NewLoop(
	source ConfigSource,
	actuator Actuator,
	exec Runner,
	notifier Notifier,
	logger *slog.Logger,
	interval time.Duration,
	lockID int64,
) *Loop {
	return &Loop{
		source:    source,
		actuator:  actuator,
		exec:      exec,
		notifier:  notifier,
		logger:    logger.With("component", "loop"),
		interval:  interval,
		lockID:    lockID,
		now:       time.Now,
		firedKeys: make(map[string]bool),
	}
}

// WithNow replaces the clock. Test hook.
func (l *Loop) WithNow(now func() time.Time) *Loop {
	l.now = now
	return l
}

func (l *Loop) Start(ctx context.Context) {
	metrics.LoopStartTime.SetToCurrentTime()

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	l.logger.Info("polling loop started", "interval", l.interval, "lock_id", l.lockID)

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("polling loop shut down")
			return
		case <-ticker.C:
			l.tick(ctx)
		}
	}
}

func (l *Loop) tick(ctx context.Context) {
	cfg, err := l.source.Load()
	if err != nil {
		l.logger.Error("load schedule config", "error", err)
		return
	}

	now := l.now().In(cfg.Location())
	due := l.claimDue(now, cfg)
	if len(due) == 0 {
		return
	}

	token, err := l.actuator.Authenticate(ctx)
	if err != nil {
		// The occurrence is abandoned; the loop itself is unaffected.
		l.logger.Error("authenticate", "error", err)
		l.notifier.Primary(ctx, fmt.Sprintf("❗️ Could not obtain access token, skipping scheduled action.\n%v", err))
		return
	}

	for _, task := range due {
		metrics.ScheduleFiresTotal.WithLabelValues(string(task.Kind)).Inc()
		l.logger.Info("scheduled task fired", "day", task.Day, "at", task.At.String(), "kind", task.Kind)
		l.run(ctx, token, task.Action())
	}
}

// claimDue returns the due tasks not yet fired this minute and marks them
// fired. The fired set resets whenever the wall-clock minute changes.
func (l *Loop) claimDue(now time.Time, cfg *domain.ScheduleConfig) []schedule.Task {
	minute := now.Format("2006-01-02 15:04")
	if minute != l.firedMinute {
		l.firedMinute = minute
		l.firedKeys = make(map[string]bool)
	}

	var claimed []schedule.Task
	for _, task := range schedule.Due(now, cfg) {
		key := string(task.Day) + "|" + task.At.String() + "|" + string(task.Kind)
		if l.firedKeys[key] {
			continue
		}
		l.firedKeys[key] = true
		claimed = append(claimed, task)
	}
	return claimed
}

func (l *Loop) run(ctx context.Context, token string, action domain.Action) {
	call := func(ctx context.Context) (domain.AttemptResult, error) {
		var res ttlock.Result
		var err error
		if action == domain.ActionLock {
			res, err = l.actuator.Lock(ctx, token, l.lockID)
		} else {
			res, err = l.actuator.Unlock(ctx, token, l.lockID)
		}
		if err != nil {
			return domain.AttemptResult{}, err
		}
		return domain.AttemptResult{Success: res.OK(), ErrCode: res.ErrCode, ErrMsg: res.ErrMsg}, nil
	}

	report := l.exec.Execute(ctx, call, executor.Target{LockID: l.lockID, Action: action})
	if report.Success {
		l.logger.Info("scheduled action completed", "action", action, "attempts", report.AttemptsMade)
	} else {
		l.logger.Error("scheduled action failed", "action", action, "attempts", report.AttemptsMade, "last_error", report.FinalError)
	}
}
