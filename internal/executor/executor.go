package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/openhours/doorkeeper/internal/domain"
	"github.com/openhours/doorkeeper/internal/metrics"
)

// waitSchedule is the fixed staged-backoff table: the delays between the
// 10 attempts of one action run. Attempt 1 is immediate; waits happen only
// between attempts, never before the first or after the last.
var waitSchedule = [...]time.Duration{
	30 * time.Second,
	60 * time.Second,
	5 * time.Minute,
	10 * time.Minute,
	15 * time.Minute,
	15 * time.Minute,
	15 * time.Minute,
	15 * time.Minute,
	15 * time.Minute,
}

// escalateAfterAttempt is the failed attempt after which the escalation
// email goes out, in addition to the per-attempt chat message.
const escalateAfterAttempt = 5

// MaxAttempts is the total number of attempts in one run.
const MaxAttempts = len(waitSchedule) + 1

// Notifier is the slice of the notification layer the executor needs.
type Notifier interface {
	Primary(ctx context.Context, text string)
	Escalate(ctx context.Context, subject, body string) bool
}

// ActionCall performs one actuator attempt. A non-OK vendor result comes
// back in the AttemptResult; err is reserved for transport-level failures,
// which the executor folds into the running last-error instead of aborting.
type ActionCall func(ctx context.Context) (domain.AttemptResult, error)

// Target identifies the bound action for operator messages.
type Target struct {
	LockID int64
	Action domain.Action
}

// Report is the final verdict of one retry sequence.
type Report struct {
	Success      bool
	AttemptsMade int
	FinalError   string
}

// Executor drives one actuator action through the staged retry policy,
// emitting notifications at the defined milestones. It blocks the calling
// goroutine for the whole sequence, which can span tens of minutes when
// every attempt fails.
type Executor struct {
	notifier Notifier
	logger   *slog.Logger

	// sleep waits between attempts; injectable so tests can record the
	// schedule instead of waiting out 98 minutes.
	sleep func(ctx context.Context, d time.Duration)
}

func New(notifier Notifier, logger *slog.Logger) *Executor {
	return &Executor{
		notifier: notifier,
		logger:   logger.With("component", "executor"),
		sleep:    sleepCtx,
	}
}

// WithSleep replaces the inter-attempt wait. Test hook.
func (e *Executor) WithSleep(sleep func(ctx context.Context, d time.Duration)) *Executor {
	e.sleep = sleep
	return e
}

// Execute runs the action until it succeeds or the attempt budget is
// exhausted. Actuator failures are data, not errors: the method never
// returns early on a failed attempt, and notification problems never
// affect its progress.
func (e *Executor) Execute(ctx context.Context, call ActionCall, target Target) Report {
	action := string(target.Action)
	lastError := ""

	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		if attempt > 1 {
			wait := waitSchedule[attempt-2]
			e.logger.Info("waiting before retry", "action", action, "attempt", attempt, "wait", wait)
			e.sleep(ctx, wait)
		}
		if ctx.Err() != nil {
			if lastError == "" {
				lastError = ctx.Err().Error()
			}
			e.logger.Warn("action run interrupted", "action", action, "attempt", attempt, "error", ctx.Err())
			return Report{AttemptsMade: attempt - 1, FinalError: lastError}
		}

		start := time.Now()
		result, err := call(ctx)
		metrics.ActionAttemptDuration.WithLabelValues(action).Observe(time.Since(start).Seconds())

		if err != nil {
			// Transport-level failure: fold into the running error and
			// keep going like any other failed attempt.
			result = domain.AttemptResult{ErrCode: -1, ErrMsg: err.Error()}
		}
		result.Attempt = attempt

		if result.Success || result.ErrCode == 0 {
			metrics.ActionAttemptsTotal.WithLabelValues(action, "success").Inc()
			metrics.ActionRunsTotal.WithLabelValues(action, "success").Inc()
			e.logger.Info("action succeeded", "action", action, "lock_id", target.LockID, "attempt", attempt)
			e.notifier.Primary(ctx, fmt.Sprintf("✅ Lock %d %s (attempt %d)", target.LockID, target.Action.Done(), attempt))
			return Report{Success: true, AttemptsMade: attempt}
		}

		lastError = result.ErrMsg
		metrics.ActionAttemptsTotal.WithLabelValues(action, "failure").Inc()
		e.logger.Warn("attempt failed",
			"action", action,
			"lock_id", target.LockID,
			"attempt", attempt,
			"max_attempts", MaxAttempts,
			"errcode", result.ErrCode,
			"error", result.ErrMsg,
		)
		e.notifier.Primary(ctx, fmt.Sprintf("❗️ Lock %d: %s failed (attempt %d/%d)\n%s",
			target.LockID, target.Action.Verb(), attempt, MaxAttempts, result.ErrMsg))

		if attempt == escalateAfterAttempt {
			subject := fmt.Sprintf("Lock %d: %s failed %d times", target.LockID, target.Action.Verb(), escalateAfterAttempt)
			body := fmt.Sprintf("%d attempts at %s lock %d have failed, escalating.\nLast error: %s",
				escalateAfterAttempt, target.Action.Verb(), target.LockID, lastError)
			e.notifier.Escalate(ctx, subject, body)
		}
	}

	metrics.ActionRunsTotal.WithLabelValues(action, "exhausted").Inc()
	e.logger.Error("all attempts exhausted", "action", action, "lock_id", target.LockID, "last_error", lastError)

	final := fmt.Sprintf("🚨 Lock %d: all %d %s attempts failed.\nLast error: %s\nManual intervention required.",
		target.LockID, MaxAttempts, target.Action.Verb(), lastError)
	e.notifier.Primary(ctx, final)
	e.notifier.Escalate(ctx,
		fmt.Sprintf("Lock %d: %s failed, manual intervention required", target.LockID, target.Action.Verb()),
		final)

	return Report{AttemptsMade: MaxAttempts, FinalError: lastError}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
