package executor_test

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/openhours/doorkeeper/internal/domain"
	"github.com/openhours/doorkeeper/internal/executor"
)

// ---- fakes ----

type fakeNotifier struct {
	primary     []string
	escalations []string
	escalateOK  bool
}

func (n *fakeNotifier) Primary(_ context.Context, text string) {
	n.primary = append(n.primary, text)
}

func (n *fakeNotifier) Escalate(_ context.Context, subject, _ string) bool {
	n.escalations = append(n.escalations, subject)
	return n.escalateOK
}

// scriptedCall fails until the configured attempt succeeds. succeedOn = 0
// means never.
func scriptedCall(succeedOn int) executor.ActionCall {
	attempt := 0
	return func(_ context.Context) (domain.AttemptResult, error) {
		attempt++
		if succeedOn != 0 && attempt >= succeedOn {
			return domain.AttemptResult{Success: true}, nil
		}
		return domain.AttemptResult{ErrCode: -3037, ErrMsg: "the lock is busy"}, nil
	}
}

func newTestExecutor(n *fakeNotifier, sleeps *[]time.Duration) *executor.Executor {
	return executor.New(n, slog.Default()).WithSleep(func(_ context.Context, d time.Duration) {
		*sleeps = append(*sleeps, d)
	})
}

var testTarget = executor.Target{LockID: 42, Action: domain.ActionUnlock}

// ---- tests ----

func TestExecute_FirstAttemptSucceeds(t *testing.T) {
	notifier := &fakeNotifier{}
	var sleeps []time.Duration

	report := newTestExecutor(notifier, &sleeps).Execute(context.Background(), scriptedCall(1), testTarget)

	if !report.Success || report.AttemptsMade != 1 || report.FinalError != "" {
		t.Fatalf("report = %+v, want success on attempt 1", report)
	}
	if len(sleeps) != 0 {
		t.Errorf("no waits expected, got %v", sleeps)
	}
	if len(notifier.primary) != 1 || !strings.Contains(notifier.primary[0], "opened") {
		t.Errorf("expected one success notification, got %v", notifier.primary)
	}
	if len(notifier.escalations) != 0 {
		t.Errorf("expected zero escalations, got %v", notifier.escalations)
	}
}

func TestExecute_AllAttemptsFail(t *testing.T) {
	notifier := &fakeNotifier{}
	var sleeps []time.Duration

	report := newTestExecutor(notifier, &sleeps).Execute(context.Background(), scriptedCall(0), testTarget)

	if report.Success {
		t.Fatal("expected failure")
	}
	if report.AttemptsMade != 10 {
		t.Errorf("attempts = %d, want 10", report.AttemptsMade)
	}
	if report.FinalError != "the lock is busy" {
		t.Errorf("final error = %q", report.FinalError)
	}

	// 9 waits: 30s, 60s, 5m, 10m, then five 15m pauses — 5890s total.
	var total time.Duration
	for _, d := range sleeps {
		total += d
	}
	if len(sleeps) != 9 || total != 5890*time.Second {
		t.Errorf("waits = %v (total %s), want 9 waits totaling 5890s", sleeps, total)
	}
	wantFirst := []time.Duration{30 * time.Second, 60 * time.Second, 5 * time.Minute, 10 * time.Minute}
	for i, d := range wantFirst {
		if sleeps[i] != d {
			t.Errorf("wait[%d] = %s, want %s", i, sleeps[i], d)
		}
	}

	// 10 per-attempt failures plus the final critical message.
	if len(notifier.primary) != 11 {
		t.Errorf("primary notifications = %d, want 11", len(notifier.primary))
	}
	if !strings.Contains(notifier.primary[10], "Manual intervention required") {
		t.Errorf("final notification missing manual-intervention call: %q", notifier.primary[10])
	}
	// One escalation at the 5th failure, one at exhaustion.
	if len(notifier.escalations) != 2 {
		t.Fatalf("escalations = %v, want 2", notifier.escalations)
	}
	if !strings.Contains(notifier.escalations[0], "failed 5 times") {
		t.Errorf("5th-failure escalation subject = %q", notifier.escalations[0])
	}
	if !strings.Contains(notifier.escalations[1], "manual intervention") {
		t.Errorf("exhaustion escalation subject = %q", notifier.escalations[1])
	}
}

func TestExecute_SucceedsOnThirdAttempt(t *testing.T) {
	notifier := &fakeNotifier{}
	var sleeps []time.Duration

	report := newTestExecutor(notifier, &sleeps).Execute(context.Background(), scriptedCall(3), testTarget)

	if !report.Success || report.AttemptsMade != 3 {
		t.Fatalf("report = %+v, want success on attempt 3", report)
	}
	want := []time.Duration{30 * time.Second, 60 * time.Second}
	if len(sleeps) != len(want) || sleeps[0] != want[0] || sleeps[1] != want[1] {
		t.Errorf("waits = %v, want %v", sleeps, want)
	}
	// 2 failure notifications + 1 success.
	if len(notifier.primary) != 3 {
		t.Errorf("primary notifications = %d, want 3", len(notifier.primary))
	}
	if len(notifier.escalations) != 0 {
		t.Errorf("expected zero escalations, got %v", notifier.escalations)
	}
}

func TestExecute_TransportErrorFoldsIntoLastError(t *testing.T) {
	notifier := &fakeNotifier{}
	var sleeps []time.Duration

	calls := 0
	call := func(_ context.Context) (domain.AttemptResult, error) {
		calls++
		if calls == 1 {
			return domain.AttemptResult{}, errors.New("dial tcp: connection refused")
		}
		return domain.AttemptResult{Success: true}, nil
	}

	report := newTestExecutor(notifier, &sleeps).Execute(context.Background(), call, testTarget)

	if !report.Success || report.AttemptsMade != 2 {
		t.Fatalf("report = %+v, want recovery on attempt 2", report)
	}
	if !strings.Contains(notifier.primary[0], "connection refused") {
		t.Errorf("transport error not surfaced in notification: %q", notifier.primary[0])
	}
}

func TestExecute_NotifierFailureDoesNotAbort(t *testing.T) {
	// Escalate always reports failure; the run must still complete all
	// attempts and return a normal verdict.
	notifier := &fakeNotifier{escalateOK: false}
	var sleeps []time.Duration

	report := newTestExecutor(notifier, &sleeps).Execute(context.Background(), scriptedCall(0), testTarget)

	if report.AttemptsMade != 10 {
		t.Errorf("attempts = %d, want 10 despite escalation failures", report.AttemptsMade)
	}
}

func TestExecute_CanceledContextStopsBetweenAttempts(t *testing.T) {
	notifier := &fakeNotifier{}
	ctx, cancel := context.WithCancel(context.Background())

	exec := executor.New(notifier, slog.Default()).WithSleep(func(_ context.Context, _ time.Duration) {
		cancel()
	})

	report := exec.Execute(ctx, scriptedCall(0), testTarget)

	if report.Success {
		t.Fatal("expected failure after cancellation")
	}
	if report.AttemptsMade != 1 {
		t.Errorf("attempts = %d, want 1 before cancellation took effect", report.AttemptsMade)
	}
}
