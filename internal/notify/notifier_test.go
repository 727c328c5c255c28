package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
)

type fakeChat struct {
	err  error
	sent []string
}

func (f *fakeChat) Send(_ context.Context, text string) error {
	f.sent = append(f.sent, text)
	return f.err
}

type fakeEmail struct {
	err      error
	subjects []string
}

func (f *fakeEmail) Send(_ context.Context, _, subject, _ string) error {
	f.subjects = append(f.subjects, subject)
	return f.err
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPrimarySwallowsChannelFailure(t *testing.T) {
	chat := &fakeChat{err: errors.New("telegram down")}
	n := NewNotifier(chat, &fakeEmail{}, "ops@example.com", discard())

	n.Primary(context.Background(), "hello") // must not panic or block

	if len(chat.sent) != 1 {
		t.Fatalf("sent = %d, want 1", len(chat.sent))
	}
}

func TestPrimaryWithoutChannelIsNoop(t *testing.T) {
	n := NewNotifier(nil, &fakeEmail{}, "ops@example.com", discard())
	n.Primary(context.Background(), "hello")
}

func TestEscalateReportsOutcome(t *testing.T) {
	tests := []struct {
		name    string
		email   *fakeEmail
		emailTo string
		want    bool
	}{
		{"delivered", &fakeEmail{}, "ops@example.com", true},
		{"channel failure", &fakeEmail{err: errors.New("api down")}, "ops@example.com", false},
		{"no recipient", &fakeEmail{}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := NewNotifier(&fakeChat{}, tt.email, tt.emailTo, discard())
			if got := n.Escalate(context.Background(), "subject", "body"); got != tt.want {
				t.Fatalf("Escalate = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLogEmailSenderNeverFails(t *testing.T) {
	s := &LogEmailSender{logger: discard()}
	if err := s.Send(context.Background(), "ops@example.com", "subject", "body"); err != nil {
		t.Fatalf("Send() = %v, want nil", err)
	}
}
