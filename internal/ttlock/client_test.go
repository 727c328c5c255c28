package ttlock_test

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openhours/doorkeeper/internal/domain"
	"github.com/openhours/doorkeeper/internal/ttlock"
)

var testCreds = ttlock.Credentials{
	ClientID:     "client-1",
	ClientSecret: "secret-1",
	Username:     "owner@example.com",
	Password:     "hunter2",
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *ttlock.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return ttlock.NewClient(testCreds, slog.Default()).WithBaseURL(srv.URL)
}

func TestAuthenticate_SendsMD5Password(t *testing.T) {
	var gotPassword, gotPath string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		gotPath = r.URL.Path
		gotPassword = r.PostForm.Get("password")
		_, _ = w.Write([]byte(`{"access_token":"tok-123"}`))
	})

	token, err := client.Authenticate(context.Background())
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if token != "tok-123" {
		t.Errorf("token = %q, want tok-123", token)
	}
	if gotPath != "/oauth2/token" {
		t.Errorf("path = %q, want /oauth2/token", gotPath)
	}

	sum := md5.Sum([]byte(testCreds.Password))
	if want := hex.EncodeToString(sum[:]); gotPassword != want {
		t.Errorf("password field = %q, want MD5 digest %q", gotPassword, want)
	}
}

func TestAuthenticate_NoToken(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"errcode":10003,"errmsg":"invalid client"}`))
	})

	_, err := client.Authenticate(context.Background())
	if !errors.Is(err, domain.ErrNoAccessToken) {
		t.Fatalf("expected ErrNoAccessToken, got %v", err)
	}
}

func TestUnlock(t *testing.T) {
	tests := []struct {
		name     string
		response string
		wantOK   bool
		wantCode int
	}{
		{"success", `{"errcode":0,"errmsg":"none"}`, true, 0},
		{"lock busy", `{"errcode":-3037,"errmsg":"the lock is busy"}`, false, -3037},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotLockID string
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_ = r.ParseForm()
				gotLockID = r.PostForm.Get("lockId")
				_, _ = w.Write([]byte(tt.response))
			})

			res, err := client.Unlock(context.Background(), "tok", 42)
			if err != nil {
				t.Fatalf("unlock: %v", err)
			}
			if res.OK() != tt.wantOK || res.ErrCode != tt.wantCode {
				t.Errorf("result = %+v, want ok=%v code=%d", res, tt.wantOK, tt.wantCode)
			}
			if gotLockID != "42" {
				t.Errorf("lockId field = %q, want 42", gotLockID)
			}
		})
	}
}

func TestListLocks(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"list":[{"lockId":7,"lockName":"S31","lockAlias":"front door"}]}`))
	})

	locks, err := client.ListLocks(context.Background(), "tok")
	if err != nil {
		t.Fatalf("list locks: %v", err)
	}
	if len(locks) != 1 || locks[0].ID != 7 || locks[0].Alias != "front door" {
		t.Errorf("locks = %+v", locks)
	}
}

func TestResolveLockID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"list":[{"lockId":7,"lockName":"S31"}]}`))
	})

	// Configured id wins without any network call.
	id, err := client.ResolveLockID(context.Background(), "tok", 99)
	if err != nil || id != 99 {
		t.Fatalf("configured id: got %d, %v", id, err)
	}

	id, err = client.ResolveLockID(context.Background(), "tok", 0)
	if err != nil || id != 7 {
		t.Fatalf("listed id: got %d, %v", id, err)
	}
}

func TestResolveLockID_NoLocks(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"list":[]}`))
	})

	_, err := client.ResolveLockID(context.Background(), "tok", 0)
	if !errors.Is(err, domain.ErrLockNotFound) {
		t.Fatalf("expected ErrLockNotFound, got %v", err)
	}
}

func TestQueryStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"errcode":0,"lockStatus":2}`))
	})

	status, err := client.QueryStatus(context.Background(), "tok", 7)
	if err != nil {
		t.Fatalf("query status: %v", err)
	}
	if status != domain.LockStatusUnlocked {
		t.Errorf("status = %d, want %d", status, domain.LockStatusUnlocked)
	}
}
