package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/openhours/doorkeeper/internal/domain"
	"github.com/openhours/doorkeeper/internal/transport/http/handler"
	"github.com/openhours/doorkeeper/internal/ttlock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

// ---- Status ----

type fakeSource struct {
	cfg *domain.ScheduleConfig
	err error
}

func (f *fakeSource) Load() (*domain.ScheduleConfig, error) { return f.cfg, f.err }

func statusEngine(source *fakeSource) *gin.Engine {
	h := handler.NewStatusHandler(source, testLogger())
	r := gin.New()
	r.GET("/status", h.Get)
	return r
}

func TestStatus_ReturnsSchedule(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	statusEngine(&fakeSource{cfg: domain.DefaultScheduleConfig()}).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp struct {
		Timezone        string `json:"timezone"`
		ScheduleEnabled bool   `json:"schedule_enabled"`
		Days            map[string]struct {
			OpenTime *string `json:"open_time"`
		} `json:"days"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Timezone != domain.DefaultTimezone {
		t.Errorf("timezone = %q, want %q", resp.Timezone, domain.DefaultTimezone)
	}
	if !resp.ScheduleEnabled {
		t.Error("schedule_enabled = false, want true")
	}
	mon := resp.Days["mon"]
	if mon.OpenTime == nil || *mon.OpenTime != "09:00" {
		t.Errorf("mon open_time = %v, want 09:00", mon.OpenTime)
	}
	if sun := resp.Days["sun"]; sun.OpenTime != nil {
		t.Errorf("sun open_time = %v, want null", sun.OpenTime)
	}
}

func TestStatus_LoadError_Returns500(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	statusEngine(&fakeSource{err: errors.New("disk gone")}).ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
}

// ---- Actions ----

type fakeActuator struct {
	authErr error
	res     ttlock.Result
	callErr error

	unlocks int
	locks   int
}

func (f *fakeActuator) Authenticate(context.Context) (string, error) {
	if f.authErr != nil {
		return "", f.authErr
	}
	return "token", nil
}

func (f *fakeActuator) Unlock(context.Context, string, int64) (ttlock.Result, error) {
	f.unlocks++
	return f.res, f.callErr
}

func (f *fakeActuator) Lock(context.Context, string, int64) (ttlock.Result, error) {
	f.locks++
	return f.res, f.callErr
}

func actionEngine(actuator *fakeActuator) *gin.Engine {
	h := handler.NewActionHandler(actuator, 4242, testLogger())
	r := gin.New()
	r.POST("/actions/unlock", h.Unlock)
	r.POST("/actions/lock", h.Lock)
	return r
}

func TestUnlock_Success(t *testing.T) {
	actuator := &fakeActuator{}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/actions/unlock", nil)
	actionEngine(actuator).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if actuator.unlocks != 1 {
		t.Errorf("unlocks = %d, want 1", actuator.unlocks)
	}

	var resp struct {
		LockID int64  `json:"lock_id"`
		Action string `json:"action"`
		Result string `json:"result"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.LockID != 4242 || resp.Action != "unlock" || resp.Result != "opened" {
		t.Errorf("response = %+v", resp)
	}
}

func TestLock_VendorError_Returns502(t *testing.T) {
	actuator := &fakeActuator{res: ttlock.Result{ErrCode: -3037, ErrMsg: "lock is busy"}}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/actions/lock", nil)
	actionEngine(actuator).ServeHTTP(w, req)

	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", w.Code)
	}
	if actuator.locks != 1 {
		t.Errorf("locks = %d, want 1", actuator.locks)
	}
}

func TestUnlock_AuthFailure_Returns502(t *testing.T) {
	actuator := &fakeActuator{authErr: errors.New("bad credentials")}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/actions/unlock", nil)
	actionEngine(actuator).ServeHTTP(w, req)

	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", w.Code)
	}
	if actuator.unlocks != 0 {
		t.Errorf("unlocks = %d, want 0", actuator.unlocks)
	}
}
