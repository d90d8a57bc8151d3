package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livinlefevreloca/biosync/internal/apperr"
	"github.com/livinlefevreloca/biosync/internal/db"
	"github.com/livinlefevreloca/biosync/internal/logging"
	"github.com/livinlefevreloca/biosync/internal/orchestrator"
	"github.com/livinlefevreloca/biosync/internal/scheduler"
	"github.com/livinlefevreloca/biosync/internal/testutil"
)

type fakeEngine struct {
	mu      sync.Mutex
	result  orchestrator.Result
	err     error
	ctxErrs []error
}

func (f *fakeEngine) TryRunOnce(ctx context.Context, trigger orchestrator.Trigger) (orchestrator.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	return f.result, f.err
}

type fakeHistory struct {
	runs  []db.SyncRun
	err   error
	limit int
}

func (f *fakeHistory) ListSyncRuns(ctx context.Context, limit int) ([]db.SyncRun, error) {
	f.limit = limit
	return f.runs, f.err
}

func (f *fakeHistory) GetSyncRun(ctx context.Context, runID string) (*db.SyncRun, error) {
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.runs {
		if f.runs[i].RunID == runID {
			run := f.runs[i]
			return &run, nil
		}
	}
	return nil, db.ErrNotFound
}

func newTestScheduler(t *testing.T) *scheduler.Scheduler {
	t.Helper()
	s, err := scheduler.New(scheduler.DefaultConfig(), &fakeEngine{}, testutil.NewTestLogger().Logger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s
}

func newTestServer(t *testing.T, deps Deps) http.Handler {
	t.Helper()
	if deps.Engine == nil {
		deps.Engine = &fakeEngine{}
	}
	if deps.Schedule == nil {
		deps.Schedule = newTestScheduler(t)
	}
	return New(deps, Options{MetricsPath: "/metrics"}, testutil.NewTestLogger().Logger()).Handler()
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestRun(t *testing.T) {
	tests := []struct {
		name       string
		engine     *fakeEngine
		wantStatus int
		wantBody   string
	}{
		{
			name:       "synced",
			engine:     &fakeEngine{result: orchestrator.Result{Success: true, Message: "Successfully synced 2 records."}},
			wantStatus: http.StatusOK,
			wantBody:   `{"success":true,"message":"Successfully synced 2 records."}`,
		},
		{
			name:       "failed run still completes",
			engine:     &fakeEngine{result: orchestrator.Result{Success: false, Message: "API Sync failed. Message: Http Error: 500"}},
			wantStatus: http.StatusOK,
			wantBody:   `{"success":false,"message":"API Sync failed. Message: Http Error: 500"}`,
		},
		{
			name: "already running",
			engine: &fakeEngine{
				result: orchestrator.Result{Success: false, Message: orchestrator.MsgAlreadyRunning},
				err:    apperr.ErrRunInProgress,
			},
			wantStatus: http.StatusConflict,
			wantBody:   `{"success":false,"message":"A sync run is already in progress."}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(t, Deps{Engine: tt.engine})

			rec := do(t, h, http.MethodPost, "/api/run", "")

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}

func TestRun_DetachedFromRequestContext(t *testing.T) {
	engine := &fakeEngine{result: orchestrator.Result{Success: true, Message: orchestrator.MsgNoRecords}}
	h := newTestServer(t, Deps{Engine: engine})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/run", nil).WithContext(ctx)
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.Len(t, engine.ctxErrs, 1)
	assert.NoError(t, engine.ctxErrs[0], "a disconnected client must not cancel the run")
}

func TestRun_MethodNotAllowed(t *testing.T) {
	h := newTestServer(t, Deps{})

	rec := do(t, h, http.MethodGet, "/api/run", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestSchedule_StartAndStop(t *testing.T) {
	sched := newTestScheduler(t)
	h := newTestServer(t, Deps{Schedule: sched})

	rec := do(t, h, http.MethodPost, "/api/schedule", `{"action":"start","interval":15}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"status":"running","interval":15}`, rec.Body.String())
	assert.True(t, sched.State().Running)

	rec = do(t, h, http.MethodGet, "/api/schedule/status", "")
	body := decode(t, rec)
	assert.Equal(t, true, body["running"])
	assert.Equal(t, float64(15), body["interval"])
	assert.NotEmpty(t, body["next_run_at"])

	rec = do(t, h, http.MethodPost, "/api/schedule", `{"action":"stop"}`)
	assert.JSONEq(t, `{"success":true,"status":"stopped"}`, rec.Body.String())
	assert.False(t, sched.State().Running)

	rec = do(t, h, http.MethodGet, "/api/schedule/status", "")
	assert.JSONEq(t, `{"running":false,"interval":15}`, rec.Body.String())
}

func TestSchedule_IntervalAsString(t *testing.T) {
	sched := newTestScheduler(t)
	h := newTestServer(t, Deps{Schedule: sched})

	rec := do(t, h, http.MethodPost, "/api/schedule", `{"action":"start","interval":" 30 "}`)

	assert.JSONEq(t, `{"success":true,"status":"running","interval":30}`, rec.Body.String())
	assert.Equal(t, int32(30), sched.State().IntervalMinutes)
}

func TestSchedule_InvalidInterval(t *testing.T) {
	for _, interval := range []string{`0`, `-3`, `"abc"`, `2.5`, `null`, `true`, `99999999999`} {
		t.Run(interval, func(t *testing.T) {
			sched := newTestScheduler(t)
			h := newTestServer(t, Deps{Schedule: sched})

			rec := do(t, h, http.MethodPost, "/api/schedule", `{"action":"start","interval":`+interval+`}`)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.JSONEq(t, `{"success":false,"message":"Invalid interval"}`, rec.Body.String())
			assert.False(t, sched.State().Running)
		})
	}
}

func TestSchedule_MissingInterval(t *testing.T) {
	h := newTestServer(t, Deps{})

	rec := do(t, h, http.MethodPost, "/api/schedule", `{"action":"start"}`)
	assert.JSONEq(t, `{"success":false,"message":"Invalid interval"}`, rec.Body.String())
}

func TestSchedule_UnknownAction(t *testing.T) {
	h := newTestServer(t, Deps{})

	rec := do(t, h, http.MethodPost, "/api/schedule", `{"action":"pause"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"success":false}`, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/api/schedule", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogs(t *testing.T) {
	ring := logging.NewRing(3)
	for _, line := range []string{"one", "two", "three", "four"} {
		_, _ = ring.Write([]byte(line + "\n"))
	}
	h := newTestServer(t, Deps{Logs: ring})

	rec := do(t, h, http.MethodGet, "/api/logs", "")

	assert.JSONEq(t, `{"logs":"two\nthree\nfour\n"}`, rec.Body.String())
}

func TestLogs_NoSource(t *testing.T) {
	h := newTestServer(t, Deps{})

	rec := do(t, h, http.MethodGet, "/api/logs", "")
	assert.JSONEq(t, `{"logs":""}`, rec.Body.String())
}

func TestRuns(t *testing.T) {
	started := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	history := &fakeHistory{runs: []db.SyncRun{{
		RunID:       "b7c1",
		Trigger:     "scheduled",
		StartedAt:   started,
		CompletedAt: started.Add(3 * time.Second),
		Success:     true,
		Message:     "Successfully synced 4 records.",
		Records:     4,
	}}}
	h := newTestServer(t, Deps{History: history})

	rec := do(t, h, http.MethodGet, "/api/runs?limit=5", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, history.limit)
	assert.JSONEq(t, `{"runs":[{
		"run_id":"b7c1",
		"trigger":"scheduled",
		"started_at":"2026-03-02T09:00:00Z",
		"completed_at":"2026-03-02T09:00:03Z",
		"success":true,
		"message":"Successfully synced 4 records.",
		"records":4
	}]}`, rec.Body.String())
}

func TestRuns_DefaultAndInvalidLimit(t *testing.T) {
	history := &fakeHistory{}
	h := newTestServer(t, Deps{History: history})

	rec := do(t, h, http.MethodGet, "/api/runs", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, defaultRunsLimit, history.limit)
	assert.JSONEq(t, `{"runs":[]}`, rec.Body.String())

	for _, limit := range []string{"0", "-1", "abc", "501"} {
		rec = do(t, h, http.MethodGet, "/api/runs?limit="+limit, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, limit)
	}
}

func TestRuns_Errors(t *testing.T) {
	h := newTestServer(t, Deps{})
	rec := do(t, h, http.MethodGet, "/api/runs", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	h = newTestServer(t, Deps{History: &fakeHistory{err: errors.New("database is locked")}})
	rec = do(t, h, http.MethodGet, "/api/runs", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "locked")
}

func TestRunByID(t *testing.T) {
	started := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	history := &fakeHistory{runs: []db.SyncRun{{
		RunID:       "b7c1",
		Trigger:     "manual",
		StartedAt:   started,
		CompletedAt: started.Add(time.Second),
		Success:     false,
		Message:     "API Sync failed. Message: Duplicate batch",
	}}}
	h := newTestServer(t, Deps{History: history})

	rec := do(t, h, http.MethodGet, "/api/runs/b7c1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"run_id":"b7c1",
		"trigger":"manual",
		"started_at":"2026-03-02T09:00:00Z",
		"completed_at":"2026-03-02T09:00:01Z",
		"success":false,
		"message":"API Sync failed. Message: Duplicate batch",
		"records":0
	}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/runs/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, false, decode(t, rec)["success"])
}

func TestRunByID_Errors(t *testing.T) {
	h := newTestServer(t, Deps{})
	rec := do(t, h, http.MethodGet, "/api/runs/b7c1", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	h = newTestServer(t, Deps{History: &fakeHistory{err: errors.New("database is locked")}})
	rec = do(t, h, http.MethodGet, "/api/runs/b7c1", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "locked")
}

func TestHealthAndMetrics(t *testing.T) {
	h := newTestServer(t, Deps{})

	rec := do(t, h, http.MethodGet, "/health", "")
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "biosync_scheduler_running")
}

func TestMetricsDisabled(t *testing.T) {
	deps := Deps{Engine: &fakeEngine{}, Schedule: newTestScheduler(t)}
	h := New(deps, Options{}, testutil.NewTestLogger().Logger()).Handler()

	rec := do(t, h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
