package httpapi

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/livinlefevreloca/biosync/internal/apperr"
	"github.com/livinlefevreloca/biosync/internal/db"
	"github.com/livinlefevreloca/biosync/internal/orchestrator"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 500
)

type scheduleRequest struct {
	Action   string          `json:"action"`
	Interval json.RawMessage `json:"interval"`
}

type scheduleResponse struct {
	Success  bool   `json:"success"`
	Status   string `json:"status,omitempty"`
	Interval int32  `json:"interval,omitempty"`
	Message  string `json:"message,omitempty"`
}

type scheduleStatus struct {
	Running   bool       `json:"running"`
	Interval  int32      `json:"interval"`
	NextRunAt *time.Time `json:"next_run_at,omitempty"`
}

type runRecord struct {
	RunID       string    `json:"run_id"`
	Trigger     string    `json:"trigger"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	Success     bool      `json:"success"`
	Message     string    `json:"message"`
	Records     int       `json:"records"`
}

// handleRun triggers one interactive sync. Completed runs answer 200 with
// their result whether or not they succeeded.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	// The run outlives a disconnected client
	ctx := context.WithoutCancel(r.Context())

	result, err := s.deps.Engine.TryRunOnce(ctx, orchestrator.TriggerManual)
	if err != nil {
		writeJSON(w, apperr.HTTPStatus(err), result)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, scheduleResponse{Success: false, Message: "Invalid request body"})
		return
	}

	switch req.Action {
	case "start":
		interval, err := parseInterval(req.Interval)
		if err == nil {
			err = s.deps.Schedule.Start(interval)
		}
		if err != nil {
			s.logger.Warn("schedule start rejected", "interval", string(req.Interval), "error", err)
			writeJSON(w, http.StatusBadRequest, scheduleResponse{Success: false, Message: "Invalid interval"})
			return
		}
		writeJSON(w, http.StatusOK, scheduleResponse{Success: true, Status: "running", Interval: interval})

	case "stop":
		s.deps.Schedule.Stop()
		writeJSON(w, http.StatusOK, scheduleResponse{Success: true, Status: "stopped"})

	default:
		writeJSON(w, http.StatusBadRequest, scheduleResponse{Success: false})
	}
}

func (s *Server) handleScheduleStatus(w http.ResponseWriter, r *http.Request) {
	state := s.deps.Schedule.State()

	status := scheduleStatus{
		Running:  state.Running,
		Interval: state.IntervalMinutes,
	}
	if !state.NextRunAt.IsZero() {
		next := state.NextRunAt
		status.NextRunAt = &next
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	logs := ""
	if s.deps.Logs != nil {
		logs = s.deps.Logs.String()
	}
	writeJSON(w, http.StatusOK, map[string]string{"logs": logs})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.deps.History == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"success": false, "message": "Run history is disabled"})
		return
	}

	limit := defaultRunsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxRunsLimit {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"success": false,
				"message": fmt.Sprintf("limit must be between 1 and %d", maxRunsLimit),
			})
			return
		}
		limit = n
	}

	runs, err := s.deps.History.ListSyncRuns(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to list run history", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "message": "Failed to read run history"})
		return
	}

	records := make([]runRecord, len(runs))
	for i, run := range runs {
		records[i] = toRunRecord(run)
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": records})
}

func (s *Server) handleRunByID(w http.ResponseWriter, r *http.Request) {
	if s.deps.History == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"success": false, "message": "Run history is disabled"})
		return
	}

	runID := chi.URLParam(r, "runID")
	run, err := s.deps.History.GetSyncRun(r.Context(), runID)
	if db.IsNotFound(err) {
		writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "message": "Run not found"})
		return
	}
	if err != nil {
		s.logger.Error("failed to read run", "run_id", runID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "message": "Failed to read run history"})
		return
	}
	writeJSON(w, http.StatusOK, toRunRecord(*run))
}

func toRunRecord(run db.SyncRun) runRecord {
	return runRecord{
		RunID:       run.RunID,
		Trigger:     run.Trigger,
		StartedAt:   run.StartedAt,
		CompletedAt: run.CompletedAt,
		Success:     run.Success,
		Message:     run.Message,
		Records:     run.Records,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// parseInterval accepts a JSON integer or a numeric string
func parseInterval(raw json.RawMessage) (int32, error) {
	var value any
	if len(raw) == 0 {
		return 0, fmt.Errorf("%w: interval is required", apperr.ErrConfig)
	}
	if err := json.Unmarshal(raw, &value); err != nil {
		return 0, fmt.Errorf("%w: %w", apperr.ErrConfig, err)
	}

	var n int64
	switch v := value.(type) {
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("%w: interval must be a whole number, got %v", apperr.ErrConfig, v)
		}
		if v > math.MaxInt32 || v < math.MinInt32 {
			return 0, fmt.Errorf("%w: interval out of range", apperr.ErrConfig)
		}
		n = int64(v)
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 32)
		if err != nil {
			return 0, fmt.Errorf("%w: interval %q is not an integer", apperr.ErrConfig, v)
		}
		n = parsed
	default:
		return 0, fmt.Errorf("%w: interval must be a number", apperr.ErrConfig)
	}

	if n <= 0 {
		return 0, fmt.Errorf("%w: interval must be positive, got %d", apperr.ErrConfig, n)
	}
	return int32(n), nil
}

// writeJSON sends a JSON response with proper headers
func writeJSON(w http.ResponseWriter, status int, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		http.Error(w, `{"success":false,"message":"internal error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
