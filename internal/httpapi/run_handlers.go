package httpapi

import (
	"context"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/jobradar/jobradar/internal/scheduler"
	"github.com/jobradar/jobradar/internal/store"
)

const defaultStatusRuns = 10

type RunHandler struct {
	History RunLister
	Runner  Runner
	Ctx     context.Context
}

type statusResponse struct {
	Scheduler *scheduler.Status `json:"scheduler,omitempty"`
	Runs      []store.Run       `json:"runs"`
}

// Status reports the scheduler state and the most recent runs.
// ?limit=N overrides how many runs are listed.
func (h RunHandler) Status(w http.ResponseWriter, r *http.Request) {
	limit := defaultStatusRuns
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			WriteError(w, r, http.StatusBadRequest, "bad_request", "limit must be a positive integer")
			return
		}
		limit = n
	}

	resp := statusResponse{Runs: []store.Run{}}
	if h.Runner != nil {
		st := h.Runner.Status()
		resp.Scheduler = &st
	}
	if h.History != nil {
		runs, err := h.History.ListRuns(r.Context(), limit)
		if err != nil {
			logrus.Errorf("[http] list runs: %v", err)
			WriteError(w, r, http.StatusInternalServerError, "internal_error", "run history unavailable")
			return
		}
		resp.Runs = runs
	}
	WriteJSON(w, http.StatusOK, resp)
}

// Trigger starts a run in the background and returns immediately.
func (h RunHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	if h.Runner == nil {
		WriteError(w, r, http.StatusNotImplemented, "not_configured", "runs cannot be triggered")
		return
	}
	if h.Runner.Status().Running {
		WriteError(w, r, http.StatusConflict, "run_in_progress", "a run is already in progress")
		return
	}

	ctx := h.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	go func() {
		_ = h.Runner.RunNow(ctx)
	}()
	WriteJSON(w, http.StatusAccepted, map[string]any{"ok": true})
}
