package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dukerupert/flatrota/internal/auth"
	"github.com/dukerupert/flatrota/internal/model"
	"github.com/dukerupert/flatrota/internal/period"
	"github.com/dukerupert/flatrota/internal/store"
	"github.com/dukerupert/flatrota/internal/websocket"
)

type PeriodHandler struct {
	svc    *period.Service
	tasks  *store.TaskStore
	hub    *websocket.Hub
	logger *slog.Logger
}

// NewPeriodHandler wires the period endpoints. hub may be nil, in which case
// no live updates are sent.
func NewPeriodHandler(svc *period.Service, tasks *store.TaskStore, hub *websocket.Hub, logger *slog.Logger) *PeriodHandler {
	return &PeriodHandler{svc: svc, tasks: tasks, hub: hub, logger: logger}
}

type periodView struct {
	ID          int64              `json:"id"`
	TaskID      int64              `json:"task_id"`
	BatchID     string             `json:"batch_id"`
	StartDate   string             `json:"start_date"`
	EndDate     string             `json:"end_date"`
	AssignedTo  int64              `json:"assigned_to"`
	Status      model.PeriodStatus `json:"status"`
	CompletedBy *int64             `json:"completed_by,omitempty"`
	CompletedAt *time.Time         `json:"completed_at,omitempty"`
}

func toView(p model.Period) periodView {
	return periodView{
		ID:          p.ID,
		TaskID:      p.TaskID,
		BatchID:     p.BatchID,
		StartDate:   p.StartDate.Format(dateLayout),
		EndDate:     p.EndDate.Format(dateLayout),
		AssignedTo:  p.AssignedTo,
		Status:      p.Status(),
		CompletedBy: p.CompletedBy,
		CompletedAt: p.CompletedAt,
	}
}

func toViews(periods []model.Period) []periodView {
	out := make([]periodView, 0, len(periods))
	for _, p := range periods {
		out = append(out, toView(p))
	}
	return out
}

func (h *PeriodHandler) Generate(w http.ResponseWriter, r *http.Request) {
	taskID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	periods, err := h.svc.Generate(r.Context(), taskID, auth.UserID(r.Context()))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if len(periods) == 0 {
		writeJSON(w, http.StatusOK, toViews(periods))
		return
	}

	h.broadcast(r.Context(), "generated", taskID, 0, map[string]any{"count": len(periods)})
	writeJSON(w, http.StatusCreated, toViews(periods))
}

func (h *PeriodHandler) List(w http.ResponseWriter, r *http.Request) {
	taskID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	periods, err := h.svc.List(r.Context(), taskID, auth.UserID(r.Context()))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toViews(periods))
}

// Mine lists the caller's periods across every task. ?pending=1 limits the
// list to periods still to be done.
func (h *PeriodHandler) Mine(w http.ResponseWriter, r *http.Request) {
	pendingOnly := false
	if raw := r.URL.Query().Get("pending"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "pending must be a boolean")
			return
		}
		pendingOnly = v
	}

	periods, err := h.svc.ListAssigned(r.Context(), auth.UserID(r.Context()), pendingOnly)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toViews(periods))
}

type batchView struct {
	ID        string    `json:"batch_id"`
	TaskID    int64     `json:"task_id"`
	CreatedBy int64     `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

func (h *PeriodHandler) Batch(w http.ResponseWriter, r *http.Request) {
	taskID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	b, err := h.svc.Batch(r.Context(), taskID, auth.UserID(r.Context()))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, batchView{ID: b.ID, TaskID: b.TaskID, CreatedBy: b.CreatedBy, CreatedAt: b.CreatedAt})
}

func (h *PeriodHandler) Reset(w http.ResponseWriter, r *http.Request) {
	taskID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	removed, err := h.svc.Reset(r.Context(), taskID, auth.UserID(r.Context()))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	h.broadcast(r.Context(), "reset", taskID, 0, map[string]any{"removed": removed})
	writeJSON(w, http.StatusOK, map[string]int64{"removed": removed})
}

func (h *PeriodHandler) Complete(w http.ResponseWriter, r *http.Request) {
	periodID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	p, err := h.svc.Complete(r.Context(), periodID, auth.UserID(r.Context()))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	h.broadcast(r.Context(), "completed", p.TaskID, p.ID, map[string]any{"completed_by": *p.CompletedBy})
	writeJSON(w, http.StatusOK, toView(*p))
}

func (h *PeriodHandler) Reassign(w http.ResponseWriter, r *http.Request) {
	periodID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req struct {
		AssignedTo int64 `json:"assigned_to"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.AssignedTo < 1 {
		writeError(w, http.StatusBadRequest, "assigned_to is required")
		return
	}

	p, err := h.svc.Reassign(r.Context(), periodID, auth.UserID(r.Context()), req.AssignedTo)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	h.broadcast(r.Context(), "reassigned", p.TaskID, p.ID, map[string]any{"assigned_to": p.AssignedTo})
	writeJSON(w, http.StatusOK, toView(*p))
}

// broadcast tells open screens of the task's flat that its periods changed.
// A failed flat lookup only skips the notification.
func (h *PeriodHandler) broadcast(ctx context.Context, action string, taskID, periodID int64, extra map[string]any) {
	if h.hub == nil {
		return
	}
	task, err := h.tasks.GetTask(ctx, taskID)
	if err != nil || task == nil {
		h.logger.Warn("skip period broadcast", "task_id", taskID, "error", err)
		return
	}
	h.hub.Broadcast(websocket.NewPeriodMessage(action, task.FlatID, taskID, periodID, extra))
}
