package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/flatrota/internal/auth"
	"github.com/dukerupert/flatrota/internal/cadence"
	"github.com/dukerupert/flatrota/internal/model"
	"github.com/dukerupert/flatrota/internal/store"
)

type TaskHandler struct {
	tasks  *store.TaskStore
	flats  *store.FlatStore
	logger *slog.Logger
}

func NewTaskHandler(tasks *store.TaskStore, flats *store.FlatStore, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{tasks: tasks, flats: flats, logger: logger}
}

type createTaskRequest struct {
	FlatID       int64   `json:"flat_id"`
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	CadenceUnit  string  `json:"cadence_unit"`
	CadenceValue int     `json:"cadence_value"`
	StartDate    string  `json:"start_date"`
	EndDate      string  `json:"end_date"`
	Roster       []int64 `json:"roster"`
}

// Create stores a task. The caller and every roster entry must belong to the
// flat. Unsupported cadence units are accepted here and rejected at generation.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor := auth.UserID(r.Context())

	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	unit, err := cadence.ParseUnit(req.CadenceUnit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	start, err := parseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "start_date must be YYYY-MM-DD")
		return
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "end_date must be YYYY-MM-DD")
		return
	}

	member, err := h.flats.GetMember(r.Context(), req.FlatID, actor)
	if err != nil {
		h.logger.Error("get flat member", "flat_id", req.FlatID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to check membership")
		return
	}
	if member == nil {
		writeError(w, http.StatusForbidden, "not a member of this flat")
		return
	}
	for _, id := range req.Roster {
		m, err := h.flats.GetMember(r.Context(), req.FlatID, id)
		if err != nil {
			h.logger.Error("get flat member", "flat_id", req.FlatID, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to check membership")
			return
		}
		if m == nil {
			writeError(w, http.StatusUnprocessableEntity, "roster contains a user who is not in the flat")
			return
		}
	}

	task := &model.Task{
		FlatID:       req.FlatID,
		Title:        req.Title,
		Description:  strings.TrimSpace(req.Description),
		CadenceUnit:  unit,
		CadenceValue: req.CadenceValue,
		StartDate:    start,
		EndDate:      end,
		Active:       true,
		Roster:       req.Roster,
		CreatorID:    actor,
	}
	if err := task.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.tasks.Create(r.Context(), task)
	if err != nil {
		h.logger.Error("create task", "flat_id", req.FlatID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create task")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	task, err := h.tasks.GetTask(r.Context(), id)
	if err != nil {
		h.logger.Error("get task", "task_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get task")
		return
	}
	if task == nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	member, err := h.flats.GetMember(r.Context(), task.FlatID, auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("get flat member", "flat_id", task.FlatID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to check membership")
		return
	}
	if member == nil {
		writeError(w, http.StatusForbidden, "not allowed")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// ListByFlat lists a flat's tasks for its members.
func (h *TaskHandler) ListByFlat(w http.ResponseWriter, r *http.Request) {
	flatID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	member, err := h.flats.GetMember(r.Context(), flatID, auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("get flat member", "flat_id", flatID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to check membership")
		return
	}
	if member == nil {
		writeError(w, http.StatusForbidden, "not a member of this flat")
		return
	}

	tasks, err := h.tasks.ListByFlat(r.Context(), flatID)
	if err != nil {
		h.logger.Error("list tasks", "flat_id", flatID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list tasks")
		return
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

// SetActive pauses or resumes a task. Pausing is informational; it does not
// touch periods that were already generated.
func (h *TaskHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	task, ok := h.managedTask(w, r)
	if !ok {
		return
	}
	var req struct {
		Active *bool `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Active == nil {
		writeError(w, http.StatusBadRequest, "active is required")
		return
	}

	updated, err := h.tasks.SetActive(r.Context(), task.ID, *req.Active)
	if err != nil {
		h.logger.Error("set task active", "task_id", task.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update task")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// Delete removes a task together with its roster and periods.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	task, ok := h.managedTask(w, r)
	if !ok {
		return
	}
	if err := h.tasks.Delete(r.Context(), task.ID); err != nil {
		h.logger.Error("delete task", "task_id", task.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete task")
		return
	}
	h.logger.Info("task deleted", "task_id", task.ID, "actor", auth.UserID(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}

// managedTask loads the task named in the URL and checks that the caller
// created it or owns its flat. On failure the response is already written.
func (h *TaskHandler) managedTask(w http.ResponseWriter, r *http.Request) (*model.Task, bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return nil, false
	}
	task, err := h.tasks.GetTask(r.Context(), id)
	if err != nil {
		h.logger.Error("get task", "task_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get task")
		return nil, false
	}
	if task == nil {
		writeError(w, http.StatusNotFound, "not found")
		return nil, false
	}

	actor := auth.UserID(r.Context())
	if task.CreatorID == actor {
		return task, true
	}
	flat, err := h.flats.GetByID(r.Context(), task.FlatID)
	if err != nil {
		h.logger.Error("get flat", "flat_id", task.FlatID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get flat")
		return nil, false
	}
	if flat == nil || flat.OwnerID != actor {
		writeError(w, http.StatusForbidden, "not allowed")
		return nil, false
	}
	return task, true
}
