package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/benvon/chore-tracker/internal/database"
	logpkg "github.com/benvon/chore-tracker/internal/logger"
	"github.com/benvon/chore-tracker/internal/models"
	"github.com/benvon/chore-tracker/internal/recurrence"
	"github.com/benvon/chore-tracker/internal/request"
	"github.com/benvon/chore-tracker/internal/scheduler"
	"github.com/benvon/chore-tracker/internal/telemetry"
	"github.com/benvon/chore-tracker/internal/urgency"
	"github.com/benvon/chore-tracker/internal/validation"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	// DefaultUpcomingDays is the look-ahead window of the upcoming view
	DefaultUpcomingDays = 7
	// MaxUpcomingDays bounds the look-ahead window
	MaxUpcomingDays = 366
	// MaxDescriptionLength is the maximum length of a task description
	MaxDescriptionLength = 2000
)

// TaskAdvancer persists automatic advances of overdue autocomplete tasks
type TaskAdvancer interface {
	AdvanceLoaded(ctx context.Context, tasks []*models.Task, now time.Time) (int, error)
}

// MemberDirectory resolves household members
type MemberDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Member, error)
	List(ctx context.Context) ([]*models.Member, error)
}

// TaskHandler handles task-related requests
type TaskHandler struct {
	tasks       database.TaskStore
	completions database.CompletionStore
	members     MemberDirectory
	advancer    TaskAdvancer
	scheduler   *scheduler.Scheduler
	now         func() time.Time
	logger      *zap.Logger
}

// TaskHandlerOption configures a TaskHandler
type TaskHandlerOption func(*TaskHandler)

// WithTaskScheduler replaces the default scheduler
func WithTaskScheduler(s *scheduler.Scheduler) TaskHandlerOption {
	return func(h *TaskHandler) {
		h.scheduler = s
	}
}

// NewTaskHandler creates a new task handler. now supplies the household-local time.
func NewTaskHandler(
	tasks database.TaskStore,
	completions database.CompletionStore,
	members MemberDirectory,
	advancer TaskAdvancer,
	now func() time.Time,
	logger *zap.Logger,
	opts ...TaskHandlerOption,
) *TaskHandler {
	h := &TaskHandler{
		tasks:       tasks,
		completions: completions,
		members:     members,
		advancer:    advancer,
		scheduler:   scheduler.New(),
		now:         now,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes registers task routes on a router that already has the /tasks prefix
func (h *TaskHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListTasks).Methods(http.MethodGet)
	r.HandleFunc("", h.CreateTask).Methods(http.MethodPost)
	r.HandleFunc("/urgent", h.ListUrgent).Methods(http.MethodGet)
	r.HandleFunc("/upcoming", h.ListUpcoming).Methods(http.MethodGet)
	r.HandleFunc("/{id}", h.GetTask).Methods(http.MethodGet)
	r.HandleFunc("/{id}", h.UpdateTask).Methods(http.MethodPatch)
	r.HandleFunc("/{id}", h.DeleteTask).Methods(http.MethodDelete)
	r.HandleFunc("/{id}/complete", h.CompleteTask).Methods(http.MethodPost)
	r.HandleFunc("/{id}/postpone", h.PostponeTask).Methods(http.MethodPost)
	r.HandleFunc("/{id}/history", h.TaskHistory).Methods(http.MethodGet)
}

// TaskResponse is a task as returned by the API, with its urgency computed on read
type TaskResponse struct {
	models.Task
	CalculatedUrgency models.Urgency `json:"calculated_urgency"`
	AssignedToName    *string        `json:"assigned_to_name,omitempty"`
}

// CreateTaskRequest represents a create task request
type CreateTaskRequest struct {
	Name         string                `json:"name" validate:"required"`
	Description  *string               `json:"description,omitempty" validate:"omitempty,max=2000"`
	Recurrence   models.RecurrenceRule `json:"recurrence" validate:"-"`
	UrgencyLabel *models.Urgency       `json:"urgency_label,omitempty" validate:"omitempty,urgency"`
	NextDue      *string               `json:"next_due,omitempty"`
	AssignedToID *uuid.UUID            `json:"assigned_to_id,omitempty"`
	Autocomplete bool                  `json:"autocomplete"`
}

// UpdateTaskRequest represents a partial task update. Explicit nulls for
// urgency_label and assigned_to_id clear those fields.
type UpdateTaskRequest struct {
	Name         *string                  `json:"name,omitempty"`
	Description  *string                  `json:"description,omitempty" validate:"omitempty,max=2000"`
	Recurrence   *models.RecurrenceRule   `json:"recurrence,omitempty" validate:"-"`
	UrgencyLabel nullable[models.Urgency] `json:"urgency_label" validate:"-"`
	NextDue      *string                  `json:"next_due,omitempty"`
	AssignedToID nullable[uuid.UUID]      `json:"assigned_to_id" validate:"-"`
	Autocomplete *bool                    `json:"autocomplete,omitempty"`
	IsActive     *bool                    `json:"is_active,omitempty"`
}

// CompleteTaskRequest names who completed the task; defaults to the signed-in member
type CompleteTaskRequest struct {
	MemberID *uuid.UUID `json:"member_id,omitempty"`
}

// PostponeTaskRequest carries the new due date
type PostponeTaskRequest struct {
	NextDue string `json:"next_due" validate:"required"`
}

// nullable distinguishes an absent JSON field from an explicit null
type nullable[T any] struct {
	Set   bool
	Value *T
}

func (n *nullable[T]) UnmarshalJSON(data []byte) error {
	n.Set = true
	if string(data) == "null" {
		n.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}

// ListTasks lists tasks, advancing overdue autocomplete tasks first
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	activeOnly, err := queryBool(r, "active_only", true)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	now := h.now()
	tasks, err := h.loadTasks(r.Context(), activeOnly, now)
	if err != nil {
		respondEngineError(w, h.logger, err, "Failed to retrieve tasks")
		return
	}

	h.respondTasks(w, r, http.StatusOK, urgency.ClassifyAll(tasks, recurrence.DateOf(now)))
}

// ListUrgent lists active tasks whose computed urgency is high, most urgent first
func (h *TaskHandler) ListUrgent(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	tasks, err := h.loadTasks(r.Context(), true, now)
	if err != nil {
		respondEngineError(w, h.logger, err, "Failed to retrieve tasks")
		return
	}

	items := urgency.OnlyTier(urgency.ClassifyAll(tasks, recurrence.DateOf(now)), models.UrgencyHigh)
	urgency.Sort(items)
	h.respondTasks(w, r, http.StatusOK, items)
}

// ListUpcoming lists active tasks due between today and today+days
func (h *TaskHandler) ListUpcoming(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days", DefaultUpcomingDays)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	if days > MaxUpcomingDays {
		days = MaxUpcomingDays
	}

	now := h.now()
	tasks, err := h.loadTasks(r.Context(), true, now)
	if err != nil {
		respondEngineError(w, h.logger, err, "Failed to retrieve tasks")
		return
	}

	today := recurrence.DateOf(now)
	h.respondTasks(w, r, http.StatusOK, urgency.DueWithin(urgency.ClassifyAll(tasks, today), today, days))
}

// CreateTask creates a new task
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	if err := validation.Validate.Struct(req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Validation failed: %v", err))
		return
	}

	params := scheduler.CreateParams{
		Name:         req.Name,
		Description:  req.Description,
		Recurrence:   req.Recurrence,
		UrgencyLabel: req.UrgencyLabel,
		AssignedToID: req.AssignedToID,
		Autocomplete: req.Autocomplete,
	}
	if req.NextDue != nil {
		due, err := parseDate(*req.NextDue)
		if err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		params.NextDue = &due
	}

	ctx := r.Context()
	if !h.checkAssignee(ctx, w, req.AssignedToID) {
		return
	}

	task, err := h.scheduler.Create(params, h.now())
	if err != nil {
		respondEngineError(w, h.logger, err, "Failed to create task")
		return
	}
	if err := h.tasks.Create(ctx, &task); err != nil {
		respondEngineError(w, h.logger, err, "Failed to create task")
		return
	}

	h.logger.Info("task_created",
		zap.String("task_id", task.ID.String()),
		zap.String("task_name", logpkg.SanitizeName(task.Name)),
		zap.String("recurrence", string(task.Recurrence.Kind)),
	)
	h.respondTask(w, r, http.StatusCreated, &task)
}

// GetTask retrieves a task by ID
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "task")
	if !ok {
		return
	}

	task, err := h.tasks.GetByID(r.Context(), id)
	if err != nil {
		respondEngineError(w, h.logger, err, "Failed to retrieve task")
		return
	}

	h.respondTask(w, r, http.StatusOK, task)
}

// UpdateTask applies a partial update
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "task")
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	if err := validation.Validate.Struct(req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Validation failed: %v", err))
		return
	}

	params := scheduler.EditParams{
		Name:         req.Name,
		Description:  req.Description,
		Recurrence:   req.Recurrence,
		Autocomplete: req.Autocomplete,
		IsActive:     req.IsActive,
	}
	if req.UrgencyLabel.Set {
		params.UrgencyLabel = req.UrgencyLabel.Value
		params.ClearUrgencyLabel = req.UrgencyLabel.Value == nil
	}
	if req.AssignedToID.Set {
		params.AssignedToID = req.AssignedToID.Value
		params.ClearAssignee = req.AssignedToID.Value == nil
	}
	if req.NextDue != nil {
		due, err := parseDate(*req.NextDue)
		if err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		params.NextDue = &due
	}

	ctx := r.Context()
	if !h.checkAssignee(ctx, w, params.AssignedToID) {
		return
	}

	now := h.now()
	task, err := h.tasks.Mutate(ctx, id, func(current models.Task) (models.Task, *models.TaskCompletion, error) {
		updated, err := h.scheduler.Edit(current, params, now)
		return updated, nil, err
	})
	if err != nil {
		respondEngineError(w, h.logger, err, "Failed to update task")
		return
	}

	h.respondTask(w, r, http.StatusOK, task)
}

// DeleteTask deactivates a task. Completion history is kept.
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "task")
	if !ok {
		return
	}

	if err := h.tasks.Deactivate(r.Context(), id); err != nil {
		respondEngineError(w, h.logger, err, "Failed to delete task")
		return
	}

	h.logger.Info("task_deactivated", zap.String("task_id", id.String()))
	w.WriteHeader(http.StatusNoContent)
}

// CompleteTask records a completion and advances the due date
func (h *TaskHandler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "task")
	if !ok {
		return
	}

	var req CompleteTaskRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}

	ctx := r.Context()
	memberID := req.MemberID
	if memberID == nil {
		if claims := request.MemberFromContext(r); claims != nil {
			memberID = &claims.MemberID
		}
	} else if !h.checkMember(ctx, w, *memberID, "member_id") {
		return
	}

	ctx, span := telemetry.Tracer().Start(ctx, "complete_task")
	defer span.End()
	span.SetAttributes(attribute.String("task.id", id.String()))

	now := h.now()
	task, err := h.tasks.Mutate(ctx, id, func(current models.Task) (models.Task, *models.TaskCompletion, error) {
		updated, completion, err := h.scheduler.Complete(current, memberID, now)
		if err != nil {
			return models.Task{}, nil, err
		}
		return updated, &completion, nil
	})
	if err != nil {
		respondEngineError(w, h.logger, err, "Failed to complete task")
		return
	}

	fields := []zap.Field{
		zap.String("task_id", task.ID.String()),
		zap.String("task_name", logpkg.SanitizeName(task.Name)),
		zap.Timep("next_due", task.NextDue),
		zap.Bool("is_active", task.IsActive),
	}
	if memberID != nil {
		fields = append(fields, zap.String("member_id", memberID.String()))
	}
	h.logger.Info("task_completed", fields...)
	h.respondTask(w, r, http.StatusOK, task)
}

// PostponeTask moves the due date without recording a completion
func (h *TaskHandler) PostponeTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "task")
	if !ok {
		return
	}

	var req PostponeTaskRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	if err := validation.Validate.Struct(req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "next_due is required")
		return
	}
	due, err := parseDate(req.NextDue)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	now := h.now()
	task, err := h.tasks.Mutate(r.Context(), id, func(current models.Task) (models.Task, *models.TaskCompletion, error) {
		updated, err := h.scheduler.Postpone(current, due, now)
		return updated, nil, err
	})
	if err != nil {
		respondEngineError(w, h.logger, err, "Failed to postpone task")
		return
	}

	h.logger.Info("task_postponed",
		zap.String("task_id", task.ID.String()),
		zap.Timep("next_due", task.NextDue),
	)
	h.respondTask(w, r, http.StatusOK, task)
}

// TaskHistory lists the completions of one task, newest first
func (h *TaskHandler) TaskHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "task")
	if !ok {
		return
	}

	ctx := r.Context()
	if _, err := h.tasks.GetByID(ctx, id); err != nil {
		respondEngineError(w, h.logger, err, "Failed to retrieve task")
		return
	}
	entries, err := h.completions.ListByTask(ctx, id)
	if err != nil {
		respondEngineError(w, h.logger, err, "Failed to retrieve history")
		return
	}

	respondJSON(w, http.StatusOK, nonNil(entries))
}

// loadTasks lists tasks and applies pending automatic advances. A task that
// fails to advance is returned as stored; the failure is only logged.
func (h *TaskHandler) loadTasks(ctx context.Context, activeOnly bool, now time.Time) ([]models.Task, error) {
	stored, err := h.tasks.List(ctx, activeOnly)
	if err != nil {
		return nil, err
	}

	if h.advancer != nil {
		ctx, span := telemetry.Tracer().Start(ctx, "auto_advance_on_read")
		advanced, err := h.advancer.AdvanceLoaded(ctx, stored, now)
		span.SetAttributes(attribute.Int("tasks.advanced", advanced))
		span.End()
		if err != nil {
			h.logger.Warn("auto_advance_on_read_failed", zap.Error(err))
		}
	}

	out := make([]models.Task, 0, len(stored))
	for _, t := range stored {
		if activeOnly && !t.IsActive {
			continue
		}
		out = append(out, *t)
	}
	return out, nil
}

func (h *TaskHandler) respondTask(w http.ResponseWriter, r *http.Request, status int, task *models.Task) {
	today := recurrence.DateOf(h.now())
	views := h.toResponses(r.Context(), []urgency.Classified{{Task: *task, Urgency: urgency.ForTask(*task, today)}})
	respondJSON(w, status, views[0])
}

func (h *TaskHandler) respondTasks(w http.ResponseWriter, r *http.Request, status int, items []urgency.Classified) {
	respondJSON(w, status, h.toResponses(r.Context(), items))
}

// toResponses attaches assignee names. Name lookup failures leave names empty.
func (h *TaskHandler) toResponses(ctx context.Context, items []urgency.Classified) []TaskResponse {
	names := make(map[uuid.UUID]string)
	if h.members != nil && hasAssignee(items) {
		members, err := h.members.List(ctx)
		if err != nil {
			h.logger.Warn("failed_to_load_member_names", zap.Error(err))
		}
		for _, m := range members {
			names[m.ID] = m.Name
		}
	}

	out := make([]TaskResponse, 0, len(items))
	for _, c := range items {
		resp := TaskResponse{Task: c.Task, CalculatedUrgency: c.Urgency}
		if c.Task.AssignedToID != nil {
			if name, ok := names[*c.Task.AssignedToID]; ok {
				resp.AssignedToName = &name
			}
		}
		out = append(out, resp)
	}
	return out
}

func hasAssignee(items []urgency.Classified) bool {
	for _, c := range items {
		if c.Task.AssignedToID != nil {
			return true
		}
	}
	return false
}

// checkAssignee verifies that an assigned member exists
func (h *TaskHandler) checkAssignee(ctx context.Context, w http.ResponseWriter, id *uuid.UUID) bool {
	if id == nil {
		return true
	}
	return h.checkMember(ctx, w, *id, "assigned_to_id")
}

func (h *TaskHandler) checkMember(ctx context.Context, w http.ResponseWriter, id uuid.UUID, field string) bool {
	if h.members == nil {
		return true
	}
	_, err := h.members.GetByID(ctx, id)
	switch {
	case err == nil:
		return true
	case errors.Is(err, database.ErrNotFound):
		respondJSONError(w, http.StatusBadRequest, "Bad Request", field+": member does not exist")
	default:
		respondEngineError(w, h.logger, err, "Failed to look up member")
	}
	return false
}

// nonNil makes empty lists encode as [] rather than null
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
