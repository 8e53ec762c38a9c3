package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/billminder/billminder/internal/database"
	"github.com/billminder/billminder/internal/localstore"
	"github.com/billminder/billminder/internal/middleware"
	"github.com/billminder/billminder/internal/models"
	"github.com/billminder/billminder/internal/queue"
	"github.com/billminder/billminder/internal/recurrence"
	"github.com/billminder/billminder/internal/reminders"
	"github.com/billminder/billminder/internal/request"
	"github.com/billminder/billminder/internal/validation"
)

const (
	// MaxTitleLength is the maximum length for a task title
	MaxTitleLength = 500
	// MaxSubtitleLength is the maximum length for a task subtitle
	MaxSubtitleLength = 1000
)

// TaskHandler handles task-related requests
type TaskHandler struct {
	tasks     database.TaskRepositoryInterface
	local     *localstore.Store
	engine    *recurrence.Engine
	scheduler *reminders.Scheduler
	jobs      queue.JobQueue
	log       *zap.Logger
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(
	tasks database.TaskRepositoryInterface,
	local *localstore.Store,
	engine *recurrence.Engine,
	scheduler *reminders.Scheduler,
	jobs queue.JobQueue,
	log *zap.Logger,
) *TaskHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &TaskHandler{
		tasks:     tasks,
		local:     local,
		engine:    engine,
		scheduler: scheduler,
		jobs:      jobs,
		log:       log,
	}
}

// RegisterRoutes registers task routes on the given router
// The router should already have the /tasks prefix
func (h *TaskHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListTasks).Methods("GET")
	r.HandleFunc("", h.CreateTask).Methods("POST")
	r.HandleFunc("/{id}", h.GetTask).Methods("GET")
	r.HandleFunc("/{id}", h.UpdateTask).Methods("PATCH")
	r.HandleFunc("/{id}", h.DeleteTask).Methods("DELETE")
	r.HandleFunc("/{id}/complete", h.CompleteTask).Methods("POST")
	r.HandleFunc("/{id}/snooze", h.SnoozeTask).Methods("POST")
}

// CreateTaskRequest represents a create task request
type CreateTaskRequest struct {
	Title             string   `json:"title" validate:"required,min=1,max=500"`
	Subtitle          string   `json:"subtitle,omitempty" validate:"max=1000"`
	Category          string   `json:"category" validate:"omitempty,category"`
	Type              string   `json:"type" validate:"required,task_type"`
	DueDate           string   `json:"due_date" validate:"required,date_key"`
	Recurrence        string   `json:"recurrence" validate:"omitempty,recurrence"`
	RecurrenceEndDate string   `json:"recurrence_end_date,omitempty" validate:"omitempty,date_key"`
	Amount            *float64 `json:"amount,omitempty" validate:"omitempty,gte=0"`
	Currency          string   `json:"currency,omitempty" validate:"omitempty,len=3"`
}

// UpdateTaskRequest represents an update task request
type UpdateTaskRequest struct {
	Title             *string            `json:"title,omitempty" validate:"omitempty,min=1,max=500"`
	Subtitle          *string            `json:"subtitle,omitempty" validate:"omitempty,max=1000"`
	Category          *string            `json:"category,omitempty" validate:"omitempty,category"`
	DueDate           *string            `json:"due_date,omitempty" validate:"omitempty,date_key"`
	Recurrence        *string            `json:"recurrence,omitempty" validate:"omitempty,recurrence"`
	RecurrenceEndDate *string            `json:"recurrence_end_date,omitempty" validate:"omitempty,date_key"`
	Status            *models.TaskStatus `json:"status,omitempty"`
	Amount            *float64           `json:"amount,omitempty" validate:"omitempty,gte=0"`
	Currency          *string            `json:"currency,omitempty" validate:"omitempty,len=3"`
	IsPaid            *bool              `json:"is_paid,omitempty"`
}

// CompleteTaskResponse carries the completed row and the successor, if the
// series continues.
type CompleteTaskResponse struct {
	Completed *models.Task `json:"completed"`
	Next      *models.Task `json:"next,omitempty"`
}

// ListTasks lists tasks for the authenticated user, optionally filtered by
// type and status.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var taskType *models.TaskType
	if tt := r.URL.Query().Get("type"); tt != "" {
		switch models.TaskType(tt) {
		case models.TaskTypeBill, models.TaskTypeChecklist, models.TaskTypeExpense:
			t := models.TaskType(tt)
			taskType = &t
		default:
			respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("invalid type: %s", tt))
			return
		}
	}

	var status *models.TaskStatus
	if s := r.URL.Query().Get("status"); s != "" {
		switch models.TaskStatus(s) {
		case models.TaskStatusPending, models.TaskStatusCompleted, models.TaskStatusSnoozed, models.TaskStatusOverdue:
			st := models.TaskStatus(s)
			status = &st
		default:
			respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("invalid status: %s", s))
			return
		}
	}

	tasks, err := h.tasks.GetByUserID(r.Context(), user.ID, taskType, status)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve tasks")
		return
	}
	if tasks == nil {
		tasks = []*models.Task{}
	}

	respondJSON(w, http.StatusOK, tasks)
}

// CreateTask creates a new task
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if maxBytesErr, ok := err.(*http.MaxBytesError); ok {
			respondJSONError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large", fmt.Sprintf("Request body exceeds maximum size of %d bytes", maxBytesErr.Limit))
			return
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}

	if err := validation.Validate.Struct(req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			for _, fieldError := range validationErrors {
				respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Validation failed: %s", fieldError.Error()))
				return
			}
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Validation failed")
		return
	}

	req.Title = validation.SanitizeText(req.Title)
	if req.Title == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Title is required and cannot be empty after sanitization")
		return
	}
	req.Subtitle = validation.SanitizeText(req.Subtitle)

	category := models.Category(req.Category)
	if req.Category == "" {
		category = models.CategoryOther
	}
	rec := models.Recurrence(req.Recurrence)
	if req.Recurrence == "" {
		rec = models.RecurrenceOnce
	}

	ctx := r.Context()
	task := &models.Task{
		ID:                uuid.New(),
		UserID:            user.ID,
		Title:             req.Title,
		Subtitle:          req.Subtitle,
		Category:          category,
		Type:              models.TaskType(req.Type),
		DueDate:           req.DueDate,
		Recurrence:        rec,
		RecurrenceEndDate: req.RecurrenceEndDate,
		Status:            models.TaskStatusPending,
		Amount:            req.Amount,
		Currency:          req.Currency,
	}

	if err := h.tasks.Create(ctx, task); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create task")
		return
	}

	// Uncategorized tasks get a background category suggestion. Best
	// effort; the task is already saved.
	if task.Category == models.CategoryOther && h.jobs != nil {
		job := queue.NewJob(queue.JobTypeCategorySuggestion, user.ID, &task.ID)
		if err := h.jobs.Enqueue(ctx, job); err != nil {
			h.log.Warn("category_suggestion_enqueue_failed",
				zap.String("task_id", task.ID.String()),
				zap.Error(err),
			)
		}
	}

	h.rescheduleReminders(r, user.ID)

	respondJSON(w, http.StatusCreated, task)
}

// GetTask retrieves a task by ID
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	task, ok := h.ownedTask(w, r, user.ID)
	if !ok {
		return
	}

	respondJSON(w, http.StatusOK, task)
}

// UpdateTask updates an existing task
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	task, ok := h.ownedTask(w, r, user.ID)
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}

	if err := validation.Validate.Struct(req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			for _, fieldError := range validationErrors {
				respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Validation failed: %s", fieldError.Error()))
				return
			}
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Validation failed")
		return
	}

	if req.Status != nil {
		switch *req.Status {
		case models.TaskStatusPending, models.TaskStatusCompleted, models.TaskStatusSnoozed, models.TaskStatusOverdue:
		default:
			respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("invalid status: %s", *req.Status))
			return
		}
	}

	if req.Title != nil {
		title := validation.SanitizeText(*req.Title)
		if title == "" {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Title cannot be empty")
			return
		}
		task.Title = title
	}
	if req.Subtitle != nil {
		task.Subtitle = validation.SanitizeText(*req.Subtitle)
	}
	if req.Category != nil {
		task.Category = models.Category(*req.Category)
	}
	if req.DueDate != nil {
		task.DueDate = *req.DueDate
	}
	if req.Recurrence != nil {
		task.Recurrence = models.Recurrence(*req.Recurrence)
	}
	if req.RecurrenceEndDate != nil {
		task.RecurrenceEndDate = *req.RecurrenceEndDate
	}
	if req.Status != nil {
		task.Status = *req.Status
	}
	if req.Amount != nil {
		task.Amount = req.Amount
	}
	if req.Currency != nil {
		task.Currency = *req.Currency
	}
	if req.IsPaid != nil {
		task.IsPaid = *req.IsPaid
	}

	if err := h.tasks.Update(r.Context(), task); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update task")
		return
	}

	h.rescheduleReminders(r, user.ID)

	respondJSON(w, http.StatusOK, task)
}

// DeleteTask deletes a task
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	task, ok := h.ownedTask(w, r, user.ID)
	if !ok {
		return
	}

	if err := h.tasks.Delete(r.Context(), task.ID); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to delete task")
		return
	}

	h.rescheduleReminders(r, user.ID)

	respondJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

// CompleteTask completes a task and, for recurring series, creates the next
// occurrence.
func (h *TaskHandler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	task, ok := h.ownedTask(w, r, user.ID)
	if !ok {
		return
	}

	if task.Status == models.TaskStatusCompleted {
		respondJSONError(w, http.StatusConflict, "Conflict", "Task is already completed")
		return
	}

	ctx := r.Context()
	existing, err := h.tasks.GetByUserID(ctx, user.ID, nil, nil)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to load tasks")
		return
	}

	result, err := h.engine.CompleteAndAdvance(task, existing)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to advance recurrence")
		return
	}

	if err := h.tasks.Update(ctx, result.Completed); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to save completed task")
		return
	}
	if result.Next != nil {
		if err := h.tasks.Create(ctx, result.Next); err != nil {
			respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create next occurrence")
			return
		}
	}

	h.rescheduleReminders(r, user.ID)

	respondJSON(w, http.StatusOK, CompleteTaskResponse{
		Completed: result.Completed,
		Next:      result.Next,
	})
}

// SnoozeTaskRequest optionally carries a new due date for the snoozed task.
type SnoozeTaskRequest struct {
	Until string `json:"until,omitempty" validate:"omitempty,date_key"`
}

// SnoozeTask marks a task snoozed, optionally pushing its due date out.
func (h *TaskHandler) SnoozeTask(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	task, ok := h.ownedTask(w, r, user.ID)
	if !ok {
		return
	}

	if task.Status == models.TaskStatusCompleted {
		respondJSONError(w, http.StatusConflict, "Conflict", "Completed tasks cannot be snoozed")
		return
	}

	var req SnoozeTaskRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
			return
		}
		if err := validation.Validate.Struct(req); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Validation failed")
			return
		}
	}

	task.Status = models.TaskStatusSnoozed
	if req.Until != "" {
		task.DueDate = req.Until
	}

	if err := h.tasks.Update(r.Context(), task); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to snooze task")
		return
	}

	h.rescheduleReminders(r, user.ID)

	respondJSON(w, http.StatusOK, task)
}

// ownedTask loads the task from the path and verifies ownership, writing
// the error response itself when anything is off.
func (h *TaskHandler) ownedTask(w http.ResponseWriter, r *http.Request, userID uuid.UUID) (*models.Task, bool) {
	vars := mux.Vars(r)
	id, err := uuid.Parse(vars["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid task ID")
		return nil, false
	}

	task, err := h.tasks.GetByID(r.Context(), id)
	if err != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Task not found")
		return nil, false
	}
	if task.UserID != userID {
		// Same response as missing so IDs cannot be probed.
		respondJSONError(w, http.StatusNotFound, "Not Found", "Task not found")
		return nil, false
	}
	return task, true
}

// rescheduleReminders rebuilds the user's reminder plan after any task
// mutation. Failures are logged, never surfaced: the mutation itself
// already succeeded.
func (h *TaskHandler) rescheduleReminders(r *http.Request, userID uuid.UUID) {
	if h.scheduler == nil || h.local == nil {
		return
	}
	ctx := r.Context()

	settings := h.local.Settings(ctx, request.DeviceID(r))
	tasks, err := h.tasks.GetByUserID(ctx, userID, nil, nil)
	if err != nil {
		h.log.Warn("reminder_reschedule_skipped",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
		return
	}
	if _, err := h.scheduler.RescheduleAll(ctx, userID, tasks, settings); err != nil {
		h.log.Warn("reminder_reschedule_failed",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
	}
}
