package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/billminder/billminder/internal/models"
	"github.com/billminder/billminder/internal/recurrence"
	"github.com/billminder/billminder/internal/request"
)

// fakeTaskRepo is an in-memory TaskRepositoryInterface for handler tests.
type fakeTaskRepo struct {
	tasks   map[uuid.UUID]*models.Task
	listErr error
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{tasks: make(map[uuid.UUID]*models.Task)}
}

func (f *fakeTaskRepo) Create(ctx context.Context, task *models.Task) error {
	task.CreatedAt = time.Now()
	task.UpdatedAt = task.CreatedAt
	f.tasks[task.ID] = task
	return nil
}

func (f *fakeTaskRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	t, ok := f.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task not found")
	}
	copied := *t
	return &copied, nil
}

func (f *fakeTaskRepo) GetByUserID(ctx context.Context, userID uuid.UUID, taskType *models.TaskType, status *models.TaskStatus) ([]*models.Task, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*models.Task
	for _, t := range f.tasks {
		if t.UserID != userID {
			continue
		}
		if taskType != nil && t.Type != *taskType {
			continue
		}
		if status != nil && t.Status != *status {
			continue
		}
		copied := *t
		out = append(out, &copied)
	}
	return out, nil
}

func (f *fakeTaskRepo) Upsert(ctx context.Context, tasks []*models.Task) error {
	for _, t := range tasks {
		copied := *t
		f.tasks[t.ID] = &copied
	}
	return nil
}

func (f *fakeTaskRepo) Update(ctx context.Context, task *models.Task) error {
	if _, ok := f.tasks[task.ID]; !ok {
		return fmt.Errorf("task not found")
	}
	task.UpdatedAt = time.Now()
	copied := *task
	f.tasks[task.ID] = &copied
	return nil
}

func (f *fakeTaskRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := f.tasks[id]; !ok {
		return fmt.Errorf("task not found")
	}
	delete(f.tasks, id)
	return nil
}

func newTaskRouter(repo *fakeTaskRepo) *mux.Router {
	h := NewTaskHandler(repo, nil, recurrence.NewEngine(time.UTC), nil, nil, nil)
	r := mux.NewRouter()
	h.RegisterRoutes(r.PathPrefix("/api/v1/tasks").Subrouter())
	return r
}

func authedRequest(method, target string, body []byte, user *models.User) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if user != nil {
		req = req.WithContext(request.WithUser(req.Context(), user))
	}
	return req
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("failed to decode envelope: %v", err)
	}
	if !envelope.Success {
		t.Fatalf("expected success=true, body: %s", rec.Body.String())
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		t.Fatalf("failed to decode data: %v", err)
	}
}

func TestCreateTask(t *testing.T) {
	t.Parallel()

	user := &models.User{ID: uuid.New()}

	tests := []struct {
		name       string
		body       string
		wantStatus int
		check      func(*testing.T, *models.Task)
	}{
		{
			name:       "bill with recurrence",
			body:       `{"title":"Rent","type":"bill","due_date":"2026-09-01","recurrence":"monthly","category":"housing"}`,
			wantStatus: http.StatusCreated,
			check: func(t *testing.T, task *models.Task) {
				if task.Status != models.TaskStatusPending {
					t.Errorf("expected pending status, got %s", task.Status)
				}
				if task.Recurrence != models.RecurrenceMonthly {
					t.Errorf("expected monthly recurrence, got %s", task.Recurrence)
				}
			},
		},
		{
			name:       "defaults applied",
			body:       `{"title":"Dentist","type":"checklist","due_date":"2026-09-10"}`,
			wantStatus: http.StatusCreated,
			check: func(t *testing.T, task *models.Task) {
				if task.Category != models.CategoryOther {
					t.Errorf("expected category other, got %s", task.Category)
				}
				if task.Recurrence != models.RecurrenceOnce {
					t.Errorf("expected recurrence once, got %s", task.Recurrence)
				}
			},
		},
		{
			name:       "missing title",
			body:       `{"type":"bill","due_date":"2026-09-01"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "invalid due date",
			body:       `{"title":"Rent","type":"bill","due_date":"September 1st"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "invalid type",
			body:       `{"title":"Rent","type":"invoice","due_date":"2026-09-01"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "invalid category",
			body:       `{"title":"Rent","type":"bill","due_date":"2026-09-01","category":"misc"}`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			router := newTaskRouter(newFakeTaskRepo())
			req := authedRequest(http.MethodPost, "/api/v1/tasks", []byte(tt.body), user)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			if tt.check != nil {
				var task models.Task
				decodeData(t, rec, &task)
				tt.check(t, &task)
			}
		})
	}
}

func TestCreateTaskRequiresAuth(t *testing.T) {
	t.Parallel()

	router := newTaskRouter(newFakeTaskRepo())
	req := authedRequest(http.MethodPost, "/api/v1/tasks", []byte(`{"title":"x","type":"bill","due_date":"2026-09-01"}`), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestGetTaskHidesForeignTasks(t *testing.T) {
	t.Parallel()

	repo := newFakeTaskRepo()
	owner := uuid.New()
	task := &models.Task{
		ID:      uuid.New(),
		UserID:  owner,
		Title:   "Electric bill",
		Type:    models.TaskTypeBill,
		DueDate: "2026-09-05",
		Status:  models.TaskStatusPending,
	}
	repo.tasks[task.ID] = task

	router := newTaskRouter(repo)
	stranger := &models.User{ID: uuid.New()}
	req := authedRequest(http.MethodGet, "/api/v1/tasks/"+task.ID.String(), nil, stranger)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for foreign task, got %d", rec.Code)
	}
}

func TestCompleteTaskAdvancesRecurrence(t *testing.T) {
	t.Parallel()

	repo := newFakeTaskRepo()
	user := &models.User{ID: uuid.New()}
	task := &models.Task{
		ID:         uuid.New(),
		UserID:     user.ID,
		Title:      "Rent",
		Type:       models.TaskTypeBill,
		Category:   models.CategoryHousing,
		DueDate:    "2026-09-01",
		Recurrence: models.RecurrenceMonthly,
		Status:     models.TaskStatusPending,
	}
	repo.tasks[task.ID] = task

	router := newTaskRouter(repo)
	req := authedRequest(http.MethodPost, "/api/v1/tasks/"+task.ID.String()+"/complete", nil, user)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp CompleteTaskResponse
	decodeData(t, rec, &resp)

	if resp.Completed.Status != models.TaskStatusCompleted {
		t.Errorf("expected completed status, got %s", resp.Completed.Status)
	}
	if resp.Next == nil {
		t.Fatal("expected a next occurrence for a monthly task")
	}
	if resp.Next.DueDate != "2026-10-01" {
		t.Errorf("expected next due date 2026-10-01, got %s", resp.Next.DueDate)
	}
	if resp.Next.ID == task.ID {
		t.Error("next occurrence must have a new ID")
	}

	// Both rows must be in the store.
	if len(repo.tasks) != 2 {
		t.Errorf("expected 2 stored tasks, got %d", len(repo.tasks))
	}
}

func TestCompleteTaskOnceHasNoSuccessor(t *testing.T) {
	t.Parallel()

	repo := newFakeTaskRepo()
	user := &models.User{ID: uuid.New()}
	task := &models.Task{
		ID:         uuid.New(),
		UserID:     user.ID,
		Title:      "Return library book",
		Type:       models.TaskTypeChecklist,
		DueDate:    "2026-09-03",
		Recurrence: models.RecurrenceOnce,
		Status:     models.TaskStatusPending,
	}
	repo.tasks[task.ID] = task

	router := newTaskRouter(repo)
	req := authedRequest(http.MethodPost, "/api/v1/tasks/"+task.ID.String()+"/complete", nil, user)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp CompleteTaskResponse
	decodeData(t, rec, &resp)
	if resp.Next != nil {
		t.Errorf("expected no successor for a one-time task, got %+v", resp.Next)
	}
	if len(repo.tasks) != 1 {
		t.Errorf("expected 1 stored task, got %d", len(repo.tasks))
	}
}

func TestCompleteTaskAlreadyCompleted(t *testing.T) {
	t.Parallel()

	repo := newFakeTaskRepo()
	user := &models.User{ID: uuid.New()}
	task := &models.Task{
		ID:      uuid.New(),
		UserID:  user.ID,
		Title:   "Rent",
		Type:    models.TaskTypeBill,
		DueDate: "2026-09-01",
		Status:  models.TaskStatusCompleted,
	}
	repo.tasks[task.ID] = task

	router := newTaskRouter(repo)
	req := authedRequest(http.MethodPost, "/api/v1/tasks/"+task.ID.String()+"/complete", nil, user)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", rec.Code)
	}
}

func TestSnoozeTask(t *testing.T) {
	t.Parallel()

	repo := newFakeTaskRepo()
	user := &models.User{ID: uuid.New()}
	task := &models.Task{
		ID:      uuid.New(),
		UserID:  user.ID,
		Title:   "Water bill",
		Type:    models.TaskTypeBill,
		DueDate: "2026-09-05",
		Status:  models.TaskStatusPending,
	}
	repo.tasks[task.ID] = task

	router := newTaskRouter(repo)
	req := authedRequest(http.MethodPost, "/api/v1/tasks/"+task.ID.String()+"/snooze", []byte(`{"until":"2026-09-12"}`), user)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var snoozed models.Task
	decodeData(t, rec, &snoozed)
	if snoozed.Status != models.TaskStatusSnoozed {
		t.Errorf("expected snoozed status, got %s", snoozed.Status)
	}
	if snoozed.DueDate != "2026-09-12" {
		t.Errorf("expected due date 2026-09-12, got %s", snoozed.DueDate)
	}
}

func TestUpdateTaskPartialFields(t *testing.T) {
	t.Parallel()

	repo := newFakeTaskRepo()
	user := &models.User{ID: uuid.New()}
	amount := 120.50
	task := &models.Task{
		ID:       uuid.New(),
		UserID:   user.ID,
		Title:    "Internet",
		Type:     models.TaskTypeBill,
		Category: models.CategoryUtility,
		DueDate:  "2026-09-20",
		Status:   models.TaskStatusPending,
		Amount:   &amount,
	}
	repo.tasks[task.ID] = task

	router := newTaskRouter(repo)
	req := authedRequest(http.MethodPatch, "/api/v1/tasks/"+task.ID.String(), []byte(`{"is_paid":true}`), user)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var updated models.Task
	decodeData(t, rec, &updated)
	if !updated.IsPaid {
		t.Error("expected is_paid to be true")
	}
	if updated.Title != "Internet" {
		t.Errorf("title should be untouched, got %q", updated.Title)
	}
	if updated.Amount == nil || *updated.Amount != amount {
		t.Error("amount should be untouched")
	}
}

func TestDeleteTask(t *testing.T) {
	t.Parallel()

	repo := newFakeTaskRepo()
	user := &models.User{ID: uuid.New()}
	task := &models.Task{
		ID:      uuid.New(),
		UserID:  user.ID,
		Title:   "Old bill",
		Type:    models.TaskTypeBill,
		DueDate: "2026-08-01",
		Status:  models.TaskStatusPending,
	}
	repo.tasks[task.ID] = task

	router := newTaskRouter(repo)
	req := authedRequest(http.MethodDelete, "/api/v1/tasks/"+task.ID.String(), nil, user)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(repo.tasks) != 0 {
		t.Error("expected task to be deleted")
	}
}

func TestListTasksFilters(t *testing.T) {
	t.Parallel()

	repo := newFakeTaskRepo()
	user := &models.User{ID: uuid.New()}
	bill := &models.Task{ID: uuid.New(), UserID: user.ID, Title: "Rent", Type: models.TaskTypeBill, DueDate: "2026-09-01", Status: models.TaskStatusPending}
	chore := &models.Task{ID: uuid.New(), UserID: user.ID, Title: "Laundry", Type: models.TaskTypeChecklist, DueDate: "2026-09-02", Status: models.TaskStatusCompleted}
	repo.tasks[bill.ID] = bill
	repo.tasks[chore.ID] = chore

	router := newTaskRouter(repo)

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantCount  int
	}{
		{"no filter", "", http.StatusOK, 2},
		{"by type", "?type=bill", http.StatusOK, 1},
		{"by status", "?status=completed", http.StatusOK, 1},
		{"invalid type", "?type=invoice", http.StatusBadRequest, 0},
		{"invalid status", "?status=done", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := authedRequest(http.MethodGet, "/api/v1/tasks"+tt.query, nil, user)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if tt.wantStatus == http.StatusOK {
				var tasks []*models.Task
				decodeData(t, rec, &tasks)
				if len(tasks) != tt.wantCount {
					t.Errorf("expected %d tasks, got %d", tt.wantCount, len(tasks))
				}
			}
		})
	}
}
