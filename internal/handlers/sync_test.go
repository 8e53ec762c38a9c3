package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/billminder/billminder/internal/localstore"
	"github.com/billminder/billminder/internal/models"
	"github.com/billminder/billminder/internal/syncer"
)

var errTestUnavailable = errors.New("backend unavailable")

func TestSyncPushesAndPulls(t *testing.T) {
	t.Parallel()

	repo := newFakeTaskRepo()
	user := &models.User{ID: uuid.New()}

	// Server already knows one task.
	serverTask := &models.Task{
		ID: uuid.New(), UserID: user.ID, Title: "Rent",
		Type: models.TaskTypeBill, DueDate: "2026-09-01", Status: models.TaskStatusPending,
	}
	repo.tasks[serverTask.ID] = serverTask

	// Device has one locally created task cached.
	store := localstore.New(newFakeKV(), nil)
	localTask := &models.Task{
		ID: uuid.New(), UserID: user.ID, Title: "Gym fee",
		Type: models.TaskTypeBill, DueDate: "2026-09-10", Status: models.TaskStatusPending,
	}
	if err := store.SaveTasks(t.Context(), "phone-1", []*models.Task{localTask}); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	h := NewSyncHandler(syncer.New(repo, store, nil), nil)

	req := authedRequest(http.MethodPost, "/api/v1/sync", nil, user)
	req.Header.Set("X-Device-ID", "phone-1")
	rec := httptest.NewRecorder()
	h.Sync(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var payload struct {
		Tasks  []*models.Task `json:"tasks"`
		Synced bool           `json:"synced"`
	}
	decodeData(t, rec, &payload)

	if !payload.Synced {
		t.Error("expected synced=true")
	}
	if len(payload.Tasks) != 2 {
		t.Fatalf("expected merged list of 2, got %d", len(payload.Tasks))
	}
	if _, ok := repo.tasks[localTask.ID]; !ok {
		t.Error("local task should have been pushed to the server")
	}
	if got := store.Tasks(t.Context(), "phone-1"); len(got) != 2 {
		t.Errorf("expected cache refreshed with 2 tasks, got %d", len(got))
	}
}

func TestSyncReturnsCachedTasksOnServerFailure(t *testing.T) {
	t.Parallel()

	repo := newFakeTaskRepo()
	repo.listErr = errTestUnavailable
	user := &models.User{ID: uuid.New()}

	store := localstore.New(newFakeKV(), nil)
	cached := &models.Task{
		ID: uuid.New(), UserID: user.ID, Title: "Water bill",
		Type: models.TaskTypeBill, DueDate: "2026-09-05", Status: models.TaskStatusPending,
	}
	if err := store.SaveTasks(t.Context(), "phone-1", []*models.Task{cached}); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	h := NewSyncHandler(syncer.New(repo, store, nil), nil)

	req := authedRequest(http.MethodPost, "/api/v1/sync", nil, user)
	req.Header.Set("X-Device-ID", "phone-1")
	rec := httptest.NewRecorder()
	h.Sync(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}

	var envelope struct {
		Data struct {
			Tasks  []*models.Task `json:"tasks"`
			Synced bool           `json:"synced"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if envelope.Data.Synced {
		t.Error("expected synced=false")
	}
	if len(envelope.Data.Tasks) != 1 || envelope.Data.Tasks[0].ID != cached.ID {
		t.Errorf("expected the cached task back, got %+v", envelope.Data.Tasks)
	}
}
