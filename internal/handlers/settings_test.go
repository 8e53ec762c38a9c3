package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/billminder/billminder/internal/kv"
	"github.com/billminder/billminder/internal/localstore"
	"github.com/billminder/billminder/internal/models"
)

// fakeKV backs a localstore.Store in tests.
type fakeKV struct {
	data map[string]string
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: make(map[string]string)}
}

func (f *fakeKV) Get(ctx context.Context, key string) (string, error) {
	v, ok := f.data[key]
	if !ok {
		return "", kv.ErrNotFound
	}
	return v, nil
}

func (f *fakeKV) Set(ctx context.Context, key, value string) error {
	f.data[key] = value
	return nil
}

func (f *fakeKV) Delete(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

func newSettingsRouter(store *localstore.Store) *mux.Router {
	h := NewSettingsHandler(store, nil, nil, nil, nil)
	r := mux.NewRouter()
	h.RegisterRoutes(r.PathPrefix("/api/v1/settings").Subrouter())
	return r
}

func TestPutAndGetSettings(t *testing.T) {
	t.Parallel()

	store := localstore.New(newFakeKV(), nil)
	router := newSettingsRouter(store)
	user := &models.User{ID: uuid.New()}

	put := authedRequest(http.MethodPut, "/api/v1/settings", []byte(`{"notifications":{"enabled":true,"frequency":"3-day"}}`), user)
	put.Header.Set("X-Device-ID", "phone-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, put)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	get := authedRequest(http.MethodGet, "/api/v1/settings", nil, user)
	get.Header.Set("X-Device-ID", "phone-1")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, get)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var settings models.AppSettings
	decodeData(t, rec, &settings)
	if settings.Notifications == nil {
		t.Fatal("expected notifications to round-trip")
	}
	if !settings.Notifications.Enabled || settings.Notifications.Frequency != models.ReminderFrequencyThreeDay {
		t.Errorf("unexpected settings: %+v", settings.Notifications)
	}
}

func TestSettingsAreScopedToDevice(t *testing.T) {
	t.Parallel()

	store := localstore.New(newFakeKV(), nil)
	router := newSettingsRouter(store)
	user := &models.User{ID: uuid.New()}

	put := authedRequest(http.MethodPut, "/api/v1/settings", []byte(`{"notifications":{"enabled":true,"frequency":"due-only"}}`), user)
	put.Header.Set("X-Device-ID", "phone-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, put)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	// A different device sees its own blank settings.
	get := authedRequest(http.MethodGet, "/api/v1/settings", nil, user)
	get.Header.Set("X-Device-ID", "tablet-2")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, get)

	var settings models.AppSettings
	decodeData(t, rec, &settings)
	if settings.Notifications != nil {
		t.Errorf("expected no notifications for the other device, got %+v", settings.Notifications)
	}
}

func TestPutSettingsRejectsUnknownFrequency(t *testing.T) {
	t.Parallel()

	store := localstore.New(newFakeKV(), nil)
	router := newSettingsRouter(store)
	user := &models.User{ID: uuid.New()}

	req := authedRequest(http.MethodPut, "/api/v1/settings", []byte(`{"notifications":{"enabled":true,"frequency":"hourly"}}`), user)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}
