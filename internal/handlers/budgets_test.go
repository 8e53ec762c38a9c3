package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/billminder/billminder/internal/models"
)

type fakeBudgetRepo struct {
	budgets map[uuid.UUID]*models.Budget
	spends  []*models.CategorySpend
}

func newFakeBudgetRepo() *fakeBudgetRepo {
	return &fakeBudgetRepo{budgets: make(map[uuid.UUID]*models.Budget)}
}

func (f *fakeBudgetRepo) GetByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Budget, error) {
	var out []*models.Budget
	for _, b := range f.budgets {
		if b.UserID == userID {
			copied := *b
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeBudgetRepo) Upsert(ctx context.Context, budget *models.Budget) error {
	for _, b := range f.budgets {
		if b.UserID == budget.UserID && b.Category == budget.Category {
			budget.ID = b.ID
			break
		}
	}
	copied := *budget
	f.budgets[budget.ID] = &copied
	return nil
}

func (f *fakeBudgetRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := f.budgets[id]; !ok {
		return fmt.Errorf("budget not found")
	}
	delete(f.budgets, id)
	return nil
}

func (f *fakeBudgetRepo) MonthlySpend(ctx context.Context, userID uuid.UUID, month string) ([]*models.CategorySpend, error) {
	return f.spends, nil
}

func newBudgetRouter(repo *fakeBudgetRepo) *mux.Router {
	h := NewBudgetHandler(repo, nil, nil)
	r := mux.NewRouter()
	h.RegisterRoutes(r.PathPrefix("/api/v1/budgets").Subrouter())
	return r
}

func TestPutBudgetReplacesCategory(t *testing.T) {
	t.Parallel()

	repo := newFakeBudgetRepo()
	user := &models.User{ID: uuid.New()}
	router := newBudgetRouter(repo)

	first := authedRequest(http.MethodPut, "/api/v1/budgets", []byte(`{"category":"food","limit":300}`), user)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, first)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	second := authedRequest(http.MethodPut, "/api/v1/budgets", []byte(`{"category":"food","limit":450}`), user)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, second)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	if len(repo.budgets) != 1 {
		t.Fatalf("expected one budget row per category, got %d", len(repo.budgets))
	}
	for _, b := range repo.budgets {
		if b.Limit != 450 {
			t.Errorf("expected limit 450 after replace, got %v", b.Limit)
		}
	}
}

func TestPutBudgetValidation(t *testing.T) {
	t.Parallel()

	user := &models.User{ID: uuid.New()}
	router := newBudgetRouter(newFakeBudgetRepo())

	tests := []struct {
		name string
		body string
	}{
		{"zero limit", `{"category":"food","limit":0}`},
		{"negative limit", `{"category":"food","limit":-50}`},
		{"unknown category", `{"category":"misc","limit":100}`},
		{"missing category", `{"limit":100}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := authedRequest(http.MethodPut, "/api/v1/budgets", []byte(tt.body), user)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestBudgetSummaryMergesSpendAndLimits(t *testing.T) {
	t.Parallel()

	repo := newFakeBudgetRepo()
	user := &models.User{ID: uuid.New()}
	repo.budgets[uuid.New()] = &models.Budget{
		ID: uuid.New(), UserID: user.ID, Category: models.CategoryFood, Limit: 300,
	}
	repo.spends = []*models.CategorySpend{
		{Category: models.CategoryFood, Spent: 120.50, Count: 4},
		{Category: models.CategoryTransport, Spent: 60, Count: 2},
	}

	router := newBudgetRouter(repo)
	req := authedRequest(http.MethodGet, "/api/v1/budgets/summary?month=2026-08", nil, user)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var summary models.BudgetSummary
	decodeData(t, rec, &summary)

	if summary.Month != "2026-08" {
		t.Errorf("expected month 2026-08, got %s", summary.Month)
	}
	if summary.Total != 180.50 {
		t.Errorf("expected total 180.50, got %v", summary.Total)
	}
	if len(summary.Categories) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(summary.Categories))
	}

	byCat := make(map[models.Category]models.CategorySpend)
	for _, c := range summary.Categories {
		byCat[c.Category] = c
	}
	food := byCat[models.CategoryFood]
	if food.Limit != 300 || food.Spent != 120.50 || food.Count != 4 {
		t.Errorf("unexpected food entry: %+v", food)
	}
	// Spend in an unbudgeted category still shows, with a zero limit.
	transport := byCat[models.CategoryTransport]
	if transport.Limit != 0 || transport.Spent != 60 {
		t.Errorf("unexpected transport entry: %+v", transport)
	}
}

func TestBudgetSummaryRejectsBadMonth(t *testing.T) {
	t.Parallel()

	router := newBudgetRouter(newFakeBudgetRepo())
	user := &models.User{ID: uuid.New()}
	req := authedRequest(http.MethodGet, "/api/v1/budgets/summary?month=August", nil, user)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestDeleteBudgetOwnership(t *testing.T) {
	t.Parallel()

	repo := newFakeBudgetRepo()
	owner := uuid.New()
	budget := &models.Budget{ID: uuid.New(), UserID: owner, Category: models.CategoryFood, Limit: 100}
	repo.budgets[budget.ID] = budget

	router := newBudgetRouter(repo)
	stranger := &models.User{ID: uuid.New()}
	req := authedRequest(http.MethodDelete, "/api/v1/budgets/"+budget.ID.String(), nil, stranger)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for foreign budget, got %d", rec.Code)
	}
	if len(repo.budgets) != 1 {
		t.Error("foreign budget must not be deleted")
	}
}
