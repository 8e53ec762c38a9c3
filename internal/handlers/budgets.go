package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/billminder/billminder/internal/database"
	"github.com/billminder/billminder/internal/localstore"
	"github.com/billminder/billminder/internal/middleware"
	"github.com/billminder/billminder/internal/models"
	"github.com/billminder/billminder/internal/request"
	"github.com/billminder/billminder/internal/validation"
)

// BudgetHandler handles budget-related requests
type BudgetHandler struct {
	budgets database.BudgetRepositoryInterface
	local   *localstore.Store
	log     *zap.Logger
}

// NewBudgetHandler creates a new budget handler
func NewBudgetHandler(budgets database.BudgetRepositoryInterface, local *localstore.Store, log *zap.Logger) *BudgetHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &BudgetHandler{budgets: budgets, local: local, log: log}
}

// RegisterRoutes registers budget routes on the given router
// The router should already have the /budgets prefix
func (h *BudgetHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListBudgets).Methods("GET")
	r.HandleFunc("", h.PutBudget).Methods("PUT")
	r.HandleFunc("/summary", h.GetSummary).Methods("GET")
	r.HandleFunc("/{id}", h.DeleteBudget).Methods("DELETE")
}

// PutBudgetRequest represents a budget upsert request
type PutBudgetRequest struct {
	Category string  `json:"category" validate:"required,category"`
	Limit    float64 `json:"limit" validate:"required,gt=0"`
	Currency string  `json:"currency,omitempty" validate:"omitempty,len=3"`
}

// ListBudgets lists the user's budgets
func (h *BudgetHandler) ListBudgets(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	budgets, err := h.budgets.GetByUserID(r.Context(), user.ID)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve budgets")
		return
	}
	if budgets == nil {
		budgets = []*models.Budget{}
	}

	h.cacheBudgets(r, budgets)

	respondJSON(w, http.StatusOK, budgets)
}

// PutBudget creates or replaces the budget for one category
func (h *BudgetHandler) PutBudget(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req PutBudgetRequest
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

	budget := &models.Budget{
		ID:       uuid.New(),
		UserID:   user.ID,
		Category: models.Category(req.Category),
		Limit:    req.Limit,
		Currency: req.Currency,
	}

	if err := h.budgets.Upsert(r.Context(), budget); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to save budget")
		return
	}

	respondJSON(w, http.StatusOK, budget)
}

// DeleteBudget deletes a budget by ID
func (h *BudgetHandler) DeleteBudget(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	vars := mux.Vars(r)
	id, err := uuid.Parse(vars["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid budget ID")
		return
	}

	ctx := r.Context()
	budgets, err := h.budgets.GetByUserID(ctx, user.ID)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve budgets")
		return
	}
	owned := false
	for _, b := range budgets {
		if b.ID == id {
			owned = true
			break
		}
	}
	if !owned {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Budget not found")
		return
	}

	if err := h.budgets.Delete(ctx, id); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to delete budget")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

// GetSummary reports month-to-date spend against each budget. Categories
// with spend but no budget still appear with a zero limit so overspending
// in unbudgeted categories is visible.
func (h *BudgetHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	month := r.URL.Query().Get("month")
	if month == "" {
		month = time.Now().UTC().Format("2006-01")
	} else if _, err := time.Parse("2006-01", month); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid month, expected YYYY-MM")
		return
	}

	ctx := r.Context()
	budgets, err := h.budgets.GetByUserID(ctx, user.ID)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve budgets")
		return
	}
	spends, err := h.budgets.MonthlySpend(ctx, user.ID, month)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to compute spend")
		return
	}

	byCategory := make(map[models.Category]*models.CategorySpend)
	order := make([]models.Category, 0, len(budgets)+len(spends))
	for _, b := range budgets {
		byCategory[b.Category] = &models.CategorySpend{Category: b.Category, Limit: b.Limit}
		order = append(order, b.Category)
	}
	summary := models.BudgetSummary{Month: month}
	for _, s := range spends {
		entry, ok := byCategory[s.Category]
		if !ok {
			entry = &models.CategorySpend{Category: s.Category}
			byCategory[s.Category] = entry
			order = append(order, s.Category)
		}
		entry.Spent = s.Spent
		entry.Count = s.Count
		summary.Total += s.Spent
	}
	summary.Categories = make([]models.CategorySpend, 0, len(order))
	for _, c := range order {
		summary.Categories = append(summary.Categories, *byCategory[c])
	}

	respondJSON(w, http.StatusOK, summary)
}

// cacheBudgets mirrors the budget list onto the device. Best effort only.
func (h *BudgetHandler) cacheBudgets(r *http.Request, budgets []*models.Budget) {
	if h.local == nil {
		return
	}
	deviceID := request.DeviceID(r)
	if err := h.local.SaveBudgets(r.Context(), deviceID, budgets); err != nil {
		h.log.Warn("budget_cache_write_failed",
			zap.String("device_id", deviceID),
			zap.Error(err),
		)
	}
}
