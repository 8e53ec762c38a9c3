package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/billminder/billminder/internal/database"
	"github.com/billminder/billminder/internal/localstore"
	"github.com/billminder/billminder/internal/middleware"
	"github.com/billminder/billminder/internal/models"
	"github.com/billminder/billminder/internal/reminders"
	"github.com/billminder/billminder/internal/request"
)

// SettingsHandler handles per-device settings requests
type SettingsHandler struct {
	local     *localstore.Store
	tasks     database.TaskRepositoryInterface
	scheduler *reminders.Scheduler
	defaults  *database.NotificationConfigRepository
	log       *zap.Logger
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(
	local *localstore.Store,
	tasks database.TaskRepositoryInterface,
	scheduler *reminders.Scheduler,
	defaults *database.NotificationConfigRepository,
	log *zap.Logger,
) *SettingsHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &SettingsHandler{
		local:     local,
		tasks:     tasks,
		scheduler: scheduler,
		defaults:  defaults,
		log:       log,
	}
}

// RegisterRoutes registers settings routes on the given router
// The router should already have the /settings prefix
func (h *SettingsHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.GetSettings).Methods("GET")
	r.HandleFunc("", h.PutSettings).Methods("PUT")
}

// UpdateSettingsRequest represents a settings update
type UpdateSettingsRequest struct {
	Notifications *struct {
		Enabled   bool   `json:"enabled"`
		Frequency string `json:"frequency"`
	} `json:"notifications"`
}

// GetSettings returns the device's settings. Devices that never saved
// settings get the server-side defaults, if an operator configured any.
func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	ctx := r.Context()
	settings := h.local.Settings(ctx, request.DeviceID(r))
	if settings == nil && h.defaults != nil {
		if cfg, err := h.defaults.Get(ctx); err == nil && cfg != nil {
			settings = &models.AppSettings{
				Notifications: &models.NotificationSettings{
					Enabled:   cfg.DefaultFrequency != models.ReminderFrequencyOff,
					Frequency: cfg.DefaultFrequency,
				},
			}
		}
	}
	if settings == nil {
		settings = &models.AppSettings{}
	}

	respondJSON(w, http.StatusOK, settings)
}

// PutSettings replaces the device's settings and rebuilds the user's
// reminder plan under the new preferences.
func (h *SettingsHandler) PutSettings(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req UpdateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}

	settings := &models.AppSettings{UpdatedAt: time.Now().UTC()}
	if req.Notifications != nil {
		freq := models.ReminderFrequency(req.Notifications.Frequency)
		if !freq.Valid() {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid reminder frequency")
			return
		}
		settings.Notifications = &models.NotificationSettings{
			Enabled:   req.Notifications.Enabled,
			Frequency: freq,
		}
	}

	ctx := r.Context()
	deviceID := request.DeviceID(r)
	if err := h.local.SaveSettings(ctx, deviceID, settings); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to save settings")
		return
	}

	// The reminder plan is derived from settings, so any change rebuilds
	// it from scratch.
	if h.scheduler != nil && h.tasks != nil {
		tasks, err := h.tasks.GetByUserID(ctx, user.ID, nil, nil)
		if err != nil {
			h.log.Warn("reminder_reschedule_skipped",
				zap.String("user_id", user.ID.String()),
				zap.Error(err),
			)
		} else if count, err := h.scheduler.RescheduleAll(ctx, user.ID, tasks, settings); err != nil {
			h.log.Warn("reminder_reschedule_failed",
				zap.String("user_id", user.ID.String()),
				zap.Error(err),
			)
		} else {
			h.log.Info("settings_updated",
				zap.String("user_id", user.ID.String()),
				zap.String("device_id", deviceID),
				zap.Int("reminders_planned", count),
			)
		}
	}

	respondJSON(w, http.StatusOK, settings)
}
