package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/billminder/billminder/internal/middleware"
	"github.com/billminder/billminder/internal/request"
	"github.com/billminder/billminder/internal/syncer"
)

// SyncHandler handles device/server task reconciliation requests
type SyncHandler struct {
	reconciler *syncer.Reconciler
	log        *zap.Logger
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(reconciler *syncer.Reconciler, log *zap.Logger) *SyncHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &SyncHandler{reconciler: reconciler, log: log}
}

// Sync pushes the device's cached tasks, pulls the authoritative list back,
// and returns it. When the remote store is unreachable the device's cached
// list comes back with a 502 so the client can keep working offline.
func (h *SyncHandler) Sync(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	deviceID := request.DeviceID(r)
	tasks, err := h.reconciler.Sync(r.Context(), user.ID, deviceID)
	if err != nil {
		h.log.Warn("sync_failed",
			zap.String("user_id", user.ID.String()),
			zap.String("device_id", deviceID),
			zap.Error(err),
		)
		respondJSON(w, http.StatusBadGateway, map[string]any{
			"tasks":   tasks,
			"synced":  false,
			"message": "Sync failed, returning cached tasks",
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"tasks":  tasks,
		"synced": true,
	})
}
