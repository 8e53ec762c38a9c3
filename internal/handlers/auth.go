package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/billminder/billminder/internal/localstore"
	"github.com/billminder/billminder/internal/middleware"
	"github.com/billminder/billminder/internal/request"
	"github.com/billminder/billminder/internal/services/oidc"
)

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	oidcProvider *oidc.Provider
	providerName string
	local        *localstore.Store
	log          *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(oidcProvider *oidc.Provider, providerName string, local *localstore.Store, log *zap.Logger) *AuthHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthHandler{
		oidcProvider: oidcProvider,
		providerName: providerName,
		local:        local,
		log:          log,
	}
}

// GetOIDCLogin returns OIDC configuration for frontend
func (h *AuthHandler) GetOIDCLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	loginConfig, err := h.oidcProvider.GetLoginConfig(ctx, h.providerName)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Failed to get OIDC configuration", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, loginConfig)
}

// GetMe returns current user information
func (h *AuthHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	respondJSON(w, http.StatusOK, user)
}

// SignOut wipes the device's cached data, then acknowledges. The wipe
// happens before the response so a failed wipe is visible to the caller
// and no stale account data survives into the next session.
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	deviceID := request.DeviceID(r)
	if err := h.local.Wipe(r.Context(), deviceID); err != nil {
		h.log.Error("signout_wipe_failed",
			zap.String("user_id", user.ID.String()),
			zap.String("device_id", deviceID),
			zap.Error(err),
		)
		respondJSONError(w, http.StatusInternalServerError, "Sign-out failed", "Could not clear device data")
		return
	}

	h.log.Info("signed_out",
		zap.String("user_id", user.ID.String()),
		zap.String("device_id", deviceID),
	)
	respondJSON(w, http.StatusOK, map[string]any{"signed_out": true})
}
