package handlers

import (
	"encoding/json"
	"net/http"
	"time"
)

const maxErrorMessageLength = 200

// respondJSON sends a success envelope with the given payload
func respondJSON(w http.ResponseWriter, status int, data any) {
	writeEnvelope(w, status, map[string]any{
		"success":   true,
		"data":      data,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// respondJSONError sends an error envelope with a sanitized message
func respondJSONError(w http.ResponseWriter, status int, errorType, message string) {
	writeEnvelope(w, status, map[string]any{
		"success":   false,
		"error":     errorType,
		"message":   sanitizeErrorMessage(message),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// sanitizeErrorMessage truncates messages so internal error chains are not
// exposed to clients in full
func sanitizeErrorMessage(message string) string {
	if len(message) > maxErrorMessageLength {
		return message[:maxErrorMessageLength] + "..."
	}
	return message
}

func writeEnvelope(w http.ResponseWriter, status int, envelope map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}
