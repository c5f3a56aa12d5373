package middleware

import (
	"encoding/json"
	"net/http"

	"signage-studio/internal/model"
)

// writeAPIError writes the failure envelope used by every API response.
func writeAPIError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorEnvelope(code, message))
}

func errorEnvelope(code, message string) model.APIResponse {
	return model.APIResponse{
		Success: false,
		Error:   &model.APIError{Code: code, Message: message},
	}
}
