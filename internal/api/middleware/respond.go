package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/hugh/go-contacts/internal/api/dto"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string, details map[string]string) {
	writeJSON(w, status, dto.ErrorResponse{Message: message, Details: details})
}
