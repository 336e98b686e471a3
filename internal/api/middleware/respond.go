package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/devportal/engine/internal/api/types"
)

func reject(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.APIResponse{Error: &types.APIError{Code: code, Message: msg}})
}
