package server

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// noDataMessage is shown instead of an error for empty selections.
const noDataMessage = "No data available for this selection."

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("server: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, map[string]string{
		"error":      msg,
		"request_id": RequestIDFrom(r.Context()),
	})
}
