package middleware

import (
	"encoding/json"
	"net/http"
)

// writeJSONError writes the same body shape the web handlers use for errors.
func writeJSONError(w http.ResponseWriter, status int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error":   message,
		"message": message,
		"code":    code,
	})
}
