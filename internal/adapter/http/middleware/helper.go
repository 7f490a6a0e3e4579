package middleware

import (
	"encoding/json"
	"net/http"
)

// errorResponse writes {"error": message} and echoes the request id when one
// was already assigned, so rejected requests can be found in the logs.
func errorResponse(w http.ResponseWriter, status int, message string) {
	body := map[string]string{"error": message}
	if id := w.Header().Get(RequestIDHeader); id != "" {
		body["request_id"] = id
	}

	js, err := json.Marshal(body)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(js)
}
