// Package utils holds the JSON response helpers shared by every handler.
package utils

import (
	"encoding/json"
	"net/http"
)

// JSONError writes {"error": message} with the given status. nosniff is
// set the same way http.Error does it for plain text.
func JSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// JSONWrite encodes v as the response body with the given status. A
// status <= 0 leaves the code to the first write (200).
func JSONWrite(w http.ResponseWriter, status int, v interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if status > 0 {
		w.WriteHeader(status)
	}
	return json.NewEncoder(w).Encode(v)
}
