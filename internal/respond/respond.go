// Package respond writes JSON response bodies.
package respond

import (
	"encoding/json"
	"net/http"
)

type errorBody struct {
	Message string `json:"message"`
}

// JSON writes v with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error writes {"message": msg}. msg is shown to clients and must not carry internal detail.
func Error(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, errorBody{Message: msg})
}
