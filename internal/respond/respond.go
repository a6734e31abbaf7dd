// Package respond writes the JSON envelope shared by every endpoint:
// {success, data?, message?, error?}.
package respond

import (
	"encoding/json"
	"net/http"
)

type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func JSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func OK(w http.ResponseWriter, data any, message string) {
	JSON(w, http.StatusOK, Envelope{Success: true, Data: data, Message: message})
}

func Created(w http.ResponseWriter, data any, message string) {
	JSON(w, http.StatusCreated, Envelope{Success: true, Data: data, Message: message})
}

func Error(w http.ResponseWriter, code int, msg string) {
	JSON(w, code, Envelope{Success: false, Error: msg})
}

// Internal hides err from the caller. Log it before calling.
func Internal(w http.ResponseWriter) {
	Error(w, http.StatusInternalServerError, "internal server error")
}
