// Package httpx writes the JSON answers of the operational endpoints.
package httpx

import (
	"encoding/json"
	"net/http"
)

// ProblemDetail is an RFC7807 problem document.
type ProblemDetail struct {
	Type   string `json:"type,omitempty"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// JSON writes data with the given status.
func JSON(w http.ResponseWriter, status int, data any) {
	writeJSON(w, "application/json", status, data)
}

// Problem writes an RFC7807 document with the given status.
func Problem(w http.ResponseWriter, status int, title, detail string) {
	writeJSON(w, "application/problem+json", status, ProblemDetail{
		Title:  title,
		Status: status,
		Detail: detail,
	})
}

func writeJSON(w http.ResponseWriter, contentType string, status int, body any) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
