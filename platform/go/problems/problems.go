// Package problems implements the RFC 7807 error body shared by every HTTP
// handler, so clients can switch on a stable problem type instead of parsing
// messages.
package problems

import (
	"encoding/json"
	"net/http"
)

const (
	TypeValidation    = "https://isotek.app/problems/validation-error"
	TypeNotFound      = "https://isotek.app/problems/not-found"
	TypeConflict      = "https://isotek.app/problems/conflict"
	TypeAuthorization = "https://isotek.app/problems/authorization-denied"
	TypeComputation   = "https://isotek.app/problems/computation-error"
	TypeInternal      = "https://isotek.app/problems/internal-error"
)

// Problem is an RFC 7807 response body.
type Problem struct {
	Type      string `json:"type"`
	Title     string `json:"title"`
	Detail    string `json:"detail,omitempty"`
	Status    int    `json:"status"`
	RequestID string `json:"requestId,omitempty"`
}

// Write serializes the problem with the content type RFC 7807 mandates.
func Write(w http.ResponseWriter, p Problem) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}
