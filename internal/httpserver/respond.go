package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/modelbazaar/controlplane/internal/apierr"
)

// Envelope is the uniform JSON response shape every endpoint returns.
type Envelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Respond writes a successful envelope with the given HTTP status and data.
func Respond(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Envelope{
		Status:  "success",
		Message: "ok",
		Data:    data,
	})
}

// RespondMessage writes a successful envelope with an explicit message.
func RespondMessage(w http.ResponseWriter, status int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Envelope{
		Status:  "success",
		Message: message,
		Data:    data,
	})
}

// RespondError writes a failed envelope. kind is a free-form identifier kept
// for backward-compatible call sites; HTTP status is taken as given.
func RespondError(w http.ResponseWriter, status int, kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Envelope{
		Status:  "failed",
		Message: message,
	})
}

// RespondAPIError writes a failed envelope derived from an apierr.Error,
// mapping its Kind to the correct HTTP status and prefixing the message with
// the Kind ("not_found: model not found").
func RespondAPIError(w http.ResponseWriter, err error) {
	status := apierr.Status(err)
	kind := string(apierr.KindOf(err))
	message := kind + ": " + apierr.MessageOf(err)
	RespondError(w, status, kind, message)
}
