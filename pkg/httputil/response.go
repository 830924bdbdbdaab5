package httputil

import (
	"encoding/json"
	"net/http"
	"time"
)

// TimestampLayout is the format of the envelope timestamp
const TimestampLayout = "2006-01-02 15:04:05"

// MsgInternal is the only message a client sees for unexpected failures
const MsgInternal = "An internal error occurred. Please try again later"

// now stamps envelopes; tests replace it
var now = time.Now

// Envelope wraps every JSON response
type Envelope struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data"`
	Timestamp string      `json:"timestamp"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// WriteEnvelope writes data wrapped in the response envelope
func WriteEnvelope(w http.ResponseWriter, status int, success bool, message string, data interface{}) error {
	return WriteJSON(w, status, Envelope{
		Success:   success,
		Message:   message,
		Data:      data,
		Timestamp: now().Format(TimestampLayout),
	})
}

// WriteSuccess writes a successful response (200 OK)
func WriteSuccess(w http.ResponseWriter, message string, data interface{}) error {
	return WriteEnvelope(w, http.StatusOK, true, message, data)
}

// WriteCreated writes a successful creation response (201 Created)
func WriteCreated(w http.ResponseWriter, message string, data interface{}) error {
	return WriteEnvelope(w, http.StatusCreated, true, message, data)
}

// WriteErrorMessage writes a failed envelope with message
func WriteErrorMessage(w http.ResponseWriter, status int, message string) {
	_ = WriteEnvelope(w, status, false, message, nil)
}

// WriteErrorData writes a failed envelope carrying data
func WriteErrorData(w http.ResponseWriter, status int, message string, data interface{}) {
	_ = WriteEnvelope(w, status, false, message, data)
}

// WriteBadRequest writes a bad request error (400)
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusBadRequest, message)
}

// WriteUnauthorized writes an unauthorized error (401)
func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusUnauthorized, message)
}

// WriteForbidden writes a forbidden error (403)
func WriteForbidden(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusForbidden, message)
}

// WriteNotFound writes a not found error (404)
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusNotFound, message)
}

// WriteMethodNotAllowed writes a method not allowed error (405)
func WriteMethodNotAllowed(w http.ResponseWriter) {
	WriteErrorMessage(w, http.StatusMethodNotAllowed, "Method not allowed")
}

// WriteConflict writes a conflict error (409)
func WriteConflict(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusConflict, message)
}

// WriteTooManyRequests writes a rate limit error (429)
func WriteTooManyRequests(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusTooManyRequests, message)
}

// WriteInternalError writes the generic internal error (500). The cause is
// never sent to the client.
func WriteInternalError(w http.ResponseWriter) {
	WriteErrorMessage(w, http.StatusInternalServerError, MsgInternal)
}

// WriteServiceUnavailable writes a service unavailable error (503)
func WriteServiceUnavailable(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusServiceUnavailable, message)
}
