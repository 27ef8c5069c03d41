// Package rest implements the JSON error envelope shared with the cloud
// API. Structured errors carry a detail object whose msg is suitable for
// showing to the user verbatim.
package rest

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Detail is the structured payload of an API error or info response.
type Detail struct {
	Msg string   `json:"msg"`
	Loc []string `json:"loc,omitempty"`
}

// Error is the envelope the API uses for non-2xx responses.
type Error struct {
	Detail *Detail `json:"detail"`
}

// Info is the envelope the API uses for informational responses.
type Info struct {
	Detail *Detail `json:"detail"`
}

// StatusError is a non-2xx response normalized for display. Msg follows
// the envelope's detail.msg when present, otherwise "<status>: <text>".
type StatusError struct {
	StatusCode int
	Msg        string
}

func (e *StatusError) Error() string {
	return e.Msg
}

// TransportError wraps a request that never produced a response, such as
// a refused connection or a timeout.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("could not perform request: %s. If issues persist contact the SysAdmins on the UCC Netsoc Discord", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ErrorFromResponse converts a non-2xx response body into a StatusError.
// A body that is not a valid envelope falls back to the status line.
func ErrorFromResponse(statusCode int, body []byte) *StatusError {
	msg := fmt.Sprintf("%d: %s", statusCode, http.StatusText(statusCode))

	var envelope Error
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Detail != nil && envelope.Detail.Msg != "" {
			msg = envelope.Detail.Msg
		}
	}

	return &StatusError{StatusCode: statusCode, Msg: msg}
}
