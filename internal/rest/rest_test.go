package rest

import (
	"errors"
	"strings"
	"testing"
)

func TestErrorFromResponse(t *testing.T) {
	var tests = []struct {
		name     string
		status   int
		body     string
		expected string
	}{
		{"StructuredDetail", 400, `{"detail":{"msg":"hostname already taken"}}`, "hostname already taken"},
		{"DetailWithLoc", 422, `{"detail":{"msg":"port out of range","loc":["body","port"]}}`, "port out of range"},
		{"EmptyDetailMsg", 500, `{"detail":{"msg":""}}`, "500: Internal Server Error"},
		{"NoDetail", 404, `{}`, "404: Not Found"},
		{"NotJSON", 502, `<html>bad gateway</html>`, "502: Bad Gateway"},
		{"EmptyBody", 403, ``, "403: Forbidden"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ErrorFromResponse(tt.status, []byte(tt.body))
			if err.Msg != tt.expected {
				t.Errorf("expected message %q, got %q", tt.expected, err.Msg)
			}
			if err.StatusCode != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, err.StatusCode)
			}
		})
	}
}

func TestTransportError(t *testing.T) {
	cause := errors.New("connection refused")
	err := &TransportError{Err: cause}

	if !strings.Contains(err.Error(), "could not perform request") {
		t.Errorf("expected generic advisory prefix, got %q", err.Error())
	}
	if !strings.Contains(err.Error(), "contact the SysAdmins") {
		t.Errorf("expected support guidance, got %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("expected TransportError to unwrap to its cause")
	}
}
