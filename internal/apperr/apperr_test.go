package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindMatching(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"validation", Validationf("rate must be positive"), IsValidation},
		{"parse", Parsef("line %d: bad record", 3), IsParse},
		{"source unavailable", NewSourceUnavailable("https://x.example", errors.New("refused")), IsSourceUnavailable},
		{"conflict", Conflictf("campaign already running"), IsConflict},
		{"transport", &TransportError{Op: "POST /jobs", StatusCode: 500}, IsTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.check(tt.err) {
				t.Errorf("expected %v to match its own kind", tt.err)
			}
			if tt.name != "validation" && IsValidation(tt.err) {
				t.Errorf("%v must not match ValidationError", tt.err)
			}
		})
	}
}

func TestKindSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("start campaign: %w", Conflictf("campaign already running"))
	if !IsConflict(err) {
		t.Error("wrapped ConflictError should still match")
	}
}

func TestTransportErrorMessages(t *testing.T) {
	tests := []struct {
		err  *TransportError
		want string
	}{
		{&TransportError{Op: "POST /jobs", StatusCode: 503, Msg: "overloaded"}, "POST /jobs: HTTP 503: overloaded"},
		{&TransportError{Op: "GET /templates", StatusCode: 404}, "GET /templates: HTTP 404"},
		{&TransportError{Op: "dial ws", Err: errors.New("refused")}, "dial ws: refused"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("expected %q, got %q", tt.want, got)
		}
	}
}

func TestUnwrap(t *testing.T) {
	inner := errors.New("connection reset")
	err := &TransportError{Op: "GET /analytics/hourly", Err: inner}
	if !errors.Is(err, inner) {
		t.Error("TransportError should unwrap to its cause")
	}

	src := NewSourceUnavailable("sheet", inner)
	if !errors.Is(src, inner) {
		t.Error("SourceUnavailableError should unwrap to its cause")
	}
}
