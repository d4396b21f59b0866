package services_test

import (
	"errors"
	"strings"
	"testing"

	"airdate/internal/services"
)

func TestWrapPreservesMarkerAndCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := services.Wrap(services.ErrTransient, "youtube", "put chunk", "chunk 3", cause)

	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected ErrTransient marker, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
	want := "youtube: put chunk: chunk 3"
	if got := err.Error(); !strings.Contains(got, want) {
		t.Fatalf("expected %q in %q", want, got)
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "creds", "refresh", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected nil marker to default to ErrTransient, got %v", err)
	}
}

func TestRetryClassification(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		retryable bool
		fatal     bool
	}{
		{"transient", services.Wrap(services.ErrTransient, "t", "op", "", nil), true, false},
		{"timeout", services.Wrap(services.ErrTimeout, "t", "op", "", nil), true, false},
		{"auth", services.Wrap(services.ErrAuthExpired, "t", "op", "", nil), false, false},
		{"validation", services.Wrap(services.ErrValidation, "t", "op", "", nil), false, true},
		{"configuration", services.Wrap(services.ErrConfiguration, "t", "op", "", nil), false, true},
		{"not_found", services.Wrap(services.ErrNotFound, "t", "op", "", nil), false, true},
		{"untagged", errors.New("plain"), false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := services.IsRetryable(tc.err); got != tc.retryable {
				t.Fatalf("IsRetryable = %v, want %v", got, tc.retryable)
			}
			if got := services.IsFatal(tc.err); got != tc.fatal {
				t.Fatalf("IsFatal = %v, want %v", got, tc.fatal)
			}
		})
	}
}
