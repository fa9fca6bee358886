package providers

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestClassifyError(t *testing.T) {
	cases := map[string]ErrorType{
		"insufficient_quota":             ErrorQuota,
		"429 rate":                       ErrorRate,
		"maximum context length is 8192": ErrorContext,
		"prompt too long":                ErrorContext,
		"timeout":                        ErrorTransient,
		"bad request":                    ErrorPermanent,
	}
	for msg, want := range cases {
		if got := ClassifyError(errors.New(msg)); got != want {
			t.Fatalf("classify %q: got %s want %s", msg, got, want)
		}
	}
}

func TestClassifyDeadlineAsTransient(t *testing.T) {
	err := fmt.Errorf("openai generate request failed: %w", context.DeadlineExceeded)
	if got := ClassifyError(err); got != ErrorTransient {
		t.Fatalf("got %s want %s", got, ErrorTransient)
	}
}
