package resilience

import (
	"errors"
	"testing"

	"github.com/rotisserie/eris"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, Success},
		{"429", statusErr(429), Retryable},
		{"wrapped 429", eris.Wrap(statusErr(429), "llm: call"), Retryable},
		{"422", statusErr(422), Rejected},
		{"500", statusErr(500), Terminal},
		{"plain", errors.New("network down"), Terminal},
		{"rate limit marker", &RateLimitError{Err: errors.New("slow down")}, Retryable},
		{"validation marker", &ValidationError{Err: errors.New("bad")}, Rejected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsFatal(t *testing.T) {
	if IsFatal(nil) {
		t.Error("nil should not be fatal")
	}
	if !IsFatal(Fatalf("missing template for %q", "acme")) {
		t.Error("Fatalf should be fatal")
	}
	if !IsFatal(eris.Wrap(Fatal(errors.New("no key")), "draft")) {
		t.Error("wrapped Fatal should be fatal")
	}
	if IsFatal(errors.New("transient")) {
		t.Error("plain error should not be fatal")
	}
	if Fatal(nil) != nil {
		t.Error("Fatal(nil) should be nil")
	}
}
