package services

import (
	"errors"
	"strings"
	"testing"
)

func TestWrapTagsMarker(t *testing.T) {
	err := Wrap(ErrRateLimited, "gamedb", "search", "upstream rejected request", errors.New("429"))
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("marker lost: %v", err)
	}
	if !strings.Contains(err.Error(), "gamedb: search") {
		t.Errorf("context missing: %v", err)
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := Wrap(nil, "cache", "", "", nil)
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("expected transient marker: %v", err)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Disposition
	}{
		{"rate limited", Wrap(ErrRateLimited, "gamedb", "search", "", nil), DispositionRetry},
		{"transient", Wrap(ErrTransient, "gamedb", "search", "", nil), DispositionRetry},
		{"invalid query", Wrap(ErrInvalidQuery, "gamedb", "search", "", nil), DispositionEmpty},
		{"not found", Wrap(ErrNotFound, "gamedb", "details", "", nil), DispositionEmpty},
		{"payload too large", Wrap(ErrPayloadTooLarge, "gamedb", "batch", "", nil), DispositionFatal},
		{"configuration", Wrap(ErrConfiguration, "gamedb", "auth", "", nil), DispositionFatal},
		{"plain error", errors.New("boom"), DispositionRetry},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}
