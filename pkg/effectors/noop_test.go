package effectors

import (
	"context"
	"testing"
)

func TestNoOpEffector_TracksVolumeAndCalls(t *testing.T) {
	ctx := context.Background()
	e := NewNoOpEffector()

	if err := e.Set(ctx, 80); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := e.Get(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 0.8 {
		t.Fatalf("expected 0.8, got %v", got)
	}

	_ = e.Shutdown(ctx)
	_ = e.NextTrack(ctx)

	if len(e.Calls) != 3 {
		t.Fatalf("expected 3 recorded calls, got %d: %v", len(e.Calls), e.Calls)
	}
}
