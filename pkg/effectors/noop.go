package effectors

import (
	"context"
	"sync"
)

// NoOpEffector satisfies VolumeEffector, PowerEffector, WindowEffector, and
// MediaKeyEffector without touching the OS; it records calls for assertions
// in orchestrator tests and backs any dry-run mode.
type NoOpEffector struct {
	mu    sync.Mutex
	level int
	Calls []string
}

func NewNoOpEffector() *NoOpEffector {
	return &NoOpEffector{level: 50}
}

func (e *NoOpEffector) record(call string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Calls = append(e.Calls, call)
}

func (e *NoOpEffector) Get(ctx context.Context) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return float64(e.level) / 100.0, nil
}

func (e *NoOpEffector) Set(ctx context.Context, level int) error {
	e.mu.Lock()
	e.level = level
	e.mu.Unlock()
	e.record("volume_set")
	return nil
}

func (e *NoOpEffector) Shutdown(ctx context.Context) error { e.record("shutdown"); return nil }
func (e *NoOpEffector) Reboot(ctx context.Context) error   { e.record("reboot"); return nil }
func (e *NoOpEffector) Fullscreen(ctx context.Context) error {
	e.record("fullscreen")
	return nil
}
func (e *NoOpEffector) Close(ctx context.Context) error     { e.record("close"); return nil }
func (e *NoOpEffector) NextTrack(ctx context.Context) error { e.record("next_track"); return nil }
func (e *NoOpEffector) PrevTrack(ctx context.Context) error { e.record("prev_track"); return nil }
