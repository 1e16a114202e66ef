package orchestrator

import (
	"errors"

	"github.com/hashing-labs/voxd/pkg/media"
)

// media's sentinels are re-exported rather than redeclared, so a state
// machine checking the error returned from MediaManager.Play against
// orchestrator.ErrNoProviders and a test checking it against
// media.ErrNoProviders are comparing the same value.
var (
	ErrNoProviders    = media.ErrNoProviders
	ErrNoResults      = media.ErrNoResults
	ErrNothingPlaying = media.ErrNothingPlaying
	ErrInvalidLevel   = errors.New("intent: volume level out of range")
	ErrCaptureFailed  = errors.New("audio: capture subsystem failed")

	// ErrUnknownTool would name an LLM tool call that doesn't match any
	// known intent.Kind, but FallbackRouter.Route swallows that case into
	// an Unknown intent rather than returning it — every per-frame step is
	// infallible from the orchestrator's perspective. Declared for the same
	// reason the teacher keeps sentinels for error paths its own swallow
	// policy never surfaces.
	ErrUnknownTool = errors.New("llm fallback: tool call named an unrecognized intent")
)
