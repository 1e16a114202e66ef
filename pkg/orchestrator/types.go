package orchestrator

import (
	"context"

	"github.com/hashing-labs/voxd/pkg/feedback"
	"github.com/hashing-labs/voxd/pkg/intent"
	"github.com/hashing-labs/voxd/pkg/logging"
	"github.com/hashing-labs/voxd/pkg/media"
	"github.com/hashing-labs/voxd/pkg/stt"
)

// Logger is re-exported so callers can keep importing it from this package,
// matching where it has always lived.
type Logger = logging.Logger

// NoOpLogger is re-exported for the same reason.
type NoOpLogger = logging.NoOpLogger

// State is one of the five steady/transient states the per-session machine
// moves through.
type State string

const (
	StateIdle       State = "idle"
	StateListening  State = "listening"
	StateProcessing State = "processing"
	StateResponding State = "responding"
	StateConfirming State = "confirming"
)

// EventType enumerates everything the orchestrator reports on its event
// channel.
type EventType string

const (
	WakeDetected     EventType = "WAKE_DETECTED"
	ListeningStarted EventType = "LISTENING_STARTED"
	UtteranceEnd     EventType = "UTTERANCE_END"
	IntentRouted     EventType = "INTENT_ROUTED"
	ConfirmingEvent  EventType = "CONFIRMING"
	StateChanged     EventType = "STATE_CHANGED"
	ErrorEvent       EventType = "ERROR"
)

// Event is one entry on the orchestrator's event channel.
type Event struct {
	Type      EventType   `json:"type"`
	SessionID string      `json:"session_id"`
	Data      interface{} `json:"data,omitempty"`
}

// EchoCanceller matches *dsp.EchoCanceller.
type EchoCanceller interface {
	Process(mic, ref []int16) []int16
	Reset()
}

// NoiseSuppressor matches *dsp.NoiseSuppressor.
type NoiseSuppressor interface {
	Process(frame []int16) []int16
}

// VAD matches *RMSVAD.
type VAD interface {
	IsSpeech(frame []int16) bool
	SetAdaptiveMode(adaptive bool)
	Reset()
}

// WakeDetector matches *wakeword.Detector.
type WakeDetector interface {
	ProcessFrame(frame []int16) float64
	Reset()
}

// WakeVerifier matches *wakeword.Verifier.
type WakeVerifier interface {
	Verify(micRMS, loopbackRMS, confidence float64) bool
}

// SttRouter matches *stt.Router.
type SttRouter interface {
	Transcribe(ctx context.Context, audioPCM []byte, ctxKind stt.Context) (string, error)
}

// IntentRouter matches *intent.Router.
type IntentRouter interface {
	Route(text string) intent.Intent
}

// LlmFallback matches *llm.FallbackRouter.
type LlmFallback interface {
	Route(ctx context.Context, text string) intent.Intent
	IsAvailable(ctx context.Context) bool
}

// MediaManager matches *media.Manager.
type MediaManager interface {
	Play(query string) (string, []media.Result, error)
	Pause() (string, error)
	Resume() (string, error)
	Fullscreen() (string, error)
}

// CuePlayer matches *feedback.Player.
type CuePlayer interface {
	Play(name feedback.Cue)
}

// VolumeEffector matches pkg/effectors.VolumeEffector.
type VolumeEffector interface {
	Get(ctx context.Context) (float64, error)
	Set(ctx context.Context, level int) error
}

// PowerEffector matches pkg/effectors.PowerEffector.
type PowerEffector interface {
	Shutdown(ctx context.Context) error
	Reboot(ctx context.Context) error
}

// WindowEffector matches pkg/effectors.WindowEffector.
type WindowEffector interface {
	Fullscreen(ctx context.Context) error
	Close(ctx context.Context) error
}

// MediaKeyEffector matches pkg/effectors.MediaKeyEffector.
type MediaKeyEffector interface {
	NextTrack(ctx context.Context) error
	PrevTrack(ctx context.Context) error
}

// Config carries the numeric/behavioral knobs the state machine needs,
// translated from the YAML configuration surface by cmd/assistant. Kept as
// its own small struct, independent of pkg/config, the way the teacher's
// own orchestrator.Config was never coupled to a config-file loader.
type Config struct {
	SampleRate       int
	FrameSize        int
	SilenceThreshold int // consecutive non-speech frames that end an utterance
	MaxListenSeconds float64
	AutoMuteFactor   float64
	ConfirmTokens    map[string]bool
}

// DefaultConfig mirrors SPEC_FULL.md's documented implementation defaults.
func DefaultConfig() Config {
	return Config{
		SampleRate:       16000,
		FrameSize:        512,
		SilenceThreshold: 8,
		MaxListenSeconds: 5.0,
		AutoMuteFactor:   0.1,
		ConfirmTokens: map[string]bool{
			"да":          true,
			"подтверждаю": true,
			"выключай":    true,
		},
	}
}
