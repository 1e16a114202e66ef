package orchestrator

import (
	"context"
	"math"
	"testing"

	"github.com/hashing-labs/voxd/pkg/feedback"
	"github.com/hashing-labs/voxd/pkg/intent"
	"github.com/hashing-labs/voxd/pkg/media"
	"github.com/hashing-labs/voxd/pkg/stt"
)

// --- fakes -------------------------------------------------------------

type passthroughAEC struct{}

func (passthroughAEC) Process(mic, ref []int16) []int16 { return mic }
func (passthroughAEC) Reset()                           {}

type passthroughNoise struct{}

func (passthroughNoise) Process(f []int16) []int16 { return f }

// scriptedVAD reports speech for the first speakFrames calls, then silence.
type scriptedVAD struct {
	speakFrames int
	calls       int
}

func (v *scriptedVAD) IsSpeech(frame []int16) bool {
	v.calls++
	return v.calls <= v.speakFrames
}
func (v *scriptedVAD) SetAdaptiveMode(bool) {}
func (v *scriptedVAD) Reset()               { v.calls = 0 }

type fixedWake struct{ score float64 }

func (w fixedWake) ProcessFrame(frame []int16) float64 { return w.score }
func (w fixedWake) Reset()                             {}

type fixedVerify struct{ ok bool }

func (v fixedVerify) Verify(micRMS, loopbackRMS, confidence float64) bool { return v.ok }

type fixedSTT struct{ text string }

func (s fixedSTT) Transcribe(ctx context.Context, audioPCM []byte, ctxKind stt.Context) (string, error) {
	return s.text, nil
}

type unknownIntentRouter struct{}

func (unknownIntentRouter) Route(text string) intent.Intent {
	return intent.Intent{Kind: intent.Unknown, Query: text}
}

type realRouter struct{ r *intent.Router }

func (r realRouter) Route(text string) intent.Intent { return r.r.Route(text) }

type fixedLLM struct {
	available bool
	result    intent.Intent
}

func (f fixedLLM) Route(ctx context.Context, text string) intent.Intent { return f.result }
func (f fixedLLM) IsAvailable(ctx context.Context) bool                 { return f.available }

type unavailableLLM struct{}

func (unavailableLLM) Route(ctx context.Context, text string) intent.Intent {
	return intent.Intent{Kind: intent.Unknown}
}
func (unavailableLLM) IsAvailable(ctx context.Context) bool { return false }

type fakeMedia struct {
	playCalls       []string
	pauseCalls      int
	resumeCalls     int
	fullscreenCalls int
	playErr         error
}

func (m *fakeMedia) Play(query string) (string, []media.Result, error) {
	m.playCalls = append(m.playCalls, query)
	if m.playErr != nil {
		return "", nil, m.playErr
	}
	return "playing", nil, nil
}
func (m *fakeMedia) Pause() (string, error)      { m.pauseCalls++; return "paused", nil }
func (m *fakeMedia) Resume() (string, error)     { m.resumeCalls++; return "resumed", nil }
func (m *fakeMedia) Fullscreen() (string, error) { m.fullscreenCalls++; return "ok", nil }

type noopCues struct{ plays []feedback.Cue }

func (c *noopCues) Play(name feedback.Cue) { c.plays = append(c.plays, name) }

type fakeVolume struct {
	level     float64
	setCalls  []int
	getErr    error
}

func (v *fakeVolume) Get(ctx context.Context) (float64, error) { return v.level, v.getErr }
func (v *fakeVolume) Set(ctx context.Context, level int) error {
	v.setCalls = append(v.setCalls, level)
	v.level = float64(level) / 100.0
	return nil
}

type fakePower struct {
	shutdownCalls int
	rebootCalls   int
}

func (p *fakePower) Shutdown(ctx context.Context) error { p.shutdownCalls++; return nil }
func (p *fakePower) Reboot(ctx context.Context) error   { p.rebootCalls++; return nil }

type fakeWindow struct {
	fullscreenCalls int
	closeCalls      int
}

func (w *fakeWindow) Fullscreen(ctx context.Context) error { w.fullscreenCalls++; return nil }
func (w *fakeWindow) Close(ctx context.Context) error      { w.closeCalls++; return nil }

type fakeMediaKey struct {
	nextCalls int
	prevCalls int
}

func (k *fakeMediaKey) NextTrack(ctx context.Context) error { k.nextCalls++; return nil }
func (k *fakeMediaKey) PrevTrack(ctx context.Context) error { k.prevCalls++; return nil }

func zeroFrame(n int) []int16 { return make([]int16, n) }

func waveFrame(n int) []int16 {
	f := make([]int16, n)
	for i := range f {
		f[i] = 3000
	}
	return f
}

// --- test harness --------------------------------------------------------

type harness struct {
	o      *Orchestrator
	vol    *fakeVolume
	power  *fakePower
	window *fakeWindow
	mkey   *fakeMediaKey
	cues   *noopCues
	media  *fakeMedia
}

func newHarness(t *testing.T, sttText string, llm LlmFallback, wakeOK bool, savedVolume float64) *harness {
	t.Helper()
	cfg := DefaultConfig()
	vol := &fakeVolume{level: savedVolume}
	power := &fakePower{}
	window := &fakeWindow{}
	mkey := &fakeMediaKey{}
	cues := &noopCues{}
	med := &fakeMedia{}

	o := New(cfg, NoOpLogger{},
		passthroughAEC{}, passthroughNoise{}, &scriptedVAD{speakFrames: 3},
		fixedWake{score: 0.95}, fixedVerify{ok: wakeOK},
		fixedSTT{text: sttText}, realRouter{r: intent.NewRouter()},
		llm, med, cues,
		vol, power, window, mkey,
		"test-session")

	return &harness{o: o, vol: vol, power: power, window: window, mkey: mkey, cues: cues, media: med}
}

// drainEvents collects every event currently buffered on the orchestrator's
// channel without blocking.
func (h *harness) drainEvents() []Event {
	var out []Event
	for {
		select {
		case evt := <-h.o.events:
			out = append(out, evt)
		default:
			return out
		}
	}
}

func (h *harness) wake(t *testing.T) {
	t.Helper()
	f := Frame{Mic: waveFrame(160), Loopback: zeroFrame(160)}
	h.o.ProcessFrame(context.Background(), f)
	if h.o.sess.State() != StateListening {
		t.Fatalf("state after wake = %v, want Listening", h.o.sess.State())
	}
}

// runUtterance re-arms the scripted VAD, then feeds speech frames and enough
// silence to cross SILENCE_THRESHOLD, driving Listening (or Confirming)
// through to the post-intent state.
func (h *harness) runUtterance(t *testing.T, speechFrames, silenceFrames int) {
	t.Helper()
	if v, ok := h.o.vad.(*scriptedVAD); ok {
		v.Reset()
	}
	for i := 0; i < speechFrames; i++ {
		h.o.ProcessFrame(context.Background(), Frame{Mic: waveFrame(160), Loopback: zeroFrame(160)})
	}
	for i := 0; i < silenceFrames; i++ {
		h.o.ProcessFrame(context.Background(), Frame{Mic: zeroFrame(160), Loopback: zeroFrame(160)})
	}
}

func TestOrchestrator_S1_PlayMedia(t *testing.T) {
	h := newHarness(t, "включи интерстеллар", unavailableLLM{}, true, 0.5)
	h.wake(t)
	h.runUtterance(t, 3, 9)

	if len(h.media.playCalls) != 1 || h.media.playCalls[0] != "интерстеллар" {
		t.Fatalf("play calls = %v, want one call with query 'интерстеллар'", h.media.playCalls)
	}
	if got := h.o.sess.State(); got != StateIdle {
		t.Fatalf("final state = %v, want Idle", got)
	}
}

func TestOrchestrator_S2_Pause(t *testing.T) {
	h := newHarness(t, "пауза", unavailableLLM{}, true, 0.5)
	h.wake(t)
	h.runUtterance(t, 3, 9)

	if h.media.pauseCalls != 1 {
		t.Fatalf("pause calls = %d, want 1", h.media.pauseCalls)
	}
	if got := h.o.sess.State(); got != StateIdle {
		t.Fatalf("final state = %v, want Idle", got)
	}
}

func TestOrchestrator_S3_VolumeSet(t *testing.T) {
	h := newHarness(t, "громкость 50", unavailableLLM{}, true, 0.8)
	h.wake(t)
	// The wake itself auto-mutes to round(0.8*100*0.1); count only the calls
	// made after it.
	if len(h.vol.setCalls) != 1 || h.vol.setCalls[0] != 8 {
		t.Fatalf("volume set calls after wake = %v, want [8] (auto-mute)", h.vol.setCalls)
	}
	h.vol.setCalls = nil
	h.runUtterance(t, 3, 9)

	if len(h.vol.setCalls) != 2 {
		t.Fatalf("volume set calls = %v, want exactly 2 (execute + auto-unmute)", h.vol.setCalls)
	}
	if h.vol.setCalls[0] != 50 {
		t.Fatalf("first volume set = %d, want 50", h.vol.setCalls[0])
	}
	if h.vol.setCalls[1] != 80 {
		t.Fatalf("second volume set (auto-unmute) = %d, want 80", h.vol.setCalls[1])
	}
	if got := h.o.sess.State(); got != StateIdle {
		t.Fatalf("final state = %v, want Idle", got)
	}
}

func TestOrchestrator_S4_ShutdownConfirmed(t *testing.T) {
	h := newHarness(t, "выключи компьютер", unavailableLLM{}, true, 0.5)
	h.wake(t)
	h.runUtterance(t, 3, 9)

	if got := h.o.sess.State(); got != StateConfirming {
		t.Fatalf("state after shutdown intent = %v, want Confirming", got)
	}
	if pending := h.o.sess.pending(); pending == nil || pending.Kind != intent.Shutdown {
		t.Fatalf("pending intent = %+v, want Shutdown", pending)
	}

	h.o.sttR = fixedSTT{text: "да"}
	h.runUtterance(t, 3, 9)

	if h.power.shutdownCalls != 1 {
		t.Fatalf("shutdown calls = %d, want 1", h.power.shutdownCalls)
	}
	if got := h.o.sess.State(); got != StateIdle {
		t.Fatalf("final state = %v, want Idle", got)
	}
	if h.o.sess.pending() != nil {
		t.Fatal("pending intent should be cleared after confirmation")
	}
}

func TestOrchestrator_S5_ShutdownRejected(t *testing.T) {
	h := newHarness(t, "выключи компьютер", unavailableLLM{}, true, 0.5)
	h.wake(t)
	h.runUtterance(t, 3, 9)

	h.o.sttR = fixedSTT{text: "нет"}
	h.runUtterance(t, 3, 9)

	if h.power.shutdownCalls != 0 {
		t.Fatalf("shutdown calls = %d, want 0", h.power.shutdownCalls)
	}
	if got := h.o.sess.State(); got != StateIdle {
		t.Fatalf("final state = %v, want Idle", got)
	}
	if h.o.sess.pending() != nil {
		t.Fatal("pending intent should be cleared even on rejection")
	}
}

func TestOrchestrator_S6_LlmFallback(t *testing.T) {
	fallback := fixedLLM{available: true, result: intent.Intent{Kind: intent.VolumeDown}}
	h := newHarness(t, "расскажи анекдот про кота", fallback, true, 0.5)
	h.wake(t)
	// The wake's auto-mute has already lowered the volume, so VolumeDown
	// steps down from the current (muted) level, not from the saved one.
	current := h.vol.level
	h.vol.setCalls = nil
	h.runUtterance(t, 3, 9)

	if len(h.vol.setCalls) != 2 {
		t.Fatalf("volume set calls = %v, want exactly 2 (execute + auto-unmute)", h.vol.setCalls)
	}
	wantDown := clampPercent(int(math.Round(current*100)) - 10)
	if h.vol.setCalls[0] != wantDown {
		t.Fatalf("first volume set = %d, want %d", h.vol.setCalls[0], wantDown)
	}
	if h.vol.setCalls[1] != 50 {
		t.Fatalf("second volume set (auto-unmute) = %d, want 50", h.vol.setCalls[1])
	}
	if got := h.o.sess.State(); got != StateIdle {
		t.Fatalf("final state = %v, want Idle", got)
	}
}

func TestOrchestrator_Invariant_IdleClearsSessionState(t *testing.T) {
	h := newHarness(t, "пауза", unavailableLLM{}, true, 0.5)
	h.wake(t)
	h.runUtterance(t, 3, 9)

	if h.o.sess.State() != StateIdle {
		t.Fatal("expected Idle after a non-confirming intent")
	}
	if h.o.sess.takeSavedVolume() != nil {
		t.Fatal("saved volume should already be nil entering Idle")
	}
	if len(h.o.sess.speech()) != 0 {
		t.Fatal("speech buffer should be empty entering Idle")
	}
	if h.o.sess.pending() != nil {
		t.Fatal("pending intent should be nil entering Idle")
	}
}

func TestOrchestrator_Invariant_PendingIffConfirming(t *testing.T) {
	h := newHarness(t, "перезагрузи", unavailableLLM{}, true, 0.5)
	h.wake(t)
	h.runUtterance(t, 3, 9)

	state := h.o.sess.State()
	pending := h.o.sess.pending()
	if (pending != nil) != (state == StateConfirming) {
		t.Fatalf("pending=%v state=%v: pending must be non-nil iff state is Confirming", pending, state)
	}
}

func TestOrchestrator_Idle_IgnoresWakeWhenVerifierRejects(t *testing.T) {
	h := newHarness(t, "пауза", unavailableLLM{}, false, 0.5)
	f := Frame{Mic: waveFrame(160), Loopback: zeroFrame(160)}
	h.o.ProcessFrame(context.Background(), f)
	if h.o.sess.State() != StateIdle {
		t.Fatalf("state = %v, want Idle when wake verification fails", h.o.sess.State())
	}
}

// ExecuteRelayed is the entry point a WebSocket relay dispatches into: it
// never runs through Listening/Confirming, so a Shutdown/Reboot intent has
// no spoken confirmation to wait for. It must be dropped rather than
// executed outright.
func TestOrchestrator_ExecuteRelayed_DropsShutdown(t *testing.T) {
	h := newHarness(t, "", unavailableLLM{}, true, 0.5)
	h.o.ExecuteRelayed(context.Background(), intent.Intent{Kind: intent.Shutdown})
	if h.power.shutdownCalls != 0 {
		t.Fatalf("shutdownCalls = %d, want 0: relayed shutdown must require confirmation", h.power.shutdownCalls)
	}
	if h.o.sess.State() != StateIdle {
		t.Fatalf("state = %v, want Idle: ExecuteRelayed must not touch session state", h.o.sess.State())
	}
}

func TestOrchestrator_ExecuteRelayed_RunsNonConfirmingIntents(t *testing.T) {
	h := newHarness(t, "", unavailableLLM{}, true, 0.5)
	h.o.ExecuteRelayed(context.Background(), intent.Intent{Kind: intent.Pause})
	if h.media.pauseCalls != 1 {
		t.Fatalf("pauseCalls = %d, want 1", h.media.pauseCalls)
	}
}

func TestOrchestrator_Wake_EmitsWakeDetected(t *testing.T) {
	h := newHarness(t, "пауза", unavailableLLM{}, true, 0.5)
	h.wake(t)

	var sawWake bool
	for _, evt := range h.drainEvents() {
		if evt.Type == WakeDetected {
			sawWake = true
		}
	}
	if !sawWake {
		t.Fatalf("no WakeDetected event emitted on verified wake")
	}
}

func TestOrchestrator_VolumeSet_InvalidLevelRejected(t *testing.T) {
	h := newHarness(t, "громкость 500", unavailableLLM{}, true, 0.5)
	h.wake(t)
	h.drainEvents()
	h.vol.setCalls = nil // drop the wake's auto-mute call
	h.runUtterance(t, 3, 9)

	if len(h.vol.setCalls) != 1 || h.vol.setCalls[0] != 50 {
		t.Fatalf("setCalls = %v, want only the auto-unmute restore [50]: an out-of-range level must not reach the effector", h.vol.setCalls)
	}

	var sawError bool
	for _, evt := range h.drainEvents() {
		if evt.Type == ErrorEvent {
			sawError = true
		}
	}
	if !sawError {
		t.Fatalf("no ErrorEvent emitted for an out-of-range volume level")
	}
	if h.o.sess.State() != StateIdle {
		t.Fatalf("state = %v, want Idle", h.o.sess.State())
	}
}

func TestOrchestrator_PlayMedia_NoProvidersEmitsErrorEvent(t *testing.T) {
	h := newHarness(t, "включи интерстеллар", unavailableLLM{}, true, 0.5)
	h.media.playErr = ErrNoProviders
	h.wake(t)
	h.drainEvents()
	h.runUtterance(t, 3, 9)

	var sawError bool
	for _, evt := range h.drainEvents() {
		if evt.Type == ErrorEvent {
			sawError = true
		}
	}
	if !sawError {
		t.Fatalf("no ErrorEvent emitted when MediaManager.Play returns ErrNoProviders")
	}
}
