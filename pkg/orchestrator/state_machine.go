// Package orchestrator wires the DSP, wake-word, STT, intent-routing, media
// and effector layers into the five-state pipeline that turns a stream of
// AudioFrames into executed commands.
package orchestrator

import (
	"context"
	"errors"
	"math"
	"sync"

	"github.com/hashing-labs/voxd/pkg/feedback"
	"github.com/hashing-labs/voxd/pkg/intent"
	"github.com/hashing-labs/voxd/pkg/stt"
)

// Frame mirrors audio.Frame's two channels without importing pkg/audio,
// the way the teacher's managed_stream kept its per-callback sample slices
// independent of the capture package's own framing type.
type Frame struct {
	Mic      []int16
	Loopback []int16
}

// Orchestrator runs the per-frame state machine described in SPEC_FULL.md
// §4.12, reusing the teacher's ManagedStream idioms: a buffered,
// non-blocking event channel and a sync.Once-guarded shutdown.
type Orchestrator struct {
	cfg Config
	log Logger

	aec     EchoCanceller
	noise   NoiseSuppressor
	vad     VAD
	wake    WakeDetector
	verify  WakeVerifier
	sttR    SttRouter
	intentR IntentRouter
	llm     LlmFallback
	media   MediaManager
	cues    CuePlayer

	volume   VolumeEffector
	power    PowerEffector
	window   WindowEffector
	mediaKey MediaKeyEffector

	sess *session

	events    chan Event
	sessionID string

	closeOnce sync.Once
}

// New wires every injected dependency into an Orchestrator. aec, noise, llm
// and cues may be nil, in which case their step is skipped; every other
// component is called unconditionally and must be non-nil (tests wire in a
// NoOpEffector/fake).
func New(cfg Config, log Logger, aec EchoCanceller, noise NoiseSuppressor, vad VAD,
	wake WakeDetector, verify WakeVerifier, sttR SttRouter, intentR IntentRouter,
	llm LlmFallback, media MediaManager, cues CuePlayer,
	volume VolumeEffector, power PowerEffector, window WindowEffector, mediaKey MediaKeyEffector,
	sessionID string) *Orchestrator {
	if log == nil {
		log = NoOpLogger{}
	}
	return &Orchestrator{
		cfg: cfg, log: log,
		aec: aec, noise: noise, vad: vad,
		wake: wake, verify: verify,
		sttR: sttR, intentR: intentR, llm: llm,
		media: media, cues: cues,
		volume: volume, power: power, window: window, mediaKey: mediaKey,
		sess:      newSession(),
		events:    make(chan Event, 1024),
		sessionID: sessionID,
	}
}

// Events returns the channel the orchestrator reports on: a verified wake,
// the start of listening, the end of an utterance, the routed intent, entry
// to Confirming, return to Idle, and semantic errors. Cue playback and
// effector calls are not reported.
func (o *Orchestrator) Events() <-chan Event { return o.events }

// Close idempotently shuts the orchestrator down, matching ManagedStream's
// closeOnce pattern so a double Close from both a signal handler and a
// deferred cleanup never panics on a closed channel. Closing the events
// channel is what lets a `range orch.Events()` consumer goroutine return.
func (o *Orchestrator) Close() {
	o.closeOnce.Do(func() {
		close(o.events)
	})
}

func (o *Orchestrator) emit(evt Event) {
	evt.SessionID = o.sessionID
	select {
	case o.events <- evt:
	default:
		o.log.Warn("event dropped, channel full", "type", evt.Type)
	}
}

// ProcessFrame runs one frame through the shared cleanup stage and then the
// state-specific dispatch, exactly the two-step shape of SPEC_FULL.md
// §4.12's per-frame algorithm.
func (o *Orchestrator) ProcessFrame(ctx context.Context, f Frame) {
	clean := f.Mic
	if o.aec != nil {
		clean = o.aec.Process(f.Mic, f.Loopback)
	}
	if o.noise != nil {
		clean = o.noise.Process(clean)
	}

	switch o.sess.State() {
	case StateIdle:
		o.stepIdle(ctx, f, clean)
	case StateListening:
		o.stepListening(ctx, clean)
	case StateConfirming:
		o.stepConfirming(ctx, clean)
	}
}

func (o *Orchestrator) stepIdle(ctx context.Context, f Frame, clean []int16) {
	confidence := o.wake.ProcessFrame(clean)
	micRMS := rms(f.Mic)
	loopRMS := rms(f.Loopback)

	if !o.verify.Verify(micRMS, loopRMS, confidence) {
		return
	}

	o.emit(Event{Type: WakeDetected, Data: confidence})
	o.playCue(feedback.CueWake)
	o.autoMute(ctx)
	o.sess.transition(StateListening)
	o.emit(Event{Type: ListeningStarted})
}

func (o *Orchestrator) stepListening(ctx context.Context, clean []int16) {
	o.sess.appendSpeech(clean)

	speaking := o.vad.IsSpeech(clean)
	var silence int
	if speaking {
		o.sess.resetSilence()
	} else {
		silence = o.sess.noteSilence()
	}

	durationSeconds := float64(o.sess.listenFrames()*o.cfg.FrameSize) / float64(o.cfg.SampleRate)
	if silence <= o.cfg.SilenceThreshold && durationSeconds <= o.cfg.MaxListenSeconds {
		return
	}

	o.sess.transition(StateProcessing)
	buffer := o.sess.speech()
	text, err := o.sttR.Transcribe(ctx, int16ToPCMBytes(buffer), stt.ContextGeneral)
	if err != nil {
		o.log.Warn("transcription failed", "err", err)
		text = ""
	}
	o.emit(Event{Type: UtteranceEnd, Data: text})
	o.routeAndExecute(ctx, text)
}

func (o *Orchestrator) stepConfirming(ctx context.Context, clean []int16) {
	o.sess.appendSpeech(clean)

	speaking := o.vad.IsSpeech(clean)
	var silence int
	if speaking {
		o.sess.resetSilence()
	} else {
		silence = o.sess.noteSilence()
	}
	if silence <= o.cfg.SilenceThreshold {
		return
	}

	buffer := o.sess.speech()
	text, err := o.sttR.Transcribe(ctx, int16ToPCMBytes(buffer), stt.ContextConfirmation)
	if err != nil {
		o.log.Warn("confirmation transcription failed", "err", err)
		text = ""
	}

	if pending := o.sess.pending(); pending != nil && o.cfg.ConfirmTokens[text] {
		o.executePendingConfirmed(ctx, *pending)
	}

	o.autoUnmute(ctx)
	o.sess.transition(StateIdle)
	o.emit(Event{Type: StateChanged, Data: StateIdle})
}

func (o *Orchestrator) executePendingConfirmed(ctx context.Context, pending intent.Intent) {
	switch pending.Kind {
	case intent.Shutdown:
		if err := o.power.Shutdown(ctx); err != nil {
			o.log.Warn("shutdown effector failed", "err", err)
		}
	case intent.Reboot:
		if err := o.power.Reboot(ctx); err != nil {
			o.log.Warn("reboot effector failed", "err", err)
		}
	}
}

// routeAndExecute runs the intent pipeline from a finished transcript:
// pattern routing, LLM fallback when the pattern router can't name one, and
// dispatch. Always leaves the session in Processing on entry and either
// Confirming or Idle on exit.
func (o *Orchestrator) routeAndExecute(ctx context.Context, text string) {
	o.playCue(feedback.CueConfirm)

	routed := o.intentR.Route(text)
	if routed.Kind == intent.Unknown && o.llm != nil && o.llm.IsAvailable(ctx) {
		routed = o.llm.Route(ctx, text)
	}

	o.sess.transition(StateResponding)
	o.emit(Event{Type: IntentRouted, Data: routed})

	entersConfirming := o.execute(ctx, routed)
	if entersConfirming {
		o.sess.transition(StateConfirming)
		o.emit(Event{Type: ConfirmingEvent, Data: routed})
		return
	}

	o.autoUnmute(ctx)
	o.sess.transition(StateIdle)
	o.emit(Event{Type: StateChanged, Data: StateIdle})
}

// ExecuteRelayed runs in for RemoteRelay: the same dispatch table as a
// voice-driven Listening transcript, but one-shot — it never touches
// OrchestratorState. A Shutdown/Reboot normally hands off to Confirming to
// wait for spoken confirmation; the relay has no microphone turn to confirm
// with, so that case is logged and dropped rather than silently executed
// without confirmation.
func (o *Orchestrator) ExecuteRelayed(ctx context.Context, in intent.Intent) {
	if in.Kind == intent.Shutdown || in.Kind == intent.Reboot {
		o.log.Warn("relayed command requires confirmation, dropping", "kind", in.Kind)
		return
	}
	o.execute(ctx, in)
}

// execute runs the dispatch table in SPEC_FULL.md §4.12.1, returning true
// when the intent hands off to Confirming instead of returning to Idle.
func (o *Orchestrator) execute(ctx context.Context, in intent.Intent) (entersConfirming bool) {
	switch in.Kind {
	case intent.PlayMedia:
		if _, _, err := o.media.Play(in.Query); err != nil {
			o.handleMediaError("play", err)
		}
	case intent.Pause:
		if _, err := o.media.Pause(); err != nil {
			o.handleMediaError("pause", err)
		}
	case intent.Resume:
		if _, err := o.media.Resume(); err != nil {
			o.handleMediaError("resume", err)
		}
	case intent.Fullscreen:
		if _, err := o.media.Fullscreen(); err != nil {
			o.handleMediaError("fullscreen", err)
		}
		if err := o.window.Fullscreen(ctx); err != nil {
			o.log.Warn("window fullscreen failed", "err", err)
		}
	case intent.VolumeSet:
		level, ok := volumeLevel(in.Params["level"])
		if !ok || level < 0 || level > 100 {
			o.log.Warn("invalid volume level", "err", ErrInvalidLevel, "params", in.Params)
			o.emitError("Громкость должна быть от 0 до 100.")
			break
		}
		o.setVolume(ctx, level)
	case intent.VolumeUp:
		o.bumpVolume(ctx, 10)
	case intent.VolumeDown:
		o.bumpVolume(ctx, -10)
	case intent.NextTrack:
		if err := o.mediaKey.NextTrack(ctx); err != nil {
			o.log.Warn("next track effector failed", "err", err)
		}
	case intent.PrevTrack:
		if err := o.mediaKey.PrevTrack(ctx); err != nil {
			o.log.Warn("prev track effector failed", "err", err)
		}
	case intent.Shutdown, intent.Reboot:
		o.sess.setPending(in)
		return true
	case intent.Close:
		if err := o.window.Close(ctx); err != nil {
			o.log.Warn("window close failed", "err", err)
		}
	case intent.Unknown:
		o.emitError("Не поняла команду.")
	}
	return false
}

// volumeLevel reads the "level" param populated by either the pattern
// router (int) or the LLM fallback's JSON-decoded tool call (float64).
func volumeLevel(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

// handleMediaError logs every media failure at warn (transient-I/O tier)
// and additionally surfaces the semantic-error tier's ones — no providers,
// no results, nothing playing — as a short Russian message on the event
// channel, matching §7's error taxonomy.
func (o *Orchestrator) handleMediaError(action string, err error) {
	o.log.Warn("media action failed", "action", action, "err", err)
	switch {
	case errors.Is(err, ErrNoProviders):
		o.emitError("Нет доступных источников воспроизведения.")
	case errors.Is(err, ErrNoResults):
		o.emitError("Ничего не найдено.")
	case errors.Is(err, ErrNothingPlaying):
		o.emitError("Сейчас ничего не воспроизводится.")
	}
}

// emitError reports a semantic error on the event channel and plays the
// error cue, the shared reaction §7 specifies for both semantic errors and
// an unrecognized intent.
func (o *Orchestrator) emitError(message string) {
	o.emit(Event{Type: ErrorEvent, Data: message})
	o.playCue(feedback.CueError)
}

func (o *Orchestrator) bumpVolume(ctx context.Context, delta int) {
	current, err := o.volume.Get(ctx)
	if err != nil {
		o.log.Warn("volume get failed", "err", err)
		return
	}
	o.setVolume(ctx, clampPercent(int(math.Round(current*100))+delta))
}

func (o *Orchestrator) setVolume(ctx context.Context, level int) {
	if err := o.volume.Set(ctx, clampPercent(level)); err != nil {
		o.log.Warn("volume set failed", "err", err)
	}
}

// autoMute saves the current volume and drops it to a quiet fraction so the
// assistant's own playback doesn't drown out the command it's listening for.
func (o *Orchestrator) autoMute(ctx context.Context) {
	current, err := o.volume.Get(ctx)
	if err != nil {
		o.log.Warn("auto-mute volume read failed", "err", err)
		return
	}
	o.sess.setSavedVolume(current)
	if err := o.volume.Set(ctx, int(math.Round(current*100*o.cfg.AutoMuteFactor))); err != nil {
		o.log.Warn("auto-mute volume set failed", "err", err)
	}
}

// autoUnmute restores whatever volume autoMute saved, if any.
func (o *Orchestrator) autoUnmute(ctx context.Context) {
	saved := o.sess.takeSavedVolume()
	if saved == nil {
		return
	}
	if err := o.volume.Set(ctx, int(math.Round(*saved*100))); err != nil {
		o.log.Warn("auto-unmute volume set failed", "err", err)
	}
}

func (o *Orchestrator) playCue(name feedback.Cue) {
	if o.cues == nil {
		return
	}
	o.cues.Play(name)
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func rms(frame []int16) float64 {
	if len(frame) == 0 {
		return 0
	}
	var sum float64
	for _, s := range frame {
		v := float64(s) / 32768.0
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(frame)))
}

// int16ToPCMBytes little-endian encodes a frame for handoff to an STT
// backend, matching the byte order pkg/audio.NewWavBuffer expects.
func int16ToPCMBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		out[2*i] = byte(uint16(s))
		out[2*i+1] = byte(uint16(s) >> 8)
	}
	return out
}
