// Command assistant is the process entry point: it loads configuration,
// wires every layer together, opens the duplex audio device, and runs the
// orchestrator's per-frame loop until interrupted.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gen2brain/malgo"

	"github.com/hashing-labs/voxd/pkg/audio"
	"github.com/hashing-labs/voxd/pkg/config"
	"github.com/hashing-labs/voxd/pkg/dsp"
	"github.com/hashing-labs/voxd/pkg/effectors"
	"github.com/hashing-labs/voxd/pkg/feedback"
	"github.com/hashing-labs/voxd/pkg/intent"
	"github.com/hashing-labs/voxd/pkg/llm"
	"github.com/hashing-labs/voxd/pkg/logging"
	"github.com/hashing-labs/voxd/pkg/media"
	"github.com/hashing-labs/voxd/pkg/orchestrator"
	"github.com/hashing-labs/voxd/pkg/relay"
	"github.com/hashing-labs/voxd/pkg/stt"
	"github.com/hashing-labs/voxd/pkg/wakeword"
)

func main() {
	cfgPath := os.Getenv("VOXD_CONFIG")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.NewStdLogger(cfg.Log.Level)

	sink := newPlaybackSink()
	cues := feedback.NewPlayer(cfg.Audio.SampleRate, sink)

	mediaMgr := media.NewManager()

	generalSTT, confirmSTT := buildSTTBackends(cfg)
	sttRouter := stt.NewRouter(generalSTT, confirmSTT, stt.LanguageRu)

	intentRouter := intent.NewRouter()
	fallback := llm.NewFallbackRouter(cfg.LLMFallback.BaseURL, cfg.LLMFallback.Model)

	volumeFx := effectors.NewHTTPVolumeEffector(cfg.Effectors.VolumeBaseURL)
	powerFx := effectors.NewHTTPPowerEffector(cfg.Effectors.PowerBaseURL)
	windowFx := effectors.NewHTTPWindowEffector(cfg.Effectors.WindowBaseURL)
	mediaKeyFx := effectors.NewHTTPMediaKeyEffector(cfg.Effectors.MediaKeyBaseURL)

	// Sub-frame size, VAD hold length, and wake-template decimation aren't
	// part of the documented YAML surface (config.go/SPEC_FULL.md §6) — they
	// tune internals fine enough that exposing them wasn't worth the
	// surface area, matching how SPEC_FULL.md's §4.12 constants
	// (SILENCE_THRESHOLD, auto_mute_factor) are implementation defaults too.
	const (
		aecSubFrameSize = 128
		vadThreshold    = 0.02
		vadHoldFrames   = 10
		wakeDecimation  = 4
	)

	aec := dsp.NewEchoCanceller(cfg.AEC.FilterLength, aecSubFrameSize)
	noise := dsp.NewNoiseSuppressor()
	vad := orchestrator.NewRMSVAD(vadThreshold, vadHoldFrames)
	// cfg.WakeWord.ModelPath names a recorded template file; loading it into
	// []wakeword.Template is a deployment-time step (record-your-own wake
	// phrase) outside this process's responsibility, so it starts empty here.
	wakeDetector := wakeword.NewDetector(nil, wakeDecimation, cfg.WakeWord.Threshold)
	wakeVerifier := wakeword.NewVerifier(cfg.WakeWord.Threshold, cfg.WakeWord.EnergyRatioThreshold)

	orchCfg := orchestrator.Config{
		SampleRate:       cfg.Audio.SampleRate,
		FrameSize:        cfg.Audio.FrameSize,
		SilenceThreshold: 8,
		MaxListenSeconds: cfg.STT.MaxListenSeconds,
		AutoMuteFactor:   cfg.AEC.AutoMuteFactor,
		ConfirmTokens:    orchestrator.DefaultConfig().ConfirmTokens,
	}

	orch := orchestrator.New(orchCfg, logger,
		aec, noise, vad, wakeDetector, wakeVerifier,
		sttRouter, intentRouter, fallback, mediaMgr, cues,
		volumeFx, powerFx, windowFx, mediaKeyFx,
		"assistant")
	defer orch.Close()

	if cfg.RemoteRelay.Enabled {
		r := relay.New(intentRouter, logger).WithDispatcher(orch.ExecuteRelayed)
		go func() {
			if err := r.ListenAndServe(cfg.RemoteRelay.ListenAddr); err != nil {
				logger.Warn("relay stopped", "err", err)
			}
		}()
	}

	capture := audio.NewCapture(cfg.Audio.FrameSize, cfg.Audio.SampleRate, 2.0)
	capture.Start()
	defer capture.Stop()

	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		logger.Error("malgo init failed", "err", err)
		os.Exit(1)
	}
	defer mctx.Uninit()

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Duplex)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = 1
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = 1
	deviceConfig.SampleRate = uint32(cfg.Audio.SampleRate)
	deviceConfig.Alsa.NoMMap = 1

	var micRemain []int16

	onSamples := func(pOutput, pInput []byte, frameCount uint32) {
		if pInput != nil {
			samples := bytesToInt16(pInput)
			micRemain = append(micRemain, samples...)
			n := len(micRemain) / cfg.Audio.FrameSize * cfg.Audio.FrameSize
			for off := 0; off < n; off += cfg.Audio.FrameSize {
				chunk := make([]int16, cfg.Audio.FrameSize)
				copy(chunk, micRemain[off:off+cfg.Audio.FrameSize])
				capture.PushMic(chunk)
			}
			micRemain = append([]int16(nil), micRemain[n:]...)
		}
		if pOutput != nil {
			sink.fillPlayback(pOutput)
		}
	}

	device, err := malgo.InitDevice(mctx.Context, deviceConfig, malgo.DeviceCallbacks{Data: onSamples})
	if err != nil {
		logger.Error("device init failed", "err", err)
		os.Exit(1)
	}
	defer device.Uninit()

	if err := device.Start(); err != nil {
		logger.Error("device start failed", "err", err)
		os.Exit(1)
	}

	// The loopback leg is a second, independent device reading the system's
	// render output (whatever is actually audible — this process's own cues
	// mixed with any external media a Provider is driving), not a proxy built
	// from what this process queued to play. Without it, a wake word spoken
	// while a PlayMedia provider has audio going through the system mixer
	// would never have a real reference to cancel or compare against, which
	// is the scenario this device exists for in the first place.
	loopbackConfig := malgo.DefaultDeviceConfig(malgo.Loopback)
	loopbackConfig.Capture.Format = malgo.FormatS16
	loopbackConfig.Capture.Channels = 1
	loopbackConfig.SampleRate = uint32(cfg.Audio.SampleRate)

	onLoopbackSamples := func(pOutput, pInput []byte, frameCount uint32) {
		if pInput == nil {
			return
		}
		capture.PushLoopback(bytesToInt16(pInput), cfg.Audio.SampleRate, 1)
	}

	loopbackDevice, err := malgo.InitDevice(mctx.Context, loopbackConfig, malgo.DeviceCallbacks{Data: onLoopbackSamples})
	if err != nil {
		logger.Error("loopback device init failed", "err", err)
		os.Exit(1)
	}
	defer loopbackDevice.Uninit()

	if err := loopbackDevice.Start(); err != nil {
		logger.Error("loopback device start failed", "err", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		for evt := range orch.Events() {
			logger.Info("event", "type", evt.Type, "data", evt.Data)
		}
	}()

	go func() {
		for {
			frame, err := capture.ReadFrame(500 * time.Millisecond)
			if err != nil {
				select {
				case <-ctx.Done():
					return
				default:
					continue
				}
			}
			orch.ProcessFrame(ctx, orchestrator.Frame{Mic: frame.Mic, Loopback: frame.Loopback})
		}
	}()

	fmt.Println("voxd listening. Press Ctrl+C to exit.")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	fmt.Println("shutting down...")
}

// buildSTTBackends builds Groq clients for both the General and Confirm
// roles, authenticated with the GROQ_API_KEY environment variable; no other
// provider is selectable here. Confirm defaults to the same model as
// General unless stt.confirm_model_path names a cheaper one — matching
// cmd/agent's practice of keeping the confirmation turn on a lighter model
// than the main command turn. Both backends are stamped with the capture
// pipeline's actual sample rate: GroqSTT defaults to 44100 internally, and
// leaving that default in place would mislabel the WAV header it builds
// from cfg.Audio.SampleRate-rate PCM, playing every utterance back sped up.
func buildSTTBackends(cfg config.Config) (stt.Backend, stt.Backend) {
	groqKey := os.Getenv("GROQ_API_KEY")

	generalModel := cfg.STT.GeneralModel
	if generalModel == "" {
		generalModel = "whisper-large-v3-turbo"
	}
	confirmModel := cfg.STT.ConfirmModelPath
	if confirmModel == "" {
		confirmModel = generalModel
	}

	general := stt.NewGroqSTT(groqKey, generalModel)
	general.SetSampleRate(cfg.Audio.SampleRate)
	confirm := stt.NewGroqSTT(groqKey, confirmModel)
	confirm.SetSampleRate(cfg.Audio.SampleRate)
	return general, confirm
}

func bytesToInt16(b []byte) []int16 {
	out := make([]int16, len(b)/2)
	for i := range out {
		out[i] = int16(uint16(b[2*i]) | uint16(b[2*i+1])<<8)
	}
	return out
}

// playbackSink backs feedback.Player.Enqueue and the device's playback
// callback, matching cmd/agent's playbackBytes/playbackMu pattern.
type playbackSink struct {
	mu  sync.Mutex
	buf []int16
}

func newPlaybackSink() *playbackSink { return &playbackSink{} }

func (s *playbackSink) Enqueue(samples []int16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf = append(s.buf, samples...)
}

func (s *playbackSink) fillPlayback(pOutput []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(pOutput) / 2
	if n > len(s.buf) {
		n = len(s.buf)
	}
	for i := 0; i < n; i++ {
		pOutput[2*i] = byte(uint16(s.buf[i]))
		pOutput[2*i+1] = byte(uint16(s.buf[i]) >> 8)
	}
	for i := n * 2; i < len(pOutput); i++ {
		pOutput[i] = 0
	}
	s.buf = s.buf[n:]
}
