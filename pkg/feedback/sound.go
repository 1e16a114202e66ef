// Package feedback synthesizes and plays the assistant's short audio cues
// (wake acknowledgement, confirm prompt, error tone).
package feedback

import (
	"math"
	"sync"
)

// Cue names the three built-in tones.
type Cue string

const (
	CueWake    Cue = "wake"
	CueConfirm Cue = "confirm"
	CueError   Cue = "error"
)

type cueSpec struct {
	freqHz     float64
	durationMs int
}

var defaultCues = map[Cue]cueSpec{
	CueWake:    {freqHz: 880, durationMs: 50},
	CueConfirm: {freqHz: 440, durationMs: 100},
	CueError:   {freqHz: 220, durationMs: 200},
}

const cueAmplitude = 0.5

// Sink is the non-blocking playback destination cues are written to — in
// production this is the malgo playback device's ring buffer (see
// cmd/assistant), wired the same way the teacher feeds its playbackBytes
// buffer from an event consumer goroutine.
type Sink interface {
	Enqueue(pcm []int16)
}

// Player pre-synthesizes the cue set at construction and writes a cue's PCM
// into the sink on Play without blocking the caller.
type Player struct {
	sampleRate int
	sink       Sink
	mu         sync.Mutex
	cues       map[Cue][]int16
}

// NewPlayer synthesizes all cues at the given sample rate.
func NewPlayer(sampleRate int, sink Sink) *Player {
	p := &Player{sampleRate: sampleRate, sink: sink, cues: make(map[Cue][]int16)}
	for name, spec := range defaultCues {
		p.cues[name] = synthesizeSine(spec.freqHz, spec.durationMs, sampleRate, cueAmplitude)
	}
	return p
}

// Play enqueues the named cue on a separate goroutine so playback never
// blocks the orchestrator's frame loop. Unknown cue names are ignored.
func (p *Player) Play(name Cue) {
	p.mu.Lock()
	pcm, ok := p.cues[name]
	p.mu.Unlock()
	if !ok || p.sink == nil {
		return
	}
	go p.sink.Enqueue(pcm)
}

func synthesizeSine(freqHz float64, durationMs, sampleRate int, amplitude float64) []int16 {
	n := sampleRate * durationMs / 1000
	out := make([]int16, n)
	for i := 0; i < n; i++ {
		t := float64(i) / float64(sampleRate)
		v := amplitude * math.Sin(2*math.Pi*freqHz*t)
		out[i] = int16(v * 32767)
	}
	return out
}
