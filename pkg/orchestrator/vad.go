package orchestrator

import "math"

// RMSVAD is a lightweight, no-dependency voice activity detector: an RMS
// energy threshold with hysteresis on both onset (a run of consecutive
// frames above threshold) and offset (a frame-count hold after it drops
// below threshold), adapted from the teacher's original byte-stream RMSVAD
// to operate directly on decoded int16 frames.
type RMSVAD struct {
	threshold     float64
	echoThreshold float64 // raised threshold used while SetAdaptiveMode(true)
	adaptive      bool
	holdFrames    int

	isSpeaking        bool
	consecutiveFrames int
	silenceFrames     int
	minConfirmed      int
	lastRMS           float64
}

// NewRMSVAD creates a VAD with the given base threshold and the number of
// consecutive below-threshold frames required to confirm speech has ended.
func NewRMSVAD(threshold float64, holdFrames int) *RMSVAD {
	return &RMSVAD{
		threshold:     threshold,
		echoThreshold: threshold * 4,
		holdFrames:    holdFrames,
		minConfirmed:  3,
	}
}

// SetMinConfirmed sets the number of consecutive frames needed to confirm
// speech start.
func (v *RMSVAD) SetMinConfirmed(count int) { v.minConfirmed = count }

// SetThreshold updates the base RMS threshold.
func (v *RMSVAD) SetThreshold(threshold float64) { v.threshold = threshold }

// Threshold returns the currently effective threshold.
func (v *RMSVAD) Threshold() float64 {
	if v.adaptive {
		return v.echoThreshold
	}
	return v.threshold
}

// LastRMS returns the RMS of the most recently processed frame.
func (v *RMSVAD) LastRMS() float64 { return v.lastRMS }

// IsSpeaking reports whether speech is currently confirmed as ongoing.
func (v *RMSVAD) IsSpeaking() bool { return v.isSpeaking }

// SetAdaptiveMode switches between the base threshold and a raised
// echo-guard threshold, used while the assistant's own playback is active
// and likely to leak into the mic despite echo cancellation.
func (v *RMSVAD) SetAdaptiveMode(adaptive bool) { v.adaptive = adaptive }

// IsSpeech reports whether frame is classified as speech, applying onset
// hysteresis (minConfirmed consecutive frames above threshold) and offset
// hysteresis (holdFrames consecutive frames below threshold before speech is
// considered to have ended).
func (v *RMSVAD) IsSpeech(frame []int16) bool {
	rms := calculateRMS(frame)
	v.lastRMS = rms

	threshold := v.threshold
	if v.adaptive {
		threshold = v.echoThreshold
	}

	if rms > threshold {
		v.silenceFrames = 0
		v.consecutiveFrames++
		if v.isSpeaking {
			return true
		}
		if v.consecutiveFrames >= v.minConfirmed {
			v.isSpeaking = true
			return true
		}
		return false
	}

	v.consecutiveFrames = 0
	if !v.isSpeaking {
		return false
	}

	v.silenceFrames++
	if v.silenceFrames >= v.holdFrames {
		v.isSpeaking = false
		v.silenceFrames = 0
		return false
	}
	return true
}

// Reset clears all hysteresis state.
func (v *RMSVAD) Reset() {
	v.isSpeaking = false
	v.consecutiveFrames = 0
	v.silenceFrames = 0
}

func calculateRMS(frame []int16) float64 {
	if len(frame) == 0 {
		return 0
	}
	var sum float64
	for _, s := range frame {
		f := float64(s) / 32768.0
		sum += f * f
	}
	return math.Sqrt(sum / float64(len(frame)))
}
