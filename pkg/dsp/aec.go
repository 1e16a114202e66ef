// Package dsp holds the per-frame signal-processing stages that sit between
// capture and voice/wake detection: echo cancellation and noise suppression.
package dsp

// EchoCanceller removes speaker leak from a mic signal using the system
// loopback as a reference, via a normalized least-mean-squares adaptive
// filter. State (the weight vector) persists across Process calls until
// Reset.
type EchoCanceller struct {
	weights      []float64
	history      []float64 // rolling reference history, len == len(weights)
	subFrameSize int
}

// NewEchoCanceller creates a canceller with the given adaptive filter length
// and sub-frame chunk size used when feeding the filter.
func NewEchoCanceller(filterLength, subFrameSize int) *EchoCanceller {
	if subFrameSize <= 0 {
		subFrameSize = 160
	}
	return &EchoCanceller{
		weights:      make([]float64, filterLength),
		history:      make([]float64, filterLength),
		subFrameSize: subFrameSize,
	}
}

// Reset discards filter state.
func (e *EchoCanceller) Reset() {
	for i := range e.weights {
		e.weights[i] = 0
		e.history[i] = 0
	}
}

const nlmsStepSize = 0.5
const nlmsEpsilon = 1e-8

// Process returns a cleaned copy of mic with the estimated echo (driven by
// ref) subtracted out. len(mic) must equal len(ref); the output has the same
// length. Processing happens in subFrameSize chunks so the filter converges
// smoothly across frame boundaries instead of only at chunk edges.
func (e *EchoCanceller) Process(mic, ref []int16) []int16 {
	out := make([]int16, len(mic))
	for off := 0; off < len(mic); off += e.subFrameSize {
		end := off + e.subFrameSize
		if end > len(mic) {
			end = len(mic)
		}
		e.processSub(mic[off:end], ref[off:end], out[off:end])
	}
	return out
}

func (e *EchoCanceller) processSub(mic, ref, dst []int16) {
	n := len(e.weights)
	for i := range mic {
		// shift reference history and push the newest sample in.
		copy(e.history[1:], e.history[:n-1])
		e.history[0] = float64(ref[i]) / 32768.0

		var estimate float64
		for k := 0; k < n; k++ {
			estimate += e.weights[k] * e.history[k]
		}

		x := float64(mic[i]) / 32768.0
		err := x - estimate

		var energy float64
		for k := 0; k < n; k++ {
			energy += e.history[k] * e.history[k]
		}
		mu := nlmsStepSize / (energy + nlmsEpsilon)
		for k := 0; k < n; k++ {
			e.weights[k] += mu * err * e.history[k]
		}

		dst[i] = clamp16(err * 32768.0)
	}
}

func clamp16(v float64) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}
