package dsp

// NoiseModel estimates and removes stationary background noise from a
// float-domain frame. The default implementation is a minimum-statistics
// gate on a single frame-energy floor; a real suppression network can be substituted behind
// the same interface.
type NoiseModel interface {
	Suppress(frame []float64) []float64
}

// NoiseSuppressor wraps a NoiseModel with the int16 <-> float conversion the
// rest of the pipeline expects.
type NoiseSuppressor struct {
	model NoiseModel
}

// NewNoiseSuppressor builds a suppressor backed by the default
// minimum-statistics gate.
func NewNoiseSuppressor() *NoiseSuppressor {
	return &NoiseSuppressor{model: newMinStatGate()}
}

// NewNoiseSuppressorWithModel allows swapping in a different NoiseModel.
func NewNoiseSuppressorWithModel(model NoiseModel) *NoiseSuppressor {
	return &NoiseSuppressor{model: model}
}

// Process converts frame to float, applies the model, and clips back to
// int16. A frame of all zeros always maps to all zeros.
func (n *NoiseSuppressor) Process(frame []int16) []int16 {
	floats := make([]float64, len(frame))
	for i, s := range frame {
		floats[i] = float64(s) / 32768.0
	}
	cleaned := n.model.Suppress(floats)
	out := make([]int16, len(cleaned))
	for i, f := range cleaned {
		out[i] = clamp16(f * 32768.0)
	}
	return out
}

// minStatGate tracks a slow-moving noise floor of frame energy across frames
// using a decaying minimum, and attenuates frames close to that floor. It keeps a
// single scalar floor (not a full spectral one) since the pipeline already
// works frame-by-frame in the time domain.
type minStatGate struct {
	floor      float64
	decay      float64 // how quickly the floor estimate rises toward new quiet levels
	attenuateK float64 // attenuation applied at the floor, fading to 1.0 well above it
}

func newMinStatGate() *minStatGate {
	return &minStatGate{
		floor:      0,
		decay:      0.05,
		attenuateK: 0.15,
	}
}

func (g *minStatGate) Suppress(frame []float64) []float64 {
	if len(frame) == 0 {
		return frame
	}

	var energy float64
	for _, s := range frame {
		energy += s * s
	}
	rms := energy / float64(len(frame))

	if rms < g.floor || g.floor == 0 {
		g.floor = rms
	} else {
		g.floor += g.decay * (rms - g.floor)
	}

	// gain ramps from attenuateK at the floor to 1.0 at 4x the floor.
	ceiling := g.floor*4 + 1e-12
	var gain float64
	if rms <= g.floor {
		gain = g.attenuateK
	} else if rms >= ceiling {
		gain = 1.0
	} else {
		t := (rms - g.floor) / (ceiling - g.floor)
		gain = g.attenuateK + t*(1.0-g.attenuateK)
	}

	out := make([]float64, len(frame))
	for i, s := range frame {
		out[i] = s * gain
	}
	return out
}
