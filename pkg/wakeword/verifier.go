package wakeword

import "math"

const energyEpsilon = 1e-10

// Verifier rejects wake-word detections that most likely originated from the
// system's own speakers rather than the user, by comparing mic and loopback
// energy at the moment of detection. It deliberately takes raw, pre-AEC
// energies: AEC would erase the very signal this test needs to see.
type Verifier struct {
	confidenceThreshold float64
	energyRatioThreshold float64
}

// NewVerifier builds a verifier with the given thresholds.
func NewVerifier(confidenceThreshold, energyRatioThreshold float64) *Verifier {
	return &Verifier{
		confidenceThreshold:  confidenceThreshold,
		energyRatioThreshold: energyRatioThreshold,
	}
}

// Verify accepts a candidate wake detection if its confidence clears the
// confidence threshold and the mic/loopback energy ratio clears the energy
// ratio threshold.
func (v *Verifier) Verify(micRMS, loopbackRMS, confidence float64) bool {
	if confidence < v.confidenceThreshold {
		return false
	}
	ratio := micRMS / (loopbackRMS + energyEpsilon)
	return ratio >= v.energyRatioThreshold
}

// RMS computes the root-mean-square energy of a raw int16 frame.
func RMS(frame []int16) float64 {
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
