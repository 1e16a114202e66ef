package dsp

import "testing"

func TestNoiseSuppressor_ZeroInputStaysZero(t *testing.T) {
	n := NewNoiseSuppressor()
	frame := make([]int16, 32)
	out := n.Process(frame)
	for i, v := range out {
		if v != 0 {
			t.Fatalf("sample %d: got %d, want 0", i, v)
		}
	}
}

func TestNoiseSuppressor_AttenuatesQuietFramesMoreThanLoudOnes(t *testing.T) {
	n := NewNoiseSuppressor()

	quiet := make([]int16, 64)
	for i := range quiet {
		quiet[i] = 50
	}
	// warm up the floor estimate on quiet frames first.
	var quietOut []int16
	for i := 0; i < 10; i++ {
		quietOut = n.Process(quiet)
	}

	loud := make([]int16, 64)
	for i := range loud {
		loud[i] = 20000
	}
	out := n.Process(loud)

	var loudIn, loudOut float64
	for i := range loud {
		loudIn += float64(loud[i])
		loudOut += float64(out[i])
	}
	ratio := loudOut / loudIn
	if ratio < 0.9 {
		t.Errorf("expected a loud frame well above the floor to pass through mostly unattenuated, ratio=%.3f", ratio)
	}

	var quietIn, quietOutSum float64
	for i := range quiet {
		quietIn += float64(quiet[i])
		quietOutSum += float64(quietOut[i])
	}
	if quietRatio := quietOutSum / quietIn; quietRatio >= ratio {
		t.Errorf("expected a quiet frame at the floor to be attenuated more than a loud one, quiet ratio=%.3f loud ratio=%.3f", quietRatio, ratio)
	}
}
