package audio

import (
	"testing"
	"time"
)

func TestCapture_SynchronizesMicAndLoopback(t *testing.T) {
	c := NewCapture(4, 16000, 1.0)
	c.Start()
	defer c.Stop()

	mic := []int16{1, 2, 3, 4}
	c.PushMic(mic)
	c.PushLoopback([]int16{10, 20, 30, 40}, 16000, 1)

	frame, err := c.ReadFrame(time.Second)
	if err != nil {
		t.Fatalf("expected a frame, got error: %v", err)
	}
	if len(frame.Mic) != 4 || len(frame.Loopback) != 4 {
		t.Fatalf("expected frame size 4, got mic=%d loopback=%d", len(frame.Mic), len(frame.Loopback))
	}
	for i, v := range mic {
		if frame.Mic[i] != v {
			t.Errorf("mic[%d] = %d, want %d", i, frame.Mic[i], v)
		}
	}
}

func TestCapture_ReadFrameTimesOutWhenEmpty(t *testing.T) {
	c := NewCapture(4, 16000, 1.0)
	c.Start()
	defer c.Stop()

	_, err := c.ReadFrame(20 * time.Millisecond)
	if err != ErrNoFrame {
		t.Fatalf("expected ErrNoFrame, got %v", err)
	}
}

func TestCapture_LoopbackResamplesToFrameSize(t *testing.T) {
	c := NewCapture(4, 16000, 1.0)
	c.Start()
	defer c.Stop()

	// 16 interleaved stereo samples (8 frames) at 32kHz should downmix+resample
	// to 4 mono samples at 16kHz.
	stereo := []int16{100, -100, 200, -200, 300, -300, 400, -400, 500, -500, 600, -600, 700, -700, 800, -800}
	c.PushLoopback(stereo, 32000, 2)
	c.PushMic([]int16{0, 0, 0, 0})

	frame, err := c.ReadFrame(time.Second)
	if err != nil {
		t.Fatalf("expected a frame, got error: %v", err)
	}
	if len(frame.Loopback) != 4 {
		t.Fatalf("expected resampled loopback frame of length 4, got %d", len(frame.Loopback))
	}
}

func TestCapture_DropsOldestOnRingOverflow(t *testing.T) {
	c := NewCapture(2, 16000, 0) // tiny ring: capacity clamps to 2 slots
	c.Start()
	defer c.Stop()

	for i := 0; i < 20; i++ {
		c.PushMic([]int16{int16(i), int16(i)})
	}
	// Ring must not panic or deadlock on overflow; draining should still work.
	c.PushLoopback([]int16{0, 0}, 16000, 1)
	frame, err := c.ReadFrame(time.Second)
	if err != nil {
		t.Fatalf("expected a frame after overflow, got error: %v", err)
	}
	// Only the two newest mic frames (18 and 19) survive; the oldest of them
	// is paired first.
	if frame.Mic[0] != 18 {
		t.Fatalf("mic[0] = %d, want 18 (oldest frames dropped)", frame.Mic[0])
	}
}
