package orchestrator

import (
	"sync"

	"github.com/hashing-labs/voxd/pkg/intent"
)

// session holds everything that must survive between frames of a single
// wake-to-idle cycle: the state label itself, the utterance being
// accumulated, and the two pieces of state a Confirming round needs to
// remember what it's waiting on. Adapted from the teacher's
// ConversationSession — same mutex-guarded holder pattern, but carrying
// orchestrator state instead of chat history and a voice/language pair.
type session struct {
	mu sync.Mutex

	state State

	speechBuffer []int16
	silenceRun   int
	listenStart  int // frame count since LISTENING_STARTED

	pendingIntent *intent.Intent
	savedVolume   *float64
}

func newSession() *session {
	return &session{state: StateIdle}
}

func (s *session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// transition moves to next and resets the per-utterance state next starts
// from. Entering Idle clears the speech buffer, the silence run and any
// pending confirmation; entering Listening or Confirming clears the speech
// buffer and the silence run. SavedVolume is not touched here: autoUnmute
// clears it before the orchestrator returns to Idle.
func (s *session) transition(next State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = next
	switch next {
	case StateIdle:
		s.speechBuffer = nil
		s.silenceRun = 0
		s.listenStart = 0
		s.pendingIntent = nil
	case StateListening, StateConfirming:
		s.speechBuffer = s.speechBuffer[:0]
		s.silenceRun = 0
		s.listenStart = 0
	}
}

func (s *session) appendSpeech(frame []int16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.speechBuffer = append(s.speechBuffer, frame...)
	s.listenStart++
}

func (s *session) speech() []int16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int16, len(s.speechBuffer))
	copy(out, s.speechBuffer)
	return out
}

func (s *session) resetSilence() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.silenceRun = 0
}

// noteSilence increments the run of consecutive non-speech frames seen
// since the last speech frame and reports the new count.
func (s *session) noteSilence() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.silenceRun++
	return s.silenceRun
}

func (s *session) listenFrames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listenStart
}

func (s *session) setPending(in intent.Intent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingIntent = &in
}

func (s *session) pending() *intent.Intent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingIntent
}

func (s *session) setSavedVolume(level float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.savedVolume = &level
}

func (s *session) takeSavedVolume() *float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.savedVolume
	s.savedVolume = nil
	return v
}
