// Package session owns the recording state machine: which state the
// app is in, the captured segments, and the mapping from hotkey actions
// to transitions. The Controller runs the event loop tying hotkeys,
// capture, cues and the orchestrator together.
package session

import (
	"time"

	"github.com/google/uuid"
)

type State int

const (
	Idle State = iota
	Recording
	Paused
	Cached
	Transcribing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	case Paused:
		return "paused"
	case Cached:
		return "cached"
	case Transcribing:
		return "transcribing"
	}
	return "unknown"
}

// Segment is one continuous capture span. PCM is owned by the session
// and released on Clear or successful completion.
type Segment struct {
	PCM        []byte
	CapturedAt time.Time
	Duration   time.Duration
}

// Session accumulates segments for one logical note. Created on the
// Idle->Recording transition, destroyed on Clear or completion.
type Session struct {
	ID       string
	segments []Segment
}

func NewSession() *Session {
	return &Session{ID: uuid.NewString()}
}

func (s *Session) Append(seg Segment) {
	s.segments = append(s.segments, seg)
}

// Segments returns the PCM payloads in insertion order.
func (s *Session) Segments() [][]byte {
	out := make([][]byte, len(s.segments))
	for i, seg := range s.segments {
		out[i] = seg.PCM
	}
	return out
}

func (s *Session) Count() int {
	return len(s.segments)
}

func (s *Session) TotalDuration() time.Duration {
	var total time.Duration
	for _, seg := range s.segments {
		total += seg.Duration
	}
	return total
}

// Clear releases all segments.
func (s *Session) Clear() {
	s.segments = nil
}
