package session

import (
	"errors"

	"voxnote/hotkey"
)

// Event is a state-machine transition trigger derived from a hotkey
// action in a given state.
type Event int

const (
	EventStart      Event = iota // Idle -> Recording
	EventTapStop                 // Recording -> Cached
	EventToggleStop              // Recording -> Transcribing
	EventPause                   // Recording -> Paused
	EventResume                  // Paused -> Recording
	EventAppend                  // Cached -> Recording
	EventTranscribe              // Cached -> Transcribing
	EventClear                   // any non-Idle -> Idle
)

func (e Event) String() string {
	switch e {
	case EventStart:
		return "start"
	case EventTapStop:
		return "tap_stop"
	case EventToggleStop:
		return "toggle_stop"
	case EventPause:
		return "pause"
	case EventResume:
		return "resume"
	case EventAppend:
		return "append"
	case EventTranscribe:
		return "transcribe"
	case EventClear:
		return "clear"
	}
	return "unknown"
}

var (
	// ErrRejected means the action is meaningless in the current state.
	ErrRejected = errors.New("action not valid in current state")

	// ErrBusy means a transcription is in flight and only clear is
	// accepted.
	ErrBusy = errors.New("transcription in flight")
)

// Dispatch maps a hotkey action in a state to the transition event it
// triggers. Rejections never mutate state.
func Dispatch(action hotkey.Action, state State) (Event, error) {
	switch state {
	case Idle:
		if action == hotkey.ActionRecord {
			return EventStart, nil
		}
		return 0, ErrRejected

	case Recording:
		switch action {
		case hotkey.ActionRecord:
			return EventTapStop, nil
		case hotkey.ActionTranscribe:
			return EventToggleStop, nil
		case hotkey.ActionPause:
			return EventPause, nil
		case hotkey.ActionClear:
			return EventClear, nil
		}

	case Paused:
		switch action {
		case hotkey.ActionRecord, hotkey.ActionPause:
			return EventResume, nil
		case hotkey.ActionClear:
			return EventClear, nil
		case hotkey.ActionTranscribe:
			return 0, ErrRejected
		}

	case Cached:
		switch action {
		case hotkey.ActionRecord:
			return EventAppend, nil
		case hotkey.ActionTranscribe:
			return EventTranscribe, nil
		case hotkey.ActionClear:
			return EventClear, nil
		case hotkey.ActionPause:
			return 0, ErrRejected
		}

	case Transcribing:
		if action == hotkey.ActionClear {
			return EventClear, nil
		}
		return 0, ErrBusy
	}
	return 0, ErrRejected
}

// Next returns the state an event leads to from a state. Events from
// Dispatch are always legal here.
func Next(state State, event Event) State {
	switch event {
	case EventStart, EventResume, EventAppend:
		return Recording
	case EventTapStop:
		return Cached
	case EventToggleStop, EventTranscribe:
		return Transcribing
	case EventPause:
		return Paused
	case EventClear:
		return Idle
	}
	return state
}
