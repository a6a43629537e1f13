package session

import (
	"errors"
	"testing"

	"voxnote/hotkey"
)

func TestDispatchTable(t *testing.T) {
	cases := []struct {
		state  State
		action hotkey.Action
		event  Event
		err    error
	}{
		{Idle, hotkey.ActionRecord, EventStart, nil},
		{Idle, hotkey.ActionTranscribe, 0, ErrRejected},
		{Idle, hotkey.ActionPause, 0, ErrRejected},
		{Idle, hotkey.ActionClear, 0, ErrRejected},

		{Recording, hotkey.ActionRecord, EventTapStop, nil},
		{Recording, hotkey.ActionTranscribe, EventToggleStop, nil},
		{Recording, hotkey.ActionPause, EventPause, nil},
		{Recording, hotkey.ActionClear, EventClear, nil},

		{Paused, hotkey.ActionRecord, EventResume, nil},
		{Paused, hotkey.ActionPause, EventResume, nil},
		{Paused, hotkey.ActionTranscribe, 0, ErrRejected},
		{Paused, hotkey.ActionClear, EventClear, nil},

		{Cached, hotkey.ActionRecord, EventAppend, nil},
		{Cached, hotkey.ActionTranscribe, EventTranscribe, nil},
		{Cached, hotkey.ActionPause, 0, ErrRejected},
		{Cached, hotkey.ActionClear, EventClear, nil},

		{Transcribing, hotkey.ActionRecord, 0, ErrBusy},
		{Transcribing, hotkey.ActionTranscribe, 0, ErrBusy},
		{Transcribing, hotkey.ActionPause, 0, ErrBusy},
		{Transcribing, hotkey.ActionClear, EventClear, nil},
	}

	for _, c := range cases {
		event, err := Dispatch(c.action, c.state)
		if !errors.Is(err, c.err) {
			t.Errorf("%s+%s: err = %v, want %v", c.state, c.action, err, c.err)
			continue
		}
		if err == nil && event != c.event {
			t.Errorf("%s+%s: event = %s, want %s", c.state, c.action, event, c.event)
		}
	}
}

func TestNextStates(t *testing.T) {
	cases := []struct {
		from  State
		event Event
		to    State
	}{
		{Idle, EventStart, Recording},
		{Recording, EventTapStop, Cached},
		{Recording, EventToggleStop, Transcribing},
		{Recording, EventPause, Paused},
		{Paused, EventResume, Recording},
		{Cached, EventAppend, Recording},
		{Cached, EventTranscribe, Transcribing},
		{Recording, EventClear, Idle},
		{Paused, EventClear, Idle},
		{Cached, EventClear, Idle},
		{Transcribing, EventClear, Idle},
	}
	for _, c := range cases {
		if got := Next(c.from, c.event); got != c.to {
			t.Errorf("Next(%s, %s) = %s, want %s", c.from, c.event, got, c.to)
		}
	}
}
