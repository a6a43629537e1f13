// Package hotkey delivers global key-chord presses as abstract actions.
// The mapping from an action plus the current session state to a
// state-machine event lives in the session package; this package only
// reports which chord was pressed.
package hotkey

type Action int

const (
	ActionRecord Action = iota // start / tap-stop / resume / append
	ActionTranscribe           // toggle-stop / transcribe
	ActionPause                // pause / resume
	ActionClear                // discard session
)

func (a Action) String() string {
	switch a {
	case ActionRecord:
		return "record"
	case ActionTranscribe:
		return "transcribe"
	case ActionPause:
		return "pause"
	case ActionClear:
		return "clear"
	}
	return "unknown"
}

type Hotkey interface {
	Register() error
	Unregister()
	Actions() <-chan Action
}
