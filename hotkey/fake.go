package hotkey

type FakeHotkey struct {
	actions chan Action
}

func NewFake() *FakeHotkey {
	return &FakeHotkey{actions: make(chan Action, 8)}
}

func (f *FakeHotkey) Register() error        { return nil }
func (f *FakeHotkey) Unregister()            {}
func (f *FakeHotkey) Actions() <-chan Action { return f.actions }

func (f *FakeHotkey) SimPress(a Action) { f.actions <- a }
