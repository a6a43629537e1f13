//go:build !linux

package hotkey

import (
	"golang.design/x/hotkey"
)

type xHotkey struct {
	hks     []*hotkey.Hotkey
	acts    []Action
	actions chan Action
}

func New() Hotkey {
	mods := []hotkey.Modifier{hotkey.ModCtrl, hotkey.ModShift}
	return &xHotkey{
		hks: []*hotkey.Hotkey{
			hotkey.New(mods, hotkey.KeySpace),
			hotkey.New(mods, hotkey.KeyReturn),
			hotkey.New(mods, hotkey.KeyP),
			hotkey.New(mods, hotkey.KeyDelete),
		},
		acts:    []Action{ActionRecord, ActionTranscribe, ActionPause, ActionClear},
		actions: make(chan Action, 4),
	}
}

func (h *xHotkey) Register() error {
	for i, hk := range h.hks {
		if err := hk.Register(); err != nil {
			for _, prev := range h.hks[:i] {
				prev.Unregister()
			}
			return err
		}
	}
	for i, hk := range h.hks {
		action := h.acts[i]
		keydown := hk.Keydown()
		go func() {
			for range keydown {
				select {
				case h.actions <- action:
				default:
				}
			}
		}()
	}
	return nil
}

func (h *xHotkey) Unregister() {
	for _, hk := range h.hks {
		hk.Unregister()
	}
}

func (h *xHotkey) Actions() <-chan Action {
	return h.actions
}

func Diagnose() (string, error) {
	return "hotkey support available (Ctrl+Shift+Space/Return/P/Delete)", nil
}
