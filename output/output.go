// Package output delivers transcribed text to its destination: the
// clipboard, the focused application via a synthetic paste, or an
// in-app callback.
package output

import (
	"fmt"
	"time"

	cb "github.com/atotto/clipboard"

	"voxnote/log"
)

type Mode string

const (
	ModeInApp     Mode = "inapp"
	ModeClipboard Mode = "clipboard"
	ModeCursor    Mode = "cursor"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeInApp, ModeClipboard, ModeCursor:
		return Mode(s), nil
	case "":
		return ModeClipboard, nil
	}
	return "", fmt.Errorf("unknown output mode %q", s)
}

// handler receives text in in-app mode.
var handler func(string)

func SetHandler(fn func(string)) { handler = fn }

// restoreDelay gives the focused app time to read the clipboard before
// the previous contents come back.
const restoreDelay = 300 * time.Millisecond

func Deliver(text string, mode Mode) error {
	switch mode {
	case ModeInApp:
		if handler == nil {
			return fmt.Errorf("no in-app handler registered")
		}
		handler(text)
		return nil

	case ModeClipboard:
		return cb.WriteAll(text)

	case ModeCursor:
		prev, prevErr := cb.ReadAll()
		if err := cb.WriteAll(text); err != nil {
			return err
		}
		if err := sendPaste(); err != nil {
			return err
		}
		if prevErr == nil {
			time.Sleep(restoreDelay)
			if err := cb.WriteAll(prev); err != nil {
				log.Warnf("clipboard restore failed: %v", err)
			}
		}
		return nil
	}
	return fmt.Errorf("unknown output mode %q", mode)
}
