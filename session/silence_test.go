package session

import (
	"testing"
	"time"
)

func newTestMonitor() *silenceMonitor {
	return newSilenceMonitor(8*time.Second, 30*time.Second)
}

func TestSilenceWarnAfterQuietWindow(t *testing.T) {
	m := newTestMonitor()
	warned := false
	for i := 0; i < m.warnAt; i++ {
		if m.Tick(false) == SilenceWarn {
			warned = true
		}
	}
	if !warned {
		t.Error("no warning after a full quiet window")
	}
}

func TestSilenceNoWarnWhileSpeaking(t *testing.T) {
	m := newTestMonitor()
	for i := 0; i < m.warnAt*2; i++ {
		if ev := m.Tick(i%2 == 0); ev == SilenceWarn {
			t.Fatal("warned despite 50% speech")
		}
	}
}

func TestSilenceWarnClearsWithHysteresis(t *testing.T) {
	m := newTestMonitor()
	for i := 0; i < m.warnAt; i++ {
		m.Tick(false)
	}
	cleared := false
	for i := 0; i < m.warnAt; i++ {
		if m.Tick(true) == SilenceWarnClear {
			cleared = true
			break
		}
	}
	if !cleared {
		t.Error("warning never cleared after sustained speech")
	}
}

func TestSilenceAutoCloseAfterLongQuiet(t *testing.T) {
	m := newTestMonitor()
	got := SilenceNone
	for i := 0; i < m.windowSz+1; i++ {
		if ev := m.Tick(false); ev == SilenceAutoClose {
			got = ev
			break
		}
	}
	if got != SilenceAutoClose {
		t.Error("no auto-close after the full quiet window")
	}
}

func TestSilenceResetForgetsHistory(t *testing.T) {
	m := newTestMonitor()
	for i := 0; i < m.warnAt; i++ {
		m.Tick(false)
	}
	m.Reset()
	if ev := m.Tick(false); ev != SilenceNone {
		t.Errorf("event %v right after reset", ev)
	}
}
