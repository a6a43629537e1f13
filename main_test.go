package main

import (
	"bytes"
	"testing"

	"voxnote/output"
)

func TestSetupOutputInAppWritesDeliveredText(t *testing.T) {
	var buf bytes.Buffer
	setupOutput(output.ModeInApp, &buf)
	t.Cleanup(func() { output.SetHandler(nil) })

	if err := output.Deliver("dictated text", output.ModeInApp); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if got := buf.String(); got != "dictated text\n" {
		t.Errorf("wrote %q", got)
	}
}

func TestSetupOutputOtherModesSkipHandler(t *testing.T) {
	setupOutput(output.ModeClipboard, &bytes.Buffer{})
	if err := output.Deliver("x", output.ModeInApp); err == nil {
		t.Error("in-app delivery should fail with no handler registered")
	}
}
