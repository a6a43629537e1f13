package session

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"voxnote/announce"
	"voxnote/audio"
	"voxnote/hotkey"
	"voxnote/output"
	"voxnote/process"
	"voxnote/transcriber"
)

func TestMain(m *testing.M) {
	announce.Disable()
	os.Exit(m.Run())
}

// halfSecond is a 500ms 16 kHz mono take, comfortably above the
// minimum capture length.
func halfSecond() []byte {
	return make([]byte, 16000)
}

type fixture struct {
	ctrl     *Controller
	audio    *audio.FakeContext
	primary  *transcriber.FakeClient
	fallback *transcriber.FakeClient
	orch     *transcriber.Orchestrator
	texts    chan string
}

func newFixture(t *testing.T, takes ...[]byte) *fixture {
	t.Helper()

	primary := transcriber.NewFakeClient("primary", "model-a")
	fallback := transcriber.NewFakeClient("fallback", "model-b")
	orch := transcriber.New(transcriber.Options{
		Failover:   true,
		Preprocess: process.Config{},
		NewClient: func(a transcriber.Attempt) (transcriber.Client, error) {
			switch a.Provider {
			case "primary":
				return primary, nil
			case "fallback":
				return fallback, nil
			}
			return nil, errors.New("unknown provider")
		},
	})

	texts := make(chan string, 4)
	output.SetHandler(func(s string) { texts <- s })
	t.Cleanup(func() { output.SetHandler(nil) })

	audioCtx := audio.NewFakeContext(takes...)
	ctrl := NewController(audioCtx, nil, hotkey.NewFake(), orch, nil, Config{
		Instruction: "clean",
		Chain: []transcriber.Attempt{
			{Provider: "primary", Model: "model-a"},
			{Provider: "fallback", Model: "model-b"},
		},
		Output: output.ModeInApp,
	})

	return &fixture{ctrl: ctrl, audio: audioCtx, primary: primary, fallback: fallback, orch: orch, texts: texts}
}

func (f *fixture) pumpOutcome(t *testing.T) {
	t.Helper()
	select {
	case out := <-f.orch.Results():
		f.ctrl.HandleOutcome(out)
	case <-time.After(2 * time.Second):
		t.Fatal("no orchestrator outcome")
	}
}

func (f *fixture) text(t *testing.T) string {
	t.Helper()
	select {
	case s := <-f.texts:
		return s
	case <-time.After(time.Second):
		t.Fatal("no text delivered")
		return ""
	}
}

func TestStartToggleStopDelivers(t *testing.T) {
	f := newFixture(t, halfSecond())
	f.primary.Reply("note one")

	f.ctrl.HandleAction(hotkey.ActionRecord)
	if f.ctrl.State() != Recording {
		t.Fatalf("state = %s, want recording", f.ctrl.State())
	}
	f.ctrl.HandleAction(hotkey.ActionTranscribe)
	if f.ctrl.State() != Transcribing {
		t.Fatalf("state = %s, want transcribing", f.ctrl.State())
	}

	f.pumpOutcome(t)
	if got := f.text(t); got != "note one" {
		t.Errorf("delivered %q", got)
	}
	if f.ctrl.State() != Idle {
		t.Errorf("state = %s after completion, want idle", f.ctrl.State())
	}
	if f.primary.Calls() != 1 {
		t.Errorf("primary called %d times, want 1", f.primary.Calls())
	}
	if f.fallback.Calls() != 0 {
		t.Errorf("fallback called %d times, want 0", f.fallback.Calls())
	}
}

func TestTapStopAppendConcatenatesSegments(t *testing.T) {
	takeA := halfSecond()
	takeB := halfSecond()
	for i := range takeA {
		takeA[i] = 0x11
	}
	for i := range takeB {
		takeB[i] = 0x22
	}
	f := newFixture(t, takeA, takeB)
	f.primary.Reply("two takes")

	f.ctrl.HandleAction(hotkey.ActionRecord)
	f.ctrl.HandleAction(hotkey.ActionRecord) // tap-stop
	if f.ctrl.State() != Cached {
		t.Fatalf("state = %s, want cached", f.ctrl.State())
	}
	f.ctrl.HandleAction(hotkey.ActionRecord) // append
	if f.ctrl.State() != Recording {
		t.Fatalf("state = %s, want recording", f.ctrl.State())
	}
	f.ctrl.HandleAction(hotkey.ActionTranscribe)

	f.pumpOutcome(t)
	f.text(t)

	wav := f.primary.LastAudio()
	data := wav[process.WAVHeaderSize:]
	if len(data) != len(takeA)+len(takeB) {
		t.Fatalf("payload %d bytes, want %d", len(data), len(takeA)+len(takeB))
	}
	if data[0] != 0x11 || data[len(takeA)] != 0x22 {
		t.Error("segments out of order in payload")
	}
}

func TestPauseResumeKeepsBothSpans(t *testing.T) {
	f := newFixture(t, halfSecond(), halfSecond())
	f.primary.Reply("ok")

	f.ctrl.HandleAction(hotkey.ActionRecord)
	f.ctrl.HandleAction(hotkey.ActionPause)
	if f.ctrl.State() != Paused {
		t.Fatalf("state = %s, want paused", f.ctrl.State())
	}
	f.ctrl.HandleAction(hotkey.ActionRecord) // resume
	f.ctrl.HandleAction(hotkey.ActionTranscribe)

	f.pumpOutcome(t)
	f.text(t)

	wav := f.primary.LastAudio()
	if got := len(wav) - process.WAVHeaderSize; got != 32000 {
		t.Errorf("payload %d bytes, want both 16000-byte spans", got)
	}
}

func TestFallbackProviderReported(t *testing.T) {
	f := newFixture(t, halfSecond())
	f.primary.Fail(&transcriber.Failure{
		Kind: transcriber.FailureServer, Provider: "primary", Model: "model-a",
		Status: 500, Err: errors.New("down"),
	})
	f.fallback.Reply("saved by fallback")

	f.ctrl.HandleAction(hotkey.ActionRecord)
	f.ctrl.HandleAction(hotkey.ActionTranscribe)

	select {
	case out := <-f.orch.Results():
		if out.Result == nil || out.Result.Provider != "fallback" {
			t.Fatalf("outcome = %+v, want fallback result", out)
		}
		f.ctrl.HandleOutcome(out)
	case <-time.After(2 * time.Second):
		t.Fatal("no outcome")
	}
	if got := f.text(t); got != "saved by fallback" {
		t.Errorf("delivered %q", got)
	}
	if f.primary.Calls() != 1 || f.fallback.Calls() != 1 {
		t.Errorf("calls = %d/%d, want 1/1", f.primary.Calls(), f.fallback.Calls())
	}
}

func TestActionsRejectedWhileTranscribing(t *testing.T) {
	f := newFixture(t, halfSecond())
	release := make(chan struct{})
	f.primary.Delay = func(ctx context.Context) error {
		select {
		case <-release:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.primary.Reply("slow")

	f.ctrl.HandleAction(hotkey.ActionRecord)
	f.ctrl.HandleAction(hotkey.ActionTranscribe)

	f.ctrl.HandleAction(hotkey.ActionRecord)
	f.ctrl.HandleAction(hotkey.ActionTranscribe)
	f.ctrl.HandleAction(hotkey.ActionPause)
	if f.ctrl.State() != Transcribing {
		t.Fatalf("state = %s, busy actions must not transition", f.ctrl.State())
	}

	close(release)
	f.pumpOutcome(t)
	if f.ctrl.State() != Idle {
		t.Errorf("state = %s after completion", f.ctrl.State())
	}
}

func TestClearDuringTranscribingDiscardsResult(t *testing.T) {
	f := newFixture(t, halfSecond())
	f.primary.Delay = func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}

	f.ctrl.HandleAction(hotkey.ActionRecord)
	f.ctrl.HandleAction(hotkey.ActionTranscribe)
	f.ctrl.HandleAction(hotkey.ActionClear)
	if f.ctrl.State() != Idle {
		t.Fatalf("state = %s, clear must be immediate", f.ctrl.State())
	}

	// The cancelled attempt must not deliver anything.
	select {
	case out := <-f.orch.Results():
		f.ctrl.HandleOutcome(out)
	case <-time.After(200 * time.Millisecond):
	}
	select {
	case s := <-f.texts:
		t.Fatalf("text %q delivered after clear", s)
	default:
	}
}

func TestStaleOutcomeDroppedBySeq(t *testing.T) {
	f := newFixture(t, halfSecond())
	f.ctrl.HandleAction(hotkey.ActionRecord)
	f.ctrl.HandleAction(hotkey.ActionRecord) // cache
	staleSeq := f.ctrl.seq
	f.ctrl.HandleAction(hotkey.ActionClear)

	f.ctrl.HandleOutcome(transcriber.Outcome{
		Seq:    staleSeq,
		Result: &transcriber.Result{Text: "ghost", Provider: "primary", Model: "model-a"},
	})
	select {
	case s := <-f.texts:
		t.Fatalf("stale text %q delivered", s)
	default:
	}
	if f.ctrl.State() != Idle {
		t.Errorf("state = %s", f.ctrl.State())
	}
}

func TestClearWhileRecording(t *testing.T) {
	f := newFixture(t, halfSecond())
	f.ctrl.HandleAction(hotkey.ActionRecord)
	f.ctrl.HandleAction(hotkey.ActionClear)
	if f.ctrl.State() != Idle {
		t.Fatalf("state = %s, want idle", f.ctrl.State())
	}
	if f.ctrl.sess != nil {
		t.Error("session survives clear")
	}
	if f.primary.Calls() != 0 {
		t.Error("clear must not submit")
	}
}

func TestTranscribeEmptySessionReturnsIdle(t *testing.T) {
	// A take below the minimum capture length is discarded, leaving
	// nothing to transcribe.
	f := newFixture(t, make([]byte, 100))
	f.ctrl.HandleAction(hotkey.ActionRecord)
	f.ctrl.HandleAction(hotkey.ActionTranscribe)
	if f.ctrl.State() != Idle {
		t.Errorf("state = %s, want idle", f.ctrl.State())
	}
	if f.primary.Calls() != 0 {
		t.Error("nothing should be submitted")
	}
}

func TestDeviceUnavailableStaysIdle(t *testing.T) {
	f := newFixture(t, halfSecond())
	f.audio.FailNextStart(errors.New("mic busy"))
	f.ctrl.HandleAction(hotkey.ActionRecord)
	if f.ctrl.State() != Idle {
		t.Errorf("state = %s, want idle on device failure", f.ctrl.State())
	}
	// A later attempt succeeds.
	f.ctrl.HandleAction(hotkey.ActionRecord)
	if f.ctrl.State() != Recording {
		t.Errorf("state = %s, want recording on retry", f.ctrl.State())
	}
}

func TestNoSpeechOutcomeReturnsIdle(t *testing.T) {
	f := newFixture(t, halfSecond())
	f.ctrl.HandleAction(hotkey.ActionRecord)
	f.ctrl.HandleAction(hotkey.ActionTranscribe)
	f.ctrl.HandleOutcome(transcriber.Outcome{Seq: f.ctrl.seq, Err: process.ErrNoSpeech})
	if f.ctrl.State() != Idle {
		t.Errorf("state = %s, want idle", f.ctrl.State())
	}
	select {
	case s := <-f.texts:
		t.Fatalf("text %q delivered without speech", s)
	default:
	}
}
