package transcriber

import (
	"context"
	"sync"
)

// FakeClient returns scripted outcomes in order, for tests of the
// orchestrator and the session controller.
type FakeClient struct {
	mu       sync.Mutex
	name     string
	model    string
	script   []fakeOutcome
	calls    int
	lastWAV  []byte
	lastText string
	Delay    func(ctx context.Context) error // optional block before answering
}

type fakeOutcome struct {
	text string
	err  error
}

func NewFakeClient(name, model string) *FakeClient {
	return &FakeClient{name: name, model: model}
}

func (f *FakeClient) Name() string { return f.name }

func (f *FakeClient) Reply(text string) *FakeClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.script = append(f.script, fakeOutcome{text: text})
	return f
}

func (f *FakeClient) Fail(err error) *FakeClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.script = append(f.script, fakeOutcome{err: err})
	return f
}

func (f *FakeClient) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *FakeClient) LastAudio() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastWAV
}

func (f *FakeClient) LastInstruction() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastText
}

func (f *FakeClient) Transcribe(ctx context.Context, audio []byte, instruction string) (*Result, error) {
	if f.Delay != nil {
		if err := f.Delay(ctx); err != nil {
			return nil, &Failure{Kind: FailureTimeout, Provider: f.name, Model: f.model, Err: err}
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastWAV = audio
	f.lastText = instruction
	if len(f.script) == 0 {
		return &Result{Text: "ok", Provider: f.name, Model: f.model}, nil
	}
	out := f.script[0]
	f.script = f.script[1:]
	if out.err != nil {
		return nil, out.err
	}
	return &Result{Text: out.text, Provider: f.name, Model: f.model}, nil
}
