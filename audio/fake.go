package audio

import "sync"

const (
	fakeFrameSize     = 1024
	fakeBytesPerFrame = 2 // 16-bit mono
)

// FakeContext replays scripted PCM takes through the CaptureDevice
// contract. Takes are consumed across capture spans: each Start()
// delivers the next take synchronously, so tests see exactly one take
// per span.
type FakeContext struct {
	mu        sync.Mutex
	takes     [][]byte
	next      int
	failStart error
	starts    int
}

func NewFakeContext(takes ...[]byte) *FakeContext {
	return &FakeContext{takes: takes}
}

func (f *FakeContext) Devices() ([]DeviceInfo, error) {
	return []DeviceInfo{{ID: "fake", Name: "fake mic"}}, nil
}

func (f *FakeContext) Close() {}

func (f *FakeContext) NewCapture(_ *DeviceInfo, _ CaptureConfig) (CaptureDevice, error) {
	return &FakeCapture{ctx: f}, nil
}

// FailNextStart makes the next Start() return err once.
func (f *FakeContext) FailNextStart(err error) {
	f.mu.Lock()
	f.failStart = err
	f.mu.Unlock()
}

// Starts reports how many times Start() has succeeded.
func (f *FakeContext) Starts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts
}

type FakeCapture struct {
	ctx *FakeContext

	mu sync.Mutex
	cb DataCallback
}

func (f *FakeCapture) SetCallback(cb DataCallback) {
	f.mu.Lock()
	f.cb = cb
	f.mu.Unlock()
}

func (f *FakeCapture) ClearCallback() {
	f.mu.Lock()
	f.cb = nil
	f.mu.Unlock()
}

func (f *FakeCapture) DeviceName() string { return "fake" }

func (f *FakeCapture) Start() error {
	f.ctx.mu.Lock()
	if f.ctx.failStart != nil {
		err := f.ctx.failStart
		f.ctx.failStart = nil
		f.ctx.mu.Unlock()
		return err
	}
	var take []byte
	if f.ctx.next < len(f.ctx.takes) {
		take = f.ctx.takes[f.ctx.next]
		f.ctx.next++
	}
	f.ctx.starts++
	f.ctx.mu.Unlock()

	f.mu.Lock()
	cb := f.cb
	f.mu.Unlock()

	if cb == nil || len(take) == 0 {
		return nil
	}

	chunkBytes := fakeFrameSize * fakeBytesPerFrame
	for pos := 0; pos < len(take); {
		end := pos + chunkBytes
		if end > len(take) {
			end = len(take)
		}
		chunk := make([]byte, end-pos)
		copy(chunk, take[pos:end])
		cb(chunk, uint32(len(chunk)/fakeBytesPerFrame))
		pos = end
	}
	return nil
}

func (f *FakeCapture) Stop() {}

func (f *FakeCapture) Close() {}
