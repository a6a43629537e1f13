package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"voxnote/announce"
	"voxnote/audio"
	"voxnote/history"
	"voxnote/hotkey"
	"voxnote/log"
	"voxnote/output"
	"voxnote/process"
	"voxnote/transcriber"
)

// Captures shorter than this are discarded instead of appended;
// accidental double-taps produce no usable audio.
const minCapture = 100 * time.Millisecond

type Config struct {
	Instruction  string
	Chain        []transcriber.Attempt
	Output       output.Mode
	ArchiveDir   string
	Capture      audio.CaptureConfig
	SilenceWarn  time.Duration
	SilenceClose time.Duration
}

// Controller runs the event loop: hotkey actions drive the state
// machine, capture spans become segments, and completed transcriptions
// flow out to the output collaborator. All state is owned by the Run
// goroutine; the capture callback only appends to the take buffer.
type Controller struct {
	audioCtx audio.Context
	device   *audio.DeviceInfo
	keys     hotkey.Hotkey
	orch     *transcriber.Orchestrator
	store    *history.Store // nil disables history
	cfg      Config

	state     State
	sess      *Session
	seq       uint64
	completed int

	capture   audio.CaptureDevice
	takeMu    sync.Mutex
	take      []byte
	takeStart time.Time
	detector  *process.Detector
	silence   *silenceMonitor
}

func NewController(audioCtx audio.Context, device *audio.DeviceInfo, keys hotkey.Hotkey,
	orch *transcriber.Orchestrator, store *history.Store, cfg Config) *Controller {

	if cfg.SilenceWarn <= 0 {
		cfg.SilenceWarn = 8 * time.Second
	}
	if cfg.SilenceClose <= 0 {
		cfg.SilenceClose = 30 * time.Second
	}
	if cfg.Capture.SampleRate == 0 {
		cfg.Capture.SampleRate = 16000
	}
	if cfg.Capture.Channels == 0 {
		cfg.Capture.Channels = 1
	}

	detector, err := process.NewDetector()
	if err != nil {
		log.Warnf("vad detector unavailable: %v", err)
		detector = nil
	}

	return &Controller{
		audioCtx: audioCtx,
		device:   device,
		keys:     keys,
		orch:     orch,
		store:    store,
		cfg:      cfg,
		state:    Idle,
		detector: detector,
		silence:  newSilenceMonitor(cfg.SilenceWarn, cfg.SilenceClose),
	}
}

func (c *Controller) State() State { return c.state }

// Completed reports how many transcriptions finished successfully.
func (c *Controller) Completed() int { return c.completed }

// Run processes hotkey actions and orchestrator outcomes until ctx is
// cancelled.
func (c *Controller) Run(ctx context.Context) error {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return nil
		case action := <-c.keys.Actions():
			c.HandleAction(action)
		case out := <-c.orch.Results():
			c.HandleOutcome(out)
		case <-ticker.C:
			c.tick()
		}
	}
}

// HandleAction applies one hotkey action to the state machine.
func (c *Controller) HandleAction(action hotkey.Action) {
	event, err := Dispatch(action, c.state)
	if err != nil {
		log.Rejected(action.String(), c.state.String(), err.Error())
		if errors.Is(err, ErrBusy) {
			announce.Play(announce.Failed)
		}
		return
	}
	c.apply(event)
}

func (c *Controller) apply(event Event) {
	from := c.state

	switch event {
	case EventStart:
		c.sess = NewSession()
		c.silence.Reset()
		// The cue must finish before capture opens or it gets recorded.
		announce.PlayBlocking(announce.SessionStarted)
		if err := c.openCapture(); err != nil {
			c.sess = nil
			announce.Play(announce.Failed)
			log.Errorf("capture unavailable: %v", err)
			return
		}

	case EventTapStop:
		c.closeCapture(true)
		announce.Play(announce.Cached)

	case EventToggleStop:
		c.closeCapture(true)
		if !c.submit() {
			return
		}

	case EventPause:
		c.closeCapture(true)
		announce.Play(announce.Paused)

	case EventResume, EventAppend:
		if err := c.openCapture(); err != nil {
			announce.Play(announce.Failed)
			log.Errorf("capture unavailable: %v", err)
			return
		}
		c.silence.Reset()
		if event == EventResume {
			announce.Play(announce.Resumed)
		} else {
			announce.Play(announce.Appended)
		}

	case EventTranscribe:
		if !c.submit() {
			return
		}

	case EventClear:
		if c.state == Transcribing {
			c.orch.Cancel()
		}
		c.closeCapture(false)
		c.releaseSession()
		announce.Play(announce.Discarded)
	}

	c.state = Next(from, event)
	log.Transition(from.String(), c.state.String(), event.String())
}

// submit hands the session's segments to the orchestrator. Returns
// false when the submission could not start; the session stays cached.
func (c *Controller) submit() bool {
	if c.sess == nil || c.sess.Count() == 0 {
		announce.Play(announce.Failed)
		log.Warnf("nothing to transcribe")
		c.releaseSession()
		c.state = Idle
		return false
	}
	err := c.orch.Submit(transcriber.Request{
		Seq:         c.seq,
		Segments:    c.sess.Segments(),
		Instruction: c.cfg.Instruction,
		Chain:       c.cfg.Chain,
	})
	if err != nil {
		// Segments stay buffered; the user can retry transcribe.
		announce.Play(announce.Failed)
		log.Errorf("submit failed: %v", err)
		c.state = Cached
		return false
	}
	announce.Play(announce.Transcribing)
	return true
}

// HandleOutcome consumes one orchestrator outcome. Stale outcomes from
// a cleared session are dropped by sequence number.
func (c *Controller) HandleOutcome(out transcriber.Outcome) {
	if out.Seq != c.seq {
		log.Warnf("discarding stale outcome seq=%d current=%d", out.Seq, c.seq)
		return
	}
	if c.state != Transcribing {
		log.Warnf("outcome in state %s dropped", c.state)
		return
	}

	if out.Err != nil {
		if errors.Is(out.Err, process.ErrNoSpeech) {
			log.Warnf("no speech detected")
		} else {
			log.Errorf("transcription failed: %v", out.Err)
		}
		announce.Play(announce.Failed)
		c.finishSession()
		return
	}

	c.archive(out.Payload)
	c.deliver(out)
	c.record(out)
	c.completed++
	c.finishSession()
}

func (c *Controller) deliver(out transcriber.Outcome) {
	res := out.Result
	log.TranscriptionText(res.Text)
	if res.Metrics != nil && out.Payload != nil {
		log.TranscriptionMetrics(log.Metrics{
			AudioLengthS:     out.Payload.Duration.Seconds(),
			RawSizeKB:        float64(out.Payload.RawBytes) / 1024,
			PayloadSizeKB:    float64(len(out.Payload.WAV)) / 1024,
			TrimmedPct:       trimmedPct(out.Payload),
			DNSTimeMs:        float64(res.Metrics.DNS.Milliseconds()),
			TLSTimeMs:        float64(res.Metrics.TLS.Milliseconds()),
			TTFBMs:           float64(res.Metrics.TTFB.Milliseconds()),
			TotalTimeMs:      float64(res.Metrics.Total.Milliseconds()),
			PromptTokens:     res.Usage.PromptTokens,
			CompletionTokens: res.Usage.CompletionTokens,
		}, res.Provider, res.Model, res.Metrics.ConnReused)
	}

	announce.Play(announce.Complete)
	if err := output.Deliver(res.Text, c.cfg.Output); err != nil {
		announce.Play(announce.Failed)
		log.Errorf("output delivery failed: %v", err)
		return
	}
	announce.Play(announce.Delivered)
}

// record appends to history without blocking the event loop.
func (c *Controller) record(out transcriber.Outcome) {
	if c.store == nil {
		return
	}
	rec := history.Record{
		Provider:         out.Result.Provider,
		Model:            out.Result.Model,
		Fallback:         len(c.cfg.Chain) > 1 && out.Result.Provider != c.cfg.Chain[0].Provider,
		Text:             out.Result.Text,
		ElapsedMs:        out.Elapsed.Milliseconds(),
		PromptTokens:     out.Result.Usage.PromptTokens,
		CompletionTokens: out.Result.Usage.CompletionTokens,
	}
	if out.Payload != nil {
		rec.AudioSeconds = out.Payload.Duration.Seconds()
	}
	go func() {
		if _, err := c.store.Add(rec); err != nil {
			log.Warnf("history write failed: %v", err)
		}
	}()
}

func (c *Controller) archive(p *process.Payload) {
	if p == nil || p.Archive == nil || c.cfg.ArchiveDir == "" {
		return
	}
	name := fmt.Sprintf("%s-%s.flac", time.Now().Format("20060102-150405"), c.sess.ID)
	path := filepath.Join(c.cfg.ArchiveDir, name)
	if err := os.MkdirAll(c.cfg.ArchiveDir, 0755); err != nil {
		log.Warnf("archive dir: %v", err)
		return
	}
	if err := os.WriteFile(path, p.Archive, 0644); err != nil {
		log.Warnf("archive write failed: %v", err)
	}
}

func (c *Controller) finishSession() {
	c.releaseSession()
	from := c.state
	c.state = Idle
	log.Transition(from.String(), c.state.String(), "complete")
}

// releaseSession drops segments and bumps the sequence so any late
// outcome is recognizably stale.
func (c *Controller) releaseSession() {
	if c.sess != nil {
		c.sess.Clear()
		c.sess = nil
	}
	c.seq++
}

func (c *Controller) openCapture() error {
	dev, err := c.audioCtx.NewCapture(c.device, c.cfg.Capture)
	if err != nil {
		return err
	}

	c.takeMu.Lock()
	c.take = nil
	c.takeStart = time.Now()
	c.takeMu.Unlock()
	if c.detector != nil {
		c.detector.Reset()
	}

	dev.SetCallback(func(data []byte, _ uint32) {
		c.takeMu.Lock()
		c.take = append(c.take, data...)
		c.takeMu.Unlock()
		if c.detector != nil {
			c.detector.Process(data)
		}
	})

	if err := dev.Start(); err != nil {
		dev.Close()
		return err
	}
	c.capture = dev
	return nil
}

// closeCapture stops the device and, when keep is set, turns the take
// buffer into a session segment. Sub-minimum takes are discarded.
func (c *Controller) closeCapture(keep bool) {
	if c.capture == nil {
		return
	}
	c.capture.Stop()
	c.capture.ClearCallback()
	c.capture.Close()
	c.capture = nil

	c.takeMu.Lock()
	take := c.take
	start := c.takeStart
	c.take = nil
	c.takeMu.Unlock()

	if !keep || c.sess == nil {
		return
	}

	bytesPerSec := int(c.cfg.Capture.SampleRate*c.cfg.Capture.Channels) * 2
	duration := time.Duration(len(take)) * time.Second / time.Duration(bytesPerSec)
	if duration < minCapture {
		log.Warnf("discarding %v capture below minimum", duration)
		return
	}
	c.sess.Append(Segment{PCM: take, CapturedAt: start, Duration: duration})
}

func (c *Controller) tick() {
	if c.state != Recording {
		return
	}
	hasSpeech := false
	if c.detector != nil {
		hasSpeech = c.detector.HasSpeechTick()
	} else {
		hasSpeech = true // no detector, never warn
	}

	switch c.silence.Tick(hasSpeech) {
	case SilenceWarn, SilenceRepeat:
		announce.Play(announce.SilenceWarning)
	case SilenceAutoClose:
		log.Warnf("auto-closing recording after sustained silence")
		c.apply(EventTapStop)
	}
}

func trimmedPct(p *process.Payload) float64 {
	if p.RawBytes == 0 {
		return 0
	}
	kept := float64(len(p.WAV) - process.WAVHeaderSize)
	pct := (1 - kept/float64(p.RawBytes)) * 100
	if pct < 0 {
		return 0
	}
	return pct
}

func (c *Controller) shutdown() {
	c.orch.Cancel()
	c.closeCapture(false)
	c.releaseSession()
	c.state = Idle
}
