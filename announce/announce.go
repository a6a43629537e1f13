// Package announce plays short feedback cues for session events. Each
// event has a generated tone; a cue directory may override any of them
// with a WAV file named after the event. The record-start cue plays
// blocking so it never leaks into the capture.
package announce

import (
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type Event int

const (
	SessionStarted Event = iota
	SessionStopped
	Paused
	Resumed
	Cached
	Appended
	Discarded
	Transcribing
	Complete
	Failed
	Delivered
	SilenceWarning
)

func (e Event) String() string {
	switch e {
	case SessionStarted:
		return "session_started"
	case SessionStopped:
		return "session_stopped"
	case Paused:
		return "paused"
	case Resumed:
		return "resumed"
	case Cached:
		return "cached"
	case Appended:
		return "appended"
	case Discarded:
		return "discarded"
	case Transcribing:
		return "transcribing"
	case Complete:
		return "complete"
	case Failed:
		return "failed"
	case Delivered:
		return "delivered"
	case SilenceWarning:
		return "silence_warning"
	}
	return "unknown"
}

const (
	sampleRate = 44100

	// Pad after a blocking cue so the sink flushes before capture opens.
	flushPad = 100 * time.Millisecond
)

var (
	disabled  bool
	soundOnce sync.Once
	cueMu     sync.RWMutex
	cues      map[Event][]int16
)

func Disable() { disabled = true }

func initSound() {
	cues = map[Event][]int16{
		SessionStarted: generateTick(1200, 0.2, 0.5, 60),
		SessionStopped: generateTick(900, 0.2, 0.5, 40),
		Paused:         generateTick(700, 0.15, 0.5, 40),
		Resumed:        generateTick(1000, 0.15, 0.5, 40),
		Cached:         generateTick(600, 0.2, 0.5, 40),
		Appended:       generateTick(1100, 0.1, 0.5, 50),
		Discarded:      generateDoubleBeep(400, 0.08, 0.05, 0.6, 30),
		Transcribing:   generateTick(800, 0.1, 0.4, 50),
		Complete:       generateTick(1300, 0.2, 0.5, 40),
		Failed:         generateDoubleBeep(350, 0.08, 0.05, 0.6, 30),
		Delivered:      generateTick(1500, 0.08, 0.4, 60),
		SilenceWarning: generateTick(500, 0.15, 0.4, 30),
	}
}

func Init() {
	soundOnce.Do(initSound)
}

// LoadCueDir replaces generated tones with WAV files from dir. A file
// named <event>.wav overrides that event's cue; missing or unreadable
// files keep the tone.
func LoadCueDir(dir string) {
	soundOnce.Do(initSound)
	if dir == "" {
		return
	}
	for e := SessionStarted; e <= SilenceWarning; e++ {
		path := filepath.Join(dir, e.String()+".wav")
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		samples, rate, err := decodeWAV(data)
		if err != nil {
			continue
		}
		if rate != sampleRate {
			samples = resampleCue(samples, rate, sampleRate)
		}
		cueMu.Lock()
		cues[e] = samples
		cueMu.Unlock()
	}
}

func cueFor(e Event) []int16 {
	cueMu.RLock()
	defer cueMu.RUnlock()
	return cues[e]
}

// Play fires the cue without waiting for it.
func Play(e Event) {
	if disabled {
		return
	}
	soundOnce.Do(initSound)
	go playSamples(cueFor(e))
}

// PlayBlocking returns only after the cue has fully drained, plus a
// short pad. Used for the record-start cue.
func PlayBlocking(e Event) {
	if disabled {
		return
	}
	soundOnce.Do(initSound)
	playSamples(cueFor(e))
	time.Sleep(flushPad)
}

func generateTick(freq float64, duration float64, volume float64, decay float64) []int16 {
	n := int(sampleRate * duration)
	samples := make([]int16, n)
	for i := 0; i < n; i++ {
		t := float64(i) / sampleRate
		envelope := math.Exp(-t * decay)
		samples[i] = int16(math.Sin(2*math.Pi*freq*t) * 32767 * volume * envelope)
	}
	return samples
}

func generateDoubleBeep(freq float64, beepDur float64, gapDur float64, volume float64, decay float64) []int16 {
	beep := generateTick(freq, beepDur, volume, decay)
	gap := make([]int16, int(sampleRate*gapDur))
	result := make([]int16, 0, len(beep)*2+len(gap))
	result = append(result, beep...)
	result = append(result, gap...)
	result = append(result, beep...)
	return result
}

func resampleCue(samples []int16, srcRate, dstRate int) []int16 {
	if srcRate == dstRate || len(samples) == 0 {
		return samples
	}
	ratio := float64(srcRate) / float64(dstRate)
	n := int(float64(len(samples)) / ratio)
	out := make([]int16, n)
	for i := 0; i < n; i++ {
		pos := float64(i) * ratio
		idx := int(pos)
		if idx >= len(samples)-1 {
			out[i] = samples[len(samples)-1]
			continue
		}
		frac := pos - float64(idx)
		out[i] = int16(float64(samples[idx])*(1-frac) + float64(samples[idx+1])*frac)
	}
	return out
}
