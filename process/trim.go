package process

import (
	webrtcvad "github.com/maxhawkins/go-webrtcvad"

	"voxnote/encoder"
)

// Interior silence runs longer than this are collapsed down to it;
// leading and trailing silence is dropped entirely.
const maxSilenceMs = 300

const maxSilenceFrames = maxSilenceMs / vadFrameMs

// trimSilence removes leading/trailing silence and collapses long
// interior silence runs, preserving all speech frames in order.
// Returns nil when no frame classifies as speech.
func trimSilence(samples []int16) ([]int16, error) {
	v, err := webrtcvad.New()
	if err != nil {
		return nil, err
	}
	if err := v.SetMode(vadMode); err != nil {
		return nil, err
	}

	frameSamples := vadFrameBytes / 2
	nFrames := len(samples) / frameSamples

	speech := make([]bool, nFrames)
	anySpeech := false
	frameBuf := make([]byte, vadFrameBytes)
	for i := 0; i < nFrames; i++ {
		frame := samples[i*frameSamples : (i+1)*frameSamples]
		for j, s := range frame {
			frameBuf[j*2] = byte(s)
			frameBuf[j*2+1] = byte(s >> 8)
		}
		active, err := v.Process(encoder.SampleRate, frameBuf)
		if err != nil {
			// Classification failure keeps the frame; dropping audio is worse.
			active = true
		}
		speech[i] = active
		anySpeech = anySpeech || active
	}

	if !anySpeech {
		return nil, nil
	}

	first, last := 0, nFrames-1
	for first < nFrames && !speech[first] {
		first++
	}
	for last > first && !speech[last] {
		last--
	}

	out := make([]int16, 0, (last-first+1)*frameSamples)
	silentRun := 0
	for i := first; i <= last; i++ {
		if speech[i] {
			silentRun = 0
		} else {
			silentRun++
			if silentRun > maxSilenceFrames {
				continue
			}
		}
		out = append(out, samples[i*frameSamples:(i+1)*frameSamples]...)
	}

	// Keep the sub-frame tail; it follows the last retained frame.
	if rem := len(samples) % frameSamples; rem > 0 && last == nFrames-1 {
		out = append(out, samples[len(samples)-rem:]...)
	}

	return out, nil
}
