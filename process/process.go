// Package process turns a session's raw capture segments into the
// canonical upload payload: order-preserving concatenation, downmix to
// mono, resample to 16 kHz, optional silence trimming, and an optional
// FLAC archive of the untrimmed audio. Pure given its inputs; no device
// or network access.
package process

import (
	"errors"
	"time"

	"voxnote/encoder"
)

// ErrNoSpeech means silence trimming removed all content; nothing is
// worth submitting.
var ErrNoSpeech = errors.New("no speech detected")

type Config struct {
	VAD            bool
	Archive        bool
	SourceRate     int // 0 means canonical 16 kHz
	SourceChannels int // 0 means mono
}

type Payload struct {
	WAV      []byte        // canonical mono/16 kHz WAV, trimmed when VAD is on
	Duration time.Duration // duration of the WAV audio
	RawBytes int           // size of the unprocessed concatenation
	Archive  []byte        // FLAC of the untrimmed canonical audio, nil unless enabled
}

// Run preprocesses segments in insertion order. Segment boundaries are
// merged only here; the session never merges them at the byte level.
func Run(segments [][]byte, cfg Config) (*Payload, error) {
	srcRate := cfg.SourceRate
	if srcRate == 0 {
		srcRate = encoder.SampleRate
	}
	channels := cfg.SourceChannels
	if channels == 0 {
		channels = 1
	}

	var raw []byte
	for _, seg := range segments {
		raw = append(raw, seg...)
	}
	if len(raw) == 0 {
		return nil, ErrNoSpeech
	}

	samples := bytesToSamples(raw)
	samples = downmix(samples, channels)
	samples = resample(samples, srcRate, encoder.SampleRate)

	var archive []byte
	if cfg.Archive {
		flacData, err := encodeArchive(samples)
		if err != nil {
			return nil, err
		}
		archive = flacData
	}

	trimmed := samples
	if cfg.VAD {
		var err error
		trimmed, err = trimSilence(samples)
		if err != nil {
			return nil, err
		}
		if len(trimmed) == 0 {
			return nil, ErrNoSpeech
		}
	}

	duration := time.Duration(len(trimmed)) * time.Second / encoder.SampleRate

	return &Payload{
		WAV:      EncodeWAV(trimmed),
		Duration: duration,
		RawBytes: len(raw),
		Archive:  archive,
	}, nil
}

func encodeArchive(samples []int16) ([]byte, error) {
	enc, err := encoder.NewFlac()
	if err != nil {
		return nil, err
	}
	for i := 0; i < len(samples); i += encoder.BlockSize {
		end := i + encoder.BlockSize
		if end > len(samples) {
			end = len(samples)
		}
		if err := enc.EncodeBlock(samples[i:end]); err != nil {
			return nil, err
		}
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return enc.Bytes(), nil
}
