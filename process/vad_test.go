package process

import "testing"

func TestDetectorSilence(t *testing.T) {
	d, err := NewDetector()
	if err != nil {
		t.Fatal(err)
	}
	d.Process(genSilence(200))
	if d.VoiceDetected() {
		t.Error("expected no voice on silence")
	}
}

func TestDetectorOddChunkSizes(t *testing.T) {
	d, err := NewDetector()
	if err != nil {
		t.Fatal(err)
	}
	// Feed 200ms of silence in 100-byte chunks (not aligned to 640-byte frames)
	silence := genSilence(200)
	for i := 0; i < len(silence); i += 100 {
		end := i + 100
		if end > len(silence) {
			end = len(silence)
		}
		d.Process(silence[i:end])
	}
	if d.VoiceDetected() {
		t.Error("expected no voice on silence with odd chunks")
	}
}

func TestDetectorReset(t *testing.T) {
	d, err := NewDetector()
	if err != nil {
		t.Fatal(err)
	}
	d.Process(genTone(440, 200))
	d.Reset()
	if d.VoiceDetected() {
		t.Error("expected no voice after reset")
	}
	if !d.LastVoiceTime().IsZero() {
		t.Error("expected zero LastVoiceTime after reset")
	}
	if d.HasSpeechTick() {
		t.Error("expected no speech tick after reset")
	}
}

func TestDetectorTickOnSilence(t *testing.T) {
	d, err := NewDetector()
	if err != nil {
		t.Fatal(err)
	}
	d.Process(genSilence(200))
	if d.HasSpeechTick() {
		t.Error("expected no speech tick on silence")
	}
}
