package audio

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func pcm16(samples ...int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}

func TestAmplifyPCMScales(t *testing.T) {
	buf := pcm16(100, -250, 0)
	amplifyPCM(buf, 8)
	if got := pcm16(800, -2000, 0); !bytes.Equal(buf, got) {
		t.Errorf("amplified = %x, want %x", buf, got)
	}
}

func TestAmplifyPCMClipsAtInt16Range(t *testing.T) {
	buf := pcm16(5000, -5000)
	amplifyPCM(buf, 8)
	if got := pcm16(32767, -32768); !bytes.Equal(buf, got) {
		t.Errorf("clipped = %x, want %x", buf, got)
	}
}

func TestAmplifyPCMUnityGainUntouched(t *testing.T) {
	orig := pcm16(123, -456, 32767)
	for _, gain := range []int{0, 1, -3} {
		buf := append([]byte(nil), orig...)
		amplifyPCM(buf, gain)
		if !bytes.Equal(buf, orig) {
			t.Errorf("gain %d modified samples: %x", gain, buf)
		}
	}
}
