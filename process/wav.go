package process

import (
	"encoding/binary"

	"voxnote/encoder"
)

const WAVHeaderSize = 44

// EncodeWAV frames canonical 16 kHz mono samples as a WAV file.
func EncodeWAV(samples []int16) []byte {
	dataSize := len(samples) * 2
	buf := make([]byte, WAVHeaderSize+dataSize)

	copy(buf[0:], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:], uint32(36+dataSize))
	copy(buf[8:], "WAVE")
	copy(buf[12:], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:], 16) // PCM fmt chunk size
	binary.LittleEndian.PutUint16(buf[20:], 1)  // PCM
	binary.LittleEndian.PutUint16(buf[22:], encoder.Channels)
	binary.LittleEndian.PutUint32(buf[24:], encoder.SampleRate)
	binary.LittleEndian.PutUint32(buf[28:], encoder.SampleRate*encoder.Channels*encoder.BitsPerSample/8)
	binary.LittleEndian.PutUint16(buf[32:], encoder.Channels*encoder.BitsPerSample/8)
	binary.LittleEndian.PutUint16(buf[34:], encoder.BitsPerSample)
	copy(buf[36:], "data")
	binary.LittleEndian.PutUint32(buf[40:], uint32(dataSize))

	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[WAVHeaderSize+i*2:], uint16(s))
	}
	return buf
}

func bytesToSamples(pcm []byte) []int16 {
	samples := make([]int16, len(pcm)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}
	return samples
}
