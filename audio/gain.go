package audio

import "encoding/binary"

// amplifyPCM scales interleaved little-endian 16-bit samples in place,
// clipping at the int16 range. Gain 1 or below leaves the data alone.
func amplifyPCM(pcm []byte, gain int) {
	if gain <= 1 {
		return
	}
	g := int32(gain)
	for i := 0; i+1 < len(pcm); i += 2 {
		s := int32(int16(binary.LittleEndian.Uint16(pcm[i:]))) * g
		if s > 32767 {
			s = 32767
		} else if s < -32768 {
			s = -32768
		}
		binary.LittleEndian.PutUint16(pcm[i:], uint16(int16(s)))
	}
}
