package rtc

import "encoding/binary"

const ulawBias = 0x84

// encodeULaw compands s16le PCM into G.711 µ-law, one byte per sample.
func encodeULaw(pcm []byte) []byte {
	out := make([]byte, len(pcm)/2)
	for i := range out {
		out[i] = ulawByte(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
	}
	return out
}

func ulawByte(sample int16) byte {
	sign := byte(0)
	if sample < 0 {
		sign = 0x80
		if sample == -32768 {
			sample = -32767
		}
		sample = -sample
	}

	v := int32(sample) + ulawBias
	if v > 0x7FFF {
		v = 0x7FFF
	}

	exponent := 7
	for mask := int32(0x4000); exponent > 0 && v&mask == 0; mask >>= 1 {
		exponent--
	}
	mantissa := byte((v >> (exponent + 3)) & 0x0F)

	return ^(sign | byte(exponent)<<4 | mantissa)
}
