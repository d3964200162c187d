// Package crc16 implements the 16-bit CRC (poly 0xA001, init 0xFFFF) that
// seals modem payload frames.
package crc16

// preamble carried ahead of framed payloads: sixteen alternating bits for
// receiver clock sync.
var preamble = []byte{0xAA, 0xAA}

// Sum returns the CRC over data.
func Sum(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b)
		for i := 0; i < 8; i++ {
			if crc&1 != 0 {
				crc = (crc >> 1) ^ 0xA001
			} else {
				crc >>= 1
			}
		}
	}
	return crc
}

// Frame wraps payload as preamble + payload + big-endian CRC, the on-air
// layout the optical receivers expect.
func Frame(payload []byte) []byte {
	out := make([]byte, 0, len(preamble)+len(payload)+2)
	out = append(out, preamble...)
	out = append(out, payload...)
	crc := Sum(payload)
	out = append(out, byte(crc>>8), byte(crc))
	return out
}
