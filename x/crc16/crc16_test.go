package crc16

import "testing"

func TestSumKnownVectors(t *testing.T) {
	// Standard CRC-16/MODBUS check value.
	if got := Sum([]byte("123456789")); got != 0x4B37 {
		t.Errorf("Sum(123456789) = %#04x, want 0x4b37", got)
	}
	if got := Sum(nil); got != 0xFFFF {
		t.Errorf("Sum(nil) = %#04x, want 0xffff", got)
	}
}

func TestFrameLayout(t *testing.T) {
	f := Frame([]byte{0xAB})
	if len(f) != 5 {
		t.Fatalf("frame length = %d, want 5", len(f))
	}
	if f[0] != 0xAA || f[1] != 0xAA || f[2] != 0xAB {
		t.Errorf("preamble/payload bytes wrong: %x", f)
	}
	crc := Sum([]byte{0xAB})
	if f[3] != byte(crc>>8) || f[4] != byte(crc) {
		t.Errorf("crc bytes wrong: %x (want %04x)", f[3:], crc)
	}
}
