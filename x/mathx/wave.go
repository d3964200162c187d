package mathx

// Scale8 scales v by num/255 with an 8-bit result, the classic LED
// brightness multiply. Scale8(v, 255) == v, Scale8(v, 0) == 0.
func Scale8(v, num uint8) uint8 {
	return uint8((uint16(v) * uint16(num)) / 255)
}

// TriWave8 folds a phase in [0..period) into a 0..255..0 triangle.
// period == 0 returns 0. Used for breathing/pulsing effects driven by
// elapsed milliseconds.
func TriWave8(phase, period uint32) uint8 {
	if period == 0 {
		return 0
	}
	phase %= period
	half := period / 2
	if half == 0 {
		return 0
	}
	if phase < half {
		return uint8(phase * 255 / half)
	}
	return uint8((period - phase) * 255 / half)
}
