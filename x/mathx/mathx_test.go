package mathx

import "testing"

func TestClampAndBetween(t *testing.T) {
	if got := Clamp(300, 0, 255); got != 255 {
		t.Fatalf("Clamp(300) = %d", got)
	}
	if got := Clamp(-4, 0, 255); got != 0 {
		t.Fatalf("Clamp(-4) = %d", got)
	}
	if got := Clamp(7, 255, 0); got != 7 {
		t.Fatalf("Clamp with swapped bounds = %d", got)
	}
	if !Between(200, 0, 255) || Between(256, 0, 255) {
		t.Fatal("Between misjudged range membership")
	}
}

func TestScale8Endpoints(t *testing.T) {
	for _, v := range []uint8{0, 1, 127, 255} {
		if Scale8(v, 255) != v {
			t.Fatalf("Scale8(%d, 255) != %d", v, v)
		}
		if Scale8(v, 0) != 0 {
			t.Fatalf("Scale8(%d, 0) != 0", v)
		}
	}
}

func TestTriWave8Shape(t *testing.T) {
	if TriWave8(0, 2000) != 0 {
		t.Fatal("triangle must start at 0")
	}
	if got := TriWave8(1000, 2000); got != 255 {
		t.Fatalf("mid-period level = %d, want 255", got)
	}
	// Symmetric on the way down.
	if up, down := TriWave8(500, 2000), TriWave8(1500, 2000); up != down {
		t.Fatalf("asymmetric triangle: %d vs %d", up, down)
	}
	if TriWave8(123, 0) != 0 {
		t.Fatal("zero period must yield 0")
	}
}

func TestIntDiv(t *testing.T) {
	if got := CeilDiv(uint32(5), 2); got != 3 {
		t.Fatalf("CeilDiv(5,2) = %d", got)
	}
	if got := CeilDiv(uint32(4), 2); got != 2 {
		t.Fatalf("CeilDiv(4,2) = %d", got)
	}
	if got := RoundDiv(uint32(1000), 3); got != 333 {
		t.Fatalf("RoundDiv(1000,3) = %d", got)
	}
	if got := RoundDiv(uint32(1000), 300); got != 3 {
		t.Fatalf("RoundDiv(1000,300) = %d", got)
	}
	if CeilDiv(uint32(1), 0) != 0 || RoundDiv(uint32(1), 0) != 0 {
		t.Fatal("division by zero must yield 0")
	}
}
