package f16

import (
	"math"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	for _, v := range []float32{0, 1, -1, 0.5, 0.25, 2.5, -2.5, 65504, 1.0 / 1024} {
		if got := Value(Bits(v)); got != v {
			t.Errorf("round trip of %v = %v", v, got)
		}
	}
}

func TestOverflowToInf(t *testing.T) {
	got := Value(Bits(1e6))
	if !math.IsInf(float64(got), 1) {
		t.Errorf("Bits(1e6) decoded to %v, want +Inf", got)
	}
}

func TestSubnormal(t *testing.T) {
	// Smallest binary16 subnormal is 2^-24.
	v := float32(math.Ldexp(1, -24))
	if got := Value(Bits(v)); got != v {
		t.Errorf("subnormal round trip of %v = %v", v, got)
	}
}
