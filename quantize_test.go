package trpx

import "testing"

func TestQuantizeDequantizeUnsignedRoundTrip(t *testing.T) {
	src := []float64{0, 2.5, 5, 7.5, 10}
	dst := make([]uint8, len(src))
	if err := Quantize(src, 0, 10, dst); err != nil {
		t.Fatal(err)
	}
	if dst[0] != 0 || dst[len(dst)-1] != 255 {
		t.Fatalf("got %v want extremes 0 and 255", dst)
	}
	back := make([]float64, len(dst))
	if err := Dequantize(dst, 0, 10, back); err != nil {
		t.Fatal(err)
	}
	for i, v := range back {
		diff := v - src[i]
		if diff < 0 {
			diff = -diff
		}
		if diff > 0.1 {
			t.Fatalf("index %d: got %v want near %v", i, v, src[i])
		}
	}
}

func TestQuantizeClampsOutOfRange(t *testing.T) {
	src := []float32{-5, 15}
	dst := make([]uint8, 2)
	if err := Quantize(src, float32(0), float32(10), dst); err != nil {
		t.Fatal(err)
	}
	if dst[0] != 0 || dst[1] != 255 {
		t.Fatalf("got %v want clamped extremes", dst)
	}
}

func TestQuantizeRejectsBadLength(t *testing.T) {
	src := []float64{1, 2, 3}
	dst := make([]uint8, 2)
	if err := Quantize(src, 0, 1, dst); err == nil {
		t.Fatal("expected an error for mismatched slice lengths")
	}
}

func TestQuantizeSignedMapsRangeEndsToExtremes(t *testing.T) {
	src := []float64{-1, 0, 1}
	dst := make([]int8, 3)
	if err := Quantize(src, -1, 1, dst); err != nil {
		t.Fatal(err)
	}
	if dst[0] != -128 || dst[2] != 127 {
		t.Fatalf("got %v want extremes -128 and 127", dst)
	}
}
