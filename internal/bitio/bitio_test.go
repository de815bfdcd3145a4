package bitio

import (
	"math/rand"
	"testing"
)

func TestPushPopRoundTripUint(t *testing.T) {
	widths := []uint8{1, 2, 3, 4, 6, 7, 8, 12, 16, 17, 31, 32, 47, 63, 64}
	rng := rand.New(rand.NewSource(1))
	for _, width := range widths {
		var values []uint64
		for i := 0; i < 200; i++ {
			values = append(values, rng.Uint64()&mask(width))
		}
		w := NewWriter(0)
		w.PushSpan(width, values)
		out := make([]uint64, len(values))
		r := NewReader(w.Bytes())
		r.PopUintSpan(width, out)
		for i := range values {
			if out[i] != values[i] {
				t.Fatalf("width=%d idx=%d: got %d want %d", width, i, out[i], values[i])
			}
		}
	}
}

func TestPushPopRoundTripSigned(t *testing.T) {
	widths := []uint8{1, 3, 4, 9, 33, 64}
	rng := rand.New(rand.NewSource(2))
	for _, width := range widths {
		var values []int64
		for i := 0; i < 200; i++ {
			v := int64(rng.Uint64())
			// clip to width bits, sign-extended
			shifted := uint64(v) & mask(width)
			if width < 64 && shifted&(uint64(1)<<(width-1)) != 0 {
				shifted |= ^uint64(0) << width
			}
			values = append(values, int64(shifted))
		}
		w := NewWriter(0)
		w.PushSignedSpan(width, values)
		out := make([]int64, len(values))
		r := NewReader(w.Bytes())
		r.PopIntSpan(width, out)
		for i := range values {
			if out[i] != values[i] {
				t.Fatalf("width=%d idx=%d: got %d want %d", width, i, out[i], values[i])
			}
		}
	}
}

func TestSkipAdvancesLikePop(t *testing.T) {
	w := NewWriter(0)
	widths := []uint8{3, 7, 13, 40, 64, 5}
	for i, width := range widths {
		w.Push(width, uint64(i+1))
	}
	data := w.Bytes()

	skipReader := NewReader(data)
	popReader := NewReader(data)
	for _, width := range widths {
		skipReader.Skip(uint64(width))
		popReader.PopUint(width)
		if skipReader.BitPos() != popReader.BitPos() {
			t.Fatalf("bit position mismatch after width %d: skip=%d pop=%d", width, skipReader.BitPos(), popReader.BitPos())
		}
	}
}

func TestSkipCrossesMultipleWords(t *testing.T) {
	w := NewWriter(0)
	for i := 0; i < 10; i++ {
		w.Push(64, uint64(i))
	}
	w.Push(9, 0x1AB)
	data := w.Bytes()

	r := NewReader(data)
	r.Skip(64 * 10)
	got := r.PopUint(9)
	if got != 0x1AB {
		t.Fatalf("got %#x want %#x", got, 0x1AB)
	}
}

func TestBytesLengthMatchesBitLen(t *testing.T) {
	w := NewWriter(0)
	w.Push(3, 5)
	w.Push(13, 100)
	w.Push(64, 0xDEADBEEF)
	b := w.Bytes()
	wantBytes := int((w.BitLen() + 7) / 8)
	if len(b) != wantBytes {
		t.Fatalf("got %d bytes want %d", len(b), wantBytes)
	}
}
