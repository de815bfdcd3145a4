package block

import (
	"math/bits"
	"math/rand"
	"testing"

	"github.com/lattice-imaging/trpx/internal/bitio"
)

func TestSignedRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	const depth = 16
	const blockLen = 12
	numBlocks := 50
	var values []int64
	for i := 0; i < numBlocks*blockLen; i++ {
		values = append(values, int64(int16(rng.Uint32())))
	}
	w := bitio.NewWriter(0)
	var encSt SignedState
	for i := 0; i < numBlocks; i++ {
		EncodeSigned(w, values[i*blockLen:(i+1)*blockLen], depth, &encSt)
	}
	r := bitio.NewReader(w.Bytes())
	var decSt SignedState
	out := make([]int64, blockLen)
	for i := 0; i < numBlocks; i++ {
		DecodeSigned(r, out, &decSt)
		for j, v := range out {
			if v != values[i*blockLen+j] {
				t.Fatalf("block %d idx %d: got %d want %d", i, j, v, values[i*blockLen+j])
			}
		}
	}
}

func TestUnsignedRoundTripWithOverloads(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	const depth = 8
	const blockLen = 10
	numBlocks := 60
	max := uint64(1)<<depth - 1
	var values []uint64
	for i := 0; i < numBlocks*blockLen; i++ {
		if rng.Intn(5) == 0 {
			values = append(values, max) // force overload/masked blocks often
		} else {
			values = append(values, uint64(rng.Intn(int(max))))
		}
	}
	w := bitio.NewWriter(0)
	var encSt UnsignedState
	for i := 0; i < numBlocks; i++ {
		EncodeUnsigned(w, values[i*blockLen:(i+1)*blockLen], depth, &encSt)
	}
	r := bitio.NewReader(w.Bytes())
	var decSt UnsignedState
	out := make([]uint64, blockLen)
	for i := 0; i < numBlocks; i++ {
		DecodeUnsigned(r, out, depth, &decSt)
		for j, v := range out {
			if v != values[i*blockLen+j] {
				t.Fatalf("block %d idx %d: got %d want %d", i, j, v, values[i*blockLen+j])
			}
		}
	}
}

func TestSmallUnsignedRoundTripWeakStrongMasked(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	const depth = 6
	n := RadixBlock*30 + 7
	max := uint64(1)<<depth - 1
	values := make([]uint64, n)
	for i := range values {
		switch rng.Intn(4) {
		case 0:
			values[i] = uint64(rng.Intn(maxWeak + 1)) // weak-range value
		case 1:
			values[i] = max // saturate, forces masked runs
		default:
			values[i] = uint64(rng.Intn(int(max)))
		}
	}
	w := bitio.NewWriter(0)
	EncodeSmallUnsigned(w, values, depth, RadixBlock)
	r := bitio.NewReader(w.Bytes())
	out := make([]uint64, n)
	DecodeSmallUnsigned(r, out, depth, RadixBlock)
	for i := range values {
		if out[i] != values[i] {
			t.Fatalf("idx %d: got %d want %d", i, out[i], values[i])
		}
	}
}

func TestSmallUnsignedAllZero(t *testing.T) {
	values := make([]uint64, RadixBlock*3)
	w := bitio.NewWriter(0)
	EncodeSmallUnsigned(w, values, 8, RadixBlock)
	r := bitio.NewReader(w.Bytes())
	out := make([]uint64, len(values))
	DecodeSmallUnsigned(r, out, 8, RadixBlock)
	for i, v := range out {
		if v != 0 {
			t.Fatalf("idx %d: got %d want 0", i, v)
		}
	}
}

func TestSmallUnsignedWeakHeaderBitPatterns(t *testing.T) {
	cases := []struct {
		name     string
		prevMax  uint64
		maxval   uint64
		wantBits []uint64
	}{
		{"reuse-from-zero", 0, 0, []uint64{1}},
		{"reuse-nonzero", 3, 3, []uint64{1, 1}},
		{"increment", 1, 2, []uint64{0, 1}},
		{"increment-six-special", 6, 4, []uint64{0, 1}},
		{"decrement", 4, 3, []uint64{1, 0}},
		{"literal", 0, 5, []uint64{0, 0, 1, 0, 1}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			w := bitio.NewWriter(0)
			st := SmallUnsignedState{Max: c.prevMax}
			pushWeakHeader(w, &st, c.maxval)
			if st.Max != c.maxval {
				t.Fatalf("state Max = %d, want %d", st.Max, c.maxval)
			}
			r := bitio.NewReader(w.Bytes())
			for i, want := range c.wantBits {
				if got := r.PopUint(1); got != want {
					t.Fatalf("bit %d: got %d want %d", i, got, want)
				}
			}

			w2 := bitio.NewWriter(0)
			pushWeakHeader(w2, &SmallUnsignedState{Max: c.prevMax}, c.maxval)
			decSt := SmallUnsignedState{Max: c.prevMax}
			max, _ := popSmallHeader(bitio.NewReader(w2.Bytes()), &decSt, 8)
			if max != c.maxval {
				t.Fatalf("decode: got max %d want %d", max, c.maxval)
			}
		})
	}
}

// wantEscapeBits independently derives the wire bits pushSmallEscape should
// produce for bitsVal, straight from the header grammar's description: a
// 00 flag, a 3-bit field fixed at 7, then a cascading 3/3/6-bit remainder
// with thresholds at 10 and 17.
func wantEscapeBits(bitsVal uint8) []uint64 {
	var out []uint64
	push := func(width int, v uint64) {
		for i := 0; i < width; i++ {
			out = append(out, (v>>i)&1)
		}
	}
	push(2, 0b00)
	push(3, 7)
	switch {
	case bitsVal < 10:
		push(3, uint64(bitsVal)-3)
	case bitsVal < 17:
		push(3, 7)
		push(3, uint64(bitsVal)-10)
	default:
		push(3, 7)
		push(3, 7)
		push(6, uint64(bitsVal)-17)
	}
	return out
}

func TestSmallUnsignedStrongEscapeBitPatterns(t *testing.T) {
	// bits=5 hand-traced: 00 (flag) + 111 (literal=7) + 010 (delta=5-3=2) = 8 bits.
	t.Run("tier1-hand-traced", func(t *testing.T) {
		w := bitio.NewWriter(0)
		pushSmallEscape(w, 5)
		r := bitio.NewReader(w.Bytes())
		want := []uint64{0, 0, 1, 1, 1, 0, 1, 0}
		for i, wantBit := range want {
			if got := r.PopUint(1); got != wantBit {
				t.Fatalf("bit %d: got %d want %d", i, got, wantBit)
			}
		}
	})

	for _, bitsVal := range []uint8{3, 9, 10, 16, 17, 40, 73} {
		t.Run("", func(t *testing.T) {
			w := bitio.NewWriter(0)
			pushSmallEscape(w, bitsVal)
			want := wantEscapeBits(bitsVal)
			r := bitio.NewReader(w.Bytes())
			for i, wantBit := range want {
				if got := r.PopUint(1); got != wantBit {
					t.Fatalf("bitsVal %d, bit %d: got %d want %d", bitsVal, i, got, wantBit)
				}
			}

			var st SmallUnsignedState
			_, gotBits := popSmallHeader(bitio.NewReader(w.Bytes()), &st, 73)
			if gotBits != bitsVal {
				t.Fatalf("bitsVal %d: decode got %d", bitsVal, gotBits)
			}
		})
	}
}

// TestSmallUnsignedRampDeltaSequence exercises a run of weak blocks whose
// max increases by one each time (0, 1, 2, 3), checking the header codes
// against the weak-path delta table by hand: prev_max==0 with a max of 0
// takes the 1-bit shortcut, and every subsequent +1 step takes the "10"
// wire code (push_back<2>(0b10), which reads back as "01" in the header
// table's own LSB-first notation).
func TestSmallUnsignedRampDeltaSequence(t *testing.T) {
	const depth = 6
	const blockLen = 12
	blocks := [][]uint64{
		make([]uint64, blockLen),
		make([]uint64, blockLen),
		make([]uint64, blockLen),
		make([]uint64, blockLen),
	}
	blocks[1][0] = 1
	blocks[2][0] = 2
	blocks[3][0] = 3
	var values []uint64
	for _, b := range blocks {
		values = append(values, b...)
	}

	w := bitio.NewWriter(0)
	EncodeSmallUnsigned(w, values, depth, blockLen)
	r := bitio.NewReader(w.Bytes())

	wantHeaderBits := [][]uint64{
		{1},
		{0, 1},
		{0, 1},
		{0, 1},
	}
	for i, want := range wantHeaderBits {
		for j, wantBit := range want {
			if got := r.PopUint(1); got != wantBit {
				t.Fatalf("block %d header bit %d: got %d want %d", i, j, got, wantBit)
			}
		}
		switch i {
		case 0:
			// max==0 body is empty.
		case 1:
			r.PopUintSpan(1, make([]uint64, blockLen))
		case 2:
			// max==2 uses radix-3 packing; skip past its compact integer.
			mult := uint64(1)
			for i := 0; i < blockLen; i++ {
				mult *= 3
			}
			r.Skip(uint64(bits.Len64(mult - 1)))
		case 3:
			r.PopUintSpan(2, make([]uint64, blockLen))
		}
	}

	r2 := bitio.NewReader(w.Bytes())
	out := make([]uint64, len(values))
	DecodeSmallUnsigned(r2, out, depth, blockLen)
	for i := range values {
		if out[i] != values[i] {
			t.Fatalf("idx %d: got %d want %d", i, out[i], values[i])
		}
	}
}

func TestSignificantBitsSignedNegativeOne(t *testing.T) {
	if got := SignificantBitsSigned([]int64{-1}, 32); got != 1 {
		t.Fatalf("got %d want 1", got)
	}
	if got := SignificantBitsSigned([]int64{0}, 32); got != 0 {
		t.Fatalf("got %d want 0", got)
	}
}

func TestHeaderRoundTrip(t *testing.T) {
	seq := []uint8{5, 5, 6, 0, 9, 10, 40, 40, 39, 73, 0}
	w := bitio.NewWriter(0)
	var prev uint8
	for _, b := range seq {
		PushHeader(w, &prev, b)
	}
	r := bitio.NewReader(w.Bytes())
	prev = 0
	for _, want := range seq {
		if got := PopHeader(r, &prev); got != want {
			t.Fatalf("got %d want %d", got, want)
		}
	}
}
