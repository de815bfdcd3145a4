package block

import "github.com/lattice-imaging/trpx/internal/bitio"

// UnsignedState carries the delta-coded header widths across consecutive
// blocks of an Unsigned-mode frame. PrevMaskedBits tracks the escape header
// used only by masked (overloaded) blocks.
type UnsignedState struct {
	PrevBits       uint8
	PrevMaskedBits uint8
}

// depthMask returns the bitmask for depth bits, i.e. 2^depth - 1.
func depthMask(depth uint8) uint64 {
	if depth >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << depth) - 1
}

// EncodeUnsigned writes one block of unsigned pixel values, depth bits
// wide, updating st for the next block. A block is masked (overloaded)
// whenever some value needs the full depth bits: every value is shifted up
// by one (wrapping mod 2^depth) and re-encoded with its own header so the
// all-saturated value never collides with an in-range one.
func EncodeUnsigned(w *bitio.Writer, values []uint64, depth uint8, st *UnsignedState) {
	bits := SignificantBitsUnsigned(values, depth)
	if bits < depth {
		PushHeader(w, &st.PrevBits, bits)
		w.PushSpan(bits, values)
		return
	}
	PushHeader(w, &st.PrevBits, depth)
	shifted := make([]uint64, len(values))
	m := depthMask(depth)
	for i, v := range values {
		shifted[i] = (v + 1) & m
	}
	maskedBits := SignificantBitsUnsigned(shifted, depth)
	PushHeader(w, &st.PrevMaskedBits, maskedBits)
	w.PushSpan(maskedBits, shifted)
}

// DecodeUnsigned reads one block of len(out) values into out.
func DecodeUnsigned(r *bitio.Reader, out []uint64, depth uint8, st *UnsignedState) {
	bits := PopHeader(r, &st.PrevBits)
	if bits < depth {
		r.PopUintSpan(bits, out)
		return
	}
	maskedBits := PopHeader(r, &st.PrevMaskedBits)
	r.PopUintSpan(maskedBits, out)
	m := depthMask(depth)
	for i, v := range out {
		if v == 0 {
			out[i] = m
		} else {
			out[i] = v - 1
		}
	}
}
