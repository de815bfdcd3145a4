package block

import "github.com/lattice-imaging/trpx/internal/bitio"

// SignedState carries the delta-coded header width across consecutive
// blocks of a Signed-mode frame.
type SignedState struct {
	PrevBits uint8
}

// EncodeSigned writes one block of two's-complement pixel values, depth
// bits wide, updating st for the next block.
func EncodeSigned(w *bitio.Writer, values []int64, depth uint8, st *SignedState) {
	bits := SignificantBitsSigned(values, depth)
	PushHeader(w, &st.PrevBits, bits)
	w.PushSignedSpan(bits, values)
}

// DecodeSigned reads one block of len(out) values into out.
func DecodeSigned(r *bitio.Reader, out []int64, st *SignedState) {
	bits := PopHeader(r, &st.PrevBits)
	r.PopIntSpan(bits, out)
}
