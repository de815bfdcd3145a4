package block

import (
	"math/bits"

	"github.com/lattice-imaging/trpx/internal/bitio"
)

// RadixBlock caps the chunk size used by Small-unsigned's mixed-radix digit
// packing: a configured block size above it is lowered to it, so that
// base-7 packing (values 0..maxWeak, the widest weak-path base) never needs
// more than 64 bits of compact accumulator: 7^22 fits in a uint64, 7^24
// does not.
const RadixBlock = 22

// maxWeak is the largest pixel value the weak (mixed-radix) path packs
// directly; values above it fall back to the strong (fixed-width) path.
const maxWeak = 6

// SmallUnsignedState carries the shared max/bits delta pair across
// consecutive blocks of a Small-unsigned frame. A weak block's header moves
// Max, a strong block's header moves Bits, but the header grammar steps
// both fields together: a two-bit reuse/increment/decrement code can't say
// which axis it's really adjusting, since the same three codes serve both
// the weak and the strong family. Encode and decode each hold their own
// copy of this pair.
type SmallUnsignedState struct {
	Max  uint64
	Bits uint8
}

// smallMaxSentinel is the value Max is reset to after a strong block, and
// the value a header's escape branch jumps Max to: large enough that no
// weak block's real max (0..maxWeak) can ever be mistaken for a delta
// against it.
func smallMaxSentinel(depth uint8) uint64 {
	return depthMask(depth)/2 + 1
}

func maxUint64(values []uint64) uint64 {
	var m uint64
	for _, v := range values {
		if v > m {
			m = v
		}
	}
	return m
}

// pushWeakHeader writes maxval's delta against st.Max:
//
//	st.Max==0, maxval==0        -> 1 bit:  1
//	maxval == st.Max             -> 2 bits: 11
//	maxval == st.Max+1            -> 2 bits: 10  (also st.Max==6 -> maxval==4)
//	maxval == st.Max-1, maxval!=6  -> 2 bits: 01
//	otherwise                     -> 2 bits 00 + 3-bit literal maxval
//
// st.Max==6 is special-cased on the increment side: incrementing from 6
// skips 5 and lands on 4, matching the reference encoder's
// f_compress_weak_block.
func pushWeakHeader(w *bitio.Writer, st *SmallUnsignedState, maxval uint64) {
	switch {
	case st.Max == 0 && maxval == 0:
		w.Push(1, 0b1)
	case st.Max == maxval:
		w.Push(2, 0b11)
	case st.Max+1 == maxval:
		w.Push(2, 0b10)
	case maxval != 6 && st.Max-1 == maxval:
		w.Push(2, 0b01)
	case st.Max == 6 && maxval == 4:
		w.Push(2, 0b10)
	default:
		w.Push(5, maxval<<2)
	}
	st.Max = maxval
}

// pushStrongHeader writes bitsVal's delta against st.Bits using the same
// three two-bit codes as pushWeakHeader, escalating to pushSmallEscape when
// none of them apply. This is a distinct grammar from PushHeader: it deltas
// against the block's own previous width instead of re-deriving a tiered
// literal every time it isn't a plain reuse, and its escape thresholds (10,
// 17) and field widths (3, 3, 6) differ from PushHeader's (7, 10; 2, 6).
func pushStrongHeader(w *bitio.Writer, st *SmallUnsignedState, bitsVal uint8) {
	switch {
	case st.Bits == bitsVal:
		w.Push(2, 0b11)
	case st.Bits+1 == bitsVal:
		w.Push(2, 0b10)
	case st.Bits-1 == bitsVal:
		w.Push(2, 0b01)
	default:
		pushSmallEscape(w, bitsVal)
	}
	st.Bits = bitsVal
}

// pushSmallEscape writes the header's shared literal/escape tail: a 00
// flag, a 3-bit field fixed at 7 signalling "not a plain small maxval",
// then a cascading 3/3/6-bit remainder with thresholds at 10 and 17. A weak
// block's genuine literal (maxval in 0..6) never reaches this function,
// since pushWeakHeader's own literal branch always writes a value below 7.
func pushSmallEscape(w *bitio.Writer, bitsVal uint8) {
	w.Push(2, 0b00)
	w.Push(3, 7)
	if bitsVal < 10 {
		w.Push(3, uint64(bitsVal-3))
		return
	}
	w.Push(3, 7)
	if bitsVal < 17 {
		w.Push(3, uint64(bitsVal-10))
		return
	}
	w.Push(3, 7)
	w.Push(6, uint64(bitsVal-17))
}

// popSmallHeader reads one header written by pushWeakHeader, pushStrongHeader,
// or pushSmallEscape and advances st, mirroring the reference decoder's
// single shared f_get_max: a two-bit reuse/increment/decrement code moves
// Max and Bits together, since nothing in the header itself says whether
// the block that follows will turn out weak or strong. The caller decides
// that from the returned max (<= maxWeak means weak).
func popSmallHeader(r *bitio.Reader, st *SmallUnsignedState, depth uint8) (max uint64, bitsVal uint8) {
	flag := r.PopUint(1)
	if flag == 1 && st.Max == 0 {
		return st.Max, st.Bits
	}
	flag = (flag << 1) | r.PopUint(1)
	switch flag {
	case 0b11:
	case 0b10:
		st.Bits--
		st.Max--
	case 0b01:
		st.Bits++
		if st.Max == 6 {
			st.Max -= 2
		} else {
			st.Max++
		}
	default:
		lit := r.PopUint(3)
		st.Max = lit
		st.Bits = uint8(lit)
		if lit == 7 {
			st.Bits = 3 + bitio.PopT[uint8](r, 3)
			if st.Bits == 10 {
				st.Bits += bitio.PopT[uint8](r, 3)
				if st.Bits == 17 {
					st.Bits += bitio.PopT[uint8](r, 6)
				}
			}
			st.Max = smallMaxSentinel(depth)
		}
	}
	return st.Max, st.Bits
}

// pushSmallBody writes chunk's payload once max is already known: max in
// {0,1,3} packs each value at a fixed width, max==7 is the vestigial
// direct-3-bit case the reference decoder still switches on even though no
// header path can ever produce it (the header's own literal-7 code always
// means "escalate", never "maxval is exactly 7"), and every other max (2,
// 4, 5, 6) goes through generic mixed-radix packing.
func pushSmallBody(w *bitio.Writer, chunk []uint64, max uint64) {
	switch max {
	case 0:
	case 1:
		w.PushSpan(1, chunk)
	case 3:
		w.PushSpan(2, chunk)
	case 7:
		w.PushSpan(3, chunk)
	default:
		packRadix(w, chunk, max+1)
	}
}

func popSmallBody(r *bitio.Reader, dst []uint64, max uint64) {
	switch max {
	case 0:
		r.PopUintSpan(0, dst)
	case 1:
		r.PopUintSpan(1, dst)
	case 3:
		r.PopUintSpan(2, dst)
	case 7:
		r.PopUintSpan(3, dst)
	default:
		unpackRadix(r, dst, max+1)
	}
}

// packRadix packs values as mixed-radix digits of the given base into a
// single compact integer and pushes it with the minimum width needed for
// base^len(values) - 1.
func packRadix(w *bitio.Writer, values []uint64, base uint64) {
	mult := uint64(1)
	var compact uint64
	for _, v := range values {
		compact += v * mult
		mult *= base
	}
	w.Push(uint8(bits.Len64(mult-1)), compact)
}

func unpackRadix(r *bitio.Reader, out []uint64, base uint64) {
	mult := uint64(1)
	for range out {
		mult *= base
	}
	val := r.PopUint(uint8(bits.Len64(mult - 1)))
	for i := range out {
		out[i] = val % base
		val /= base
	}
}

// EncodeSmallUnsigned writes values (a whole frame's worth of pixels) using
// the weak/strong small-unsigned family: blocks whose max is at most
// maxWeak are packed as a single mixed-radix integer; wider blocks fall
// back to fixed-width packing keyed by their significant-bit count; blocks
// that need the full depth bits enter a masked run where every value is
// shifted up by one (mod 2^depth) until a lookahead block is unsaturated.
func EncodeSmallUnsigned(w *bitio.Writer, values []uint64, depth uint8, block int) {
	if block > RadixBlock {
		block = RadixBlock
	}
	n := len(values)
	var st SmallUnsignedState

	from := 0
	for from < n {
		to := from + block
		if to > n {
			to = n
		}
		chunk := values[from:to]
		max := maxUint64(chunk)

		if max <= maxWeak {
			pushWeakHeader(w, &st, max)
			pushSmallBody(w, chunk, max)
			st.Bits = 65
			from = to
			continue
		}

		sig := SignificantBitsUnsigned(chunk, depth)
		if sig == depth {
			from = encodeSmallMaskedRun(w, values, from, to, depth, block, &st)
			continue
		}
		pushStrongHeader(w, &st, sig)
		w.PushSpan(sig, chunk)
		st.Max = smallMaxSentinel(depth)
		from = to
	}
}

// encodeSmallMaskedRun handles a run of blocks that need the full depth
// bits: it writes a fixed escape header for depth (bypassing the usual
// delta comparison, since the caller already knows this block is
// saturated), resets the delta state the masked path resets it to in the
// reference encoder, then shifts and re-encodes each block by one until a
// lookahead block turns out unsaturated.
func encodeSmallMaskedRun(w *bitio.Writer, values []uint64, from, to int, depth uint8, block int, st *SmallUnsignedState) int {
	n := len(values)
	m := depthMask(depth)
	pushSmallEscape(w, depth)
	st.Max = m
	st.Bits = depth + 1
	shifted := make([]uint64, block)

	for {
		cnt := to - from
		for i := 0; i < cnt; i++ {
			shifted[i] = (values[from+i] + 1) & m
		}
		sub := shifted[:cnt]
		smax := maxUint64(sub)
		if smax <= maxWeak {
			pushWeakHeader(w, st, smax)
			pushSmallBody(w, sub, smax)
			st.Bits = 65
		} else {
			ssig := SignificantBitsUnsigned(sub, depth)
			pushStrongHeader(w, st, ssig)
			w.PushSpan(ssig, sub)
			st.Max = smallMaxSentinel(depth)
		}

		from = to
		to = from + block
		if to > n {
			to = n
		}
		if from >= n {
			return from
		}
		lookahead := values[from:to]
		if maxUint64(lookahead) != m {
			w.Push(1, 0)
			return from
		}
		w.Push(1, 1)
	}
}

// DecodeSmallUnsigned reads len(out) values written by EncodeSmallUnsigned.
func DecodeSmallUnsigned(r *bitio.Reader, out []uint64, depth uint8, block int) {
	if block > RadixBlock {
		block = RadixBlock
	}
	n := len(out)
	var st SmallUnsignedState

	from := 0
	for from < n {
		to := from + block
		if to > n {
			to = n
		}
		dst := out[from:to]

		max, bitsVal := popSmallHeader(r, &st, depth)
		if max <= maxWeak {
			popSmallBody(r, dst, max)
			st.Bits = 65
			from = to
			continue
		}
		if bitsVal == depth {
			from = decodeSmallMaskedRun(r, out, from, to, depth, block, &st)
			continue
		}
		r.PopUintSpan(bitsVal, dst)
		st.Max = smallMaxSentinel(depth)
		from = to
	}
}

// decodeSmallMaskedRun is the decode counterpart of encodeSmallMaskedRun:
// the entry escape header was already consumed by the caller's
// popSmallHeader call (it's what signalled bitsVal==depth), so this
// function only replays the same delta-state reset and per-block dispatch,
// then undoes the +1 shift on every decoded value.
func decodeSmallMaskedRun(r *bitio.Reader, out []uint64, from, to int, depth uint8, block int, st *SmallUnsignedState) int {
	n := len(out)
	m := depthMask(depth)
	st.Max = m
	st.Bits = depth + 1

	for {
		dst := out[from:to]
		max, bitsVal := popSmallHeader(r, st, depth)
		if max <= maxWeak {
			popSmallBody(r, dst, max)
			st.Bits = 65
		} else {
			r.PopUintSpan(bitsVal, dst)
			st.Max = smallMaxSentinel(depth)
		}
		for i, v := range dst {
			if v == 0 {
				dst[i] = m
			} else {
				dst[i] = v - 1
			}
		}

		from = to
		to = from + block
		if to > n {
			to = n
		}
		if from >= n {
			return from
		}
		if r.PopUint(1) == 0 {
			return from
		}
	}
}
