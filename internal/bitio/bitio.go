// Package bitio implements a little-endian-bit-order bit queue used to pack
// and unpack the variable-width integer fields that make up a Terse block
// stream. Bits are accumulated in a 64-bit scratch word and spilled to the
// underlying byte buffer eight bytes at a time using
// encoding/binary.LittleEndian, so the wire format is independent of host
// byte order and native word size.
package bitio

import (
	"encoding/binary"

	"golang.org/x/exp/constraints"
)

func mask(width uint8) uint64 {
	if width == 0 {
		return 0
	}
	if width >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << width) - 1
}

// Writer accumulates bit fields of arbitrary width (0..64 bits) and produces
// a byte slice whose length is the minimum number of bytes needed to hold
// every pushed bit. Callers that need the container's 8-byte alignment
// invariant pad the result of Bytes themselves.
type Writer struct {
	out     []byte
	acc     uint64
	accBits uint
}

// NewWriter returns a Writer with capacity pre-reserved for roughly
// sizeHint bytes of output.
func NewWriter(sizeHint int) *Writer {
	if sizeHint < 0 {
		sizeHint = 0
	}
	return &Writer{out: make([]byte, 0, sizeHint)}
}

// Push appends the low width bits of value, least-significant bit first.
// width must be in [0, 64]; a width of 0 is a no-op.
func (w *Writer) Push(width uint8, value uint64) {
	if width == 0 {
		return
	}
	v := value & mask(width)
	w.acc |= v << w.accBits
	w.accBits += uint(width)
	if w.accBits >= 64 {
		var word [8]byte
		binary.LittleEndian.PutUint64(word[:], w.acc)
		w.out = append(w.out, word[:]...)
		consumed := 64 - (w.accBits - uint(width))
		w.accBits -= 64
		if consumed >= 64 {
			w.acc = 0
		} else {
			w.acc = v >> consumed
		}
	}
}

// PushSigned appends the low width bits of the two's-complement
// representation of value.
func (w *Writer) PushSigned(width uint8, value int64) {
	w.Push(width, uint64(value))
}

// PopT is PopUint narrowed to any of the block codec's compile-time-known
// integer field types (header escape codes, run lengths), sparing call
// sites the manual uint8(...)/uint64(...) round trip.
func PopT[T constraints.Integer](r *Reader, width uint8) T {
	return T(r.PopUint(width))
}

// PushSpan appends every element of values using the same width.
func (w *Writer) PushSpan(width uint8, values []uint64) {
	for _, v := range values {
		w.Push(width, v)
	}
}

// PushSignedSpan appends every element of values using the same width.
func (w *Writer) PushSignedSpan(width uint8, values []int64) {
	for _, v := range values {
		w.PushSigned(width, v)
	}
}

// BitLen returns the total number of bits pushed so far.
func (w *Writer) BitLen() uint64 {
	return uint64(len(w.out))*8 + uint64(w.accBits)
}

// Bytes flushes any buffered partial word and returns the accumulated
// bytes. The returned slice is exactly ceil(BitLen()/8) bytes long; it is
// not padded to the container's 8-byte frame alignment.
func (w *Writer) Bytes() []byte {
	if w.accBits > 0 {
		n := int((w.accBits + 7) / 8)
		var word [8]byte
		binary.LittleEndian.PutUint64(word[:], w.acc)
		w.out = append(w.out, word[:n]...)
		w.acc = 0
		w.accBits = 0
	}
	return w.out
}

// Reader is the counterpart to Writer: it pops bit fields off a byte slice
// in the same little-endian bit order Writer produces.
type Reader struct {
	data     []byte
	pos      int
	acc      uint64
	accBits  uint
	consumed uint64
}

// NewReader wraps data for bit-field extraction starting at bit 0.
func NewReader(data []byte) *Reader {
	r := &Reader{data: data}
	r.loadWord()
	return r
}

func (r *Reader) loadWord() {
	if r.pos+8 <= len(r.data) {
		r.acc = binary.LittleEndian.Uint64(r.data[r.pos : r.pos+8])
		r.accBits = 64
	} else if r.pos < len(r.data) {
		var word [8]byte
		copy(word[:], r.data[r.pos:])
		r.acc = binary.LittleEndian.Uint64(word[:])
		r.accBits = uint(len(r.data)-r.pos) * 8
	} else {
		r.acc, r.accBits = 0, 0
	}
	r.pos += 8
}

// PopUint extracts the next width bits as an unsigned value.
func (r *Reader) PopUint(width uint8) uint64 {
	if width == 0 {
		return 0
	}
	r.consumed += uint64(width)
	if uint(width) <= r.accBits {
		v := r.acc & mask(width)
		if width == 64 {
			r.acc, r.accBits = 0, 0
		} else {
			r.acc >>= width
			r.accBits -= uint(width)
		}
		return v
	}
	low := r.acc
	haveBits := r.accBits
	r.loadWord()
	need := uint(width) - haveBits
	v := (low | (r.acc << haveBits)) & mask(width)
	if need >= r.accBits {
		r.acc = 0
		r.accBits = 0
	} else {
		r.acc >>= need
		r.accBits -= need
	}
	return v
}

// PopInt extracts the next width bits and sign-extends them from bit
// width-1.
func (r *Reader) PopInt(width uint8) int64 {
	v := r.PopUint(width)
	if width == 0 || width >= 64 {
		return int64(v)
	}
	signBit := uint64(1) << (width - 1)
	if v&signBit != 0 {
		v |= ^uint64(0) << width
	}
	return int64(v)
}

// PopUintSpan fills out with width bits per element.
func (r *Reader) PopUintSpan(width uint8, out []uint64) {
	for i := range out {
		out[i] = r.PopUint(width)
	}
}

// PopIntSpan fills out with width bits per element, sign-extended.
func (r *Reader) PopIntSpan(width uint8, out []int64) {
	for i := range out {
		out[i] = r.PopInt(width)
	}
}

// Skip advances the read position by width bits without materializing a
// value. Skips of 64 bits or more jump whole words directly instead of
// popping bit by bit.
func (r *Reader) Skip(width uint64) {
	if width == 0 {
		return
	}
	r.consumed += width
	if width <= uint64(r.accBits) {
		if width == 64 {
			r.acc, r.accBits = 0, 0
		} else {
			r.acc >>= width
			r.accBits -= uint(width)
		}
		return
	}
	remaining := width - uint64(r.accBits)
	wholeWords := remaining / 64
	bitsIntoNext := uint(remaining % 64)
	r.pos += int(wholeWords) * 8
	r.loadWord()
	if bitsIntoNext > 0 {
		if bitsIntoNext >= r.accBits {
			r.acc, r.accBits = 0, 0
		} else {
			r.acc >>= bitsIntoNext
			r.accBits -= bitsIntoNext
		}
	}
}

// BitPos returns the number of bits consumed so far via Pop or Skip.
func (r *Reader) BitPos() uint64 {
	return r.consumed
}

// BytePos returns the number of whole bytes consumed, rounded up.
func (r *Reader) BytePos() int {
	return int((r.consumed + 7) / 8)
}
