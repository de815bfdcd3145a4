// Package frame turns a slice of pixel values for one image into a single
// compressed byte blob (and back), choosing among the three Terse pixel
// formats and padding the result to the container's 8-byte frame alignment.
package frame

import (
	"fmt"

	"github.com/lattice-imaging/trpx/internal/bitio"
	"github.com/lattice-imaging/trpx/internal/block"
)

// Mode selects which of the three interoperable pixel formats a frame uses.
type Mode uint8

const (
	// Signed packs two's-complement values with no masking.
	Signed Mode = iota
	// Unsigned packs non-negative values with overload masking at the top
	// of the value's bit depth.
	Unsigned
	// SmallUnsigned additionally mixed-radix-packs low-dynamic-range
	// blocks for images that rarely use their full bit depth.
	SmallUnsigned
)

func (m Mode) String() string {
	switch m {
	case Signed:
		return "signed"
	case Unsigned:
		return "unsigned"
	case SmallUnsigned:
		return "small_unsigned"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

// unsignedSentinel and smallUnsignedSentinel are the 18-bit prefixes that
// let a reader recover a frame's mode without any external metadata.
// Signed frames carry no prefix at all: their block headers begin
// immediately at bit 0, so a stream that doesn't start with either
// sentinel is assumed Signed.
const (
	unsignedSentinel      = 0b111111111111111000
	smallUnsignedSentinel = 0b111111111111111100
)

func padTo8(b []byte) []byte {
	if r := len(b) % 8; r != 0 {
		b = append(b, make([]byte, 8-r)...)
	}
	return b
}

// EncodeSigned compresses values (two's-complement, depth bits deep) into
// one padded frame.
func EncodeSigned(values []int64, depth uint8, blockLen int) []byte {
	w := bitio.NewWriter(len(values)*int(depth)/8 + 16)
	var st block.SignedState
	for from := 0; from < len(values); from += blockLen {
		to := min(from+blockLen, len(values))
		block.EncodeSigned(w, values[from:to], depth, &st)
	}
	return padTo8(w.Bytes())
}

// EncodeUnsigned compresses non-negative values into one padded frame,
// optionally taking the Small-unsigned mixed-radix path.
func EncodeUnsigned(values []uint64, depth uint8, blockLen int, small bool) []byte {
	w := bitio.NewWriter(len(values)*int(depth)/8 + 16)
	if small {
		w.Push(18, smallUnsignedSentinel)
		block.EncodeSmallUnsigned(w, values, depth, blockLen)
	} else {
		w.Push(18, unsignedSentinel)
		var st block.UnsignedState
		for from := 0; from < len(values); from += blockLen {
			to := min(from+blockLen, len(values))
			block.EncodeUnsigned(w, values[from:to], depth, &st)
		}
	}
	return padTo8(w.Bytes())
}

// Decode reads count pixel values back from data, whose mode is sniffed
// from its leading bits, and returns the raw decoded words alongside the
// number of bytes the reader actually consumed (rounded up to a byte) and
// the detected mode.
//
// For Signed frames each raw word is the bit pattern of a fully
// sign-extended int64; for Unsigned/SmallUnsigned frames each raw word is
// a plain magnitude in [0, 2^depth).
func Decode(data []byte, count uint64, depth uint8, blockLen int) (raw []uint64, consumed int, mode Mode, err error) {
	if uint64(len(data))*8 < 18 {
		mode = Signed
	} else {
		sniff := bitio.NewReader(data)
		switch sniff.PopUint(18) {
		case unsignedSentinel:
			mode = Unsigned
		case smallUnsignedSentinel:
			mode = SmallUnsigned
		default:
			mode = Signed
		}
	}

	raw = make([]uint64, count)
	switch mode {
	case Signed:
		r := bitio.NewReader(data)
		var st block.SignedState
		vals := make([]int64, blockLen)
		for from := uint64(0); from < count; from += uint64(blockLen) {
			to := min(from+uint64(blockLen), count)
			chunk := vals[:to-from]
			block.DecodeSigned(r, chunk, &st)
			for i, v := range chunk {
				raw[from+uint64(i)] = uint64(v)
			}
		}
		return raw, r.BytePos(), mode, nil

	case Unsigned:
		r := bitio.NewReader(data)
		r.PopUint(18)
		var st block.UnsignedState
		for from := uint64(0); from < count; from += uint64(blockLen) {
			to := min(from+uint64(blockLen), count)
			block.DecodeUnsigned(r, raw[from:to], depth, &st)
		}
		return raw, r.BytePos(), mode, nil

	case SmallUnsigned:
		r := bitio.NewReader(data)
		r.PopUint(18)
		block.DecodeSmallUnsigned(r, raw, depth, blockLen)
		return raw, r.BytePos(), mode, nil
	}
	return nil, 0, mode, fmt.Errorf("frame: unreachable mode %v", mode)
}
