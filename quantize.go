package trpx

import (
	"fmt"
	"math"

	"golang.org/x/exp/constraints"
)

// Quantize maps each of src's floating-point samples onto T's full code
// range by an affine rescale of [lo, hi] (onto [0, 2^depth) for unsigned T,
// onto [-2^(depth-1), 2^(depth-1)) for signed T), for callers that captured continuous
// detector counts and want to push them through an integer container.
// Values outside [lo, hi] are clamped rather than rejected, since detector
// noise routinely produces a few out-of-range outliers.
func Quantize[F constraints.Float, T Integer](src []F, lo, hi F, dst []T) error {
	if len(dst) != len(src) {
		return fmt.Errorf("%w: got %d destination slots, want %d", ErrBufferTooSmall, len(dst), len(src))
	}
	depth, signed := typeInfo[T]()
	if hi <= lo {
		return fmt.Errorf("%w: hi must be greater than lo", ErrOutOfRange)
	}
	scale := F(depthMask(depth)) / (hi - lo)
	for i, v := range src {
		if v < lo {
			v = lo
		} else if v > hi {
			v = hi
		}
		q := uint64(math.Round(float64((v - lo) * scale)))
		if signed {
			dst[i] = T(int64(q) - int64(1)<<(depth-1))
		} else {
			dst[i] = T(q)
		}
	}
	return nil
}

// Dequantize inverts Quantize, mapping src's stored integer codes back onto
// [lo, hi]. It is lossy in the same direction Quantize is: it recovers the
// bucket center, not the original sample.
func Dequantize[T Integer, F constraints.Float](src []T, lo, hi F, dst []F) error {
	if len(dst) != len(src) {
		return fmt.Errorf("%w: got %d destination slots, want %d", ErrBufferTooSmall, len(dst), len(src))
	}
	depth, signed := typeInfo[T]()
	scale := (hi - lo) / F(depthMask(depth))
	for i, v := range src {
		var q uint64
		if signed {
			q = uint64(int64(v) + int64(1)<<(depth-1))
		} else {
			q = uint64(v)
		}
		dst[i] = lo + F(q)*scale
	}
	return nil
}
