package trpx

import "github.com/lattice-imaging/trpx/internal/frame"

// Mode selects which of the three interoperable pixel formats a container
// uses to store its frames.
type Mode = frame.Mode

const (
	// ModeSigned packs two's-complement values with no overload masking.
	ModeSigned = frame.Signed
	// ModeUnsigned packs non-negative values with overload masking at the
	// top of the pixel's bit depth.
	ModeUnsigned = frame.Unsigned
	// ModeSmallUnsigned additionally mixed-radix-packs low-dynamic-range
	// blocks, for images that rarely use their full bit depth.
	ModeSmallUnsigned = frame.SmallUnsigned
)
