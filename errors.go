package trpx

import "errors"

// Sentinel errors returned by container operations. Wrap with fmt.Errorf's
// %w and compare with errors.Is.
var (
	// ErrMalformedHeader means the leading <Terse .../> tag could not be
	// parsed or is missing a required attribute.
	ErrMalformedHeader = errors.New("trpx: malformed header")
	// ErrIncompatibleFrame means a pushed or inserted slice's length,
	// depth, or signedness does not match the container it is going into.
	ErrIncompatibleFrame = errors.New("trpx: incompatible frame")
	// ErrUnsupportedMode means a caller requested Unsigned or
	// Small-unsigned mode for signed input, a combination the wire
	// format has no encoding for.
	ErrUnsupportedMode = errors.New("trpx: unsupported mode for signedness")
	// ErrTruncatedStream means fewer bytes were available than the header
	// or a frame's own encoding required.
	ErrTruncatedStream = errors.New("trpx: truncated stream")
	// ErrOutOfRange means a frame or metadata index fell outside
	// [0, count), or that Quantize was given a range whose hi is not
	// greater than lo.
	ErrOutOfRange = errors.New("trpx: index out of range")
	// ErrBufferTooSmall means a caller-supplied output slice cannot hold
	// one frame's worth of values.
	ErrBufferTooSmall = errors.New("trpx: destination buffer too small")
	// ErrInternalCodecInvariant means the codec produced or consumed a
	// bitstream that violates an invariant it is supposed to maintain on
	// its own; it never signals bad input.
	ErrInternalCodecInvariant = errors.New("trpx: internal codec invariant violated")
)
