// Package trpx implements the self-describing .trpx container format: a
// lossless, bit-packed codec for integer grayscale images (electron
// diffraction frames in particular), plus the file container that stores
// many same-shaped frames back to back behind one XML header.
package trpx

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"golang.org/x/exp/slices"

	"github.com/lattice-imaging/trpx/internal/frame"
	"github.com/lattice-imaging/trpx/internal/pool"
)

type frameRecord struct {
	data   []byte
	future *pool.Future
}

// Container holds NumFrames() frames of Size() values each, all of type T,
// all packed with the same block size and pixel format. It corresponds to
// one .trpx file.
type Container[T Integer] struct {
	mu sync.Mutex

	depth  uint8
	signed bool
	small  bool
	block  int
	dim    []uint64
	size   uint64

	frames   []frameRecord
	metadata []string

	dop   pool.Parallelism
	id    uint64
	idSet bool
}

// New creates an empty container for values shaped like dim (e.g. [rows,
// cols] for a 2D image), packing block values per header at a time. small
// requests the Small-unsigned mixed-radix path and is only valid when T is
// an unsigned type.
func New[T Integer](dim []uint64, block int, small bool) (*Container[T], error) {
	if block <= 0 {
		return nil, fmt.Errorf("%w: block must be positive", ErrIncompatibleFrame)
	}
	depth, signed := typeInfo[T]()
	if small && signed {
		return nil, fmt.Errorf("%w: small-unsigned mode requires an unsigned type", ErrUnsupportedMode)
	}
	size := uint64(1)
	for _, d := range dim {
		size *= d
	}
	return &Container[T]{
		depth: depth, signed: signed, small: small, block: block,
		dim: append([]uint64(nil), dim...), size: size,
	}, nil
}

// SetParallelism sets the fraction of the process worker pool subsequent
// PushBack/Insert calls may use for background compression.
func (c *Container[T]) SetParallelism(p pool.Parallelism) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dop = p.Clamp()
}

func (c *Container[T]) ensureIDLocked() uint64 {
	if !c.idSet {
		c.id = pool.NextID()
		c.idSet = true
	}
	return c.id
}

// NumFrames returns the number of frames currently stored.
func (c *Container[T]) NumFrames() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

// Size returns the number of values in each frame.
func (c *Container[T]) Size() uint64 { return c.size }

// Dim returns the shape values are stored under, if one was given to New
// or read from a header's dimensions attribute.
func (c *Container[T]) Dim() []uint64 { return append([]uint64(nil), c.dim...) }

// BlockSize returns the number of values grouped under one header.
func (c *Container[T]) BlockSize() int { return c.block }

// BitsPerVal returns the container's fixed pixel bit depth.
func (c *Container[T]) BitsPerVal() uint8 { return c.depth }

// IsSigned reports whether values are packed two's-complement.
func (c *Container[T]) IsSigned() bool { return c.signed }

// Small reports whether unsigned frames additionally use the mixed-radix
// Small-unsigned path.
func (c *Container[T]) Small() bool { return c.small }

// Metadata returns the per-frame metadata strings, one slot per frame,
// empty strings where none was set.
func (c *Container[T]) Metadata() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := append([]string(nil), c.metadata...)
	for len(out) < len(c.frames) {
		out = append(out, "")
	}
	return out
}

// SetMetadata attaches a metadata string to frame i, which must already
// exist.
func (c *Container[T]) SetMetadata(i int, s string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i < 0 || i >= len(c.frames) {
		return ErrOutOfRange
	}
	for len(c.metadata) <= i {
		c.metadata = append(c.metadata, "")
	}
	c.metadata[i] = s
	return nil
}

// TerseSize returns the total number of compressed bytes across all
// frames, materializing any still-pending background encodes.
func (c *Container[T]) TerseSize() (int, error) {
	c.mu.Lock()
	n := len(c.frames)
	c.mu.Unlock()
	total := 0
	for i := 0; i < n; i++ {
		data, err := c.frameBytes(i)
		if err != nil {
			return 0, err
		}
		total += len(data)
	}
	return total, nil
}

func encodeFrame[T Integer](c *Container[T], values []T) []byte {
	if c.signed {
		raw := make([]int64, len(values))
		for i, v := range values {
			raw[i] = int64(v)
		}
		return frame.EncodeSigned(raw, c.depth, c.block)
	}
	raw := make([]uint64, len(values))
	for i, v := range values {
		raw[i] = uint64(v)
	}
	return frame.EncodeUnsigned(raw, c.depth, c.block, c.small)
}

// PushBack appends one frame of values, encoding it (in the background if
// SetParallelism allowed it) with the container's mode.
func (c *Container[T]) PushBack(values []T) error {
	return c.Insert(-1, values)
}

// Insert places one frame of values at position at, or appends it if at is
// negative or equal to NumFrames(). Existing frames from at onward shift up
// by one.
func (c *Container[T]) Insert(at int, values []T) error {
	if uint64(len(values)) != c.size {
		return fmt.Errorf("%w: got %d values, want %d", ErrIncompatibleFrame, len(values), c.size)
	}
	valuesCopy := append([]T(nil), values...)

	c.mu.Lock()
	if at < 0 || at > len(c.frames) {
		at = len(c.frames)
	}
	id := c.ensureIDLocked()
	dop := c.dop
	c.frames = append(c.frames, frameRecord{})
	copy(c.frames[at+1:], c.frames[at:])
	c.frames[at] = frameRecord{}
	if at < len(c.metadata) {
		c.metadata = append(c.metadata[:at], append([]string{""}, c.metadata[at:]...)...)
	}
	c.mu.Unlock()

	fut := pool.NewFuture()
	job := func() {
		var data []byte
		var err error
		func() {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("%w: %v", ErrInternalCodecInvariant, r)
				}
			}()
			data = encodeFrame(c, valuesCopy)
		}()
		fut.Resolve(data, err)
	}
	if !pool.Global().Submit(id, dop, job) {
		job()
	}

	c.mu.Lock()
	c.frames[at].future = fut
	c.mu.Unlock()
	return nil
}

// Erase removes frame i.
func (c *Container[T]) Erase(i int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i < 0 || i >= len(c.frames) {
		return ErrOutOfRange
	}
	c.frames = append(c.frames[:i], c.frames[i+1:]...)
	if i < len(c.metadata) {
		c.metadata = append(c.metadata[:i], c.metadata[i+1:]...)
	}
	return nil
}

func (c *Container[T]) frameBytes(i int) ([]byte, error) {
	c.mu.Lock()
	if i < 0 || i >= len(c.frames) {
		c.mu.Unlock()
		return nil, ErrOutOfRange
	}
	fr := c.frames[i]
	c.mu.Unlock()
	if fr.data != nil {
		return fr.data, nil
	}
	data, err := fr.future.Materialize()
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.frames[i] = frameRecord{data: data}
	c.mu.Unlock()
	return data, nil
}

// decodeRaw materializes and decodes frame i into the codec's raw word
// convention: sign-extended int64 bit patterns for signed containers,
// plain depth-bit magnitudes otherwise.
func (c *Container[T]) decodeRaw(i int) ([]uint64, error) {
	data, err := c.frameBytes(i)
	if err != nil {
		return nil, err
	}
	raw, _, mode, err := frame.Decode(data, c.size, c.depth, c.block)
	if err != nil {
		return nil, err
	}
	if c.signed && mode != frame.Signed {
		return nil, fmt.Errorf("%w: frame %d is %v, container is signed", ErrUnsupportedMode, i, mode)
	}
	if !c.signed && mode == frame.Signed {
		return nil, fmt.Errorf("%w: frame %d is signed, container is unsigned", ErrUnsupportedMode, i)
	}
	return raw, nil
}

// Prolix decodes frame i into the first Size() slots of dst, which must
// have at least Size() slots. It is the buffer-reuse counterpart to At, for
// callers decoding many same-shaped frames in a tight loop.
func (c *Container[T]) Prolix(i int, dst []T) error {
	if uint64(len(dst)) < c.size {
		return fmt.Errorf("%w: got %d slots, want %d", ErrBufferTooSmall, len(dst), c.size)
	}
	raw, err := c.decodeRaw(i)
	if err != nil {
		return err
	}
	if c.signed {
		for j, v := range raw {
			dst[j] = T(int64(v))
		}
	} else {
		for j, v := range raw {
			dst[j] = T(v)
		}
	}
	return nil
}

// At decodes frame i back into the container's own type, allocating a
// fresh slice.
func (c *Container[T]) At(i int) ([]T, error) {
	out := make([]T, c.size)
	if err := c.Prolix(i, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Reshape changes the shape values are interpreted under without touching
// any stored bytes, as long as the new shape holds the same number of
// values. It is a no-op, reported via the slices.Equal short-circuit, when
// the shape is unchanged.
func (c *Container[T]) Reshape(dim []uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if slices.Equal(c.dim, dim) {
		return nil
	}
	size := uint64(1)
	for _, d := range dim {
		size *= d
	}
	if size != c.size {
		return fmt.Errorf("%w: new shape holds %d values, container holds %d", ErrIncompatibleFrame, size, c.size)
	}
	c.dim = append([]uint64(nil), dim...)
	return nil
}

// ShrinkToFit drops any spare capacity left behind by Erase/Insert churn.
func (c *Container[T]) ShrinkToFit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	frames := make([]frameRecord, len(c.frames))
	copy(frames, c.frames)
	c.frames = frames
	metadata := make([]string, len(c.metadata))
	copy(metadata, c.metadata)
	c.metadata = metadata
}

// FileSize returns the total on-disk size Write would produce: the XML
// header plus metadata bytes plus TerseSize, materializing any still-pending
// background encodes.
func (c *Container[T]) FileSize() (int, error) {
	terse, err := c.TerseSize()
	if err != nil {
		return 0, err
	}
	c.mu.Lock()
	metadata := append([]string(nil), c.metadata...)
	n := len(c.frames)
	dim := append([]uint64(nil), c.dim...)
	c.mu.Unlock()

	sizes := make([]uint64, n)
	for i := range sizes {
		data, err := c.frameBytes(i)
		if err != nil {
			return 0, err
		}
		sizes[i] = uint64(len(data))
	}
	metaLen := 0
	metaSizes := make([]int, len(metadata))
	for i, m := range metadata {
		metaLen += len(m)
		metaSizes[i] = len(m)
	}
	h := header{
		ProlixBits: c.depth, Signed: c.signed, Block: c.block,
		NumberOfValues: c.size, Dimensions: joinUint64(dim),
		NumberOfFrames: n, MemorySizesOfFrames: joinUint64(sizes),
		MemorySize: uint64(terse), MetadataStringSizes: joinInt(metaSizes),
	}
	return len(writeHeaderTag(h)) + metaLen + terse, nil
}

func depthMask(depth uint8) uint64 {
	if depth >= 64 {
		return ^uint64(0)
	}
	return uint64(1)<<depth - 1
}

// Convert decodes frame i from c into a differently-typed buffer, letting a
// signed reader inspect an unsigned container's overload sentinels (which
// come back as -1) or an unsigned reader mask a signed container's values
// down to its own bit depth.
func Convert[T Integer, U Integer](c *Container[T], i int) ([]U, error) {
	raw, err := c.decodeRaw(i)
	if err != nil {
		return nil, err
	}
	_, uSigned := typeInfo[U]()
	out := make([]U, len(raw))
	for j, v := range raw {
		switch {
		case c.signed && uSigned:
			out[j] = U(int64(v))
		case c.signed && !uSigned:
			out[j] = U(uint64(int64(v)) & depthMask(c.depth))
		case !c.signed && !uSigned:
			out[j] = U(v)
		default: // !c.signed && uSigned
			signBit := uint64(1) << (c.depth - 1)
			var sv int64
			if v&signBit != 0 {
				sv = int64(v) - int64(uint64(1)<<c.depth)
			} else {
				sv = int64(v)
			}
			out[j] = U(sv)
		}
	}
	return out, nil
}

// Write serializes the container as a complete .trpx file: the XML header,
// concatenated metadata strings, then concatenated frame bytes.
func (c *Container[T]) Write(w io.Writer) error {
	c.mu.Lock()
	n := len(c.frames)
	metadata := append([]string(nil), c.metadata...)
	c.mu.Unlock()

	frames := make([][]byte, n)
	sizes := make([]uint64, n)
	total := uint64(0)
	for i := 0; i < n; i++ {
		data, err := c.frameBytes(i)
		if err != nil {
			return err
		}
		frames[i] = data
		sizes[i] = uint64(len(data))
		total += sizes[i]
	}

	metaSizes := make([]int, len(metadata))
	for i, m := range metadata {
		metaSizes[i] = len(m)
	}

	h := header{
		ProlixBits:          c.depth,
		Signed:              c.signed,
		Block:               c.block,
		NumberOfValues:      c.size,
		Dimensions:          joinUint64(c.dim),
		NumberOfFrames:      n,
		MemorySizesOfFrames: joinUint64(sizes),
		MemorySize:          total,
		MetadataStringSizes: joinInt(metaSizes),
	}
	if _, err := w.Write(writeHeaderTag(h)); err != nil {
		return err
	}
	for _, m := range metadata {
		if _, err := io.WriteString(w, m); err != nil {
			return err
		}
	}
	for _, data := range frames {
		if _, err := w.Write(data); err != nil {
			return err
		}
	}
	return nil
}

// Open parses a complete .trpx file into a Container[T], validating that
// the header's declared bit depth and signedness match T.
func Open[T Integer](r io.Reader) (*Container[T], error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	h, offset, err := parseHeaderTag(raw)
	if err != nil {
		return nil, err
	}
	depth, signed := typeInfo[T]()
	if h.ProlixBits != depth || h.Signed != signed {
		return nil, fmt.Errorf("%w: header wants depth=%d signed=%v, T gives depth=%d signed=%v",
			ErrIncompatibleFrame, h.ProlixBits, h.Signed, depth, signed)
	}
	block := h.Block
	if block <= 0 {
		return nil, fmt.Errorf("%w: non-positive block size", ErrMalformedHeader)
	}

	dim, err := splitUint64(h.Dimensions)
	if err != nil {
		return nil, err
	}
	metaSizes, err := splitInt(h.MetadataStringSizes)
	if err != nil {
		return nil, err
	}

	body := raw[offset:]
	metadata := make([]string, len(metaSizes))
	pos := 0
	for i, sz := range metaSizes {
		if pos+sz > len(body) {
			return nil, ErrTruncatedStream
		}
		metadata[i] = string(body[pos : pos+sz])
		pos += sz
	}
	body = body[pos:]

	frameSizes, err := splitUint64(h.MemorySizesOfFrames)
	if err != nil {
		return nil, err
	}
	var lengths []int
	if frameSizes != nil {
		lengths = make([]int, len(frameSizes))
		for i, s := range frameSizes {
			lengths[i] = int(s)
		}
	} else {
		lengths, err = frame.WalkLengths(body, h.NumberOfFrames, h.NumberOfValues, depth, block)
		if err != nil {
			return nil, err
		}
	}

	c := &Container[T]{
		depth: depth, signed: signed, block: block,
		dim: dim, size: h.NumberOfValues,
		metadata: metadata,
	}
	// Small-unsigned frames self-identify via their sentinel prefix; the
	// loop below tags the container small the first time it sees one, so
	// mixed legacy files still round-trip.
	c.frames = make([]frameRecord, h.NumberOfFrames)
	off := 0
	for i, l := range lengths {
		if l == 0 || off+l > len(body) {
			break
		}
		data := bytes.Clone(body[off : off+l])
		c.frames[i] = frameRecord{data: data}
		if !signed {
			_, _, mode, err := frame.Decode(data, c.size, depth, block)
			if err == nil && mode == frame.SmallUnsigned {
				c.small = true
			}
		}
		off += l
	}
	return c, nil
}
