package trpx

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
)

// header mirrors the single self-closing <Terse .../> tag that opens every
// .trpx file. Field order matches attribute write order; encoding/xml
// respects Go struct field order when marshaling but a container's exact
// on-disk formatting is produced by hand in writeHeaderTag below, so that a
// reader expecting the canonical self-closing form (rather than the paired
// open/close tags encoding/xml.Marshal would emit for a childless element)
// can always find one.
type header struct {
	XMLName              xml.Name `xml:"Terse"`
	ProlixBits           uint8    `xml:"prolix_bits,attr"`
	Signed               bool     `xml:"signed,attr"`
	Block                int      `xml:"block,attr"`
	NumberOfValues       uint64   `xml:"number_of_values,attr"`
	Dimensions           string   `xml:"dimensions,attr,omitempty"`
	NumberOfFrames       int      `xml:"number_of_frames,attr"`
	MemorySizesOfFrames  string   `xml:"memory_sizes_of_frames,attr,omitempty"`
	MemorySize           uint64   `xml:"memory_size,attr"`
	MetadataStringSizes  string   `xml:"metadata_string_sizes,attr,omitempty"`
}

func joinUint64(vs []uint64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = strconv.FormatUint(v, 10)
	}
	return strings.Join(parts, ",")
}

func joinInt(vs []int) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

func splitUint64(s string) ([]uint64, error) {
	if s == "" {
		return nil, nil
	}
	fields := strings.Split(s, ",")
	out := make([]uint64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseUint(strings.TrimSpace(f), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedHeader, err)
		}
		out[i] = v
	}
	return out, nil
}

func splitInt(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	fields := strings.Split(s, ",")
	out := make([]int, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseUint(strings.TrimSpace(f), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedHeader, err)
		}
		out[i] = int(v)
	}
	return out, nil
}

// boolDigit renders a bool as the "0"/"1" digit the container format and
// external readers (e.g. the ImageJ TRPX_Reader's signed="(\d+)" regex)
// expect, rather than Go's "true"/"false" spelling.
func boolDigit(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

// writeHeaderTag renders h as the single canonical self-closing tag, in a
// fixed attribute order, so the resulting bytes match what a reader that
// scans for "/>" (rather than running a full XML parser) expects.
func writeHeaderTag(h header) []byte {
	var b strings.Builder
	b.WriteString("<Terse")
	fmt.Fprintf(&b, " prolix_bits=%q", strconv.FormatUint(uint64(h.ProlixBits), 10))
	fmt.Fprintf(&b, " signed=%q", boolDigit(h.Signed))
	fmt.Fprintf(&b, " block=%q", strconv.Itoa(h.Block))
	fmt.Fprintf(&b, " number_of_values=%q", strconv.FormatUint(h.NumberOfValues, 10))
	if h.Dimensions != "" {
		fmt.Fprintf(&b, " dimensions=%q", h.Dimensions)
	}
	fmt.Fprintf(&b, " number_of_frames=%q", strconv.Itoa(h.NumberOfFrames))
	if h.MemorySizesOfFrames != "" {
		fmt.Fprintf(&b, " memory_sizes_of_frames=%q", h.MemorySizesOfFrames)
	}
	fmt.Fprintf(&b, " memory_size=%q", strconv.FormatUint(h.MemorySize, 10))
	if h.MetadataStringSizes != "" {
		fmt.Fprintf(&b, " metadata_string_sizes=%q", h.MetadataStringSizes)
	}
	b.WriteString("/>")
	return []byte(b.String())
}

// parseHeaderTag extracts the leading <Terse .../> tag from data and
// returns the decoded header plus the byte offset immediately after it.
// The tag is taken to end at the first "/>" in data, so only the canonical
// self-closing form is supported; a paired <Terse ...></Terse> form with no
// "/>" is reported as malformed.
func parseHeaderTag(data []byte) (header, int, error) {
	end := strings.Index(string(data), "/>")
	if end == -1 {
		return header{}, 0, fmt.Errorf("%w: no self-closing Terse tag found", ErrMalformedHeader)
	}
	tagEnd := end + len("/>")
	var h header
	if err := xml.Unmarshal(data[:tagEnd], &h); err != nil {
		return header{}, 0, fmt.Errorf("%w: %v", ErrMalformedHeader, err)
	}
	if h.XMLName.Local != "Terse" {
		return header{}, 0, fmt.Errorf("%w: unexpected root element %q", ErrMalformedHeader, h.XMLName.Local)
	}
	return h, tagEnd, nil
}
