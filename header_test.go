package trpx

import "testing"

func TestHeaderTagRoundTrip(t *testing.T) {
	h := header{
		ProlixBits:          16,
		Signed:              true,
		Block:               32,
		NumberOfValues:      1024,
		Dimensions:          "32,32",
		NumberOfFrames:      3,
		MemorySizesOfFrames: "100,120,90",
		MemorySize:          310,
		MetadataStringSizes: "5,0,7",
	}
	tag := writeHeaderTag(h)
	got, n, err := parseHeaderTag(append(tag, []byte("trailing body")...))
	if err != nil {
		t.Fatal(err)
	}
	if n != len(tag) {
		t.Fatalf("got offset %d want %d", n, len(tag))
	}
	got.XMLName = h.XMLName
	if got != h {
		t.Fatalf("got %+v want %+v", got, h)
	}
}

func TestHeaderTagOmitsEmptyOptionalAttributes(t *testing.T) {
	h := header{ProlixBits: 8, Signed: false, Block: 4, NumberOfValues: 16, NumberOfFrames: 1}
	tag := string(writeHeaderTag(h))
	for _, attr := range []string{"dimensions=", "memory_sizes_of_frames=", "metadata_string_sizes="} {
		if contains(tag, attr) {
			t.Fatalf("tag %q should not contain %q", tag, attr)
		}
	}
}

func TestHeaderTagWritesSignedAsDigit(t *testing.T) {
	signed := string(writeHeaderTag(header{ProlixBits: 8, Signed: true, Block: 4, NumberOfValues: 16, NumberOfFrames: 1}))
	if !contains(signed, `signed="1"`) {
		t.Fatalf("tag %q should contain signed=\"1\"", signed)
	}
	unsigned := string(writeHeaderTag(header{ProlixBits: 8, Signed: false, Block: 4, NumberOfValues: 16, NumberOfFrames: 1}))
	if !contains(unsigned, `signed="0"`) {
		t.Fatalf("tag %q should contain signed=\"0\"", unsigned)
	}
}

func TestParseHeaderTagRejectsMissingTag(t *testing.T) {
	if _, _, err := parseHeaderTag([]byte("not xml at all")); err == nil {
		t.Fatal("expected an error")
	}
}

func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
