package pagination

import (
	"testing"
	"time"
)

func TestCursorRoundTrip(t *testing.T) {
	want := Cursor{At: time.Date(2024, 5, 1, 18, 0, 0, 123456789, time.FixedZone("CEST", 2*3600)), ID: 42}
	got, err := Decode(want.Encode())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !got.At.Equal(want.At) || got.ID != 42 || got.At.Location() != time.UTC {
		t.Fatalf("Decode = %+v", got)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "!!!", "bm8tc2VwYXJhdG9y", "MjAyNC0wNS0wMVQxODowMDowMFosYWJj"} {
		if _, err := Decode(raw); err == nil {
			t.Fatalf("Decode(%q) should fail", raw)
		}
	}
}
