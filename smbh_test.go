package ssfpatch

import (
	"bytes"
	"errors"
	"testing"
)

func TestParseBlocks(t *testing.T) {
	t.Parallel()

	a := smbhBlock("infrastructure.request-system", `{"Foo":1}`)
	b := smbhBlock("world.terrain", "\x00\x01binary\xff")
	c := smbhBlock("empty", "")

	tests := []struct {
		name       string
		payload    []byte
		wantPrefix []byte
		wantNames  []string
		wantSuffix []byte
	}{
		{
			name:      "blocks only",
			payload:   concat(a, b, c),
			wantNames: []string{"infrastructure.request-system", "world.terrain", "empty"},
		},
		{
			name:       "prefix and suffix",
			payload:    concat([]byte("\x01\x02lead"), a, b, []byte("trailing junk")),
			wantPrefix: []byte("\x01\x02lead"),
			wantNames:  []string{"infrastructure.request-system", "world.terrain"},
			wantSuffix: []byte("trailing junk"),
		},
		{
			name:       "suffix starting with magic",
			payload:    concat(a, []byte("SMBH\x00\x00\x00\x00\x05\x00\x00\x00")),
			wantNames:  []string{"infrastructure.request-system"},
			wantSuffix: []byte("SMBH\x00\x00\x00\x00\x05\x00\x00\x00"),
		},
		{
			name:       "payload length past end stops parsing",
			payload:    concat(a, smbhBlock("cut", "0123456789")[:20]),
			wantNames:  []string{"infrastructure.request-system"},
			wantSuffix: smbhBlock("cut", "0123456789")[:20],
		},
		{
			name:       "unprintable name stops parsing",
			payload:    concat(a, smbhBlock("bad\tname", "{}")),
			wantNames:  []string{"infrastructure.request-system"},
			wantSuffix: smbhBlock("bad\tname", "{}"),
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			seq, err := ParseBlocks(tt.payload)
			if err != nil {
				t.Fatalf("ParseBlocks: %v", err)
			}
			if !bytes.Equal(seq.Prefix, tt.wantPrefix) {
				t.Errorf("prefix = %q, want %q", seq.Prefix, tt.wantPrefix)
			}
			if !bytes.Equal(seq.Suffix, tt.wantSuffix) {
				t.Errorf("suffix = %q, want %q", seq.Suffix, tt.wantSuffix)
			}
			if len(seq.Blocks) != len(tt.wantNames) {
				t.Fatalf("got %d blocks, want %d", len(seq.Blocks), len(tt.wantNames))
			}
			for i, name := range tt.wantNames {
				if seq.Blocks[i].Name != name {
					t.Errorf("block %d name = %q, want %q", i, seq.Blocks[i].Name, name)
				}
			}
			if got := BuildBlocks(seq); !bytes.Equal(got, tt.payload) {
				t.Errorf("BuildBlocks does not reproduce the payload")
			}
		})
	}
}

func TestParseBuildIdempotent(t *testing.T) {
	t.Parallel()

	inputs := [][]byte{
		concat(smbhBlock("one", `{"a":1}`), []byte{0xde, 0xad, 0xbe, 0xef}),
		concat([]byte("garbage before"), smbhBlock("x", "y"), smbhBlock("z", ""), []byte("SMBH")),
		concat(smbhBlock("only", `[1,2,3]`)),
	}

	for i, x := range inputs {
		first, err := ParseBlocks(x)
		if err != nil {
			t.Fatalf("input %d: %v", i, err)
		}
		once := BuildBlocks(first)

		second, err := ParseBlocks(once)
		if err != nil {
			t.Fatalf("input %d, second pass: %v", i, err)
		}
		if !second.Equal(first) {
			t.Errorf("input %d: reparsed sequence differs", i)
		}
		if twice := BuildBlocks(second); !bytes.Equal(twice, once) {
			t.Errorf("input %d: parse/build not idempotent", i)
		}
	}
}

func TestParseBlocksNoBlock(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload []byte
	}{
		{"empty", nil},
		{"no magic", []byte("just some text without any block")},
		{"magic with zero name length", []byte("SMBH\x00\x00\x00\x00\x00\x00\x00\x00")},
		{"name without terminator", []byte("SMBH\x03\x00\x00\x00\x00\x00\x00\x00abc")},
		{"name too long", concat([]byte("SMBH\x01\x04\x00\x00\x00\x00\x00\x00"), make([]byte, 1025))},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseBlocks(tt.payload)
			var fe *FormatError
			if !errors.As(err, &fe) {
				t.Fatalf("expected *FormatError, got %v", err)
			}
		})
	}
}

func TestParseBlocksScanBound(t *testing.T) {
	t.Parallel()

	block := smbhBlock("late", "{}")

	// A block starting exactly at the bound is not found.
	beyond := concat(make([]byte, BlockScanLimit), block)
	_, err := ParseBlocks(beyond)
	var fe *FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FormatError for block past the scan bound, got %v", err)
	}

	// One byte earlier it is.
	within := concat(make([]byte, BlockScanLimit-1), block)
	seq, err := ParseBlocks(within)
	if err != nil {
		t.Fatalf("block inside the scan bound: %v", err)
	}
	if len(seq.Prefix) != BlockScanLimit-1 || len(seq.Blocks) != 1 {
		t.Fatalf("prefix %d bytes, %d blocks", len(seq.Prefix), len(seq.Blocks))
	}
}

func TestBuildBlocksRawNameFallback(t *testing.T) {
	t.Parallel()

	seq := BlockSequence{Blocks: []Block{{Name: "made.up", Payload: []byte("{}")}}}
	got := BuildBlocks(seq)
	want := smbhBlock("made.up", "{}")
	if !bytes.Equal(got, want) {
		t.Fatalf("BuildBlocks = %q, want %q", got, want)
	}
}
