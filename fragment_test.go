package ssfpatch

import (
	"bytes"
	"encoding/json"
	"reflect"
	"testing"
)

func TestLooksLikeJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want bool
	}{
		{`{"a":1}`, true},
		{"  \t\r\n[1]", true},
		{`"string"`, false},
		{"42", false},
		{"", false},
		{"   ", false},
		{"\x00{}", false},
	}
	for _, tt := range tests {
		if got := LooksLikeJSON([]byte(tt.in)); got != tt.want {
			t.Errorf("LooksLikeJSON(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestExtractBalancedAt(t *testing.T) {
	t.Parallel()

	buf := []byte(`xx{"a":[1,2,{"b":3}]}yy`)
	n, v, err := ExtractBalancedAt(buf, 2)
	if err != nil {
		t.Fatalf("ExtractBalancedAt: %v", err)
	}
	if got := string(buf[2 : 2+n]); got != `{"a":[1,2,{"b":3}]}` {
		t.Fatalf("consumed %q", got)
	}
	want := map[string]any{
		"a": []any{json.Number("1"), json.Number("2"), map[string]any{"b": json.Number("3")}},
	}
	if !reflect.DeepEqual(v, want) {
		t.Fatalf("value = %#v, want %#v", v, want)
	}
}

func TestExtractBalancedAtStrings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		buf  string
		want string
	}{
		{"braces in string", `{"s":"}{]["}tail`, `{"s":"}{]["}`},
		{"escaped quote", `{"s":"a\"}b"} rest`, `{"s":"a\"}b"}`},
		{"array", `[{"x":[]},[]]]`, `[{"x":[]},[]]`},
		{"empty object", `{}{}`, `{}`},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			n, _, err := ExtractBalancedAt([]byte(tt.buf), 0)
			if err != nil {
				t.Fatalf("ExtractBalancedAt: %v", err)
			}
			if got := tt.buf[:n]; got != tt.want {
				t.Errorf("consumed %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractBalancedAtErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		buf    string
		offset int
	}{
		{"unterminated", `{"a":[1,2`, 0},
		{"mismatched close", `{"a":[1,2}`, 0},
		{"not an opener", `xx{}`, 0},
		{"offset past end", `{}`, 5},
		{"negative offset", `{}`, -1},
		{"invalid member", `{"a" 1}`, 0},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, _, err := ExtractBalancedAt([]byte(tt.buf), tt.offset); err == nil {
				t.Fatalf("expected error for %q at %d", tt.buf, tt.offset)
			}
		})
	}
}

func TestExtractFragments(t *testing.T) {
	t.Parallel()

	buf := []byte("\x00\x01" + `{"name":"alpha"}` + "\xff junk { not json " + `[1,2]` + "\x00" + `{"name":"beta"}`)

	got := ExtractFragments(buf, "", 10)
	if len(got) != 3 {
		t.Fatalf("got %d fragments, want 3: %+v", len(got), got)
	}
	if got[0].Offset != 2 || got[0].Length != len(`{"name":"alpha"}`) {
		t.Errorf("first fragment at %d len %d", got[0].Offset, got[0].Length)
	}
	if !reflect.DeepEqual(got[1].Data, []any{json.Number("1"), json.Number("2")}) {
		t.Errorf("second fragment = %#v", got[1].Data)
	}

	if capped := ExtractFragments(buf, "", 2); len(capped) != 2 {
		t.Errorf("cap ignored: %d fragments", len(capped))
	}
}

func TestExtractFragmentsContainsWindow(t *testing.T) {
	t.Parallel()

	far := []byte(`{"id":"first"}`)
	filler := bytes.Repeat([]byte{'.'}, 3*containsWindowLen)
	near := []byte(`{"id":"needle"}`)
	buf := concat(far, filler, near)

	got := ExtractFragments(buf, "needle", 10)
	if len(got) != 1 {
		t.Fatalf("got %d fragments, want 1: %+v", len(got), got)
	}
	if got[0].Offset != len(far)+len(filler) {
		t.Errorf("fragment offset %d", got[0].Offset)
	}
}

func TestExtractFragmentsUnclosedRun(t *testing.T) {
	t.Parallel()

	run := bytes.Repeat([]byte{'['}, 200_000)

	tests := []struct {
		name        string
		buf         []byte
		want        []string
		wantLargest string
	}{
		{
			name:        "run before fragment",
			buf:         concat(run, []byte(`{"id":"after"}`)),
			want:        []string{`{"id":"after"}`},
			wantLargest: `{"id":"after"}`,
		},
		{
			name:        "run after fragment",
			buf:         concat([]byte(`{"id":"before"}`), run),
			want:        []string{`{"id":"before"}`},
			wantLargest: `{"id":"before"}`,
		},
		{
			name:        "values inside an unclosed run",
			buf:         concat(run, []byte(`[{"a":1},{"bb":2}`)),
			want:        []string{`{"a":1}`, `{"bb":2}`},
			wantLargest: `{"bb":2}`,
		},
		{
			name:        "outer value fails after inner closes",
			buf:         []byte(`{"k":{"a":1} x`),
			want:        []string{`{"a":1}`},
			wantLargest: `{"a":1}`,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := ExtractFragments(tt.buf, "", 10)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d fragments, want %d", len(got), len(tt.want))
			}
			for i, f := range got {
				if s := string(tt.buf[f.Offset : f.Offset+f.Length]); s != tt.want[i] {
					t.Errorf("fragment %d = %q, want %q", i, s, tt.want[i])
				}
			}

			off, n, ok := LargestFragment(tt.buf)
			if !ok {
				t.Fatal("LargestFragment found nothing")
			}
			if s := string(tt.buf[off : off+n]); s != tt.wantLargest {
				t.Errorf("largest = %q, want %q", s, tt.wantLargest)
			}
		})
	}
}

func TestLargestFragment(t *testing.T) {
	t.Parallel()

	buf := []byte(`{"a":1} zz {"bigger":[1,2,3]} [] `)
	off, n, ok := LargestFragment(buf)
	if !ok {
		t.Fatal("no fragment found")
	}
	if got := string(buf[off : off+n]); got != `{"bigger":[1,2,3]}` {
		t.Fatalf("largest = %q", got)
	}

	if _, _, ok := LargestFragment([]byte("no json here")); ok {
		t.Fatal("found a fragment in plain text")
	}
}

func TestPrintableStrings(t *testing.T) {
	t.Parallel()

	buf := []byte("\x00hello world\x01ab\x02hello world\x03longer string\x04tiny")
	got := PrintableStrings(buf, 5, 10)
	want := []string{"hello world", "longer string"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("PrintableStrings = %q, want %q", got, want)
	}

	if got := PrintableStrings(buf, 2, 1); len(got) != 1 {
		t.Fatalf("maxItems ignored: %q", got)
	}
}
