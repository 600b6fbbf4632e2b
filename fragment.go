package ssfpatch

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// JSONFragment is a balanced JSON value found inside an arbitrary buffer.
type JSONFragment struct {
	Offset int `json:"offset"`
	Length int `json:"length"`
	Data   any `json:"data"`
}

const (
	containsWindowBack = 4096
	containsWindowLen  = 8192
)

func isJSONSpace(c byte) bool { return c == ' ' || c == '\t' || c == '\r' || c == '\n' }

// LooksLikeJSON reports whether the first non-whitespace byte opens an
// object or an array.
func LooksLikeJSON(b []byte) bool {
	i := 0
	for i < len(b) && isJSONSpace(b[i]) {
		i++
	}
	return i < len(b) && (b[i] == '{' || b[i] == '[')
}

var (
	errUnbalanced = errors.New("buffer ends before the value is closed")
	errNotClosed  = errors.New("value does not close")
)

// ExtractBalancedAt reads the object or array that opens at buf[offset] and
// returns the number of bytes it spans together with its parsed value.
// Braces inside strings are not structural.
func ExtractBalancedAt(buf []byte, offset int) (int, any, error) {
	return extractBalanced(buf, offset, nil)
}

// spanMemo maps the offset of every opener met while tokenizing to the length
// of its value, or -1 if the value had not closed when tokenizing stopped.
// Tokenizing from such an opener yields the same tokens up to that point, so
// the outcome needs no second pass.
type spanMemo map[int]int

func extractBalanced(buf []byte, offset int, memo spanMemo) (int, any, error) {
	if offset < 0 || offset >= len(buf) {
		return 0, nil, fmt.Errorf("offset %d out of range (len=%d)", offset, len(buf))
	}
	if c := buf[offset]; c != '{' && c != '[' {
		return 0, nil, fmt.Errorf("byte %q at offset %d does not open an object or array", c, offset)
	}
	if n, ok := memo[offset]; ok {
		if n < 0 {
			return 0, nil, errNotClosed
		}
		return decodeSpan(buf[offset : offset+n])
	}

	dec := json.NewDecoder(bytes.NewReader(buf[offset:]))
	var open []int
	fail := func(err error) (int, any, error) {
		if memo != nil {
			for _, at := range open {
				memo[at] = -1
			}
		}
		return 0, nil, err
	}
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return fail(errUnbalanced)
		}
		if err != nil {
			return fail(err)
		}
		d, ok := tok.(json.Delim)
		if !ok {
			continue
		}
		// InputOffset sits just past the delimiter
		end := int(dec.InputOffset())
		switch d {
		case '{', '[':
			open = append(open, offset+end-1)
		case '}', ']':
			at := open[len(open)-1]
			open = open[:len(open)-1]
			if memo != nil {
				memo[at] = offset + end - at
			}
		}
		if len(open) == 0 {
			return decodeSpan(buf[offset : offset+end])
		}
	}
}

func decodeSpan(b []byte) (int, any, error) {
	v, err := decodeAny(b)
	if err != nil {
		return 0, nil, err
	}
	return len(b), v, nil
}

func decodeAny(b []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// ExtractFragments walks buf for balanced JSON values. When contains is
// non-empty, a candidate is only tried if contains occurs within a window
// around it. At most maxFragments fragments are returned.
func ExtractFragments(buf []byte, contains string, maxFragments int) []JSONFragment {
	var out []JSONFragment
	needle := []byte(contains)
	memo := make(spanMemo)

	i := 0
	for i < len(buf) && len(out) < maxFragments {
		for i < len(buf) && buf[i] != '{' && buf[i] != '[' {
			i++
		}
		if i >= len(buf) {
			break
		}

		if len(needle) > 0 {
			wStart := i - containsWindowBack
			if wStart < 0 {
				wStart = 0
			}
			wEnd := wStart + containsWindowLen
			if wEnd > len(buf) {
				wEnd = len(buf)
			}
			if !bytes.Contains(buf[wStart:wEnd], needle) {
				i++
				continue
			}
		}

		if n, v, err := extractBalanced(buf, i, memo); err == nil {
			out = append(out, JSONFragment{Offset: i, Length: n, Data: v})
			i += n
		} else {
			i++
		}
	}
	return out
}

// LargestFragment finds the longest balanced JSON value in buf.
func LargestFragment(buf []byte) (offset, length int, ok bool) {
	memo := make(spanMemo)
	i := 0
	for i < len(buf) {
		for i < len(buf) && buf[i] != '{' && buf[i] != '[' {
			i++
		}
		if i >= len(buf) {
			break
		}
		if n, _, err := extractBalanced(buf, i, memo); err == nil {
			if n > length {
				offset, length = i, n
			}
			i += n
		} else {
			i++
		}
	}
	return offset, length, length > 0
}

// PrintableStrings collects distinct runs of printable ASCII of at least
// minLen bytes. Runs longer than 4096 bytes are split.
func PrintableStrings(buf []byte, minLen, maxItems int) []string {
	var out []string
	seen := make(map[string]struct{})
	var run []byte

	flush := func() {
		if len(run) >= minLen {
			s := string(run)
			if _, dup := seen[s]; !dup {
				seen[s] = struct{}{}
				out = append(out, s)
			}
		}
		run = run[:0]
	}

	for _, c := range buf {
		if c >= 0x20 && c <= 0x7E {
			run = append(run, c)
			if len(run) > 4096 {
				flush()
			}
			continue
		}
		flush()
		if len(out) >= maxItems {
			break
		}
	}
	flush()
	if len(out) > maxItems {
		out = out[:maxItems]
	}
	return out
}
