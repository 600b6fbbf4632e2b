package ssfpatch

import (
	"bytes"
	"strings"
	"testing"
)

// testHeader returns an n-byte SSF1 header. Bytes past the checksum field are
// zero apart from a marker at the end, so tests can check they survive.
func testHeader(n int) []byte {
	h := make([]byte, n)
	copy(h, ssfMagic)
	copy(h[8:12], "OPQ1")
	copy(h[16:20], "OPQ2")
	if n > minEncodeHeaderLen+4 {
		copy(h[n-4:], "TAIL")
	}
	return h
}

// smbhBlock encodes one block by hand.
func smbhBlock(name, payload string) []byte {
	var buf bytes.Buffer
	buf.WriteString(smbhMagic)
	_ = writeU32ToBuf(&buf, uint32(len(name)+1))
	_ = writeU32ToBuf(&buf, uint32(len(payload)))
	buf.WriteString(name)
	buf.WriteByte(0)
	buf.WriteString(payload)
	return buf.Bytes()
}

func concat(parts ...[]byte) []byte {
	return bytes.Join(parts, nil)
}

// testSave builds a complete SSF1 file around the given payload.
func testSave(t *testing.T, headerLen int, payload []byte, chunkSize int) []byte {
	t.Helper()
	out, err := EncodeContainer(testHeader(headerLen), payload, chunkSize)
	if err != nil {
		t.Fatalf("EncodeContainer: %v", err)
	}
	return out
}

// compressiblePayload is n bytes of repeated text.
func compressiblePayload(n int) []byte {
	s := strings.Repeat("the quick brown fox jumps over the lazy dog. ", n/45+1)
	return []byte(s[:n])
}

func hasDiagnostic(d *Decoded, substr string) bool {
	for _, n := range d.Diagnostics {
		if strings.Contains(n.Msg, substr) {
			return true
		}
	}
	return false
}
