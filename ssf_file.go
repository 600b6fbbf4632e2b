package ssfpatch

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"fmt"
)

// SSF1 header layout. Everything not listed here is opaque and copied through.
const (
	ssfMagic = "SSF1"

	offTotalCompressed   = 4
	offTotalUncompressed = 12
	offChecksum          = 20
	checksumLen          = 32

	// MinHeaderLen is the smallest header DecodeContainer accepts.
	MinHeaderLen = 16
	// minEncodeHeaderLen covers the checksum field, which encode must overwrite.
	minEncodeHeaderLen = offChecksum + checksumLen

	maxPlausibleHeaderLen = 1 << 20
	chunkScanLimit        = 256 * 1024
	maxChunkHint          = 500_000_000
)

// Decoded is the result of DecodeContainer.
type Decoded struct {
	Header  []byte // verbatim, len == HeaderLen
	Payload []byte

	HeaderLen            int
	DeclaredCompressed   int32
	DeclaredUncompressed int32
	// HeaderRecovered is set when HeaderLen came from the chunk scan rather
	// than from the declared compressed length.
	HeaderRecovered bool
	Chunks          int

	Diagnostics []Diagnostic
}

func (d *Decoded) notef(offset int64, format string, args ...any) {
	d.Diagnostics = append(d.Diagnostics, Diagnostic{Offset: offset, Msg: fmt.Sprintf(format, args...)})
}

// -------------------- decode --------------------

// DecodeContainer splits an SSF1 file into its opaque header and the
// concatenated decompressed chunk stream.
func DecodeContainer(file []byte) (*Decoded, error) {
	const op = "decode container"

	// ---------- 1) magic + fixed fields ----------
	if len(file) < MinHeaderLen {
		return nil, formatErrorf(op, -1, "file too short: %d bytes (<%d)", len(file), MinHeaderLen)
	}
	if !bytes.HasPrefix(file, []byte(ssfMagic)) {
		return nil, formatErrorf(op, 0, "not SSF1, magic=%q", file[:4])
	}

	d := &Decoded{
		DeclaredCompressed:   leI32(file[offTotalCompressed:]),
		DeclaredUncompressed: leI32(file[offTotalUncompressed:]),
	}

	// ---------- 2) header length ----------
	budget := int(d.DeclaredCompressed)
	headerLen := len(file) - budget
	if d.DeclaredCompressed <= 0 || headerLen < MinHeaderLen || headerLen > maxPlausibleHeaderLen {
		off, err := findFirstChunkOffset(file, chunkScanLimit)
		if err != nil {
			return nil, err
		}
		headerLen = off
		// a declared length that still fits after the scanned header bounds
		// the stream; anything past it is trailing data
		if d.DeclaredCompressed <= 0 || budget > len(file)-off {
			budget = len(file) - off
		}
		d.HeaderRecovered = true
		d.notef(int64(off), "declared compressed length %d inconsistent with file size %d; first chunk located by scan, stream budget %d",
			d.DeclaredCompressed, len(file), budget)
	}
	d.HeaderLen = headerLen
	d.Header = bytes.Clone(file[:headerLen])

	// ---------- 3) chunk stream ----------
	payload, err := d.decompressChunks(file, headerLen, budget)
	if err != nil {
		return nil, err
	}
	d.Payload = payload

	// ---------- 4) sanity ----------
	if d.DeclaredUncompressed > 0 && len(payload) != int(d.DeclaredUncompressed) {
		d.notef(-1, "uncompressed size mismatch: expected %d, got %d", d.DeclaredUncompressed, len(payload))
	}
	return d, nil
}

func (d *Decoded) decompressChunks(file []byte, start, budget int) ([]byte, error) {
	const op = "decompress chunks"

	var out bytes.Buffer
	// the declared size is untrusted; only pre-size for plausible ratios
	if n := int(d.DeclaredUncompressed); n > 0 && n/64 <= len(file) {
		out.Grow(n)
	}

	offset := start
	processed := 0
	for processed < budget {
		if offset+chunkHeaderLen > len(file) {
			return nil, formatErrorf(op, int64(offset), "unexpected EOF reading chunk %d header (processed %d of %d)",
				d.Chunks, processed, budget)
		}
		uSize := leI32(file[offset:])
		cSize := leI32(file[offset+4:])
		if cSize <= 0 || offset+chunkHeaderLen+int(cSize) > len(file) {
			return nil, formatErrorf(op, int64(offset), "invalid compressed size %d for chunk %d (file=%d)",
				cSize, d.Chunks, len(file))
		}

		comp := file[offset+chunkHeaderLen : offset+chunkHeaderLen+int(cSize)]
		dec := inflateChunk(comp)
		if dec == nil {
			return nil, formatErrorf(op, int64(offset+chunkHeaderLen),
				"could not decompress chunk %d (%d bytes) as zlib or raw deflate", d.Chunks, cSize)
		}
		// the hint is informational only
		if int(uSize) != len(dec) {
			d.notef(int64(offset), "chunk %d size hint %d, inflated %d", d.Chunks, uSize, len(dec))
		}
		_, _ = out.Write(dec)

		offset += chunkHeaderLen + int(cSize)
		processed += chunkHeaderLen + int(cSize)
		d.Chunks++
	}

	if processed != budget {
		d.notef(int64(offset), "chunk stream consumed %d bytes, declared %d", processed, budget)
	}
	if offset < len(file) {
		d.notef(int64(offset), "%d trailing bytes after chunk stream ignored", len(file)-offset)
	}
	return out.Bytes(), nil
}

// findFirstChunkOffset scans forward for a plausible chunk header whose data
// inflates. Offsets below MinHeaderLen are never considered.
func findFirstChunkOffset(file []byte, maxScan int) (int, error) {
	limit := len(file) - chunkHeaderLen
	if maxScan < limit {
		limit = maxScan
	}
	for off := MinHeaderLen; off < limit; off++ {
		u := leI32(file[off:])
		c := leI32(file[off+4:])
		if c <= 0 || off+chunkHeaderLen+int(c) > len(file) {
			continue
		}
		if u < 0 || u > maxChunkHint {
			continue
		}
		if inflateChunk(file[off+chunkHeaderLen:off+chunkHeaderLen+int(c)]) != nil {
			return off, nil
		}
	}
	return 0, formatErrorf("locate first chunk", -1,
		"no decodable chunk within first %d bytes; header length may differ or format is different", maxScan)
}

// -------------------- encode --------------------

// EncodeContainer compresses payload into a fresh chunk stream and prefixes it
// with a copy of header whose length and checksum fields are rewritten.
func EncodeContainer(header, payload []byte, chunkSize int) ([]byte, error) {
	const op = "encode container"

	if len(header) < minEncodeHeaderLen {
		return nil, formatErrorf(op, -1, "header bytes too short: %d (<%d)", len(header), minEncodeHeaderLen)
	}
	if !bytes.HasPrefix(header, []byte(ssfMagic)) {
		return nil, formatErrorf(op, 0, "header is not SSF1, magic=%q", header[:4])
	}

	stream, err := compressChunks(payload, chunkSize)
	if err != nil {
		return nil, &FormatError{Op: op, Offset: -1, Msg: "compress payload", Err: err}
	}

	out := make([]byte, len(header)+len(stream))
	copy(out, header)
	copy(out[len(header):], stream)

	patchI32LE(out, offTotalCompressed, int32(len(stream)))
	patchI32LE(out, offTotalUncompressed, int32(len(payload)))
	copy(out[offChecksum:offChecksum+checksumLen], checksumHex(stream))

	return out, nil
}

// checksumHex is the lowercase hex MD5 written at offset 20.
func checksumHex(stream []byte) []byte {
	sum := md5.Sum(stream)
	dst := make([]byte, hex.EncodedLen(len(sum)))
	hex.Encode(dst, sum[:])
	return dst
}

// HeaderChecksum returns the checksum field of an SSF1 file or header.
func HeaderChecksum(file []byte) (string, bool) {
	if len(file) < minEncodeHeaderLen {
		return "", false
	}
	return string(file[offChecksum : offChecksum+checksumLen]), true
}
