package ssfpatch

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zlib"
)

// DefaultChunkSize is the uncompressed size of every chunk but the last.
const DefaultChunkSize = 1 << 20

// chunkHeaderLen: i32 uncompressedSize + i32 compressedSize
const chunkHeaderLen = 8

// -------------------- inflate: zlib first, raw deflate second --------------------

// inflateChunk returns nil when neither interpretation yields any bytes.
func inflateChunk(comp []byte) []byte {
	if out, err := inflateZlib(comp); err == nil && len(out) > 0 {
		return out
	}
	if out, err := inflateRaw(comp); err == nil && len(out) > 0 {
		return out
	}
	return nil
}

func inflateZlib(comp []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(comp))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

func inflateRaw(comp []byte) ([]byte, error) {
	fr := flate.NewReader(bytes.NewReader(comp))
	defer fr.Close()
	return io.ReadAll(fr)
}

// -------------------- deflate: payload -> chunk stream --------------------

// compressChunks splits payload into chunkSize pieces and writes each as
// (uSize, cSize, zlib bytes). An empty payload yields an empty stream.
func compressChunks(payload []byte, chunkSize int) ([]byte, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	var out bytes.Buffer
	var comp bytes.Buffer

	for off, bi := 0, 0; off < len(payload); bi++ {
		end := off + chunkSize
		if end > len(payload) {
			end = len(payload)
		}
		uncomp := payload[off:end]

		comp.Reset()
		zw, err := zlib.NewWriterLevel(&comp, zlib.BestCompression)
		if err != nil {
			return nil, fmt.Errorf("zlib writer for chunk %d: %w", bi, err)
		}
		if _, err := zw.Write(uncomp); err != nil {
			return nil, fmt.Errorf("zlib compress chunk %d: %w", bi, err)
		}
		if err := zw.Close(); err != nil {
			return nil, fmt.Errorf("zlib flush chunk %d: %w", bi, err)
		}

		_ = writeI32ToBuf(&out, int32(len(uncomp)))
		_ = writeI32ToBuf(&out, int32(comp.Len()))
		_, _ = out.Write(comp.Bytes())

		off = end
	}
	return out.Bytes(), nil
}

func writeI32ToBuf(buf *bytes.Buffer, v int32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	_, err := buf.Write(b[:])
	return err
}

func writeU32ToBuf(buf *bytes.Buffer, v uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	_, err := buf.Write(b[:])
	return err
}

func patchI32LE(b []byte, pos int, v int32) {
	binary.LittleEndian.PutUint32(b[pos:pos+4], uint32(v))
}

// ---- little-endian readers over a byte slice ----
func leU32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
func leI32(b []byte) int32 { return int32(leU32(b)) }
