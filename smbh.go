package ssfpatch

import (
	"bytes"
)

// SMBH block layout inside the decompressed payload:
//
//	"SMBH" | u32 nameLen (incl. 0) | u32 payloadLen | name | payload
const (
	smbhMagic       = "SMBH"
	blockHeaderLen  = 12
	maxBlockNameLen = 1024

	// BlockScanLimit bounds the search for the first block.
	BlockScanLimit = 2_000_000
)

// Block is one named record. Treat it as immutable; use Equal to compare.
type Block struct {
	Name    string
	RawName []byte // includes the trailing zero
	Payload []byte
}

func (b Block) Equal(o Block) bool {
	return b.Name == o.Name && bytes.Equal(b.RawName, o.RawName) && bytes.Equal(b.Payload, o.Payload)
}

// BlockSequence is a decompressed payload split into recognized blocks and
// the opaque bytes around them.
type BlockSequence struct {
	Prefix []byte
	Blocks []Block
	Suffix []byte
}

func (s BlockSequence) Equal(o BlockSequence) bool {
	if !bytes.Equal(s.Prefix, o.Prefix) || !bytes.Equal(s.Suffix, o.Suffix) || len(s.Blocks) != len(o.Blocks) {
		return false
	}
	for i := range s.Blocks {
		if !s.Blocks[i].Equal(o.Blocks[i]) {
			return false
		}
	}
	return true
}

// -------------------- parse --------------------

// ParseBlocks locates the first valid block within BlockScanLimit bytes and
// consumes blocks until the next header fails validation.
func ParseBlocks(payload []byte) (BlockSequence, error) {
	limit := len(payload)
	if limit > BlockScanLimit {
		limit = BlockScanLimit
	}

	first := -1
	for i := 0; i < limit; i++ {
		if _, _, ok := blockAt(payload, i); ok {
			first = i
			break
		}
	}
	if first < 0 {
		return BlockSequence{}, formatErrorf("parse blocks", -1,
			"no SMBH block within first %d bytes of %d-byte payload", limit, len(payload))
	}

	seq := BlockSequence{Prefix: bytes.Clone(payload[:first])}
	pos := first
	for {
		b, next, ok := blockAt(payload, pos)
		if !ok {
			break
		}
		seq.Blocks = append(seq.Blocks, b)
		pos = next
	}
	seq.Suffix = bytes.Clone(payload[pos:])
	return seq, nil
}

// blockAt validates the block header at pos and returns the block and the
// offset just past it.
func blockAt(buf []byte, pos int) (Block, int, bool) {
	if pos+blockHeaderLen > len(buf) || string(buf[pos:pos+4]) != smbhMagic {
		return Block{}, 0, false
	}
	nameLen := int64(leU32(buf[pos+4:]))
	payloadLen := int64(leU32(buf[pos+8:]))
	if nameLen == 0 || nameLen > maxBlockNameLen {
		return Block{}, 0, false
	}

	nameStart := int64(pos) + blockHeaderLen
	payloadStart := nameStart + nameLen
	next := payloadStart + payloadLen
	if next > int64(len(buf)) {
		return Block{}, 0, false
	}

	rawName := buf[nameStart:payloadStart]
	if rawName[len(rawName)-1] != 0 {
		return Block{}, 0, false
	}
	for _, c := range rawName[:len(rawName)-1] {
		if c < 0x20 || c > 0x7E {
			return Block{}, 0, false
		}
	}

	return Block{
		Name:    string(rawName[:len(rawName)-1]),
		RawName: bytes.Clone(rawName),
		Payload: bytes.Clone(buf[payloadStart:next]),
	}, int(next), true
}

// -------------------- build --------------------

// BuildBlocks re-emits prefix, blocks and suffix in the parsed field order.
func BuildBlocks(seq BlockSequence) []byte {
	size := len(seq.Prefix) + len(seq.Suffix)
	for _, b := range seq.Blocks {
		size += blockHeaderLen + len(b.RawName) + 1 + len(b.Payload)
	}

	var buf bytes.Buffer
	buf.Grow(size)
	buf.Write(seq.Prefix)

	for _, b := range seq.Blocks {
		rawName := b.RawName
		if len(rawName) == 0 || rawName[len(rawName)-1] != 0 {
			rawName = append([]byte(b.Name), 0)
		}
		buf.WriteString(smbhMagic)
		_ = writeU32ToBuf(&buf, uint32(len(rawName)))
		_ = writeU32ToBuf(&buf, uint32(len(b.Payload)))
		buf.Write(rawName)
		buf.Write(b.Payload)
	}

	buf.Write(seq.Suffix)
	return buf.Bytes()
}
