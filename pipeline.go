package ssfpatch

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// PatchOptions tunes PatchFile.
type PatchOptions struct {
	ChunkSize  int // <= 0 means DefaultChunkSize
	SkipVerify bool
}

// FileResult is the output of PatchFile. Output is the complete new file.
type FileResult struct {
	Output        []byte
	Decoded       *Decoded
	Patches       []*PatchResult
	PayloadDigest Digest
	Checksum      string
}

// BlocksModified sums modified blocks over all applied specs.
func (r *FileResult) BlocksModified() int {
	n := 0
	for _, p := range r.Patches {
		n += p.BlocksModified
	}
	return n
}

// PropertiesReplaced sums replaced properties over all applied specs.
func (r *FileResult) PropertiesReplaced() int {
	n := 0
	for _, p := range r.Patches {
		n += p.PropertiesReplaced
	}
	return n
}

// PatchFile runs the whole decode -> patch -> encode pipeline over an SSF1 file
// and, unless disabled, decodes the result again to check it.
func PatchFile(file []byte, specs []PatchSpec, opts PatchOptions) (*FileResult, error) {
	// specs are validated before any decoding work
	for i, s := range specs {
		if NormalizeSelector(s.Selector) == "" || s.Property == "" {
			return nil, &ValidationError{Field: fmt.Sprintf("patch %d", i), Msg: "selector and property are required"}
		}
		if !json.Valid(s.Value) {
			return nil, &ValidationError{Field: fmt.Sprintf("patch %d", i), Msg: "replacement value is not valid JSON"}
		}
	}

	dec, err := DecodeContainer(file)
	if err != nil {
		return nil, err
	}
	seq, err := ParseBlocks(dec.Payload)
	if err != nil {
		return nil, err
	}

	patched, results, err := ApplyPatches(seq, specs...)
	if err != nil {
		return nil, err
	}

	payload := BuildBlocks(patched)
	out, err := EncodeContainer(dec.Header, payload, opts.ChunkSize)
	if err != nil {
		return nil, err
	}

	res := &FileResult{
		Output:        out,
		Decoded:       dec,
		Patches:       results,
		PayloadDigest: PayloadDigest(payload),
	}
	res.Checksum, _ = HeaderChecksum(out)

	if !opts.SkipVerify {
		if err := VerifyOutput(out, len(dec.Header), res.PayloadDigest); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// VerifyOutput decodes a freshly encoded file and checks its length fields,
// checksum and payload digest.
func VerifyOutput(out []byte, headerLen int, want Digest) error {
	again, err := DecodeContainer(out)
	if err != nil {
		return fmt.Errorf("verify output: %w", err)
	}
	if again.HeaderRecovered || again.HeaderLen != headerLen {
		return fmt.Errorf("verify output: header length %d, expected %d", again.HeaderLen, headerLen)
	}
	if int(again.DeclaredUncompressed) != len(again.Payload) {
		return fmt.Errorf("verify output: declared uncompressed %d, decoded %d",
			again.DeclaredUncompressed, len(again.Payload))
	}
	sum, _ := HeaderChecksum(out)
	if !bytes.Equal([]byte(sum), checksumHex(out[headerLen:])) {
		return fmt.Errorf("verify output: checksum field %s does not match chunk stream", sum)
	}
	if got := PayloadDigest(again.Payload); got != want {
		return fmt.Errorf("verify output: payload digest %s, expected %s", got.Short(), want.Short())
	}
	return nil
}
