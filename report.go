package ssfpatch

import (
	"encoding/json"
	"io"
)

// DecodeReport summarizes a decoded container for inspection.
type DecodeReport struct {
	SourceFile                string         `json:"sourceFile"`
	Format                    string         `json:"format"`
	HeaderLength              int            `json:"headerLength"`
	HeaderRecovered           bool           `json:"headerRecovered,omitempty"`
	ExpectedTotalCompressed   int32          `json:"expectedTotalCompressed"`
	ExpectedTotalUncompressed int32          `json:"expectedTotalUncompressed"`
	ActualDecompressedBytes   int            `json:"actualDecompressedBytes"`
	Chunks                    int            `json:"chunks"`
	Checksum                  string         `json:"checksum,omitempty"`
	PayloadDigest             string         `json:"payloadDigest"`
	PayloadKind               string         `json:"payloadKind"` // "json" | "binary"
	Notes                     []string       `json:"notes,omitempty"`
	Blocks                    []BlockSummary `json:"blocks,omitempty"`
	Payload                   any            `json:"payload,omitempty"`
	JSONFragments             []JSONFragment `json:"jsonFragments,omitempty"`
	Strings                   []string       `json:"strings,omitempty"`
}

type BlockSummary struct {
	Name        string `json:"name"`
	PayloadSize int    `json:"payloadSize"`
	JSON        bool   `json:"json"`
}

// ReportOptions bounds the binary-payload sections of a report.
type ReportOptions struct {
	Contains      string
	MaxFragments  int
	MinStringLen  int
	MaxStrings    int
	IncludeBlocks bool
}

func (o *ReportOptions) defaults() {
	if o.MaxFragments <= 0 {
		o.MaxFragments = 64
	}
	if o.MinStringLen <= 0 {
		o.MinStringLen = 6
	}
	if o.MaxStrings <= 0 {
		o.MaxStrings = 200
	}
}

// BuildReport decodes file and describes it. Block summaries are best
// effort: a payload without SMBH blocks is noted, not rejected.
func BuildReport(name string, file []byte, opts ReportOptions) (*DecodeReport, error) {
	opts.defaults()

	dec, err := DecodeContainer(file)
	if err != nil {
		return nil, err
	}

	r := &DecodeReport{
		SourceFile:                name,
		Format:                    ssfMagic,
		HeaderLength:              dec.HeaderLen,
		HeaderRecovered:           dec.HeaderRecovered,
		ExpectedTotalCompressed:   dec.DeclaredCompressed,
		ExpectedTotalUncompressed: dec.DeclaredUncompressed,
		ActualDecompressedBytes:   len(dec.Payload),
		Chunks:                    dec.Chunks,
		PayloadDigest:             PayloadDigest(dec.Payload).String(),
		PayloadKind:               "binary",
	}
	r.Checksum, _ = HeaderChecksum(dec.Header)
	for _, d := range dec.Diagnostics {
		r.Notes = append(r.Notes, d.String())
	}

	if opts.IncludeBlocks {
		if seq, err := ParseBlocks(dec.Payload); err == nil {
			for _, b := range seq.Blocks {
				r.Blocks = append(r.Blocks, BlockSummary{Name: b.Name, PayloadSize: len(b.Payload), JSON: LooksLikeJSON(b.Payload)})
			}
		} else {
			r.Notes = append(r.Notes, err.Error())
		}
	}

	if LooksLikeJSON(dec.Payload) && json.Valid(dec.Payload) {
		if v, err := decodeAny(dec.Payload); err == nil {
			r.PayloadKind = "json"
			r.Payload = v
			return r, nil
		}
	}
	r.JSONFragments = ExtractFragments(dec.Payload, opts.Contains, opts.MaxFragments)
	r.Strings = PrintableStrings(dec.Payload, opts.MinStringLen, opts.MaxStrings)
	return r, nil
}

// WriteReport writes r as indented JSON.
func WriteReport(w io.Writer, r *DecodeReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(r)
}
