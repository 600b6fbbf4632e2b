package ssfpatch

import (
	"strings"
)

// PatchSpec describes one property replacement.
type PatchSpec struct {
	Selector string // substring of the block name, compared normalized
	Property string
	Value    []byte // JSON text
}

// BlockPatch records what happened to one modified block.
type BlockPatch struct {
	Index    int
	Name     string
	Replaced int
	OldLen   int
	NewLen   int
}

// PatchResult is the outcome of ApplyPropertyPatch.
type PatchResult struct {
	Sequence           BlockSequence
	BlocksMatched      int
	BlocksModified     int
	PropertiesReplaced int
	Modified           []BlockPatch
}

// NormalizeSelector trims, lowercases and maps '-' to '_'. Block names are
// normalized the same way before matching.
func NormalizeSelector(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
}

// MatchesSelector reports whether the block name contains the normalized selector.
func MatchesSelector(blockName, selectorNorm string) bool {
	if selectorNorm == "" {
		return false
	}
	return strings.Contains(NormalizeSelector(blockName), selectorNorm)
}

// ApplyPropertyPatch replaces every member named property inside the JSON
// documents of blocks whose names match selector. seq is not modified.
func ApplyPropertyPatch(seq BlockSequence, selector, property string, valueJSON []byte) (*PatchResult, error) {
	// ---------- validate before touching any block ----------
	selectorNorm := NormalizeSelector(selector)
	if selectorNorm == "" {
		return nil, &ValidationError{Field: "selector", Msg: "must not be empty"}
	}
	if property == "" {
		return nil, &ValidationError{Field: "property", Msg: "must not be empty"}
	}
	value, err := parseJSONDocument(valueJSON)
	if err != nil {
		return nil, &ValidationError{Field: "replacement value", Msg: "not valid JSON", Err: err}
	}

	res := &PatchResult{
		Sequence: BlockSequence{
			Prefix: seq.Prefix,
			Blocks: make([]Block, len(seq.Blocks)),
			Suffix: seq.Suffix,
		},
	}
	copy(res.Sequence.Blocks, seq.Blocks)

	for i, b := range seq.Blocks {
		if !MatchesSelector(b.Name, selectorNorm) || !LooksLikeJSON(b.Payload) {
			continue
		}
		res.BlocksMatched++

		// a matched block that is not a JSON document passes through
		root, err := parseJSONDocument(b.Payload)
		if err != nil {
			continue
		}

		n := root.replaceProperty(property, value)
		if n == 0 {
			continue
		}

		newPayload := root.compact()
		res.Sequence.Blocks[i] = Block{Name: b.Name, RawName: b.RawName, Payload: newPayload}
		res.BlocksModified++
		res.PropertiesReplaced += n
		res.Modified = append(res.Modified, BlockPatch{
			Index:    i,
			Name:     b.Name,
			Replaced: n,
			OldLen:   len(b.Payload),
			NewLen:   len(newPayload),
		})
	}

	if res.BlocksModified == 0 {
		return nil, &PatchNotApplicableError{Selector: selector, Property: property, MatchedBlocks: res.BlocksMatched}
	}
	return res, nil
}

// ApplyPatches applies specs in order, each to the output of the previous one.
// Every patch must modify at least one block.
func ApplyPatches(seq BlockSequence, specs ...PatchSpec) (BlockSequence, []*PatchResult, error) {
	if len(specs) == 0 {
		return BlockSequence{}, nil, &ValidationError{Field: "patches", Msg: "no patch given"}
	}
	results := make([]*PatchResult, 0, len(specs))
	cur := seq
	for _, spec := range specs {
		res, err := ApplyPropertyPatch(cur, spec.Selector, spec.Property, spec.Value)
		if err != nil {
			return BlockSequence{}, nil, err
		}
		results = append(results, res)
		cur = res.Sequence
	}
	return cur, results, nil
}
