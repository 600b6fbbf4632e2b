package ssfpatch

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// jsonNode is an order-preserving JSON tree. Scalars keep their source text so
// untouched numbers and strings are re-emitted exactly.
type jsonNode struct {
	kind    nodeKind
	raw     []byte
	members []jsonMember
	items   []*jsonNode
}

type nodeKind uint8

const (
	kindScalar nodeKind = iota
	kindObject
	kindArray
)

type jsonMember struct {
	key   string
	value *jsonNode
}

var errInvalidJSON = errors.New("not a single valid JSON value")

// parseJSONDocument parses exactly one JSON value surrounded by optional
// whitespace.
func parseJSONDocument(b []byte) (*jsonNode, error) {
	if !json.Valid(b) {
		return nil, errInvalidJSON
	}
	return readNode(bytes.Trim(b, " \t\r\n"))
}

// readNode builds a node from the raw text of one complete value.
func readNode(raw []byte) (*jsonNode, error) {
	if len(raw) == 0 {
		return nil, errInvalidJSON
	}
	switch raw[0] {
	case '{':
		n := &jsonNode{kind: kindObject}
		dec := json.NewDecoder(bytes.NewReader(raw))
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := tok.(string)
			if !ok {
				return nil, fmt.Errorf("object key is %T", tok)
			}
			child, err := readChild(dec)
			if err != nil {
				return nil, err
			}
			n.members = append(n.members, jsonMember{key: key, value: child})
		}
		return n, nil

	case '[':
		n := &jsonNode{kind: kindArray}
		dec := json.NewDecoder(bytes.NewReader(raw))
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		for dec.More() {
			child, err := readChild(dec)
			if err != nil {
				return nil, err
			}
			n.items = append(n.items, child)
		}
		return n, nil

	default:
		return &jsonNode{kind: kindScalar, raw: bytes.Clone(raw)}, nil
	}
}

func readChild(dec *json.Decoder) (*jsonNode, error) {
	var rm json.RawMessage
	if err := dec.Decode(&rm); err != nil {
		return nil, err
	}
	return readNode(rm)
}

func (n *jsonNode) clone() *jsonNode {
	c := &jsonNode{kind: n.kind, raw: n.raw}
	if n.members != nil {
		c.members = make([]jsonMember, len(n.members))
		for i, m := range n.members {
			c.members[i] = jsonMember{key: m.key, value: m.value.clone()}
		}
	}
	if n.items != nil {
		c.items = make([]*jsonNode, len(n.items))
		for i, it := range n.items {
			c.items[i] = it.clone()
		}
	}
	return c
}

// replaceProperty walks n depth-first and swaps in a copy of value for every
// member called name. Each object holding the member counts once; the
// inserted copies are not walked.
func (n *jsonNode) replaceProperty(name string, value *jsonNode) int {
	count := 0
	switch n.kind {
	case kindObject:
		hit := false
		for i := range n.members {
			m := &n.members[i]
			if m.key == name {
				m.value = value.clone()
				hit = true
				continue
			}
			count += m.value.replaceProperty(name, value)
		}
		if hit {
			count++
		}
	case kindArray:
		for _, it := range n.items {
			count += it.replaceProperty(name, value)
		}
	}
	return count
}

// appendCompact writes n with no insignificant whitespace.
func (n *jsonNode) appendCompact(buf *bytes.Buffer) {
	switch n.kind {
	case kindObject:
		buf.WriteByte('{')
		for i, m := range n.members {
			if i > 0 {
				buf.WriteByte(',')
			}
			appendJSONString(buf, m.key)
			buf.WriteByte(':')
			m.value.appendCompact(buf)
		}
		buf.WriteByte('}')
	case kindArray:
		buf.WriteByte('[')
		for i, it := range n.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			it.appendCompact(buf)
		}
		buf.WriteByte(']')
	default:
		buf.Write(n.raw)
	}
}

func (n *jsonNode) compact() []byte {
	var buf bytes.Buffer
	n.appendCompact(&buf)
	return buf.Bytes()
}

func appendJSONString(buf *bytes.Buffer, s string) {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s) // a string always encodes
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte{'\n'}))
}
