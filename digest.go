package ssfpatch

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// Digest is a BLAKE3-256 content hash of a decompressed payload.
type Digest [32]byte

func PayloadDigest(payload []byte) Digest { return blake3.Sum256(payload) }

func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// Short is the first 12 hex characters, for log lines.
func (d Digest) Short() string { return d.String()[:12] }
