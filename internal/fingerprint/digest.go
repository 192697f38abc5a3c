// Package fingerprint implements the Fingerprint Engine (spec §4.5): a
// 128-bit content hash over a TaskInstance's class identity,
// persistence-relevant parameters, and input fingerprints.
package fingerprint

import (
	"encoding/hex"

	"github.com/cespare/xxhash/v2"
)

// Digest is a 128-bit hex-encoded fingerprint (spec §3's Fingerprint
// entity). cespare/xxhash/v2 — the maintained successor to the
// teacher's vendored internal/xxhash — only produces a 64-bit sum, so a
// Digest is two differently-salted 64-bit sums concatenated, the
// standard technique for widening a 64-bit hash without a second
// algorithm.
type Digest string

func hashObject(s string) Digest {
	h1 := xxhash.Sum64(append([]byte{0}, s...))
	h2 := xxhash.Sum64(append([]byte{1}, s...))
	return Digest(hex.EncodeToString(append(uint64ToBytes(h1), uint64ToBytes(h2)...)))
}

func uint64ToBytes(v uint64) []byte {
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[7-i] = byte(v)
		v >>= 8
	}
	return b
}
