// Package xxhash provides content hashing for change detection.
//
// The digest is deliberately non-cryptographic: it only has to notice that
// page content drifted between cycles. Do not reuse it for integrity.
package xxhash

import (
	"encoding/hex"

	"github.com/cespare/xxhash/v2"
)

// Hasher implements intel.Hasher using xxHash64.
type Hasher struct{}

// New returns an xxHash64 hasher.
func New() *Hasher {
	return &Hasher{}
}

// Hash hashes the input and returns a hex digest.
func (h *Hasher) Hash(data []byte) (string, error) {
	sum := xxhash.Sum64(data)
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(sum >> (56 - 8*i))
	}
	return hex.EncodeToString(buf[:]), nil
}
