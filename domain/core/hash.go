package core

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// Equals checks if two hashes are equal
func (h Hash) Equals(other Hash) bool {
	return h == other
}

// FingerprintTrajectory hashes a simulated sequence together with the inputs
// that produced it. Counts are encoded as fixed-width big-endian words so the
// fingerprint does not depend on platform int size.
func FingerprintTrajectory(s0, i0 uint, p float64, seed uint64, counts []uint) Hash {
	buf := make([]byte, 0, 8*(4+len(counts)))
	buf = binary.BigEndian.AppendUint64(buf, uint64(s0))
	buf = binary.BigEndian.AppendUint64(buf, uint64(i0))
	buf = binary.BigEndian.AppendUint64(buf, math.Float64bits(p))
	buf = binary.BigEndian.AppendUint64(buf, seed)
	for _, c := range counts {
		buf = binary.BigEndian.AppendUint64(buf, uint64(c))
	}
	return NewHash(buf)
}
