// Package utils holds the FNV-1a fingerprint helpers the caches key on.
package utils

import (
	"encoding/binary"
	"hash/fnv"
)

// U64 is the 64-bit FNV-1a hash of s.
func U64(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}

// Mix64 combines two fingerprints. The result depends on argument order.
func Mix64(a, b uint64) uint64 {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], a)
	binary.BigEndian.PutUint64(buf[8:], b)
	h := fnv.New64a()
	_, _ = h.Write(buf[:])
	return h.Sum64()
}

// Fingerprint folds the hashes of parts left to right. Boundaries between
// parts are significant: ("ab", "c") and ("a", "bc") differ.
func Fingerprint(parts ...string) uint64 {
	acc := uint64(0x9e3779b185ebca87)
	for _, p := range parts {
		acc = Mix64(acc, U64(p))
	}
	return acc
}
