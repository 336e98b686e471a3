package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// SumSHA256 returns the SHA-256 checksum of the provided data.
func SumSHA256(data []byte) [32]byte {
	return sha256.Sum256(data)
}

// ContentKey returns a stable identifier for a payload, prefixed with kind.
// Identical payloads always map to the same key.
func ContentKey(kind string, data []byte) string {
	sum := SumSHA256(data)
	return kind + ":" + hex.EncodeToString(sum[:])
}
