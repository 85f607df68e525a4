package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// SumSHA256 returns the SHA-256 checksum of the provided data.
func SumSHA256(data []byte) [32]byte {
	return sha256.Sum256(data)
}

// HexSHA256 returns the hex encoded SHA-256 checksum of data.
func HexSHA256(data []byte) string {
	sum := SumSHA256(data)
	return hex.EncodeToString(sum[:])
}

// ShortHash returns the first n hex characters of the SHA-256 of s.
func ShortHash(s string, n int) string {
	h := HexSHA256([]byte(s))
	if n <= 0 || n > len(h) {
		return h
	}
	return h[:n]
}
