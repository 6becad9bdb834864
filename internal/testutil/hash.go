package testutil

import (
	"crypto/sha256"
	"fmt"
)

// SHA256Hex is the vault key of data: its SHA-256 in lowercase hex.
func SHA256Hex(data []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(data))
}
