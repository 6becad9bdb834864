package testutil

import (
	"d2sm/internal/d2sm"
	"d2sm/internal/encryption"
)

// NewTestEncryptor creates a new test encryptor for testing.
func NewTestEncryptor() d2sm.Encryptor {
	return encryption.NewTestEncryptor()
}
