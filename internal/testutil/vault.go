package testutil

import (
	"d2sm/internal/d2sm"
	"d2sm/internal/vault"
)

// NewTestVault creates a new in-memory vault for testing.
func NewTestVault() d2sm.Vault {
	return vault.NewMemoryVault("test-vault")
}
