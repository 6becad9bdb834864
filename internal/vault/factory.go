package vault

import (
	"context"
	"errors"
	"fmt"

	"d2sm/internal/config"
	"d2sm/internal/d2sm"
)

// NewVaultFromConfig builds the backend named by cfg.Type. An unnamed
// vault is named after its type.
func NewVaultFromConfig(ctx context.Context, cfg config.VaultConfig) (d2sm.Vault, error) {
	if cfg.Name == "" {
		cfg.Name = cfg.Type
	}

	switch cfg.Type {
	case "filesystem":
		if cfg.FSVaultRoot == "" {
			return nil, errors.New("filesystem vault: fs_vault_root is not set")
		}
		return NewFileSystemVault(cfg.Name, cfg.FSVaultRoot)
	case "s3":
		return NewS3Vault(ctx, cfg)
	case "memory":
		return NewMemoryVault(cfg.Name), nil
	}
	return nil, fmt.Errorf("unknown vault type %q (want filesystem, s3 or memory)", cfg.Type)
}
