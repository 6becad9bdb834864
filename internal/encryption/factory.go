package encryption

import (
	"fmt"

	"d2sm/internal/config"
	"d2sm/internal/d2sm"
)

// NewEncryptorFromConfig creates an Encryptor based on the configuration
// type. Type "none" (or empty) yields a nil Encryptor: archives are stored
// in plaintext and encrypted archiving is refused.
func NewEncryptorFromConfig(cfg config.EncryptionConfig) (d2sm.Encryptor, error) {
	switch cfg.Type {
	case "none", "":
		return nil, nil
	case "age":
		return NewAgeEncryptor(cfg), nil
	case "test":
		return NewTestEncryptor(), nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %q", cfg.Type)
	}
}
