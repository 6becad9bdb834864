package d2sm

import "io"

// Encryptor encrypts archived saves with a public key. Decryption needs the
// private key, unlocked with a passphrase into a DecryptionContext.
type Encryptor interface {
	// Setup generates the key pair and protects the private key with
	// passphrase. Called by `d2sm config keys`.
	Setup(passphrase string) error

	// Encrypt reads plaintext from r and writes ciphertext to w.
	Encrypt(r io.Reader, w io.Writer) error

	// Unlock returns a DecryptionContext, or an error for a wrong passphrase.
	Unlock(passphrase string) (DecryptionContext, error)

	// IsConfigured reports whether the key files exist.
	IsConfigured() bool
}

// DecryptionContext holds an unlocked private key in memory for one
// restore.
type DecryptionContext interface {
	Decrypt(r io.Reader, w io.Writer) error
}
