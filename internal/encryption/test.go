package encryption

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"d2sm/internal/d2sm"
)

// testHeader marks output of TestEncryptor.
var testHeader = []byte("D2SMENC\x00")

// testMask is XORed into every payload byte so ciphertext never equals the
// plaintext, not even for a save that happens to start with testHeader.
const testMask = 0x5A

// TestEncryptor is a deterministic, reversible Encryptor for tests and
// dry runs. It needs no key files.
type TestEncryptor struct {
	passphrase string
}

func NewTestEncryptor() *TestEncryptor {
	return &TestEncryptor{}
}

// Setup records the passphrase; Unlock then requires the same one.
func (e *TestEncryptor) Setup(passphrase string) error {
	e.passphrase = passphrase
	return nil
}

func (e *TestEncryptor) IsConfigured() bool { return true }

func (e *TestEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	if _, err := w.Write(testHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	return mask(r, w)
}

func (e *TestEncryptor) Unlock(passphrase string) (d2sm.DecryptionContext, error) {
	if e.passphrase != "" && passphrase != e.passphrase {
		return nil, errors.New("wrong passphrase")
	}
	return &TestDecryptionContext{}, nil
}

type TestDecryptionContext struct{}

func (c *TestDecryptionContext) Decrypt(r io.Reader, w io.Writer) error {
	header := make([]byte, len(testHeader))
	if _, err := io.ReadFull(r, header); err != nil {
		return fmt.Errorf("reading header: %w", err)
	}
	if !bytes.Equal(header, testHeader) {
		return errors.New("not produced by the test encryptor")
	}
	return mask(r, w)
}

func mask(r io.Reader, w io.Writer) error {
	buf := make([]byte, 32*1024)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			for i := range buf[:n] {
				buf[i] ^= testMask
			}
			if _, werr := w.Write(buf[:n]); werr != nil {
				return fmt.Errorf("writing payload: %w", werr)
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading payload: %w", err)
		}
	}
}

var (
	_ d2sm.Encryptor         = (*TestEncryptor)(nil)
	_ d2sm.DecryptionContext = (*TestDecryptionContext)(nil)
)
