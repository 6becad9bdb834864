package d2sm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// RestoreArchive writes the archived save with the given plaintext checksum
// to dest. When dest is an existing directory the file keeps its archived
// base name. An existing file is never overwritten. decryptCtx is required
// for encrypted archives and ignored otherwise. The restored bytes are
// verified against the checksum before anything is written.
func (s *Service) RestoreArchive(ctx context.Context, checksum string, dest string, decryptCtx DecryptionContext) (string, error) {
	archive, err := s.database.FindSaveArchiveByChecksum(ctx, checksum)
	if err != nil {
		return "", fmt.Errorf("finding archive: %w", err)
	}
	if archive == nil {
		return "", fmt.Errorf("no archive with checksum %s", checksum)
	}

	outPath := dest
	if info, err := os.Stat(dest); err == nil && info.IsDir() {
		outPath = filepath.Join(dest, filepath.Base(archive.Path))
	}
	if _, err := os.Stat(outPath); err == nil {
		return "", fmt.Errorf("output file already exists: %s", outPath)
	}

	var stored bytes.Buffer
	if err := s.vault.GetContent(archive.VaultKey(), &stored); err != nil {
		return "", fmt.Errorf("retrieving content from vault: %w", err)
	}

	data := stored.Bytes()
	if archive.EncryptedChecksum.Valid {
		if decryptCtx == nil {
			return "", fmt.Errorf("archive is encrypted but no passphrase was provided")
		}
		var plain bytes.Buffer
		if err := decryptCtx.Decrypt(bytes.NewReader(data), &plain); err != nil {
			return "", fmt.Errorf("decrypting content: %w", err)
		}
		data = plain.Bytes()
	}

	if got := sha256Hex(data); got != archive.Checksum {
		return "", fmt.Errorf("restored content checksum %s does not match archive %s", got, archive.Checksum)
	}

	if err := writeNewFile(outPath, data); err != nil {
		return "", err
	}

	s.logger.Info("save restored", "path", outPath, "checksum", archive.Checksum)
	return outPath, nil
}

func writeNewFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating parent directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("output file already exists: %s", path)
		}
		return fmt.Errorf("creating output file: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("writing output file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("closing output file: %w", err)
	}
	return nil
}
