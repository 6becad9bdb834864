package d2sm

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"

	"d2sm/internal/d2s"
	"d2sm/internal/model"
)

// SkippedSave is a discovered file that was not archived.
type SkippedSave struct {
	Path string
	Err  error
}

// ArchiveSummary reports what ArchiveSaves did.
type ArchiveSummary struct {
	Archived     []*model.SaveArchive
	Deduplicated int
	Skipped      []SkippedSave
}

// ArchiveSaves stores save files in the vault, keyed by the SHA-256 of their
// bytes. rawPath may name a single save or a directory to scan. Files that
// fail validation are skipped and reported; content that is already
// archived is not stored again. When encrypt is set the vault receives
// ciphertext.
func (s *Service) ArchiveSaves(ctx context.Context, rawPath string, recursive bool, encrypt bool) (*ArchiveSummary, error) {
	if encrypt && s.encryptor == nil {
		return nil, fmt.Errorf("encryption requested but no encryptor is configured")
	}

	path, err := s.fsmgr.Resolve(rawPath)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	saves := []*Path{path}
	if path.IsDir() {
		saves, err = s.fsmgr.FindSaves(path, recursive)
		if err != nil {
			return nil, fmt.Errorf("finding saves: %w", err)
		}
	}

	summary := &ArchiveSummary{}
	for _, p := range saves {
		archive, err := s.archiveOne(ctx, p, encrypt)
		switch {
		case err != nil && isSaveError(err):
			s.logger.Warn("save skipped", "path", p.String(), "error", err)
			summary.Skipped = append(summary.Skipped, SkippedSave{Path: p.String(), Err: err})
		case err != nil:
			return summary, fmt.Errorf("archiving %s: %w", p.String(), err)
		case archive == nil:
			summary.Deduplicated++
		default:
			summary.Archived = append(summary.Archived, archive)
		}
	}

	s.logger.Info("archive complete", "archived", len(summary.Archived), "deduplicated", summary.Deduplicated, "skipped", len(summary.Skipped))
	return summary, nil
}

// archiveOne returns nil and no error when the content was already archived.
func (s *Service) archiveOne(ctx context.Context, path *Path, encrypt bool) (*model.SaveArchive, error) {
	data, err := s.readAll(path)
	if err != nil {
		return nil, saveError{fmt.Errorf("reading save: %w", err)}
	}

	save, err := d2s.NewRawSave(path.String(), data)
	if err != nil {
		return nil, saveError{err}
	}

	archive := &model.SaveArchive{
		ID:         s.idgen.New(),
		Kind:       save.Kind().String(),
		Path:       save.Path(),
		Checksum:   sha256Hex(data),
		Size:       int64(len(data)),
		ArchivedAt: s.clock.Now(),
	}

	if save.Kind() == d2s.Character {
		h, err := d2s.Decode(save)
		if err != nil {
			return nil, saveError{err}
		}
		archive.CharacterName = sql.NullString{String: h.Name, Valid: true}
		archive.Version = sql.NullInt64{Int64: int64(h.Version), Valid: true}
	}

	existing, err := s.database.FindSaveArchiveByChecksum(ctx, archive.Checksum)
	if err != nil {
		return nil, fmt.Errorf("checking for existing archive: %w", err)
	}
	if existing != nil {
		s.logger.Debug("save deduplicated", "path", archive.Path, "checksum", archive.Checksum)
		return nil, nil
	}

	content := data
	if encrypt {
		var buf bytes.Buffer
		if err := s.encryptor.Encrypt(bytes.NewReader(data), &buf); err != nil {
			return nil, fmt.Errorf("encrypting save: %w", err)
		}
		content = buf.Bytes()
		archive.EncryptedChecksum = sql.NullString{String: sha256Hex(content), Valid: true}
	}

	// The row must never point at content the vault does not hold.
	if err := s.vault.PutContent(archive.VaultKey(), bytes.NewReader(content), int64(len(content))); err != nil {
		return nil, fmt.Errorf("uploading to vault: %w", err)
	}
	if err := s.database.CreateSaveArchive(ctx, archive); err != nil {
		return nil, fmt.Errorf("recording archive: %w", err)
	}

	s.logger.Info("save archived", "path", archive.Path, "checksum", archive.Checksum, "encrypted", encrypt)
	return archive, nil
}

// saveError marks failures that belong to a single file rather than to the
// run.
type saveError struct{ err error }

func (e saveError) Error() string { return e.err.Error() }
func (e saveError) Unwrap() error { return e.err }

func isSaveError(err error) bool {
	var se saveError
	return errors.As(err, &se)
}
