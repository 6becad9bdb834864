package d2sm

import (
	"context"
	"fmt"
	"path/filepath"
)

// SaveStatus is the archive state of one save file on disk.
type SaveStatus struct {
	RelativePath string
	Checksum     string
	// IsArchived means this exact content is in the vault.
	IsArchived bool
	// IsModifiedSince means the path was archived before with other content.
	IsModifiedSince bool
	// Err is set for files that are not loadable saves.
	Err error
}

// GetStatus reports which saves under rawPath are archived. A single file
// is reported relative to its own directory.
func (s *Service) GetStatus(ctx context.Context, rawPath string, recursive bool) ([]*SaveStatus, error) {
	path, err := s.fsmgr.Resolve(rawPath)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}
	s.logger.Debug("computing status", "path", path.String())

	root := path.String()
	saves := []*Path{path}
	if path.IsDir() {
		saves, err = s.fsmgr.FindSaves(path, recursive)
		if err != nil {
			return nil, fmt.Errorf("finding saves: %w", err)
		}
	} else {
		root = filepath.Dir(root)
	}

	statuses := make([]*SaveStatus, 0, len(saves))
	for _, p := range saves {
		rel, err := filepath.Rel(root, p.String())
		if err != nil {
			return nil, fmt.Errorf("computing relative path: %w", err)
		}
		status, err := s.saveStatus(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("getting status for %s: %w", rel, err)
		}
		status.RelativePath = rel
		statuses = append(statuses, status)
	}
	return statuses, nil
}

func (s *Service) saveStatus(ctx context.Context, path *Path) (*SaveStatus, error) {
	save, err := s.loadSave(path.String())
	if err != nil {
		return &SaveStatus{Err: err}, nil
	}

	status := &SaveStatus{Checksum: sha256Hex(save.Data())}
	existing, err := s.database.FindSaveArchiveByChecksum(ctx, status.Checksum)
	if err != nil {
		return nil, err
	}
	status.IsArchived = existing != nil

	if !status.IsArchived {
		latest, err := s.database.FindLatestSaveArchiveByPath(ctx, path.String())
		if err != nil {
			return nil, err
		}
		status.IsModifiedSince = latest != nil
	}
	return status, nil
}
