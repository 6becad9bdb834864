package vault

import (
	"fmt"
	"io"
	"sync"

	"d2sm/internal/d2sm"
)

type metadataKey struct {
	hostID string
	name   string
}

type metadataEntry struct {
	data    []byte
	version int64
}

// MemoryVault keeps archived saves and metadata in memory. It backs the
// "memory" vault type and the service tests, and is safe for concurrent use.
type MemoryVault struct {
	name string

	mu       sync.RWMutex
	content  map[string][]byte
	metadata map[metadataKey]metadataEntry
}

func NewMemoryVault(name string) *MemoryVault {
	return &MemoryVault{
		name:     name,
		content:  make(map[string][]byte),
		metadata: make(map[metadataKey]metadataEntry),
	}
}

// readExactly reads r to the end and requires exactly size bytes.
func readExactly(r io.Reader, size int64) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) != size {
		return nil, fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}
	return data, nil
}

// PutContent stores a save under its vault key. Content already stored
// under checksum is kept.
func (m *MemoryVault) PutContent(checksum string, r io.Reader, size int64) error {
	data, err := readExactly(r, size)
	if err != nil {
		return fmt.Errorf("storing content %s: %w", checksum, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.content[checksum]; !ok {
		m.content[checksum] = data
	}
	return nil
}

func (m *MemoryVault) GetContent(checksum string, w io.Writer) error {
	m.mu.RLock()
	data, ok := m.content[checksum]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("content not found: %s", checksum)
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing content %s: %w", checksum, err)
	}
	return nil
}

// PutMetadata replaces the named item for hostID and records its version.
func (m *MemoryVault) PutMetadata(hostID string, name string, r io.Reader, size int64, version int64) error {
	data, err := readExactly(r, size)
	if err != nil {
		return fmt.Errorf("storing metadata %q: %w", name, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.metadata[metadataKey{hostID, name}] = metadataEntry{data: data, version: version}
	return nil
}

// GetMetadataVersion returns 0 when nothing is stored for hostID/name.
func (m *MemoryVault) GetMetadataVersion(hostID string, name string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.metadata[metadataKey{hostID, name}].version, nil
}

func (m *MemoryVault) GetMetadata(hostID string, name string, w io.Writer) error {
	m.mu.RLock()
	entry, ok := m.metadata[metadataKey{hostID, name}]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("metadata %q not found for host: %s", name, hostID)
	}

	if _, err := w.Write(entry.data); err != nil {
		return fmt.Errorf("writing metadata %q: %w", name, err)
	}
	return nil
}

// ValidateSetup always succeeds.
func (m *MemoryVault) ValidateSetup() error {
	return nil
}

var _ d2sm.Vault = (*MemoryVault)(nil)
