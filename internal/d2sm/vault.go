package d2sm

import "io"

// Vault stores archived saves by checksum plus named per-host metadata.
// Reads and writes are streamed.
type Vault interface {
	// PutContent stores content identified by its checksum. Storing the same
	// checksum again is safe. size is the number of bytes read from r.
	PutContent(checksum string, r io.Reader, size int64) error

	// GetContent writes the content stored under checksum to w.
	GetContent(checksum string, w io.Writer) error

	// PutMetadata stores a named metadata item for a host together with a
	// version. Known names: "db" (the SQLite database).
	PutMetadata(hostID string, name string, r io.Reader, size int64, version int64) error

	// GetMetadata writes a named metadata item of a host to w.
	GetMetadata(hostID string, name string, w io.Writer) error

	// GetMetadataVersion returns the stored version, or 0 when nothing has
	// been stored for this host and name.
	GetMetadataVersion(hostID string, name string) (int64, error)

	// ValidateSetup verifies that the vault is reachable and configured.
	ValidateSetup() error
}
