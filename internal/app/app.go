package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"d2sm/internal/config"
	"d2sm/internal/d2sm"
	"d2sm/internal/database"
	"d2sm/internal/encryption"
	"d2sm/internal/fs"
	"d2sm/internal/model"
	"d2sm/internal/vault"
)

// metadataName is the vault metadata entry holding the database snapshot.
const metadataName = "db"

// App sits between the CLI and d2sm.Service. It builds every dependency
// from config, accepts raw CLI arguments and owns the database lifecycle.
type App struct {
	cfg       *config.Config
	db        d2sm.Database
	vault     d2sm.Vault
	fsmgr     d2sm.FilesystemManager
	encryptor d2sm.Encryptor
	service   *d2sm.Service
	op        *Operation
	logFile   *os.File
}

// NewApp creates a fully wired App from the given config.
// operation names the CLI command being run (e.g. "Import", "Archive").
// The caller must call Close when done.
func NewApp(ctx context.Context, cfg *config.Config, operation string) (*App, error) {
	fsmgr := fs.NewOSFilesystemManager(cfg.Archive.Ignore)

	v, err := vault.NewVaultFromConfig(ctx, cfg.Vault)
	if err != nil {
		return nil, fmt.Errorf("creating vault: %w", err)
	}

	db, err := database.NewDatabaseFromConfig(cfg.Database, cfg.HostID)
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}

	if err := db.CheckMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database schema out of date (run d2sm migrate): %w", err)
	}

	if err := checkMetadataVersion(ctx, db, v, cfg.HostID); err != nil {
		db.Close()
		return nil, err
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	opID := time.Now().UTC().Format("20060102T150405Z")
	logger, logFile, err := newLogger(cfg.LogDir, opID)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	a := newApp(cfg, db, v, fsmgr, enc, logger, operation)
	a.logFile = logFile
	return a, nil
}

func newApp(cfg *config.Config, db d2sm.Database, v d2sm.Vault, fsmgr d2sm.FilesystemManager, enc d2sm.Encryptor, logger *slog.Logger, operation string) *App {
	svc := d2sm.NewService(db, v, fsmgr, enc, &slogAdapter{l: logger}, d2sm.RealClock{}, d2sm.UUIDGenerator{})
	return &App{
		cfg:       cfg,
		db:        db,
		vault:     v,
		fsmgr:     fsmgr,
		encryptor: enc,
		service:   svc,
		op:        NewOperation(operation, ""),
	}
}

// checkMetadataVersion refuses to run when the vault holds a database
// snapshot newer than the local database.
func checkMetadataVersion(ctx context.Context, db d2sm.Database, v d2sm.Vault, hostID string) error {
	remoteVersion, err := v.GetMetadataVersion(hostID, metadataName)
	if err != nil {
		return fmt.Errorf("checking remote metadata version: %w", err)
	}

	localMax, err := db.MaxOperationID(ctx)
	if err != nil {
		return fmt.Errorf("checking local metadata version: %w", err)
	}

	if remoteVersion > localMax {
		return fmt.Errorf("local database is behind remote (local=%d, remote=%d): restore from vault or re-initialize", localMax, remoteVersion)
	}
	return nil
}

// Migrate applies pending schema migrations to the configured database.
func Migrate(cfg *config.Config) error {
	db, err := database.NewDatabaseFromConfig(cfg.Database, cfg.HostID)
	if err != nil {
		return fmt.Errorf("creating database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}
	return nil
}

// SetupEncryption generates the key pair for the configured encryptor.
func SetupEncryption(cfg *config.Config, passphrase string) error {
	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		return fmt.Errorf("creating encryptor: %w", err)
	}
	if enc == nil {
		return fmt.Errorf("encryption is disabled in config")
	}
	return enc.Setup(passphrase)
}

// persistOperation records the operation in the database, giving it an id.
// Only DB-mutating commands call it.
func (a *App) persistOperation(ctx context.Context, parameters string) error {
	if a.op.Persisted() {
		return nil
	}
	a.op.Parameters = parameters
	dbOp, err := a.db.CreateOperation(ctx, a.op.Operation, parameters)
	if err != nil {
		return fmt.Errorf("persisting operation: %w", err)
	}
	a.op.ID = dbOp.ID
	return nil
}

// track marks the operation failed when err is non-nil.
func (a *App) track(err error) error {
	if err != nil {
		a.op.Fail()
	}
	return err
}

// Failed reports whether a tracked command failed.
func (a *App) Failed() bool {
	return a.op.Status != "success"
}

// ReadFile resolves rawPath and returns its contents.
func (a *App) ReadFile(rawPath string) ([]byte, error) {
	p, err := a.fsmgr.Resolve(rawPath)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}
	if p.IsDir() {
		return nil, fmt.Errorf("%s is a directory", p)
	}
	rc, err := a.fsmgr.Open(p)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", p, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", p, err)
	}
	return data, nil
}

// Import implements d2sm.Importer and records the import as an operation.
func (a *App) Import(ctx context.Context, payload []byte) (*d2sm.ImportResult, error) {
	if err := a.persistOperation(ctx, fmt.Sprintf("%d bytes", len(payload))); err != nil {
		return nil, err
	}
	res, err := a.service.Import(ctx, payload)
	return res, a.track(err)
}

// ImportFile reads a character JSON document and imports it. The result
// is the user-facing message, which is the error text on failure.
func (a *App) ImportFile(ctx context.Context, rawPath string) string {
	payload, err := a.ReadFile(rawPath)
	if err != nil {
		a.op.Fail()
		return err.Error()
	}
	if err := a.persistOperation(ctx, rawPath); err != nil {
		a.op.Fail()
		return err.Error()
	}
	return d2sm.ImportMessage(ctx, a, payload)
}

// Inspect loads and validates a save file.
func (a *App) Inspect(rawPath string) (*d2sm.SaveInfo, error) {
	return a.service.InspectSave(rawPath)
}

// Characters returns every persisted character.
func (a *App) Characters(ctx context.Context) ([]*model.Character, error) {
	return a.service.ListCharacters(ctx)
}

// Character returns the persisted character with exactly this name.
func (a *App) Character(ctx context.Context, name string) (*model.Character, error) {
	return a.service.GetCharacter(ctx, name)
}

// Archive stores the saves at rawPath in the vault.
func (a *App) Archive(ctx context.Context, rawPath string, recursive, encrypt bool) (*d2sm.ArchiveSummary, error) {
	if err := a.persistOperation(ctx, rawPath); err != nil {
		return nil, err
	}
	summary, err := a.service.ArchiveSaves(ctx, rawPath, recursive, encrypt)
	return summary, a.track(err)
}

// Status reports which saves under rawPath are archived.
func (a *App) Status(ctx context.Context, rawPath string, recursive bool) ([]*d2sm.SaveStatus, error) {
	return a.service.GetStatus(ctx, rawPath, recursive)
}

// Archives returns the most recently archived saves.
func (a *App) Archives(ctx context.Context, limit int) ([]*model.SaveArchive, error) {
	return a.service.ListArchives(ctx, limit)
}

// ArchiveEncrypted reports whether the archive with this checksum is
// stored encrypted.
func (a *App) ArchiveEncrypted(ctx context.Context, checksum string) (bool, error) {
	archive, err := a.db.FindSaveArchiveByChecksum(ctx, checksum)
	if err != nil {
		return false, fmt.Errorf("finding archive: %w", err)
	}
	if archive == nil {
		return false, fmt.Errorf("no archive with checksum %s", checksum)
	}
	return archive.EncryptedChecksum.Valid, nil
}

// Restore writes an archived save to dest. passphrase is only used for
// encrypted archives.
func (a *App) Restore(ctx context.Context, checksum, dest, passphrase string) (string, error) {
	var decryptCtx d2sm.DecryptionContext
	if passphrase != "" {
		if a.encryptor == nil {
			return "", fmt.Errorf("encryption is disabled in config")
		}
		var err error
		decryptCtx, err = a.encryptor.Unlock(passphrase)
		if err != nil {
			return "", fmt.Errorf("unlocking private key: %w", err)
		}
	}
	return a.service.RestoreArchive(ctx, checksum, dest, decryptCtx)
}

// History returns the most recent operations.
func (a *App) History(ctx context.Context, limit int) ([]*model.Operation, error) {
	return a.service.GetHistory(ctx, limit)
}

// Close finalizes the operation and closes all resources.
// A persisted operation is finished, the database is snapshotted and the
// snapshot is uploaded to the vault. Otherwise the database is just closed.
func (a *App) Close() error {
	var firstErr error

	if a.op.Persisted() {
		if err := a.db.FinishOperation(context.Background(), a.op.ID, a.op.Status); err != nil {
			firstErr = fmt.Errorf("finishing operation: %w", err)
		}

		tmpPath, err := a.snapshot()
		if err != nil && firstErr == nil {
			firstErr = err
		}

		if err := a.db.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing database: %w", err)
		}

		if tmpPath != "" {
			if err := a.uploadMetadata(tmpPath, a.op.ID); err != nil && firstErr == nil {
				firstErr = err
			}
			os.RemoveAll(filepath.Dir(tmpPath))
		}
	} else if err := a.db.Close(); err != nil {
		firstErr = fmt.Errorf("closing database: %w", err)
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}

// snapshot writes the database to a fresh temp path. VACUUM INTO refuses
// to overwrite, so the path is reserved in a temp directory.
func (a *App) snapshot() (string, error) {
	dir, err := os.MkdirTemp("", "d2sm-db-backup-")
	if err != nil {
		return "", fmt.Errorf("creating temp dir for db backup: %w", err)
	}
	path := filepath.Join(dir, "d2sm.db")
	if err := a.db.BackupTo(path); err != nil {
		os.RemoveAll(dir)
		return "", fmt.Errorf("backing up database: %w", err)
	}
	return path, nil
}

// uploadMetadata uploads the snapshot at path to the vault as metadata.
func (a *App) uploadMetadata(path string, version int64) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening db backup for upload: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat db backup: %w", err)
	}

	if err := a.vault.PutMetadata(a.cfg.HostID, metadataName, f, info.Size(), version); err != nil {
		return fmt.Errorf("uploading metadata to vault: %w", err)
	}
	return nil
}
