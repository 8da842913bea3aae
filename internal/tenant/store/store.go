// Package store persists the tenant list as a flat JSON file.
//
// The file is the single shared resource of the system: every
// read-modify-write cycle holds the store-wide mutex for its full duration so
// concurrent requests cannot lose updates. The whole list is rewritten on
// every mutation; low administrative write volume makes that acceptable.
package store

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"sync"

	"prism/internal/tenant/models"
	dErrors "prism/pkg/domain-errors"
	"prism/pkg/secrets"
)

// FileStore is a mutex-guarded, file-backed tenant list.
type FileStore struct {
	mu     sync.Mutex
	path   string
	cipher *secrets.Cipher
	logger *slog.Logger

	// onMigrate is invoked with the number of legacy secrets upgraded
	// during a read, when set.
	onMigrate func(count int)
}

// Option configures a FileStore.
type Option func(*FileStore)

// WithMigrationObserver registers a callback fired whenever legacy plaintext
// secrets get encrypted on read, e.g. to feed a metrics counter.
func WithMigrationObserver(fn func(count int)) Option {
	return func(s *FileStore) {
		s.onMigrate = fn
	}
}

// NewFileStore creates a store backed by the given file path.
func NewFileStore(path string, cipher *secrets.Cipher, logger *slog.Logger, opts ...Option) *FileStore {
	s := &FileStore{path: path, cipher: cipher, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns all records in stored order. A missing, empty, or unreadable
// file yields an empty list, never an error. Legacy plaintext secrets are
// encrypted in place before returning; if any were migrated the file is
// rewritten once, making subsequent reads a no-op.
func (s *FileStore) List(ctx context.Context) ([]models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx)
}

// Mutate runs fn on the freshly loaded list while holding the store lock and
// persists the returned list when fn reports a change. This is the only way
// to modify the store, which makes lost updates impossible.
func (s *FileStore) Mutate(ctx context.Context, fn func(records []models.Record) ([]models.Record, bool, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.loadLocked(ctx)
	if err != nil {
		return err
	}

	updated, changed, err := fn(records)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	return s.writeLocked(updated)
}

// loadLocked reads and migrates the file. Callers must hold s.mu.
func (s *FileStore) loadLocked(ctx context.Context) ([]models.Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []models.Record{}, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not read tenants file")
	}

	var records []models.Record
	if err := json.Unmarshal(data, &records); err != nil {
		// Matches the established behavior for a corrupt store: treat it as
		// empty rather than failing every request that touches tenants.
		s.logger.ErrorContext(ctx, "tenants file is corrupt, treating as empty",
			"path", s.path,
			"error", err,
		)
		return []models.Record{}, nil
	}

	migrated := 0
	for i := range records {
		secret := records[i].ClientSecret
		if secret == "" || secrets.IsEncrypted(secret) {
			continue
		}
		token, err := s.cipher.Encrypt(secret)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not migrate legacy secret")
		}
		records[i].ClientSecret = token
		migrated++
	}
	if migrated > 0 {
		s.logger.InfoContext(ctx, "migrated legacy plaintext secrets", "count", migrated)
		if s.onMigrate != nil {
			s.onMigrate(migrated)
		}
		if err := s.writeLocked(records); err != nil {
			return nil, err
		}
	}

	return records, nil
}

// writeLocked rewrites the whole file. Callers must hold s.mu.
func (s *FileStore) writeLocked(records []models.Record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not encode tenants")
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not write tenants file")
	}
	return nil
}
