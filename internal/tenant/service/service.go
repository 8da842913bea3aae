// Package service orchestrates tenant lifecycle management: validation,
// secret encryption, redaction, credential resolution, and sync bookkeeping.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"prism/internal/platform/metrics"
	"prism/internal/tenant/models"
	dErrors "prism/pkg/domain-errors"
	"prism/pkg/secrets"
)

// Store is the persistence contract the service depends on.
type Store interface {
	List(ctx context.Context) ([]models.Record, error)
	Mutate(ctx context.Context, fn func(records []models.Record) ([]models.Record, bool, error)) error
}

// Credentials is the decrypted triplet used to reach a tenant's directory.
// The zero value means "not found or missing credentials".
type Credentials struct {
	DirectoryID  string
	ClientID     string
	ClientSecret string
}

// Complete reports whether all three credential fields are usable.
func (c Credentials) Complete() bool {
	return c.DirectoryID != "" && c.ClientID != "" && c.ClientSecret != ""
}

// Service implements tenant CRUD over the store plus credential resolution
// for the aggregation pipeline.
type Service struct {
	store   Store
	cipher  *secrets.Cipher
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// Option configures optional service collaborators.
type Option func(*Service)

// WithMetrics wires prometheus counters into lifecycle operations.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides the time source, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(store Store, cipher *secrets.Cipher, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:  store,
		cipher: cipher,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns every tenant, redacted, in stored order.
func (s *Service) List(ctx context.Context) ([]models.Redacted, error) {
	records, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Redacted, 0, len(records))
	for _, r := range records {
		out = append(out, r.Redact())
	}
	return out, nil
}

// Get returns one tenant, redacted.
func (s *Service) Get(ctx context.Context, id string) (models.Redacted, error) {
	records, err := s.store.List(ctx)
	if err != nil {
		return models.Redacted{}, err
	}
	for _, r := range records {
		if r.ID == id {
			return r.Redact(), nil
		}
	}
	return models.Redacted{}, dErrors.New(dErrors.CodeNotFound, "Tenant not found")
}

// Create validates the request, encrypts the secret, and prepends the new
// record to the store.
func (s *Service) Create(ctx context.Context, req *models.CreateRequest) (models.Redacted, error) {
	req.Sanitize()
	if err := req.Validate(); err != nil {
		return models.Redacted{}, err
	}

	token, err := s.cipher.Encrypt(req.ClientSecret)
	if err != nil {
		return models.Redacted{}, err
	}

	rec := models.Record{
		ID:           uuid.New().String(),
		Name:         req.Name,
		DirectoryID:  req.DirectoryID,
		ClientID:     req.ClientID,
		ClientSecret: token,
		IsActive:     req.Active(),
	}

	err = s.store.Mutate(ctx, func(records []models.Record) ([]models.Record, bool, error) {
		return append([]models.Record{rec}, records...), true, nil
	})
	if err != nil {
		return models.Redacted{}, err
	}

	if s.metrics != nil {
		s.metrics.IncrementTenantsCreated()
	}
	s.logger.InfoContext(ctx, "tenant created", "tenant", rec.ID, "name", rec.Name)
	return rec.Redact(), nil
}

// Update merges the supplied fields over the existing record. The secret is
// re-encrypted only when a non-blank replacement was supplied; omission
// preserves the stored ciphertext.
func (s *Service) Update(ctx context.Context, id string, req *models.UpdateRequest) (models.Redacted, error) {
	req.Sanitize()

	var updated models.Record
	err := s.store.Mutate(ctx, func(records []models.Record) ([]models.Record, bool, error) {
		for i := range records {
			if records[i].ID != id {
				continue
			}
			req.Apply(&records[i])
			if req.ClientSecret != nil && *req.ClientSecret != "" {
				token, err := s.cipher.Encrypt(*req.ClientSecret)
				if err != nil {
					return nil, false, err
				}
				records[i].ClientSecret = token
			}
			updated = records[i]
			return records, true, nil
		}
		return nil, false, dErrors.New(dErrors.CodeNotFound, "Tenant not found")
	})
	if err != nil {
		return models.Redacted{}, err
	}
	return updated.Redact(), nil
}

// Delete removes the record by id. A nonexistent id leaves the store
// untouched and reports not found.
func (s *Service) Delete(ctx context.Context, id string) error {
	err := s.store.Mutate(ctx, func(records []models.Record) ([]models.Record, bool, error) {
		kept := records[:0:0]
		for _, r := range records {
			if r.ID != id {
				kept = append(kept, r)
			}
		}
		if len(kept) == len(records) {
			return nil, false, dErrors.New(dErrors.CodeNotFound, "Tenant not found")
		}
		return kept, true, nil
	})
	if err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.IncrementTenantsDeleted()
	}
	s.logger.InfoContext(ctx, "tenant deleted", "tenant", id)
	return nil
}

// ResolveCredentials yields the decrypted credential triplet for an active
// tenant. Inactive or unknown tenants, and secrets the cipher cannot recover,
// all degrade to the zero Credentials value rather than an error.
func (s *Service) ResolveCredentials(ctx context.Context, id string) (Credentials, error) {
	records, err := s.store.List(ctx)
	if err != nil {
		return Credentials{}, err
	}
	for _, r := range records {
		if r.ID == id && r.IsActive {
			return Credentials{
				DirectoryID:  r.DirectoryID,
				ClientID:     r.ClientID,
				ClientSecret: s.cipher.Decrypt(r.ClientSecret),
			}, nil
		}
	}
	return Credentials{}, nil
}

// RecordSync persists an aggregation snapshot (timestamp and counts) back
// onto the tenant record. A tenant deleted since the aggregation started is
// a silent no-op, not an error.
func (s *Service) RecordSync(ctx context.Context, id string, userCount, licenseCount int) error {
	return s.store.Mutate(ctx, func(records []models.Record) ([]models.Record, bool, error) {
		for i := range records {
			if records[i].ID != id {
				continue
			}
			records[i].LastSync = s.now().UTC().Format(time.RFC3339)
			records[i].UserCount = userCount
			records[i].LicenseCount = licenseCount
			return records, true, nil
		}
		return nil, false, nil
	})
}
