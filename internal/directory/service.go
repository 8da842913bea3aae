// Package directory assembles the consolidated view of a tenant's cloud
// directory: credential resolution, token exchange, a bounded parallel
// fan-out over the upstream collections, derived metrics, and sync
// bookkeeping.
package directory

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	pmetrics "prism/internal/platform/metrics"
	tenantsvc "prism/internal/tenant/service"
	dErrors "prism/pkg/domain-errors"
)

// fetchWorkers bounds the fan-out. Exactly four fetches are issued, so four
// workers means full parallelism without an unbounded goroutine spray.
const fetchWorkers = 4

// CredentialResolver yields the decrypted triplet for an active tenant.
type CredentialResolver interface {
	ResolveCredentials(ctx context.Context, id string) (tenantsvc.Credentials, error)
}

// SyncRecorder persists aggregation snapshots back onto the tenant record.
type SyncRecorder interface {
	RecordSync(ctx context.Context, id string, userCount, licenseCount int) error
}

// TokenAcquirer exchanges a credential triplet for a bearer token.
type TokenAcquirer interface {
	Acquire(ctx context.Context, directoryID, clientID, clientSecret string) (string, error)
}

// Fetcher retrieves one upstream collection.
type Fetcher interface {
	Collection(ctx context.Context, token, path string) ([]map[string]any, error)
}

// Aggregate is the consolidated view returned to the caller. It is built
// once per call, owned by the caller, and never persisted.
type Aggregate struct {
	Users    []map[string]any `json:"users"`
	Groups   []map[string]any `json:"groups"`
	Sites    []map[string]any `json:"sites"`
	Licenses []map[string]any `json:"licenses"`
	Metrics  Metrics          `json:"metrics"`
}

// Metrics holds the figures derived from the fetched collections.
type Metrics struct {
	TotalUsers        int              `json:"totalUsers"`
	ActiveUsers       int              `json:"activeUsers"`
	DisabledUsers     int              `json:"disabledUsers"`
	TotalLicenses     int              `json:"totalLicenses"`
	UsedLicenses      int              `json:"usedLicenses"`
	AvailableLicenses int              `json:"availableLicenses"`
	UserStatus        UserBreakdown    `json:"userStatus"`
	LicenseStatus     LicenseBreakdown `json:"licenseStatus"`
}

type UserBreakdown struct {
	Active   int `json:"active"`
	Disabled int `json:"disabled"`
}

type LicenseBreakdown struct {
	Used      int `json:"used"`
	Available int `json:"available"`
}

// Service runs the aggregation pipeline.
type Service struct {
	creds    CredentialResolver
	recorder SyncRecorder
	tokens   TokenAcquirer
	graph    Fetcher
	logger   *slog.Logger
	metrics  *pmetrics.Metrics
	tracer   trace.Tracer
}

// Option configures optional service collaborators.
type Option func(*Service)

// WithMetrics wires prometheus instrumentation into the pipeline.
func WithMetrics(m *pmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithTracer overrides the OpenTelemetry tracer.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

func NewService(creds CredentialResolver, recorder SyncRecorder, tokens TokenAcquirer, graph Fetcher, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		creds:    creds,
		recorder: recorder,
		tokens:   tokens,
		graph:    graph,
		logger:   logger,
		tracer:   otel.Tracer("prism/directory"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// fetchResult holds the four collections. Each goroutine writes to its own
// field, avoiding data races; assembly happens after the group settles.
type fetchResult struct {
	users    []map[string]any
	licenses []map[string]any
	groups   []map[string]any
	sites    []map[string]any
}

// Collect assembles the consolidated view for one tenant.
//
// Fetch failures are absorbed locally as empty collections; only missing
// credentials (not found), a failed token exchange (upstream auth), or an
// unexpected internal failure abort the aggregation.
func (s *Service) Collect(ctx context.Context, tenantID string) (agg *Aggregate, err error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "directory.collect",
		trace.WithAttributes(attribute.String("tenant.id", tenantID)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	creds, err := s.creds.ResolveCredentials(ctx, tenantID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not resolve tenant credentials")
	}
	if !creds.Complete() {
		return nil, dErrors.New(dErrors.CodeNotFound, "Tenant not found or missing credentials")
	}

	token, err := s.tokens.Acquire(ctx, creds.DirectoryID, creds.ClientID, creds.ClientSecret)
	if err != nil {
		return nil, err
	}

	var result fetchResult
	g, fetchCtx := errgroup.WithContext(ctx)
	g.SetLimit(fetchWorkers)

	s.launchFetch(fetchCtx, g, token, "/users", "users", &result.users)
	s.launchFetch(fetchCtx, g, token, "/subscribedSkus", "licenses", &result.licenses)
	s.launchFetch(fetchCtx, g, token, "/groups", "groups", &result.groups)
	s.launchFetch(fetchCtx, g, token, "/sites?search=*", "sites", &result.sites)

	// Fetches fail soft, so Wait only propagates a cancelled parent context.
	if err := g.Wait(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "aggregation interrupted")
	}

	metrics := computeMetrics(result.users, result.licenses)

	if err := s.recorder.RecordSync(ctx, tenantID, metrics.TotalUsers, metrics.TotalLicenses); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not record sync snapshot")
	}

	if s.metrics != nil {
		s.metrics.ObserveAggregation(start)
	}

	return &Aggregate{
		Users:    result.users,
		Groups:   result.groups,
		Sites:    result.sites,
		Licenses: result.licenses,
		Metrics:  metrics,
	}, nil
}

// launchFetch starts one fail-soft fetch. A failed or timed-out fetch is
// substituted with an empty collection and never aborts the other three.
func (s *Service) launchFetch(ctx context.Context, g *errgroup.Group, token, path, resource string, dst *[]map[string]any) {
	g.Go(func() error {
		fctx, span := s.tracer.Start(ctx, "directory.fetch",
			trace.WithAttributes(attribute.String("directory.resource", resource)))
		items, err := s.graph.Collection(fctx, token, path)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			span.End()

			s.logger.WarnContext(ctx, "upstream fetch failed, substituting empty collection",
				"resource", resource,
				"error", err,
			)
			if s.metrics != nil {
				s.metrics.IncrementFetchFailures(resource)
			}
			*dst = []map[string]any{}
			return nil
		}
		span.SetAttributes(attribute.Int("directory.items", len(items)))
		span.End()
		*dst = items
		return nil
	})
}

// computeMetrics folds the fetched collections into the derived figures.
// Pure and deterministic given its inputs.
func computeMetrics(users, licenses []map[string]any) Metrics {
	totalUsers := len(users)

	// A user with no accountEnabled field counts as active; only an explicit
	// false disables. disabledUsers is derived by subtraction. Both are
	// observed behavioral contracts, kept as-is.
	activeUsers := 0
	for _, u := range users {
		if enabled, ok := u["accountEnabled"].(bool); !ok || enabled {
			activeUsers++
		}
	}
	disabledUsers := totalUsers - activeUsers

	totalLicenses, usedLicenses := 0, 0
	for _, lic := range licenses {
		totalLicenses += nestedIntField(lic, "prepaidUnits", "enabled")
		usedLicenses += intField(lic, "consumedUnits")
	}
	// May go negative on inconsistent upstream data; intentionally not clamped.
	availableLicenses := totalLicenses - usedLicenses

	return Metrics{
		TotalUsers:        totalUsers,
		ActiveUsers:       activeUsers,
		DisabledUsers:     disabledUsers,
		TotalLicenses:     totalLicenses,
		UsedLicenses:      usedLicenses,
		AvailableLicenses: availableLicenses,
		UserStatus:        UserBreakdown{Active: activeUsers, Disabled: disabledUsers},
		LicenseStatus:     LicenseBreakdown{Used: usedLicenses, Available: availableLicenses},
	}
}

// intField reads a numeric field from a decoded JSON object, 0 when absent.
func intField(m map[string]any, key string) int {
	if f, ok := m[key].(float64); ok {
		return int(f)
	}
	return 0
}

// nestedIntField reads m[outer][inner] as a number, 0 when absent.
func nestedIntField(m map[string]any, outer, inner string) int {
	if nested, ok := m[outer].(map[string]any); ok {
		return intField(nested, inner)
	}
	return 0
}
