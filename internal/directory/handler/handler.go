package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"prism/internal/directory"
	"prism/internal/platform/middleware"
	"prism/internal/tenant/models"
	"prism/pkg/platform/httputil"
)

// Aggregator runs the aggregation pipeline for one tenant.
type Aggregator interface {
	Collect(ctx context.Context, tenantID string) (*directory.Aggregate, error)
}

// TenantReader looks up a single redacted tenant record, used by the sync
// endpoint to return the just-updated record instead of the raw aggregate.
type TenantReader interface {
	Get(ctx context.Context, id string) (models.Redacted, error)
}

type Handler struct {
	aggregator Aggregator
	tenants    TenantReader
	logger     *slog.Logger
}

func New(aggregator Aggregator, tenants TenantReader, logger *slog.Logger) *Handler {
	return &Handler{aggregator: aggregator, tenants: tenants, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/api/tenants/{id}/data", h.HandleTenantData)
	r.Post("/api/tenants/{id}/sync", h.HandleTenantSync)

	// Deprecated default-credential endpoints, kept for clients that still
	// probe them. They return a populated zero-valued shape so UIs can
	// render empty states without special-casing the error.
	r.Get("/api/token", h.HandleLegacyToken)
	r.Get("/api/users", h.HandleLegacyUsers)
	r.Get("/api/metrics", h.HandleLegacyMetrics)
}

// HandleTenantData returns the consolidated live view for one tenant.
func (h *Handler) HandleTenantData(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	id := chi.URLParam(r, "id")

	agg, err := h.aggregator.Collect(ctx, id)
	if err != nil {
		h.logger.ErrorContext(ctx, "tenant data aggregation failed", "error", err, "request_id", requestID, "tenant", id)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, agg)
}

// HandleTenantSync runs the aggregation and returns the updated tenant
// record reflecting the just-written sync snapshot, rather than the raw
// aggregate. Aggregation failures propagate with their original status.
func (h *Handler) HandleTenantSync(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	id := chi.URLParam(r, "id")

	if _, err := h.aggregator.Collect(ctx, id); err != nil {
		h.logger.ErrorContext(ctx, "tenant sync failed", "error", err, "request_id", requestID, "tenant", id)
		httputil.WriteError(w, err)
		return
	}

	tenant, err := h.tenants.Get(ctx, id)
	if err != nil {
		// Deleted between the aggregation and this read.
		h.logger.WarnContext(ctx, "tenant vanished after sync", "error", err, "request_id", requestID, "tenant", id)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, tenant)
}

const legacyError = "No default credentials configured. Please configure tenants in the Tenant Management tab."
const legacyMessage = "Use tenant-specific data endpoints instead."

func (h *Handler) HandleLegacyToken(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusBadRequest, map[string]any{
		"error":   legacyError,
		"message": legacyMessage,
	})
}

func (h *Handler) HandleLegacyUsers(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusBadRequest, map[string]any{
		"error":   legacyError,
		"message": legacyMessage,
		"value":   []any{},
	})
}

func (h *Handler) HandleLegacyMetrics(w http.ResponseWriter, _ *http.Request) {
	zero := directory.Metrics{}
	httputil.WriteJSON(w, http.StatusBadRequest, map[string]any{
		"error":             legacyError,
		"message":           legacyMessage,
		"totalUsers":        zero.TotalUsers,
		"activeUsers":       zero.ActiveUsers,
		"disabledUsers":     zero.DisabledUsers,
		"totalLicenses":     zero.TotalLicenses,
		"usedLicenses":      zero.UsedLicenses,
		"availableLicenses": zero.AvailableLicenses,
		"userStatus":        zero.UserStatus,
		"licenseStatus":     zero.LicenseStatus,
	})
}
