package snapshot

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gearconnect/statuspage/internal/domain"
	"github.com/gearconnect/statuspage/internal/pkg/httputil"
)

// Cache directives for the public payload. Fallback payloads are cached for
// less time so recovery shows up quickly.
const (
	CacheControl         = "public, max-age=15, stale-while-revalidate=30"
	FallbackCacheControl = "public, max-age=5, stale-while-revalidate=15"
)

// SnapshotBuilder builds the public payload.
type SnapshotBuilder interface {
	Build(ctx context.Context) (domain.Snapshot, bool)
}

// Handler serves the public status payload.
type Handler struct {
	builder SnapshotBuilder
}

// NewHandler creates a status handler.
func NewHandler(builder SnapshotBuilder) *Handler {
	return &Handler{builder: builder}
}

// RegisterRoutes registers the public status routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/status", h.GetStatus)
	r.Options("/api/status", h.Preflight)
}

// GetStatus returns the current snapshot. It always responds 200.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.builder.Build(r.Context())

	setCORSHeaders(w)
	if ok {
		w.Header().Set("Cache-Control", CacheControl)
	} else {
		w.Header().Set("Cache-Control", FallbackCacheControl)
	}
	httputil.JSON(w, http.StatusOK, snap)
}

// Preflight answers CORS preflight requests with an empty body.
func (h *Handler) Preflight(w http.ResponseWriter, _ *http.Request) {
	setCORSHeaders(w)
	w.WriteHeader(http.StatusOK)
}

func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}
