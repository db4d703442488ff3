package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"revalidation/internal/cycle/export"
	"revalidation/internal/cycle/models"
	"revalidation/internal/cycle/service"
	"revalidation/internal/platform/metrics"
	"revalidation/internal/platform/middleware"
	id "revalidation/pkg/domain"
	dErrors "revalidation/pkg/domain-errors"
	"revalidation/pkg/platform/httputil"
	"revalidation/pkg/platform/middleware/admin"
	"revalidation/pkg/platform/middleware/metadata"
	"revalidation/pkg/platform/middleware/requesttime"
	"revalidation/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

// Service defines the cycle operations exposed over HTTP.
type Service interface {
	InitializeCycle(ctx context.Context, subjectID id.SubjectID, metrics models.CarryForwardMetrics) (*models.Cycle, error)
	CompleteCycle(ctx context.Context, subjectID id.SubjectID, reference string) (*models.Snapshot, error)
	StartNextCycle(ctx context.Context, subjectID id.SubjectID) (*models.Cycle, error)
	CompleteAndRenew(ctx context.Context, subjectID id.SubjectID, reference string) (*service.Renewal, error)
	GetCurrentCycle(ctx context.Context, subjectID id.SubjectID) (*service.CurrentCycle, error)
	GetCycleHistory(ctx context.Context, subjectID id.SubjectID) ([]*models.Cycle, error)
	GetArchivedData(ctx context.Context, subjectID id.SubjectID, cycleID id.CycleID) (*models.Snapshot, error)
	ExportCycle(ctx context.Context, subjectID id.SubjectID, cycleID id.CycleID, format string) (*export.Artifact, error)
	Reconcile(ctx context.Context, dryRun bool) (*service.ReconcileReport, error)
}

// Handler handles cycle endpoints. Every route acts on the authenticated
// subject's own cycles.
type Handler struct {
	logger         *slog.Logger
	cycles         Service
	metrics        *metrics.Metrics
	jwtValidator   middleware.JWTValidator
	adminToken     string
	requestTimeout time.Duration
}

// New creates a new cycle Handler.
func New(
	cycles Service,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	jwtValidator middleware.JWTValidator,
	adminToken string,
	requestTimeout time.Duration) *Handler {
	return &Handler{
		logger:         logger,
		cycles:         cycles,
		metrics:        metrics,
		jwtValidator:   jwtValidator,
		adminToken:     adminToken,
		requestTimeout: requestTimeout,
	}
}

// Register registers the cycle routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(middleware.Recovery(h.logger))
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(h.logger))
	router.Use(middleware.Timeout(h.requestTimeout))
	router.Use(middleware.ContentTypeJSON)
	router.Use(middleware.LatencyMiddleware(h.metrics, routePattern))
	router.Use(metadata.ClientMetadata)
	router.Use(requesttime.Middleware)

	router.Group(func(cr chi.Router) {
		cr.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		cr.Post("/cycles", h.handleInitializeCycle)
		cr.Get("/cycles", h.handleGetHistory)
		cr.Get("/cycles/current", h.handleGetCurrent)
		cr.Post("/cycles/current/complete", h.handleCompleteCycle)
		cr.Post("/cycles/current/complete-and-renew", h.handleCompleteAndRenew)
		cr.Post("/cycles/next", h.handleStartNextCycle)
		cr.Get("/cycles/{cycleID}/archive", h.handleGetArchive)
		cr.Get("/cycles/{cycleID}/export", h.handleExport)
	})

	router.Group(func(ar chi.Router) {
		ar.Use(admin.RequireAdminToken(h.adminToken, h.logger))
		ar.Post("/admin/reconcile", h.handleReconcile)
	})

	r.Mount("/", router)
}

func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		return rc.RoutePattern()
	}
	return ""
}

func (h *Handler) handleInitializeCycle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	subjectID, ok := h.subject(w, r)
	if !ok {
		return
	}

	var req InitializeCycleRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.logger.WarnContext(ctx, "invalid initialize cycle request",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	cycle, err := h.cycles.InitializeCycle(ctx, subjectID, req.ToMetrics())
	if err != nil {
		h.writeServiceError(ctx, w, "failed to initialize cycle", err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, cycle)
}

func (h *Handler) handleCompleteCycle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subjectID, ok := h.subject(w, r)
	if !ok {
		return
	}
	req, ok := h.decodeCompletion(w, r)
	if !ok {
		return
	}

	snap, err := h.cycles.CompleteCycle(ctx, subjectID, req.Reference)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to complete cycle", err)
		return
	}

	setPartialWarning(w, snap)
	httputil.WriteJSON(w, http.StatusOK, snap)
}

func (h *Handler) handleCompleteAndRenew(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subjectID, ok := h.subject(w, r)
	if !ok {
		return
	}
	req, ok := h.decodeCompletion(w, r)
	if !ok {
		return
	}

	renewal, err := h.cycles.CompleteAndRenew(ctx, subjectID, req.Reference)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to complete and renew cycle", err)
		return
	}

	setPartialWarning(w, renewal.Snapshot)
	httputil.WriteJSON(w, http.StatusOK, RenewalResponse{Snapshot: renewal.Snapshot, Next: renewal.Next})
}

func (h *Handler) handleStartNextCycle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subjectID, ok := h.subject(w, r)
	if !ok {
		return
	}

	cycle, err := h.cycles.StartNextCycle(ctx, subjectID)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to start next cycle", err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, cycle)
}

func (h *Handler) handleGetCurrent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subjectID, ok := h.subject(w, r)
	if !ok {
		return
	}

	current, err := h.cycles.GetCurrentCycle(ctx, subjectID)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to load current cycle", err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, current)
}

func (h *Handler) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subjectID, ok := h.subject(w, r)
	if !ok {
		return
	}

	cycles, err := h.cycles.GetCycleHistory(ctx, subjectID)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to list cycles", err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, HistoryResponse{Cycles: cycles})
}

func (h *Handler) handleGetArchive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subjectID, ok := h.subject(w, r)
	if !ok {
		return
	}
	cycleID, err := id.ParseCycleID(chi.URLParam(r, "cycleID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	snap, err := h.cycles.GetArchivedData(ctx, subjectID, cycleID)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to load archived snapshot", err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, snap)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subjectID, ok := h.subject(w, r)
	if !ok {
		return
	}
	cycleID, err := id.ParseCycleID(chi.URLParam(r, "cycleID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	artifact, err := h.cycles.ExportCycle(ctx, subjectID, cycleID, r.URL.Query().Get("format"))
	if err != nil {
		h.writeServiceError(ctx, w, "failed to export cycle", err)
		return
	}

	w.Header().Set("Content-Type", artifact.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", artifact.Filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(artifact.Body); err != nil {
		h.logger.ErrorContext(ctx, "failed to write export",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
}

func (h *Handler) handleReconcile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ReconcileRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	report, err := h.cycles.Reconcile(ctx, req.DryRun)
	if err != nil {
		h.writeServiceError(ctx, w, "reconciliation failed", err)
		return
	}

	h.logger.InfoContext(ctx, "manual reconciliation finished",
		"request_id", requestcontext.RequestID(ctx),
		"checked", report.Checked,
		"repaired", report.Repaired,
		"dry_run", report.DryRun,
	)
	httputil.WriteJSON(w, http.StatusOK, report)
}

// subject reads the authenticated subject set by RequireAuth.
func (h *Handler) subject(w http.ResponseWriter, r *http.Request) (id.SubjectID, bool) {
	ctx := r.Context()
	subjectID := requestcontext.SubjectID(ctx)
	if subjectID.IsNil() {
		// This should never happen if RequireAuth middleware is configured correctly
		h.logger.ErrorContext(ctx, "subject missing from context despite auth middleware",
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return id.SubjectID{}, false
	}
	return subjectID, true
}

func (h *Handler) decodeCompletion(w http.ResponseWriter, r *http.Request) (CompleteCycleRequest, bool) {
	var req CompleteCycleRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return req, false
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return req, false
	}
	return req, true
}

// setPartialWarning adds an RFC 7234 miscellaneous warning when evidence
// reads degraded while the snapshot was captured.
func setPartialWarning(w http.ResponseWriter, snap *models.Snapshot) {
	if warning := snap.PartialWarning(); warning != nil {
		w.Header().Set("Warning", fmt.Sprintf("199 revalidation %q", warning.Error()))
	}
}

// writeServiceError logs at a level matching the failure class and renders
// the domain error. Client errors keep their message; internal ones do not.
func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	status := dErrors.ToHTTPStatus(dErrors.CodeOf(err))
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, msg,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	} else {
		h.logger.WarnContext(ctx, msg,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}
