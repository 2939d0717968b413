package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"zkattest/internal/attestation/models"
	dErrors "zkattest/pkg/domain-errors"
	"zkattest/pkg/platform/httputil"
	"zkattest/pkg/requestcontext"
)

// Service defines the attestation operations exposed over HTTP.
type Service interface {
	Commit(ctx context.Context, req models.CommitRequest) (models.CommitResult, error)
	Verify(ctx context.Context, bundle models.Bundle) (models.VerifyResult, error)
	Commitment(ctx context.Context, fields models.Fields) (string, error)
	Record(ctx context.Context, subjectID string) (models.Record, error)
	Health(ctx context.Context) (models.Liveness, error)
}

// Handler handles attestation endpoints.
type Handler struct {
	logger  *slog.Logger
	service Service
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		logger:  logger,
		service: service,
	}
}

// Register registers the attestation routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/attestations", h.handleCommit)
	r.Post("/attestations/verify", h.handleVerify)
	r.Post("/attestations/commitment", h.handleCommitment)
	r.Get("/attestations/{subjectID}", h.handleGetRecord)
	r.Get("/health", h.handleHealth)
}

// handleCommit proves knowledge of the posted fields and returns the bundle.
func (h *Handler) handleCommit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CommitRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	res, err := h.service.Commit(ctx, models.CommitRequest{SubjectID: req.SubjectID, Fields: req.Fields()})
	if err != nil {
		h.writeError(ctx, w, requestID, "commit failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toCommitResponse(res))
}

// handleVerify answers 200 for both verified and rejected bundles; only
// malformed input or engine faults produce an error status.
func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[VerifyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	res, err := h.service.Verify(ctx, req.Bundle())
	if err != nil {
		h.writeError(ctx, w, requestID, "verify failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) handleCommitment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[FieldsRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	commitment, err := h.service.Commitment(ctx, req.Fields())
	if err != nil {
		h.writeError(ctx, w, requestID, "commitment failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, CommitmentResponse{Commitment: commitment})
}

func (h *Handler) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	record, err := h.service.Record(ctx, chi.URLParam(r, "subjectID"))
	if err != nil {
		h.writeError(ctx, w, requestID, "record lookup failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toRecordResponse(record))
}

// handleHealth pings the engine through the worker pool. It never triggers
// key compilation.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	liveness, err := h.service.Health(ctx)
	if err != nil {
		h.writeError(ctx, w, requestcontext.RequestID(ctx), "health check failed", err)
		return
	}
	status := http.StatusOK
	if !liveness.Alive {
		status = http.StatusServiceUnavailable
	}
	httputil.WriteJSON(w, status, liveness)
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, requestID, msg string, err error) {
	code := dErrors.CodeOf(err)
	if httputil.StatusFor(code) >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, msg,
			"request_id", requestID,
			"code", string(code),
			"error", err.Error(),
		)
	} else {
		h.logger.WarnContext(ctx, msg,
			"request_id", requestID,
			"code", string(code),
			"error", dErrors.MessageOf(err),
		)
	}
	httputil.WriteError(w, err)
}
