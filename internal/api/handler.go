package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/scry-capture/internal/analysis"
	"github.com/phrazzld/scry-capture/internal/api/shared"
	"github.com/phrazzld/scry-capture/internal/capture"
	"github.com/phrazzld/scry-capture/internal/coordinator"
	"github.com/phrazzld/scry-capture/internal/delivery"
)

// Delivery is the part of the delivery facade exposed over HTTP.
type Delivery interface {
	Status() delivery.Status
	TriggerDrainNow() *coordinator.Token
	CancelActiveWork()
}

// Captures accepts shared URLs.
type Captures interface {
	Share(ctx context.Context, url string) error
}

// Recall grades answers and records recall scores and feedback.
type Recall interface {
	GradeAnswer(ctx context.Context, req analysis.GradeRequest) (*analysis.GradeResponse, error)
	SubmitRecall(ctx context.Context, traceID, contentID string, correct, total int) error
	SubmitFeedback(ctx context.Context, in capture.FeedbackInput) error
}

// Ensure the concrete services satisfy the handler interfaces.
var (
	_ Delivery = (*delivery.Subsystem)(nil)
	_ Captures = (*capture.Pipeline)(nil)
	_ Recall   = (*capture.RecallService)(nil)
)

// Handler serves the capture and delivery API.
type Handler struct {
	delivery Delivery
	captures Captures
	recall   Recall
	logger   *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(d Delivery, c Captures, r Recall, logger *slog.Logger) (*Handler, error) {
	if d == nil {
		return nil, errors.New("delivery cannot be nil")
	}
	if c == nil {
		return nil, errors.New("captures cannot be nil")
	}
	if r == nil {
		return nil, errors.New("recall cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		delivery: d,
		captures: c,
		recall:   r,
		logger:   logger.With("component", "api"),
	}, nil
}

// RegisterRoutes mounts the versioned API on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Get("/outboxes", h.GetStatus)
		r.Post("/captures", h.ShareCapture)
		r.Post("/sync", h.TriggerSync)
		r.Delete("/sync", h.CancelSync)
		r.Post("/recall", h.SubmitRecall)
		r.Post("/feedback", h.SubmitFeedback)
		r.Post("/grade", h.GradeAnswer)
	})
}

// GetStatus handles GET /v1/outboxes.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, h.delivery.Status())
}

// ShareCapture handles POST /v1/captures. The URL is queued and a drain is
// triggered; analysis happens in the background.
func (h *Handler) ShareCapture(w http.ResponseWriter, r *http.Request) {
	var req ShareRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.captures.Share(r.Context(), req.URL); err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}

	tok := h.delivery.TriggerDrainNow()
	shared.RespondWithJSON(w, r, http.StatusAccepted, ShareResponse{
		Status:  "queued",
		TokenID: tok.ID(),
	})
}

// TriggerSync handles POST /v1/sync. With ?wait=true it blocks until the
// drain finishes or the request is cancelled.
func (h *Handler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	wait := false
	if raw := r.URL.Query().Get("wait"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid wait parameter")
			return
		}
		wait = parsed
	}

	tok := h.delivery.TriggerDrainNow()
	if !wait {
		shared.RespondWithJSON(w, r, http.StatusAccepted, syncResponse(tok))
		return
	}

	if err := tok.Wait(r.Context()); err != nil && r.Context().Err() != nil {
		// Client went away; the drain continues.
		h.logger.DebugContext(r.Context(), "sync wait abandoned", "token_id", tok.ID())
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, syncResponse(tok))
}

// CancelSync handles DELETE /v1/sync.
func (h *Handler) CancelSync(w http.ResponseWriter, r *http.Request) {
	h.delivery.CancelActiveWork()
	w.WriteHeader(http.StatusNoContent)
}

// SubmitRecall handles POST /v1/recall.
func (h *Handler) SubmitRecall(w http.ResponseWriter, r *http.Request) {
	var req RecallRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.recall.SubmitRecall(r.Context(), req.TraceID, req.ContentID, req.Correct, req.Total); err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// SubmitFeedback handles POST /v1/feedback.
func (h *Handler) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	var req FeedbackRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.recall.SubmitFeedback(r.Context(), req.ToInput()); err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// GradeAnswer handles POST /v1/grade.
func (h *Handler) GradeAnswer(w http.ResponseWriter, r *http.Request) {
	var req GradeRequest
	if !h.decode(w, r, &req) {
		return
	}

	resp, err := h.recall.GradeAnswer(r.Context(), req.ToAnalysis())
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// decode reads and validates the body, writing a 400 on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := shared.DecodeJSON(r, v); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return false
	}
	if err := shared.ValidateRequest(v); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return false
	}
	return true
}

func (h *Handler) respondWithServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := MapErrorToStatusCode(err)
	shared.RespondWithErrorAndLog(w, r, status, GetSafeErrorMessage(err), err)
}

func syncResponse(tok *coordinator.Token) SyncResponse {
	resp := SyncResponse{
		TokenID:   tok.ID(),
		StartedAt: tok.StartedAt(),
		Status:    "running",
	}
	select {
	case <-tok.Done():
	default:
		return resp
	}

	err := tok.Err()
	switch {
	case err == nil:
		resp.Status = "completed"
	case errors.Is(err, context.Canceled):
		resp.Status = "cancelled"
		resp.Error = GetSafeErrorMessage(err)
	default:
		resp.Status = "failed"
		resp.Error = GetSafeErrorMessage(err)
	}
	return resp
}
