package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/schema"

	"github.com/cheya01/facial-recog-poc-server/internal/visitor/models"
	"github.com/cheya01/facial-recog-poc-server/internal/visitor/service"
	dErrors "github.com/cheya01/facial-recog-poc-server/pkg/domain-errors"
	"github.com/cheya01/facial-recog-poc-server/pkg/platform/httputil"
	"github.com/cheya01/facial-recog-poc-server/pkg/requestcontext"
)

// DefaultMaxUploadBytes is the per-file upload limit.
const DefaultMaxUploadBytes int64 = 5 << 20

// multipartOverhead leaves room for text fields and part headers on top of
// the file itself.
const multipartOverhead int64 = 1 << 20

const imageField = "image"

// Service defines the visitor operations the handler needs.
type Service interface {
	Register(ctx context.Context, cmd service.RegisterCommand) (*models.Visitor, error)
	Get(ctx context.Context, id string) (*models.Visitor, error)
	ListPending(ctx context.Context, date string) ([]*models.Visitor, error)
	VerifyAutomated(ctx context.Context, visitorID string, captured []byte) (*models.Outcome, error)
	VerifyManual(ctx context.Context, cmd service.ManualCommand) (*models.Visitor, error)
}

// Handler serves the visitor endpoints. It decodes requests into commands and
// leaves every decision to the service.
type Handler struct {
	logger         *slog.Logger
	visitors       Service
	maxUploadBytes int64
	location       *time.Location
	decoder        *schema.Decoder
}

type Option func(*Handler)

func WithMaxUploadBytes(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxUploadBytes = n
		}
	}
}

// WithLocation sets the timezone for scheduledAt values without an offset.
func WithLocation(loc *time.Location) Option {
	return func(h *Handler) {
		if loc != nil {
			h.location = loc
		}
	}
}

func New(visitors Service, logger *slog.Logger, opts ...Option) *Handler {
	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)
	h := &Handler{
		logger:         logger,
		visitors:       visitors,
		maxUploadBytes: DefaultMaxUploadBytes,
		location:       time.UTC,
		decoder:        decoder,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the visitor routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Route("/visitors", func(r chi.Router) {
		r.Post("/", h.handleRegister)
		r.Get("/", h.handleListPending)
		r.Post("/verify", h.handleVerify)
		r.Post("/manualVerify", h.handleManualVerify)
		r.Get("/{id}", h.handleGet)
	})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	image, ok := h.parseUpload(w, r)
	if !ok {
		return
	}
	var form registerForm
	if err := h.decoder.Decode(&form, r.MultipartForm.Value); err != nil {
		h.writeBadRequest(w, ctx, "invalid form fields", err)
		return
	}
	scheduledAt, err := parseScheduledAt(form.ScheduledAt, h.location)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	visitor, err := h.visitors.Register(ctx, service.RegisterCommand{
		FullName:    form.FullName,
		Email:       form.Email,
		Phone:       form.Phone,
		ScheduledAt: scheduledAt,
		Image:       *image,
	})
	if err != nil {
		h.logFailure(ctx, "failed to register visitor", err)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "visitor registration completed",
		"request_id", requestID,
		"visitor_id", visitor.ID,
		"image_bytes", len(image.Data),
	)
	httputil.WriteJSON(w, http.StatusCreated, visitor)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	visitor, err := h.visitors.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.logFailure(ctx, "failed to get visitor", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, visitor)
}

func (h *Handler) handleListPending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	visitors, err := h.visitors.ListPending(ctx, r.URL.Query().Get("date"))
	if err != nil {
		h.logFailure(ctx, "failed to list pending visitors", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, visitors)
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	image, ok := h.parseUpload(w, r)
	if !ok {
		return
	}
	var form verifyForm
	if err := h.decoder.Decode(&form, r.MultipartForm.Value); err != nil {
		h.writeBadRequest(w, ctx, "invalid form fields", err)
		return
	}

	outcome, err := h.visitors.VerifyAutomated(ctx, strings.TrimSpace(form.ID), image.Data)
	if err != nil {
		h.logFailure(ctx, "automated verification request failed", err)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "automated verification request completed",
		"request_id", requestcontext.RequestID(ctx),
		"visitor_id", outcome.VisitorID,
		"match", outcome.Match,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, toVerifyResponse(outcome))
}

func (h *Handler) handleManualVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	var req *ManualVerifyRequest
	if isJSON(r) {
		decoded, ok := httputil.DecodeAndPrepare[ManualVerifyRequest](w, r, h.logger, ctx, requestID)
		if !ok {
			return
		}
		req = decoded
	} else {
		decoded, ok := h.decodeManualForm(w, r)
		if !ok {
			return
		}
		req = decoded
	}

	visitor, err := h.visitors.VerifyManual(ctx, service.ManualCommand{
		VisitorID:        req.ID,
		Match:            req.Match,
		Confidence:       req.Confidence,
		VerifiedImageRef: req.VerifiedImageURL,
		Remarks:          req.Remarks,
	})
	if err != nil {
		h.logFailure(ctx, "manual verification request failed", err)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "manual verification request completed",
		"request_id", requestID,
		"visitor_id", visitor.ID,
	)
	httputil.WriteJSON(w, http.StatusOK, toManualVerifyResponse(visitor))
}

func (h *Handler) decodeManualForm(w http.ResponseWriter, r *http.Request) (*ManualVerifyRequest, bool) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, multipartOverhead)
	if err := r.ParseMultipartForm(multipartOverhead); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		h.writeBadRequest(w, ctx, "invalid form body", err)
		return nil, false
	}
	if r.PostForm == nil {
		if err := r.ParseForm(); err != nil {
			h.writeBadRequest(w, ctx, "invalid form body", err)
			return nil, false
		}
	}
	var req ManualVerifyRequest
	if err := h.decoder.Decode(&req, r.PostForm); err != nil {
		h.writeBadRequest(w, ctx, "invalid form fields", err)
		return nil, false
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return nil, false
	}
	return &req, true
}

// parseUpload reads the multipart body and the image part. The file must not
// exceed maxUploadBytes. Missing files are left for the service to reject so
// the field checks happen in one place.
func (h *Handler) parseUpload(w http.ResponseWriter, r *http.Request) (*models.Image, bool) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeBadRequest(w, ctx, fmt.Sprintf("upload exceeds %d bytes", h.maxUploadBytes), err)
			return nil, false
		}
		h.writeBadRequest(w, ctx, "multipart form body is required", err)
		return nil, false
	}

	file, header, err := r.FormFile(imageField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return &models.Image{}, true
		}
		h.writeBadRequest(w, ctx, "invalid image part", err)
		return nil, false
	}
	defer file.Close()

	if header.Size > h.maxUploadBytes {
		h.writeBadRequest(w, ctx, fmt.Sprintf("image exceeds %d bytes", h.maxUploadBytes), nil)
		return nil, false
	}
	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
	if err != nil {
		h.writeBadRequest(w, ctx, "could not read image", err)
		return nil, false
	}
	if int64(len(data)) > h.maxUploadBytes {
		h.writeBadRequest(w, ctx, fmt.Sprintf("image exceeds %d bytes", h.maxUploadBytes), nil)
		return nil, false
	}
	return &models.Image{
		Filename:    header.Filename,
		ContentType: partContentType(header),
		Data:        data,
	}, true
}

func partContentType(header *multipart.FileHeader) string {
	ct := header.Header.Get("Content-Type")
	if ct == "" || ct == "application/octet-stream" {
		return ""
	}
	return ct
}

func isJSON(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}

func (h *Handler) writeBadRequest(w http.ResponseWriter, ctx context.Context, msg string, err error) {
	h.logger.WarnContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
	httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, msg))
}

// logFailure logs client errors at warn and server errors at error level.
func (h *Handler) logFailure(ctx context.Context, msg string, err error) {
	level := slog.LevelError
	if httputil.StatusFor(dErrors.CodeOf(err)) < http.StatusInternalServerError {
		level = slog.LevelWarn
	}
	h.logger.Log(ctx, level, msg,
		"request_id", requestcontext.RequestID(ctx),
		"code", dErrors.CodeOf(err),
		"error", err,
	)
}
