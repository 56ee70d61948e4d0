package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/cheya01/facial-recog-poc-server/internal/audit"
	"github.com/cheya01/facial-recog-poc-server/internal/oracle"
	"github.com/cheya01/facial-recog-poc-server/internal/platform/metrics"
	"github.com/cheya01/facial-recog-poc-server/internal/visitor/models"
	dErrors "github.com/cheya01/facial-recog-poc-server/pkg/domain-errors"
	"github.com/cheya01/facial-recog-poc-server/pkg/platform/sentinel"
	"github.com/cheya01/facial-recog-poc-server/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks VisitorStore,BlobStore,Comparator,AuditPublisher

type VisitorStore interface {
	Create(ctx context.Context, v *models.Visitor) (*models.Visitor, error)
	FindByID(ctx context.Context, id string) (*models.Visitor, error)
	FindPending(ctx context.Context, from, to time.Time) ([]*models.Visitor, error)
	RecordVerification(ctx context.Context, id string, verifiedAt time.Time, result models.VerificationResult) (*models.Visitor, error)
}

type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Get(ctx context.Context, ref string) ([]byte, error)
}

type Comparator interface {
	Compare(ctx context.Context, reference, captured []byte) (oracle.Result, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event)
}

const (
	DefaultOracleTimeout = 30 * time.Second
	dateLayout           = "2006-01-02"
	captureContentType   = "image/jpeg"

	modeAutomated = "automated"
	modeManual    = "manual"
)

// Service coordinates the visitor store, the blob store and the comparison
// oracle. It holds no mutable state and is safe for concurrent use.
type Service struct {
	visitors       VisitorStore
	blobs          BlobStore
	comparator     Comparator
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	tracer         trace.Tracer
	oracleTimeout  time.Duration
	location       *time.Location
	clock          func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// WithOracleTimeout bounds each comparison call. Non-positive values are ignored.
func WithOracleTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.oracleTimeout = d
		}
	}
}

// WithLocation sets the timezone in which listing dates are interpreted.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithClock sets the clock used for verification timestamps.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func New(visitors VisitorStore, blobs BlobStore, comparator Comparator, opts ...Option) (*Service, error) {
	if visitors == nil {
		return nil, errors.New("visitor store is required")
	}
	if blobs == nil {
		return nil, errors.New("blob store is required")
	}
	if comparator == nil {
		return nil, errors.New("comparator is required")
	}
	s := &Service{
		visitors:      visitors,
		blobs:         blobs,
		comparator:    comparator,
		logger:        slog.Default(),
		tracer:        otel.Tracer("github.com/cheya01/facial-recog-poc-server/internal/visitor/service"),
		oracleTimeout: DefaultOracleTimeout,
		location:      time.UTC,
		clock:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// RegisterCommand carries a new visitor and their reference photo.
type RegisterCommand struct {
	FullName    string
	Email       string
	Phone       string
	ScheduledAt time.Time
	Image       models.Image
}

func (c *RegisterCommand) Validate() error {
	if strings.TrimSpace(c.FullName) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "fullName is required")
	}
	if c.ScheduledAt.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "scheduledAt is required")
	}
	if len(c.Image.Data) == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "image file is required")
	}
	return nil
}

// Register uploads the reference photo and creates the visitor record.
func (s *Service) Register(ctx context.Context, cmd RegisterCommand) (*models.Visitor, error) {
	ctx, span := s.tracer.Start(ctx, "visitor.Register")
	defer span.End()

	if err := cmd.Validate(); err != nil {
		return nil, recordSpanError(span, err)
	}

	now := requestcontext.Now(ctx)
	key := referenceKey(now, cmd.Image.Filename)
	contentType := cmd.Image.ContentType
	if contentType == "" {
		contentType = captureContentType
	}
	ref, err := s.blobs.Put(ctx, key, cmd.Image.Data, contentType)
	if err != nil {
		return nil, recordSpanError(span, dErrors.Wrap(err, dErrors.CodePersistence, "failed to store reference image"))
	}

	created, err := s.visitors.Create(ctx, &models.Visitor{
		FullName:          strings.TrimSpace(cmd.FullName),
		Email:             strings.TrimSpace(cmd.Email),
		Phone:             strings.TrimSpace(cmd.Phone),
		ScheduledAt:       cmd.ScheduledAt,
		ReferenceImageRef: ref,
		RegisteredAt:      now,
	})
	if err != nil {
		return nil, recordSpanError(span, dErrors.Wrap(err, dErrors.CodePersistence, "failed to create visitor"))
	}
	span.SetAttributes(attribute.String("visitor.id", created.ID))

	s.metrics.IncrementRegistered()
	s.emit(ctx, audit.Event{
		Action:    audit.ActionRegistered,
		VisitorID: created.ID,
		Committed: true,
	})
	s.logger.InfoContext(ctx, "visitor registered",
		"request_id", requestcontext.RequestID(ctx),
		"visitor_id", created.ID,
	)
	return created, nil
}

// Get returns a single visitor.
func (s *Service) Get(ctx context.Context, id string) (*models.Visitor, error) {
	ctx, span := s.tracer.Start(ctx, "visitor.Get", trace.WithAttributes(attribute.String("visitor.id", id)))
	defer span.End()

	v, err := s.load(ctx, id)
	if err != nil {
		return nil, recordSpanError(span, err)
	}
	return v, nil
}

// ListPending returns visitors scheduled on date (YYYY-MM-DD, in the service
// location) that have not yet received a match decision.
func (s *Service) ListPending(ctx context.Context, date string) ([]*models.Visitor, error) {
	ctx, span := s.tracer.Start(ctx, "visitor.ListPending", trace.WithAttributes(attribute.String("visit.date", date)))
	defer span.End()

	from, to, err := s.dayWindow(date)
	if err != nil {
		return nil, recordSpanError(span, err)
	}
	visitors, err := s.visitors.FindPending(ctx, from, to)
	if err != nil {
		return nil, recordSpanError(span, dErrors.Wrap(err, dErrors.CodePersistence, "failed to list pending visitors"))
	}
	return visitors, nil
}

// dayWindow returns the half-open interval [start of date, start of next day).
func (s *Service) dayWindow(date string) (time.Time, time.Time, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		return time.Time{}, time.Time{}, dErrors.New(dErrors.CodeInvalidInput, "date parameter is required")
	}
	start, err := time.ParseInLocation(dateLayout, date, s.location)
	if err != nil {
		return time.Time{}, time.Time{}, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("date must be YYYY-MM-DD, got %q", date))
	}
	return start, start.AddDate(0, 0, 1), nil
}

func (s *Service) load(ctx context.Context, id string) (*models.Visitor, error) {
	if strings.TrimSpace(id) == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "visitor id is required")
	}
	v, err := s.visitors.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "visitor not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "failed to load visitor")
	}
	return v, nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditPublisher == nil {
		return
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	s.auditPublisher.Emit(ctx, event)
}

func recordSpanError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
	return err
}

// referenceKey is <unix-millis>_<filename>. Only the base name of the client
// filename is kept.
func referenceKey(now time.Time, filename string) string {
	name := filepath.Base(strings.TrimSpace(filename))
	if name == "" || name == "." || name == "/" {
		name = "reference.jpg"
	}
	return fmt.Sprintf("%d_%s", now.UnixMilli(), name)
}

// captureKey is verified_<unix-millis>_<visitorID>.jpg.
func captureKey(now time.Time, visitorID string) string {
	return fmt.Sprintf("verified_%d_%s.jpg", now.UnixMilli(), visitorID)
}
