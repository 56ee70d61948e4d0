package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/cheya01/facial-recog-poc-server/internal/audit"
	"github.com/cheya01/facial-recog-poc-server/internal/oracle"
	"github.com/cheya01/facial-recog-poc-server/internal/visitor/models"
	dErrors "github.com/cheya01/facial-recog-poc-server/pkg/domain-errors"
	"github.com/cheya01/facial-recog-poc-server/pkg/platform/sentinel"
	"github.com/cheya01/facial-recog-poc-server/pkg/requestcontext"
)

// VerifyAutomated compares a freshly captured photo with the visitor's
// reference photo. Only a match is committed; a rejection leaves the record
// untouched so the visitor can be captured again.
func (s *Service) VerifyAutomated(ctx context.Context, visitorID string, captured []byte) (*models.Outcome, error) {
	ctx, span := s.tracer.Start(ctx, "visitor.VerifyAutomated", trace.WithAttributes(attribute.String("visitor.id", visitorID)))
	defer span.End()

	outcome, err := s.verifyAutomated(ctx, visitorID, captured)
	if err != nil {
		s.metrics.IncrementFailure(modeAutomated, string(dErrors.CodeOf(err)))
		s.logger.WarnContext(ctx, "automated verification failed",
			"request_id", requestcontext.RequestID(ctx),
			"visitor_id", visitorID,
			"code", dErrors.CodeOf(err),
			"error", err,
		)
		return nil, recordSpanError(span, err)
	}
	span.SetAttributes(
		attribute.Bool("verification.match", outcome.Match),
		attribute.Float64("verification.confidence", outcome.Confidence),
	)
	return outcome, nil
}

func (s *Service) verifyAutomated(ctx context.Context, visitorID string, captured []byte) (*models.Outcome, error) {
	// The capture is checked before the lookup so a request without an image
	// is rejected the same way for known and unknown visitors.
	if len(captured) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "image file is required")
	}
	visitor, err := s.load(ctx, visitorID)
	if err != nil {
		return nil, err
	}

	reference, err := s.blobs.Get(ctx, visitor.ReferenceImageRef)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeReferenceImageMissing, "reference image could not be retrieved")
	}

	result, err := s.compare(ctx, reference, captured)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	evidenceRef := s.storeEvidence(ctx, visitor.ID, now, captured)

	committed := false
	if result.Match {
		match := true
		confidence := result.Confidence
		_, err := s.visitors.RecordVerification(ctx, visitor.ID, now, models.VerificationResult{
			Match:            &match,
			Confidence:       &confidence,
			VerifiedImageRef: evidenceRef,
			Remarks:          models.RemarksAutomatedPassed,
		})
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "visitor not found")
			}
			return nil, dErrors.Wrap(err, dErrors.CodePersistence, "failed to record verification")
		}
		committed = true
	}

	s.metrics.IncrementOutcome(modeAutomated, outcomeLabel(&result.Match))
	match, confidence := result.Match, result.Confidence
	s.emit(ctx, audit.Event{
		Action:     audit.ActionAutomatedVerification,
		VisitorID:  visitor.ID,
		Match:      &match,
		Confidence: &confidence,
		Committed:  committed,
	})
	s.logger.InfoContext(ctx, "automated verification completed",
		"request_id", requestcontext.RequestID(ctx),
		"visitor_id", visitor.ID,
		"match", result.Match,
		"confidence", result.Confidence,
		"committed", committed,
	)

	return &models.Outcome{
		Match:            result.Match,
		Confidence:       result.Confidence,
		VisitorID:        visitor.ID,
		VisitorName:      visitor.FullName,
		ReferenceImage:   reference,
		CapturedImage:    captured,
		VerifiedImageRef: evidenceRef,
	}, nil
}

// compare calls the oracle under the configured timeout and classifies its
// failures.
func (s *Service) compare(ctx context.Context, reference, captured []byte) (oracle.Result, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.oracleTimeout)
	defer cancel()

	start := time.Now()
	result, err := s.comparator.Compare(callCtx, reference, captured)
	s.metrics.ObserveOracleLatency(time.Since(start))
	if err == nil {
		return result, nil
	}
	if oracle.IsUnavailable(err) || errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return oracle.Result{}, dErrors.Wrap(err, dErrors.CodeOracleUnavailable, "face comparison service unavailable")
	}
	return oracle.Result{}, dErrors.Wrap(err, dErrors.CodeOracleError, "face comparison failed")
}

// storeEvidence uploads the captured photo. A failure degrades to a nil
// reference; the verdict is still returned.
func (s *Service) storeEvidence(ctx context.Context, visitorID string, now time.Time, captured []byte) *string {
	ref, err := s.blobs.Put(ctx, captureKey(now, visitorID), captured, captureContentType)
	if err != nil {
		s.metrics.IncrementEvidenceUploadFailure()
		s.logger.WarnContext(ctx, "failed to store captured image",
			"request_id", requestcontext.RequestID(ctx),
			"visitor_id", visitorID,
			"error", err,
		)
		return nil
	}
	return &ref
}

// ManualCommand is an operator's adjudication. Match, Confidence and
// VerifiedImageRef are stored as given, absent values included.
type ManualCommand struct {
	VisitorID        string
	Match            *bool
	Confidence       *float64
	VerifiedImageRef *string
	Remarks          string
}

// VerifyManual records an operator decision. It always overwrites whatever
// result the visitor already has.
func (s *Service) VerifyManual(ctx context.Context, cmd ManualCommand) (*models.Visitor, error) {
	ctx, span := s.tracer.Start(ctx, "visitor.VerifyManual", trace.WithAttributes(attribute.String("visitor.id", cmd.VisitorID)))
	defer span.End()

	updated, err := s.verifyManual(ctx, cmd)
	if err != nil {
		s.metrics.IncrementFailure(modeManual, string(dErrors.CodeOf(err)))
		return nil, recordSpanError(span, err)
	}
	return updated, nil
}

func (s *Service) verifyManual(ctx context.Context, cmd ManualCommand) (*models.Visitor, error) {
	if strings.TrimSpace(cmd.VisitorID) == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "visitor id is required")
	}
	if strings.TrimSpace(cmd.Remarks) == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "remarks field is required")
	}
	visitor, err := s.load(ctx, cmd.VisitorID)
	if err != nil {
		return nil, err
	}
	remark, err := models.ParseManualRemark(cmd.Remarks)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, `remarks must be "failed" or "verified"`)
	}

	updated, err := s.visitors.RecordVerification(ctx, visitor.ID, s.clock(), models.VerificationResult{
		Match:            cmd.Match,
		Confidence:       cmd.Confidence,
		VerifiedImageRef: cmd.VerifiedImageRef,
		Remarks:          remark.StoredText(),
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "visitor not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "failed to record verification")
	}

	s.metrics.IncrementOutcome(modeManual, outcomeLabel(cmd.Match))
	s.emit(ctx, audit.Event{
		Action:     audit.ActionManualVerification,
		VisitorID:  updated.ID,
		Match:      cmd.Match,
		Confidence: cmd.Confidence,
		Remarks:    remark.StoredText(),
		Committed:  true,
	})
	s.logger.InfoContext(ctx, "manual verification recorded",
		"request_id", requestcontext.RequestID(ctx),
		"visitor_id", updated.ID,
		"remarks", remark.StoredText(),
	)
	return updated, nil
}

func outcomeLabel(match *bool) string {
	switch {
	case match == nil:
		return "unset"
	case *match:
		return "match"
	default:
		return "no_match"
	}
}
