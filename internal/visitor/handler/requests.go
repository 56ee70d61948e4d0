package handler

import (
	"encoding/base64"
	"strings"
	"time"

	"github.com/cheya01/facial-recog-poc-server/internal/visitor/models"
	dErrors "github.com/cheya01/facial-recog-poc-server/pkg/domain-errors"
)

// registerForm holds the text fields of a registration upload.
type registerForm struct {
	FullName    string `schema:"fullName"`
	Email       string `schema:"email"`
	Phone       string `schema:"phone"`
	ScheduledAt string `schema:"scheduledAt"`
}

// verifyForm holds the text fields of an automated verification upload.
type verifyForm struct {
	ID string `schema:"id"`
}

// ManualVerifyRequest is accepted as JSON or as a URL-encoded/multipart form.
type ManualVerifyRequest struct {
	ID               string   `json:"id" schema:"id"`
	Match            *bool    `json:"match" schema:"match"`
	Confidence       *float64 `json:"confidence" schema:"confidence"`
	VerifiedImageURL *string  `json:"verifiedImageUrl" schema:"verifiedImageUrl"`
	Remarks          string   `json:"remarks" schema:"remarks"`
}

func (r *ManualVerifyRequest) Validate() error {
	r.ID = strings.TrimSpace(r.ID)
	if r.ID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "visitor id is required")
	}
	if strings.TrimSpace(r.Remarks) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "remarks field is required")
	}
	return nil
}

// scheduleLayouts are tried in order; the date-only and datetime-local forms
// are read in the handler's location.
var scheduleLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseScheduledAt(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, dErrors.New(dErrors.CodeInvalidInput, "scheduledAt is required")
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	for _, layout := range scheduleLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, dErrors.New(dErrors.CodeInvalidInput, "scheduledAt must be RFC 3339 or YYYY-MM-DD")
}

// VerifyResponse is the automated verification outcome with both images
// inlined as base64.
type VerifyResponse struct {
	Match            bool    `json:"match"`
	Confidence       float64 `json:"confidence"`
	VisitorID        string  `json:"visitorId"`
	VisitorName      string  `json:"visitorName"`
	PrevisitImage    string  `json:"previsitImage"`
	FacecaptureImage string  `json:"facecaptureImage"`
	VerifiedImageURL *string `json:"verifiedImageUrl"`
}

func toVerifyResponse(o *models.Outcome) *VerifyResponse {
	return &VerifyResponse{
		Match:            o.Match,
		Confidence:       o.Confidence,
		VisitorID:        o.VisitorID,
		VisitorName:      o.VisitorName,
		PrevisitImage:    base64.StdEncoding.EncodeToString(o.ReferenceImage),
		FacecaptureImage: base64.StdEncoding.EncodeToString(o.CapturedImage),
		VerifiedImageURL: o.VerifiedImageRef,
	}
}

// ManualVerifyResponse echoes the recorded decision.
type ManualVerifyResponse struct {
	Message            string                     `json:"message"`
	VisitorID          string                     `json:"visitorId"`
	VisitorName        string                     `json:"visitorName"`
	VerifiedAt         *time.Time                 `json:"verifiedAt"`
	VerificationResult *models.VerificationResult `json:"verificationResult"`
}

func toManualVerifyResponse(v *models.Visitor) *ManualVerifyResponse {
	return &ManualVerifyResponse{
		Message:            "Manual verification completed",
		VisitorID:          v.ID,
		VisitorName:        v.FullName,
		VerifiedAt:         v.VerifiedAt,
		VerificationResult: v.VerificationResult,
	}
}
