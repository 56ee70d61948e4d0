package models

import (
	"fmt"
	"time"
)

// Visitor is a person scheduled for a site visit, tracked from registration
// through verification.
type Visitor struct {
	ID                 string              `json:"id" bson:"-"`
	FullName           string              `json:"fullName" bson:"fullName"`
	Email              string              `json:"email" bson:"email"`
	Phone              string              `json:"phone" bson:"phone"`
	ScheduledAt        time.Time           `json:"scheduledAt" bson:"scheduledAt"`
	ReferenceImageRef  string              `json:"imageUrl" bson:"imageUrl"`
	RegisteredAt       time.Time           `json:"registeredAt" bson:"registeredAt"`
	VerifiedAt         *time.Time          `json:"verifiedAt,omitempty" bson:"verifiedAt,omitempty"`
	VerificationResult *VerificationResult `json:"verificationResult,omitempty" bson:"verificationResult,omitempty"`
}

// VerificationResult is the adjudication recorded by either the automated or
// the manual path. Match is optional because a manual decision may omit it.
type VerificationResult struct {
	Match            *bool    `json:"match,omitempty" bson:"match,omitempty"`
	Confidence       *float64 `json:"confidence,omitempty" bson:"confidence,omitempty"`
	VerifiedImageRef *string  `json:"verifiedImageUrl,omitempty" bson:"verifiedImageUrl,omitempty"`
	Remarks          string   `json:"remarks" bson:"remarks"`
}

// IsPending reports whether the visitor still awaits an adjudication that
// carries a match decision.
func (v *Visitor) IsPending() bool {
	return v.VerificationResult == nil || v.VerificationResult.Match == nil
}

// Stored remarks.
const (
	RemarksAutomatedPassed = "automated verification passed"
	RemarksManualPassed    = "manual verification passed"
	RemarksManualFailed    = "manual verification failed"
)

// ManualRemark is the operator's verdict on the manual path.
type ManualRemark string

const (
	ManualRemarkFailed   ManualRemark = "failed"
	ManualRemarkVerified ManualRemark = "verified"
)

// ParseManualRemark accepts exactly "failed" or "verified".
func ParseManualRemark(s string) (ManualRemark, error) {
	switch r := ManualRemark(s); r {
	case ManualRemarkFailed, ManualRemarkVerified:
		return r, nil
	default:
		return "", fmt.Errorf("invalid remarks value %q: must be %q or %q", s, ManualRemarkFailed, ManualRemarkVerified)
	}
}

// StoredText maps the remark onto the text persisted with the result.
func (r ManualRemark) StoredText() string {
	if r == ManualRemarkVerified {
		return RemarksManualPassed
	}
	return RemarksManualFailed
}

// Outcome is the result of an automated verification attempt, returned for
// both verdicts so the caller can show the evidence.
type Outcome struct {
	Match            bool
	Confidence       float64
	VisitorID        string
	VisitorName      string
	ReferenceImage   []byte
	CapturedImage    []byte
	VerifiedImageRef *string
}

// Image is an uploaded photo as decoded by the transport.
type Image struct {
	Filename    string
	ContentType string
	Data        []byte
}
