package mongo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/cheya01/facial-recog-poc-server/internal/visitor/models"
)

func TestDocumentRoundTripKeepsObjectID(t *testing.T) {
	oid := primitive.NewObjectID()
	match := true
	doc := document{
		ID: oid,
		Visitor: models.Visitor{
			ID:                "ignored",
			FullName:          "Ada",
			ScheduledAt:       time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC),
			ReferenceImageRef: "https://bucket.s3.eu-west-1.amazonaws.com/1_ada.jpg",
			VerificationResult: &models.VerificationResult{
				Match:   &match,
				Remarks: models.RemarksAutomatedPassed,
			},
		},
	}

	raw, err := bson.Marshal(doc)
	require.NoError(t, err)

	var fields bson.M
	require.NoError(t, bson.Unmarshal(raw, &fields))
	assert.Equal(t, oid, fields["_id"])
	assert.Equal(t, "Ada", fields["fullName"])
	assert.NotContains(t, fields, "id")
	assert.NotContains(t, fields, "verifiedAt")

	var decoded document
	require.NoError(t, bson.Unmarshal(raw, &decoded))
	v := decoded.toModel()
	assert.Equal(t, oid.Hex(), v.ID)
	require.NotNil(t, v.VerificationResult)
	assert.True(t, *v.VerificationResult.Match)
}

func TestPendingFilterShape(t *testing.T) {
	from := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	f := pendingFilter(from, to)

	window, ok := f["scheduledAt"].(bson.M)
	require.True(t, ok)
	assert.Equal(t, from, window["$gte"])
	assert.Equal(t, to, window["$lt"])

	or, ok := f["$or"].(bson.A)
	require.True(t, ok)
	assert.Len(t, or, 3)
}
