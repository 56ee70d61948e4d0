// Package blob defines the photo storage contract shared by the S3, Cloudinary
// and in-memory backends. A reference returned by Put is opaque to callers; only
// the backend that produced it knows how to resolve it in Get.
package blob

import (
	"context"
	"fmt"

	"github.com/cheya01/facial-recog-poc-server/pkg/platform/sentinel"
)

// ErrBlobNotFound is returned by Get when a reference cannot be decoded or the
// object it points at does not exist.
var ErrBlobNotFound = fmt.Errorf("blob %w", sentinel.ErrNotFound)

// Store puts and gets photos. Put is idempotent by key.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Get(ctx context.Context, ref string) ([]byte, error)
}
