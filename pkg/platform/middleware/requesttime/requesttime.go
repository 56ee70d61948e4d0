// Package requesttime provides middleware for request-scoped time.
// Every operation within a single HTTP request uses the same "now", so
// registeredAt, audit timestamps and reference blob keys agree with each other.
package requesttime

import (
	"net/http"
	"time"

	"github.com/cheya01/facial-recog-poc-server/pkg/requestcontext"
)

// Middleware captures the current time at the start of the request
// and stores it in the context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
