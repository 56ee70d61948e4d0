// Package requestid propagates a correlation ID through the request context.
package requestid

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/cheya01/facial-recog-poc-server/pkg/requestcontext"
)

// Header is echoed back on every response.
const Header = "X-Request-ID"

// Middleware reuses an inbound X-Request-ID or generates one.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(Header)
		if reqID == "" || len(reqID) > 128 {
			reqID = uuid.NewString()
		}
		w.Header().Set(Header, reqID)
		ctx := requestcontext.WithRequestID(r.Context(), reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
