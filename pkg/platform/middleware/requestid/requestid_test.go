package requestid

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cheya01/facial-recog-poc-server/pkg/requestcontext"
)

func TestMiddleware(t *testing.T) {
	var seen string
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestcontext.RequestID(r.Context())
	}))

	t.Run("keeps inbound id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(Header, "from-gateway")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, "from-gateway", seen)
		assert.Equal(t, "from-gateway", rec.Header().Get(Header))
	})

	t.Run("generates id when absent", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.NotEmpty(t, seen)
		assert.Equal(t, seen, rec.Header().Get(Header))
	})
}
