package requestlog

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareLogsStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	h := Middleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/visitors/x", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "ERROR", line["level"])
	assert.Equal(t, "/api/visitors/x", line["path"])
	assert.EqualValues(t, 500, line["status"])
}

func TestClientIP(t *testing.T) {
	cases := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "forwarded chain", headers: map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, remote: "10.0.0.1:1234", want: "203.0.113.7"},
		{name: "real ip", headers: map[string]string{"X-Real-IP": " 198.51.100.2 "}, remote: "10.0.0.1:1234", want: "198.51.100.2"},
		{name: "ipv6 peer", remote: "[::1]:8080", want: "::1"},
		{name: "peer without port", remote: "192.0.2.1", want: "192.0.2.1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remote
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tc.want, ClientIP(req))
		})
	}
}
