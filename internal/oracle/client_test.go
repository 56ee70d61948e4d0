package oracle

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOracleServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL + "/")
	require.NoError(t, err)
	return c
}

func TestCompare(t *testing.T) {
	ctx := context.Background()

	t.Run("sends both images and decodes the verdict", func(t *testing.T) {
		var gotRef, gotCap []byte
		c := newOracleServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/compare", r.URL.Path)
			require.NoError(t, r.ParseMultipartForm(1<<20))

			f1, h1, err := r.FormFile("image1")
			require.NoError(t, err)
			gotRef, _ = io.ReadAll(f1)
			assert.Equal(t, "previsit.jpg", h1.Filename)

			f2, h2, err := r.FormFile("image2")
			require.NoError(t, err)
			gotCap, _ = io.ReadAll(f2)
			assert.Equal(t, "facecapture.jpg", h2.Filename)

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"match": true, "confidence": 0.97}`))
		})

		res, err := c.Compare(ctx, []byte("ref"), []byte("cap"))
		require.NoError(t, err)
		assert.True(t, res.Match)
		assert.InDelta(t, 0.97, res.Confidence, 1e-9)
		assert.Equal(t, []byte("ref"), gotRef)
		assert.Equal(t, []byte("cap"), gotCap)
	})

	t.Run("no match is a verdict, not an error", func(t *testing.T) {
		c := newOracleServer(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"match": false, "confidence": 0.2}`))
		})
		res, err := c.Compare(ctx, []byte("a"), []byte("b"))
		require.NoError(t, err)
		assert.False(t, res.Match)
		assert.InDelta(t, 0.2, res.Confidence, 1e-9)
	})

	t.Run("error status is a bad response", func(t *testing.T) {
		c := newOracleServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"error": "no face found"}`))
		})
		_, err := c.Compare(ctx, []byte("a"), []byte("b"))
		require.Error(t, err)
		assert.True(t, IsBadResponse(err))

		var oe *Error
		require.ErrorAs(t, err, &oe)
		assert.Equal(t, http.StatusUnprocessableEntity, oe.StatusCode)
	})

	t.Run("garbage body is a bad response", func(t *testing.T) {
		c := newOracleServer(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html>`))
		})
		_, err := c.Compare(ctx, []byte("a"), []byte("b"))
		assert.True(t, IsBadResponse(err))
	})

	t.Run("missing match field is a bad response", func(t *testing.T) {
		c := newOracleServer(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"confidence": 0.5}`))
		})
		_, err := c.Compare(ctx, []byte("a"), []byte("b"))
		assert.True(t, IsBadResponse(err))
	})

	t.Run("deadline exceeded is unavailable", func(t *testing.T) {
		c := newOracleServer(t, func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		})
		tctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()
		_, err := c.Compare(tctx, []byte("a"), []byte("b"))
		require.Error(t, err)
		assert.True(t, IsUnavailable(err))
	})

	t.Run("unreachable host is unavailable", func(t *testing.T) {
		c, err := New("http://127.0.0.1:1")
		require.NoError(t, err)
		_, err = c.Compare(ctx, []byte("a"), []byte("b"))
		assert.True(t, IsUnavailable(err))
	})
}

func TestNewRequiresURL(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)
}
