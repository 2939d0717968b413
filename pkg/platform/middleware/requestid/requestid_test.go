package requestid

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"zkattest/pkg/requestcontext"
)

func capture(dst *http.Request) http.Handler {
	return http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		*dst = *r
	})
}

func TestRequestID(t *testing.T) {
	t.Run("generates an ID", func(t *testing.T) {
		var seen http.Request
		rec := httptest.NewRecorder()
		Middleware(capture(&seen)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		id := requestcontext.RequestID(seen.Context())
		assert.NotEmpty(t, id)
		assert.Equal(t, id, rec.Header().Get(Header))
	})

	t.Run("keeps a valid incoming ID", func(t *testing.T) {
		const incoming = "5f0c8e7e-8a57-4d3e-9a8e-0d6b0b9f4a11"
		var seen http.Request
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(Header, incoming)
		Middleware(capture(&seen)).ServeHTTP(httptest.NewRecorder(), req)
		assert.Equal(t, incoming, requestcontext.RequestID(seen.Context()))
	})

	t.Run("replaces a junk incoming ID", func(t *testing.T) {
		var seen http.Request
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(Header, "<script>")
		Middleware(capture(&seen)).ServeHTTP(httptest.NewRecorder(), req)
		assert.NotEqual(t, "<script>", requestcontext.RequestID(seen.Context()))
	})
}
