package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	httpctx "github.com/dtroode/assoc-server/internal/api/http/context"
	"github.com/dtroode/assoc-server/internal/logger"
	"github.com/dtroode/assoc-server/internal/testutil"
)

func TestRequestID(t *testing.T) {
	t.Parallel()

	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = httpctx.RequestIDFromContext(r.Context())
	}))

	t.Run("generated", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.NotEmpty(t, seen)
		assert.Equal(t, seen, rr.Header().Get(RequestIDHeader))
	})

	t.Run("from client", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set(RequestIDHeader, "req-42")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, r)

		assert.Equal(t, "req-42", seen)
		assert.Equal(t, "req-42", rr.Header().Get(RequestIDHeader))
	})
}

func TestLogging_Handle(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := NewLogging(logger.NewWithWriter(&buf, 0))

	h := RequestID(l.Handle(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})))

	r := httptest.NewRequest(http.MethodPost, "/signin", nil)
	r.Header.Set(RequestIDHeader, "req-7")
	h.ServeHTTP(httptest.NewRecorder(), r)

	out := buf.String()
	assert.Contains(t, out, "HTTP request completed")
	assert.Contains(t, out, "status=418")
	assert.Contains(t, out, "path=/signin")
	assert.Contains(t, out, "request_id=req-7")
}

func TestRecovery_Handle(t *testing.T) {
	t.Parallel()

	h := NewRecovery(testutil.MakeNoopLogger()).Handle(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	assert.NotPanics(t, func() {
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	})
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rr.Body.String())
}
