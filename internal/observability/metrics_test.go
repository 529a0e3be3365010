package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/dtroode/assoc-server/internal/guard"
)

func TestMetrics_ObserveDecision(t *testing.T) {
	t.Parallel()

	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveDecision("admin", guard.Decision{State: guard.Authorized}, 10*time.Millisecond)
	m.ObserveDecision("admin", guard.Decision{State: guard.Denied, Code: guard.CodeProfileInconsistency}, time.Millisecond)
	m.ObserveDecision("member", guard.Decision{State: guard.Denied, Code: guard.CodeAccountSuspended}, time.Millisecond)
	m.ObserveDecision("member", guard.Decision{State: guard.Denied, Code: guard.CodeSessionRequired}, time.Millisecond)

	assert.Equal(t, 1.0, promtest.ToFloat64(m.GuardDecisionsTotal.WithLabelValues("admin", "authorized", "none")))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.GuardDecisionsTotal.WithLabelValues("admin", "denied", guard.CodeProfileInconsistency)))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.GuardIncidentsTotal.WithLabelValues("admin", guard.CodeProfileInconsistency)))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.GuardIncidentsTotal.WithLabelValues("member", guard.CodeAccountSuspended)))
	assert.Equal(t, 2, promtest.CollectAndCount(m.GuardIncidentsTotal))
	assert.Equal(t, 2, promtest.CollectAndCount(m.GuardDecisionDuration))
}

func TestMetrics_ObserveAuth(t *testing.T) {
	t.Parallel()

	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveAuth("sign_in", nil)
	m.ObserveAuth("sign_in", errors.New("bad password"))
	m.ObserveAuth("sign_in", errors.New("bad password"))

	assert.Equal(t, 1.0, promtest.ToFloat64(m.AuthOperationsTotal.WithLabelValues("sign_in", "success")))
	assert.Equal(t, 2.0, promtest.ToFloat64(m.AuthOperationsTotal.WithLabelValues("sign_in", "failure")))
}

func TestMetrics_HTTPMiddleware(t *testing.T) {
	t.Parallel()

	m := NewMetrics(prometheus.NewRegistry())

	r := chi.NewRouter()
	r.Use(m.HTTPMiddleware)
	r.Get("/users/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	for _, id := range []string{"1", "2"} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/users/"+id, nil))
		assert.Equal(t, http.StatusTeapot, rr.Code)
	}

	assert.Equal(t, 2.0, promtest.ToFloat64(m.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/users/{id}", "418")))
}

func TestMetrics_Handler(t *testing.T) {
	t.Parallel()

	m := NewMetrics(prometheus.NewRegistry())
	m.ObserveAuth("sign_out", nil)

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.Contains(rr.Body.String(), "assoc_auth_operations_total"))
}
