package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.CartMutation("add")
	m.CartMutation("add")
	m.OrderCreated("USD")
	m.StatusTransition("pending", "confirmed")
	m.OutboxResult(nil)
	m.OutboxResult(errors.New("broker down"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CartMutations.WithLabelValues("add")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OrdersCreated.WithLabelValues("USD")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StatusTransitions.WithLabelValues("pending", "confirmed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OutboxPublished))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OutboxFailures))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.CartMutation("add")
		m.ObserveRequest(http.MethodGet, "/health", http.StatusOK, 1)
		m.OutboxResult(nil)
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveRequest(http.MethodGet, "/health", http.StatusOK, 3)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "storefront_http_requests_total")
}
