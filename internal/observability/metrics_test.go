package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/api/v1/tickets/:id", "GET", 200, 5*time.Millisecond)
	m.RecordRequest("/api/v1/tickets/:id", "GET", 200, 7*time.Millisecond)
	m.RecordError("/api/v1/tickets/:id/confirm", "POST", "ALREADY_CONFIRMED")
	m.RecordTransition("confirm_by_customer")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.requests.WithLabelValues("/api/v1/tickets/:id", "GET", "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.errors.WithLabelValues("/api/v1/tickets/:id/confirm", "POST", "ALREADY_CONFIRMED")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.transitions.WithLabelValues("confirm_by_customer")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRequest("/", "GET", 200, time.Millisecond)
		m.RecordError("/", "GET", "X")
		m.RecordTransition("x")
	})
}
