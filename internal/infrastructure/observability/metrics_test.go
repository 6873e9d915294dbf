package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveSubmission(OutcomeCorrect, time.Millisecond)
		m.ObserveRetry()
		m.ObserveProgress(10, true)
		m.ObserveBadge("first_steps")
		m.ObserveEvent("badge.awarded", nil)
		m.ObserveHTTP("GET", "/health", 200, time.Millisecond)
		m.TrackInflight()()
	})
}

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics()

	m.ObserveSubmission(OutcomeCorrect, 10*time.Millisecond)
	m.ObserveSubmission(OutcomeCorrect, 10*time.Millisecond)
	m.ObserveSubmission(OutcomeDuplicate, time.Millisecond)
	m.ObserveProgress(35, true)
	m.ObserveProgress(0, false)
	m.ObserveBadge("first_steps")
	m.ObserveEvent("badge.awarded", errors.New("down"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.submissions.WithLabelValues(OutcomeCorrect)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.submissions.WithLabelValues(OutcomeDuplicate)))
	assert.Equal(t, 35.0, testutil.ToFloat64(m.xpAwarded))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.levelUps))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.badgesAwarded.WithLabelValues("first_steps")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.eventsPublished.WithLabelValues("badge.awarded", "error")))
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics()
	m.ObserveHTTP("GET", "/api/simulations", 200, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `phishguard_http_requests_total{method="GET",route="/api/simulations",status="200"} 1`))
}
