package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Edit(t *testing.T) {
	m := New()

	m.Edit("add_child", OutcomeOK, "")
	m.Edit("add_child", OutcomeRejected, "sibling-collision")
	m.Edit("relabel", OutcomeRejected, "sibling-collision")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Edits.WithLabelValues("add_child", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Edits.WithLabelValues("add_child", OutcomeRejected)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Rejections.WithLabelValues("sibling-collision")))
}

func TestMetrics_Submission(t *testing.T) {
	m := New()

	m.Submission(OutcomeError, 20*time.Millisecond)
	m.Submission(OutcomeOK, 10*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Submissions.WithLabelValues(OutcomeError)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.Latency))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.Edit("relabel", OutcomeOK, "")
	m.Submission(OutcomeOK, time.Second)
	m.SessionStarted()
	m.SessionEnded()
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.SessionStarted()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `arbor_sessions_total{event="started"} 1`)
}
