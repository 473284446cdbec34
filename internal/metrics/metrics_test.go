package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ACC-Eagle-Force/nlp-preprocessing/pkg/pipeline"
)

var _ pipeline.Observer = (*Metrics)(nil)

func TestNew_Success(t *testing.T) {
	m, err := New(true)
	require.NoError(t, err)
	assert.NotNil(t, m.Registry())
}

func TestNewWithRegistry_DuplicateRegistration(t *testing.T) {
	registry := prometheus.NewRegistry()
	_, err := NewWithRegistry(registry, false)
	require.NoError(t, err)

	_, err = NewWithRegistry(registry, false)
	assert.Error(t, err)
}

func TestObserveParse(t *testing.T) {
	m, err := New(false)
	require.NoError(t, err)

	m.ObserveParse("deadline-dateparser", 2*time.Millisecond, false)
	m.ObserveParse("deadline-dateparser", 3*time.Millisecond, false)
	m.ObserveParse("none", time.Millisecond, true)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.parseTotal.WithLabelValues("deadline-dateparser")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.parseTotal.WithLabelValues("none")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.parseErrors))
	assert.Equal(t, 1, testutil.CollectAndCount(m.parseDuration))
}

func TestObserveStageFailure(t *testing.T) {
	m, err := New(false)
	require.NoError(t, err)

	m.ObserveStageFailure("courses")
	m.ObserveStageFailure("courses")
	m.ObserveStageFailure("resolve")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.stageFailures.WithLabelValues("courses")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.stageFailures.WithLabelValues("resolve")))
}

func TestObserveRequest(t *testing.T) {
	m, err := New(false)
	require.NoError(t, err)

	m.ObserveRequest(http.MethodPost, "/parse", http.StatusOK)
	m.ObserveRequest(http.MethodGet, "", http.StatusNotFound)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("POST", "/parse", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "unmatched", "404")))
}

func TestHandler(t *testing.T) {
	m, err := New(false)
	require.NoError(t, err)
	m.ObserveParse("explicit-format", time.Millisecond, false)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `acc_parse_total{strategy="explicit-format"} 1`), body)
	assert.Contains(t, body, "acc_parse_duration_seconds_bucket")
}
