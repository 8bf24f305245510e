package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorsAreIndependent(t *testing.T) {
	a := NewCollector()
	b := NewCollector()

	a.RecordHTTPRequest("GET", "/health", 200, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(a.httpRequests.WithLabelValues("GET", "/health", "200")))
	assert.Equal(t, 0, testutil.CollectAndCount(b.httpRequests))
}

func TestRecordPipelineCounters(t *testing.T) {
	c := NewCollector()

	c.RecordInterpretation("scale", nil)
	c.RecordInterpretation("scale", nil)
	c.RecordInterpretation("", errors.New("boom"))
	c.RecordTransform("hollow", errors.New("not implemented"))
	c.RecordDispatch("octoprint", nil)
	c.RecordDispatch("", errors.New("offline"))

	assert.Equal(t, 2.0, testutil.ToFloat64(c.interpretations.WithLabelValues("scale", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.interpretations.WithLabelValues("none", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.transforms.WithLabelValues("hollow", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.dispatches.WithLabelValues("octoprint", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.dispatches.WithLabelValues("unknown", "error")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	c := NewCollector()
	c.RecordDispatch("download", nil)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `modelforge_dispatches_total{method="download",status="ok"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
