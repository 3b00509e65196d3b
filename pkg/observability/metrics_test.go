package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollector_Observations(t *testing.T) {
	c := NewCollector("test")

	c.ObserveHTTP(http.MethodGet, "/senkous/{recordId}", http.StatusOK, 10*time.Millisecond)
	c.ObserveStore("get", nil, time.Millisecond)
	c.ObserveStore("get", errors.New("boom"), time.Millisecond)
	c.RecordOutcome("create", "success")

	assert.Equal(t, float64(1), testutil.ToFloat64(c.HTTPRequests.WithLabelValues("GET", "/senkous/{recordId}", "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.StoreOperations.WithLabelValues("get", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.StoreOperations.WithLabelValues("get", "error")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.RecordOperations.WithLabelValues("create", "success")))
}

func TestCollector_IndependentRegistries(t *testing.T) {
	a := NewCollector("test")
	b := NewCollector("test")

	a.RecordOutcome("get", "success")

	assert.Equal(t, float64(0), testutil.ToFloat64(b.RecordOperations.WithLabelValues("get", "success")))
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector("senkou")
	c.RecordOutcome("delete", "success")

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `senkou_record_operations_total{operation="delete",outcome="success"} 1`)
}

func TestGetSampleRate(t *testing.T) {
	assert.Greater(t, getSampleRate("development"), getSampleRate("production"))
}
