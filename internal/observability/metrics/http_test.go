package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPMetricsMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	m := NewHTTPMetricsWith(reg)

	r := gin.New()
	r.Use(m.GinMiddleware())
	r.GET("/api/invoices/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/invoices/abc", nil))
	}

	assert.Equal(t, float64(2), testutil.ToFloat64(m.requests.WithLabelValues("GET", "/api/invoices/:id", "404")))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.inFlight))
}

func TestHTTPMetricsObserveRecordsLatency(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetricsWith(reg)

	m.Observe(http.MethodPost, "/api/invoices/:id/sign", http.StatusOK, 250*time.Millisecond)
	m.Observe(http.MethodPost, "/api/invoices/:id/sign", http.StatusConflict, 50*time.Millisecond)

	mfs, err := reg.Gather()
	require.NoError(t, err)

	hist := findHistogram(mfs, "statement_http_request_duration_seconds", "route", "/api/invoices/:id/sign")
	require.NotNil(t, hist)
	assert.Equal(t, uint64(2), hist.GetSampleCount())
	assert.InDelta(t, 0.3, hist.GetSampleSum(), 0.0001)
}

func findHistogram(mfs []*dto.MetricFamily, name, label, value string) *dto.Histogram {
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			for _, pair := range metric.GetLabel() {
				if pair.GetName() == label && pair.GetValue() == value {
					return metric.GetHistogram()
				}
			}
		}
	}
	return nil
}
