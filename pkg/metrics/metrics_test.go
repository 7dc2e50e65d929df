package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAndExpose(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New("test")
	require.NoError(t, m.Register(reg))

	m.RecordOrderCreated("BUY")
	m.RecordOrderCreated("BUY")
	m.RecordOrderRejected("kyc_required")
	m.RecordHTTPRequest("POST", "/api/v1/orders", "201", 15*time.Millisecond)

	srv := NewHTTPServer(0, "", reg)
	w := httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `exchange_test_orders_created_total{type="BUY"} 2`)
	assert.Contains(t, body, `exchange_test_order_rejections_total{reason="kyc_required"} 1`)
	assert.Contains(t, body, `exchange_test_http_requests_total{method="POST",route="/api/v1/orders",status="201"} 1`)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordOrderCreated("SELL")
		m.RecordPriceFeed("error")
		m.RecordOutbox("sent")
	})
}
