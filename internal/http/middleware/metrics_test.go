package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_CountsByRouteAndUnmatched(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Metrics())
	r.GET("/hijacks/:key/deliveries", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	okBefore := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/hijacks/:key/deliveries", "200"))
	missBefore := testutil.ToFloat64(httpReqs.WithLabelValues("GET", unmatchedPath, "404"))

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/hijacks/a/deliveries", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/hijacks/b/deliveries", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/random/123", nil))

	if got := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/hijacks/:key/deliveries", "200")); got != okBefore+2 {
		t.Fatalf("route counter = %v; want %v", got, okBefore+2)
	}
	if got := testutil.ToFloat64(httpReqs.WithLabelValues("GET", unmatchedPath, "404")); got != missBefore+1 {
		t.Fatalf("unmatched counter = %v; want %v", got, missBefore+1)
	}
	if got := testutil.ToFloat64(httpInflight); got != 0 {
		t.Fatalf("inflight = %v after requests; want 0", got)
	}
	if n := testutil.CollectAndCount(httpLat); n == 0 {
		t.Fatalf("latency histogram has no series")
	}
}
