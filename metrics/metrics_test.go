package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestObserveOperation(t *testing.T) {
	assert := require.New(t)

	before := testutil.ToFloat64(OperationsTotal.WithLabelValues("run_indexer", "succeeded"))
	ObserveOperation("run_indexer", "succeeded", time.Now())
	after := testutil.ToFloat64(OperationsTotal.WithLabelValues("run_indexer", "succeeded"))

	assert.Equal(before+1, after)
}

func TestMiddlewareAndHandler(t *testing.T) {
	assert := require.New(t)
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Middleware())
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	router.GET("/metrics", Handler())

	pingBefore := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/ping", "200"))
	unknownBefore := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "unknown", "404"))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/does-not-exist", nil))
	assert.Equal(http.StatusNotFound, w.Code)

	assert.Equal(pingBefore+1, testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/ping", "200")))
	assert.Equal(unknownBefore+1, testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "unknown", "404")))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(http.StatusOK, w.Code)
	assert.True(strings.Contains(w.Body.String(), "blobreindex_http_requests_total"))
}
