package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveRequestExported(t *testing.T) {
	m := New()
	m.ObserveRequest("/duties", http.MethodPost, "201", 20*time.Millisecond)

	assert.Equal(t, 1, testutil.CollectAndCount(m.RequestLatency))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "parish_http_request_duration_seconds")
}
