package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCountersIncrement(t *testing.T) {
	before := testutil.ToFloat64(ScoreTotal.WithLabelValues("created"))
	ScoreTotal.WithLabelValues("created").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(ScoreTotal.WithLabelValues("created")))

	ReliabilityAlpha.WithLabelValues("Ti").Set(0.81)
	assert.Equal(t, 0.81, testutil.ToFloat64(ReliabilityAlpha.WithLabelValues("Ti")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	ValidityTotal.WithLabelValues("valid").Inc()
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "prism_validity_total"))
}
