package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagesmith.dev/engine/internal/application/ports"
)

var _ ports.Metrics = (*Collector)(nil)

func TestCollector_ObserveRequest(t *testing.T) {
	c := NewCollector()

	c.ObserveRequest("save-plugin", "", 10*time.Millisecond)
	c.ObserveRequest("save-plugin", "VALIDATION_ERROR", time.Millisecond)
	c.ObserveRequest("save-plugin", "", time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.RequestsTotal.WithLabelValues("save-plugin", "OK")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.RequestsTotal.WithLabelValues("save-plugin", "VALIDATION_ERROR")))
}

func TestCollector_BroadcastAndDenials(t *testing.T) {
	c := NewCollector()

	c.ObserveBroadcast(3)
	c.ObserveBroadcast(0)
	c.ObservePolicyDenial("toggle-plugin")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.BroadcastsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.PolicyDenialTotal.WithLabelValues("toggle-plugin")))
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector()
	c.ObserveBroadcast(1)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "pagesmith_broadcast_messages_total 1")
}
