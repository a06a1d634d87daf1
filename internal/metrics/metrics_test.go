package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()

	m.ObserveRequest("GET /api/items", http.MethodGet, 200, 10*time.Millisecond)
	m.ObserveRequest("GET /api/items", http.MethodGet, 200, 20*time.Millisecond)
	m.ObserveRequest("", http.MethodGet, 404, time.Millisecond)
	m.LedgerOp("move", nil)
	m.LedgerOp("move", errors.New("insufficient"))
	m.SearchSync("upsert", nil)
	m.SearchQuery("text")
	m.EventDropped()
	m.ClientConnected()
	m.ClientConnected()
	m.ClientDisconnected()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("GET /api/items", "GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("unmatched", "GET", "404")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ledgerOps.WithLabelValues("move", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ledgerOps.WithLabelValues("move", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.searchSync.WithLabelValues("upsert", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.searchQueries.WithLabelValues("text")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.eventsDropped))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.websocketConns))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRequest("x", "GET", 200, time.Second)
		m.LedgerOp("assign", nil)
		m.SearchSync("remove", nil)
		m.SearchQuery("semantic")
		m.EventDropped()
		m.ClientConnected()
		m.ClientDisconnected()
	})
}

func TestHandler(t *testing.T) {
	m := New()
	m.LedgerOp("assign", nil)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `hisa_ledger_operations_total{kind="assign",outcome="ok"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
