package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_RecordInstruction(t *testing.T) {
	m := NewMetrics("test", prometheus.NewRegistry())

	m.RecordInstruction("scoring", "ok", 0.001)
	m.RecordInstruction("scoring", "ok", 0.002)
	m.RecordInstruction("scoring", "MintExists", 0.001)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.InstructionsExecuted.WithLabelValues("scoring", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.InstructionsExecuted.WithLabelValues("scoring", "MintExists")))
}

func TestMetrics_RecordTransaction(t *testing.T) {
	m := NewMetrics("test", prometheus.NewRegistry())

	m.RecordTransaction("ok", 7, 1700000000)
	m.RecordTransaction("failed", 8, 1700000001)

	assert.Equal(t, 8.0, testutil.ToFloat64(m.CurrentSlot))
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(m.LastCommittedTransaction))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TransactionsSubmitted.WithLabelValues("failed")))
}

func TestMetrics_RecordDBQuery(t *testing.T) {
	m := NewMetrics("test", prometheus.NewRegistry())

	m.RecordDBQuery("postgres", "update", 0.01, nil)
	m.RecordDBQuery("postgres", "update", 0.01, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.DBQueryErrors.WithLabelValues("postgres", "update")))
}

func TestHandler(t *testing.T) {
	RecordRPCLatency("getSlot", 0.001)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "solana_scoring_rpc_call_latency_seconds"))
}
