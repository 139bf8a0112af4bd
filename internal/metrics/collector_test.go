package metrics

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

var collectorNamespaceSeq uint64

func nextTestNamespace() string {
	seq := atomic.AddUint64(&collectorNamespaceSeq, 1)
	return fmt.Sprintf("test_%d", seq)
}

func TestNewCollector(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	assert.NotNil(t, collector)
	assert.NotNil(t, collector.httpRequestsTotal)
	assert.NotNil(t, collector.turnsTotal)
	assert.NotNil(t, collector.refinementIterations)
	assert.NotNil(t, collector.llmRequestsTotal)
	assert.NotNil(t, collector.sessionUpdateFailures)
}

func TestCollector_RecordTurn(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordTurn("answered", 2*time.Second, 1, 6)
	collector.RecordTurn("fallback", 5*time.Second, 3, 2)

	count := testutil.CollectAndCount(collector.turnsTotal)
	assert.Equal(t, 2, count)
}

func TestCollector_RecordHTTPRequest(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordHTTPRequest("POST", "/v1/chat", 200, 100*time.Millisecond)
	collector.RecordHTTPRequest("POST", "/v1/chat", 400, 10*time.Millisecond)

	count := testutil.CollectAndCount(collector.httpRequestsTotal)
	assert.Equal(t, 2, count)
}

func TestCollector_RecordLLMRequest(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordLLMRequest("openai", "planner", "ok", 500*time.Millisecond)
	collector.RecordLLMRequest("openai", "evaluator", "error", time.Second)

	count := testutil.CollectAndCount(collector.llmRequestsTotal)
	assert.Equal(t, 2, count)
}

func TestCollector_RecordSessionUpdateFailure(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordSessionUpdateFailure()
	collector.RecordSessionUpdateFailure()

	value := testutil.ToFloat64(collector.sessionUpdateFailures)
	assert.Equal(t, 2.0, value)
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, "2xx", statusCode(204))
	assert.Equal(t, "3xx", statusCode(301))
	assert.Equal(t, "4xx", statusCode(422))
	assert.Equal(t, "5xx", statusCode(503))
	assert.Equal(t, "unknown", statusCode(99))
}
