package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/mantlenetworkio/op-multiblock/op-service/eth"
)

func TestMetrics(t *testing.T) {
	m := newMetrics("", prometheus.NewRegistry())
	require.Equal(t, "op_multiblock_default", m.ns)

	m.RecordCacheHit(TableHeaders)
	m.RecordCacheHit(TableHeaders)
	m.RecordCacheMiss(TablePayloads)
	m.RecordOracleRequest("l2-header")
	m.RecordHint("l2-block-header")
	m.RecordCommit()
	m.RecordStep("prepared-attributes")
	m.RecordL2Ref("safe_head", eth.L2BlockRef{Number: 9})

	require.Equal(t, 2.0, testutil.ToFloat64(m.cacheHits.WithLabelValues(TableHeaders)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.cacheMisses.WithLabelValues(TablePayloads)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.oracleRequests.WithLabelValues("l2-header")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.hints.WithLabelValues("l2-block-header")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.commits))
	require.Equal(t, 1.0, testutil.ToFloat64(m.steps.WithLabelValues("prepared-attributes")))
	require.Equal(t, 9.0, testutil.ToFloat64(m.RefsNumber.WithLabelValues("l2", "safe_head")))
	require.NotEmpty(t, m.Document())
}

func TestNoopMetrics(t *testing.T) {
	NoopMetrics.RecordCacheHit(TableHeaders)
	NoopMetrics.RecordL2Ref("safe_head", eth.L2BlockRef{})
	NoopMetrics.RecordStep("step-failed")
}
