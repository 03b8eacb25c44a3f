package metrics

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mantlenetworkio/op-multiblock/op-service/eth"
)

type RefMetricer interface {
	RecordL1Ref(name string, ref eth.L1BlockRef)
	RecordL2Ref(name string, ref eth.L2BlockRef)
}

// RefMetrics exposes named block references, labelled by layer ("l1", "l2" or "l1_origin")
// and by reference name. Embed it in a service metrics type.
type RefMetrics struct {
	RefsNumber *prometheus.GaugeVec
	RefsTime   *prometheus.GaugeVec
	RefsHash   *prometheus.GaugeVec
	RefsSeqNr  *prometheus.GaugeVec
}

var _ RefMetricer = (*RefMetrics)(nil)

func MakeRefMetrics(ns string, factory Factory) RefMetrics {
	gauge := func(name, help string, labels ...string) *prometheus.GaugeVec {
		return factory.NewGaugeVec(prometheus.GaugeOpts{Namespace: ns, Name: name, Help: help}, labels)
	}
	return RefMetrics{
		RefsNumber: gauge("refs_number", "Block number of each tracked block reference", "layer", "type"),
		RefsTime:   gauge("refs_time", "Timestamp of each tracked block reference", "layer", "type"),
		RefsHash:   gauge("refs_hash", "Leading 8 bytes of the hash of each tracked block reference", "layer", "type"),
		RefsSeqNr:  gauge("refs_seqnr", "Sequence number within the epoch of each tracked L2 reference", "type"),
	}
}

func (m *RefMetrics) set(layer, name string, id eth.BlockID, timestamp uint64) {
	m.RefsNumber.WithLabelValues(layer, name).Set(float64(id.Number))
	m.RefsHash.WithLabelValues(layer, name).Set(hashGauge(id.Hash))
	if timestamp > 0 {
		m.RefsTime.WithLabelValues(layer, name).Set(float64(timestamp))
	}
}

func (m *RefMetrics) RecordL1Ref(name string, ref eth.L1BlockRef) {
	m.set("l1", name, ref.ID(), ref.Time)
}

func (m *RefMetrics) RecordL2Ref(name string, ref eth.L2BlockRef) {
	m.set("l2", name, ref.ID(), ref.Time)
	m.set("l1_origin", name, ref.L1Origin, 0)
	m.RefsSeqNr.WithLabelValues(name).Set(float64(ref.SequenceNumber))
}

// hashGauge maps a hash onto a float, so that a reorg shows up as a jump.
func hashGauge(h common.Hash) float64 {
	return float64(binary.LittleEndian.Uint64(h[:8]))
}

type NoopRefMetrics struct{}

func (*NoopRefMetrics) RecordL1Ref(string, eth.L1BlockRef) {}
func (*NoopRefMetrics) RecordL2Ref(string, eth.L2BlockRef) {}
