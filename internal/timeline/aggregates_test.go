package timeline

import (
	"testing"

	"github.com/hydraping/hydraping/internal/endpoint"
	"github.com/hydraping/hydraping/internal/probeadapter"
)

func TestAggregate_PacketLossAndLatencyMean(t *testing.T) {
	ep := endpoint.Endpoint{ApplicableChecks: []endpoint.CheckKind{endpoint.CheckIcmp}}

	b0 := NewBucket(0)
	b0.Results[endpoint.CheckIcmp] = okResult(endpoint.CheckIcmp, 10)
	b1 := NewBucket(1)
	b1.Results[endpoint.CheckIcmp] = failResult(endpoint.CheckIcmp, probeadapter.StatusTimeout)
	b2 := NewBucket(2)
	b2.Results[endpoint.CheckIcmp] = okResult(endpoint.CheckIcmp, 30)

	agg := Aggregate(ep, []SampleBucket{b0, b1, b2})

	if agg.PacketLossPct != 1.0/3.0 {
		t.Fatalf("expected 1/3 packet loss, got %f", agg.PacketLossPct)
	}
	if !agg.HasLatencyMean || agg.LatencyMean != 20 {
		t.Fatalf("expected mean 20ms over successes, got %+v", agg)
	}
	if !agg.HasLatencyLast || agg.LatencyLast != 30 {
		t.Fatalf("expected last latency 30ms, got %+v", agg)
	}
}

func TestAggregate_EmptyWindowHasNoLatency(t *testing.T) {
	ep := endpoint.Endpoint{ApplicableChecks: []endpoint.CheckKind{endpoint.CheckIcmp}}
	agg := Aggregate(ep, nil)
	if agg.HasLatencyLast || agg.HasLatencyMean {
		t.Fatalf("expected no latency data for empty window, got %+v", agg)
	}
}
