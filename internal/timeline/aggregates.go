package timeline

import (
	"github.com/hydraping/hydraping/internal/endpoint"
	"github.com/hydraping/hydraping/internal/probeadapter"
)

// Aggregates summarizes a window of buckets for one endpoint.
type Aggregates struct {
	PacketLossPct  float64
	LatencyLast    float64
	HasLatencyLast bool
	LatencyMean    float64
	HasLatencyMean bool
}

// Aggregate computes packet loss and latency stats over the primary
// pick of each bucket in the window.
func Aggregate(ep endpoint.Endpoint, buckets []SampleBucket) Aggregates {
	var agg Aggregates
	if len(buckets) == 0 {
		return agg
	}

	var failures int
	var sum float64
	var count int

	for _, b := range buckets {
		pick := SelectPrimary(ep, b)
		if pick.Empty {
			continue
		}
		if pick.Result.Status != probeadapter.StatusOk {
			failures++
			continue
		}
		sum += pick.Result.LatencyMS
		count++
	}

	agg.PacketLossPct = float64(failures) / float64(len(buckets))
	if count > 0 {
		agg.LatencyMean = sum / float64(count)
		agg.HasLatencyMean = true
	}

	if latest, ok := MostRecentNonEmpty(buckets); ok {
		pick := SelectPrimary(ep, latest)
		if !pick.Empty && pick.Result.Status == probeadapter.StatusOk {
			agg.LatencyLast = pick.Result.LatencyMS
			agg.HasLatencyLast = true
		}
	}

	return agg
}
