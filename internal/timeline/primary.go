package timeline

import (
	"github.com/hydraping/hydraping/internal/endpoint"
	"github.com/hydraping/hydraping/internal/probeadapter"
)

// PrimaryPick is the single check_kind whose result represents an
// endpoint in a given bucket.
type PrimaryPick struct {
	Result probeadapter.CheckResult
	Empty  bool
}

// SelectPrimary applies the four-step rule: override, highest success,
// lowest-priority failure that ran, else empty.
func SelectPrimary(ep endpoint.Endpoint, bucket SampleBucket) PrimaryPick {
	if ep.PrimaryCheckOverride != nil {
		if r, ok := bucket.Results[*ep.PrimaryCheckOverride]; ok {
			return PrimaryPick{Result: r}
		}
	}

	var bestSuccess *probeadapter.CheckResult
	for kind, r := range bucket.Results {
		if r.Cascaded {
			continue
		}
		if r.Status != probeadapter.StatusOk {
			continue
		}
		if bestSuccess == nil || kind.Priority() > bestSuccess.CheckKind.Priority() {
			rCopy := r
			bestSuccess = &rCopy
		}
	}
	if bestSuccess != nil {
		return PrimaryPick{Result: *bestSuccess}
	}

	// Cascaded results are synthetic stand-ins for a layer that never
	// actually ran; they're excluded so the real failure that caused
	// the cascade (Dns) is what gets picked as primary.
	var worstFailure *probeadapter.CheckResult
	for kind, r := range bucket.Results {
		if r.Cascaded {
			continue
		}
		if r.Status == probeadapter.StatusOk {
			continue
		}
		if worstFailure == nil || kind.Priority() < worstFailure.CheckKind.Priority() {
			rCopy := r
			worstFailure = &rCopy
		}
	}
	if worstFailure != nil {
		return PrimaryPick{Result: *worstFailure}
	}

	return PrimaryPick{Empty: true}
}
