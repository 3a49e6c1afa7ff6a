package timeline

import (
	"fmt"

	"github.com/hydraping/hydraping/internal/endpoint"
	"github.com/hydraping/hydraping/internal/probeadapter"
)

// Problem is one unsuppressed failure surfaced in the dashboard's
// problems block.
type Problem struct {
	CheckKind endpoint.CheckKind
	Message   string
}

// Problems computes the suppression-filtered problem list for the
// most recent non-empty bucket of one endpoint. DNS-cascade results
// are synthetic stand-ins, never real probe evidence, and are excluded
// outright so the DNS failure that caused them is the only entry
// reported.
func Problems(bucket SampleBucket) []Problem {
	type layer struct {
		kind   endpoint.CheckKind
		result probeadapter.CheckResult
	}

	var successes, failures []layer
	for kind, r := range bucket.Results {
		if r.Cascaded {
			continue
		}
		if r.Status == probeadapter.StatusCapabilityDenied {
			continue // surfaced once, globally, not per endpoint
		}
		if r.Status == probeadapter.StatusOk {
			successes = append(successes, layer{kind, r})
		} else {
			failures = append(failures, layer{kind, r})
		}
	}

	var problems []Problem
	for _, f := range failures {
		suppressed := false
		for _, s := range successes {
			if s.kind.Priority() > f.kind.Priority() {
				suppressed = true
				break
			}
		}
		if suppressed {
			continue
		}
		problems = append(problems, Problem{
			CheckKind: f.kind,
			Message:   canonicalMessage(f.kind, f.result),
		})
	}
	return problems
}

func canonicalMessage(kind endpoint.CheckKind, r probeadapter.CheckResult) string {
	switch r.Status {
	case probeadapter.StatusTimeout:
		return fmt.Sprintf("%s timeout", kind)
	case probeadapter.StatusRefused:
		return fmt.Sprintf("%s connection refused", kind)
	case probeadapter.StatusUnreachable:
		if r.Detail != "" {
			return fmt.Sprintf("%s unreachable (%s)", kind, r.Detail)
		}
		return fmt.Sprintf("%s unreachable", kind)
	case probeadapter.StatusNameError:
		return fmt.Sprintf("DNS %s", r.Detail)
	case probeadapter.StatusProtocolError:
		if kind == endpoint.CheckHttp && r.ProtocolCode != 0 {
			return fmt.Sprintf("HTTP %d", r.ProtocolCode)
		}
		if r.Detail != "" {
			return fmt.Sprintf("%s error: %s", kind, r.Detail)
		}
		return fmt.Sprintf("%s protocol error", kind)
	case probeadapter.StatusCanceled:
		return fmt.Sprintf("%s canceled", kind)
	default:
		return fmt.Sprintf("%s failed", kind)
	}
}

// MostRecentNonEmpty returns the latest bucket in buckets that has at
// least one result, and whether one was found.
func MostRecentNonEmpty(buckets []SampleBucket) (SampleBucket, bool) {
	for i := len(buckets) - 1; i >= 0; i-- {
		if !buckets[i].Empty() {
			return buckets[i], true
		}
	}
	return SampleBucket{}, false
}
