package timeline

import (
	"testing"
	"time"

	"github.com/hydraping/hydraping/internal/endpoint"
	"github.com/hydraping/hydraping/internal/probeadapter"
)

func okResult(kind endpoint.CheckKind, latencyMS float64) probeadapter.CheckResult {
	return probeadapter.CheckResult{
		CheckKind:  kind,
		StartedAt:  time.Now(),
		LatencyMS:  latencyMS,
		HasLatency: true,
		Status:     probeadapter.StatusOk,
	}
}

func failResult(kind endpoint.CheckKind, status probeadapter.Status) probeadapter.CheckResult {
	return probeadapter.CheckResult{
		CheckKind: kind,
		StartedAt: time.Now(),
		Status:    status,
	}
}

func TestSelectPrimary_HighestPrioritySuccessWins(t *testing.T) {
	ep := endpoint.Endpoint{ApplicableChecks: []endpoint.CheckKind{endpoint.CheckDns, endpoint.CheckIcmp, endpoint.CheckTcp, endpoint.CheckHttp}}
	bucket := NewBucket(0)
	bucket.Results[endpoint.CheckIcmp] = failResult(endpoint.CheckIcmp, probeadapter.StatusUnreachable)
	bucket.Results[endpoint.CheckDns] = okResult(endpoint.CheckDns, 5)
	bucket.Results[endpoint.CheckTcp] = okResult(endpoint.CheckTcp, 20)
	bucket.Results[endpoint.CheckHttp] = okResult(endpoint.CheckHttp, 120)

	pick := SelectPrimary(ep, bucket)
	if pick.Empty || pick.Result.CheckKind != endpoint.CheckHttp {
		t.Fatalf("expected Http primary pick, got %+v", pick)
	}
}

func TestSelectPrimary_AllFailedPicksLowestPriorityFailure(t *testing.T) {
	ep := endpoint.Endpoint{ApplicableChecks: []endpoint.CheckKind{endpoint.CheckIcmp, endpoint.CheckTcp}}
	bucket := NewBucket(0)
	bucket.Results[endpoint.CheckIcmp] = failResult(endpoint.CheckIcmp, probeadapter.StatusUnreachable)
	bucket.Results[endpoint.CheckTcp] = failResult(endpoint.CheckTcp, probeadapter.StatusTimeout)

	pick := SelectPrimary(ep, bucket)
	if pick.Empty || pick.Result.CheckKind != endpoint.CheckIcmp {
		t.Fatalf("expected Icmp (lowest priority) as primary failure, got %+v", pick)
	}
}

func TestSelectPrimary_OverrideWinsEvenWithHigherLayerSuccess(t *testing.T) {
	tcp := endpoint.CheckTcp
	ep := endpoint.Endpoint{
		ApplicableChecks:     []endpoint.CheckKind{endpoint.CheckDns, endpoint.CheckIcmp, endpoint.CheckTcp},
		PrimaryCheckOverride: &tcp,
	}
	bucket := NewBucket(0)
	bucket.Results[endpoint.CheckIcmp] = failResult(endpoint.CheckIcmp, probeadapter.StatusUnreachable)
	bucket.Results[endpoint.CheckDns] = okResult(endpoint.CheckDns, 5)
	bucket.Results[endpoint.CheckTcp] = okResult(endpoint.CheckTcp, 30)

	pick := SelectPrimary(ep, bucket)
	if pick.Empty || pick.Result.CheckKind != endpoint.CheckTcp || pick.Result.LatencyMS != 30 {
		t.Fatalf("expected overridden Tcp pick at 30ms, got %+v", pick)
	}
}

func TestSelectPrimary_EmptyBucketIsEmptyPick(t *testing.T) {
	ep := endpoint.Endpoint{ApplicableChecks: []endpoint.CheckKind{endpoint.CheckIcmp}}
	pick := SelectPrimary(ep, NewBucket(0))
	if !pick.Empty {
		t.Fatalf("expected empty pick, got %+v", pick)
	}
}

func TestProblems_HigherLayerSuccessSuppressesLowerLayerFailure(t *testing.T) {
	bucket := NewBucket(0)
	bucket.Results[endpoint.CheckIcmp] = failResult(endpoint.CheckIcmp, probeadapter.StatusUnreachable)
	bucket.Results[endpoint.CheckDns] = okResult(endpoint.CheckDns, 5)
	bucket.Results[endpoint.CheckTcp] = okResult(endpoint.CheckTcp, 20)
	bucket.Results[endpoint.CheckHttp] = okResult(endpoint.CheckHttp, 120)

	problems := Problems(bucket)
	if len(problems) != 0 {
		t.Fatalf("expected no problems (Icmp suppressed by Http success), got %+v", problems)
	}
}

func TestProblems_HTTPFailureNotSuppressedWhenItIsTheTopLayer(t *testing.T) {
	bucket := NewBucket(0)
	bucket.Results[endpoint.CheckDns] = okResult(endpoint.CheckDns, 5)
	bucket.Results[endpoint.CheckIcmp] = okResult(endpoint.CheckIcmp, 10)
	bucket.Results[endpoint.CheckTcp] = okResult(endpoint.CheckTcp, 15)
	r := failResult(endpoint.CheckHttp, probeadapter.StatusProtocolError)
	r.ProtocolCode = 503
	bucket.Results[endpoint.CheckHttp] = r

	problems := Problems(bucket)
	if len(problems) != 1 || problems[0].CheckKind != endpoint.CheckHttp {
		t.Fatalf("expected one Http problem, got %+v", problems)
	}
	if problems[0].Message != "HTTP 503" {
		t.Fatalf("unexpected message: %s", problems[0].Message)
	}
}

func TestSelectPrimary_DNSCascadeIsSkippedInFavorOfTheRealDNSFailure(t *testing.T) {
	ep := endpoint.Endpoint{ApplicableChecks: []endpoint.CheckKind{endpoint.CheckDns, endpoint.CheckIcmp, endpoint.CheckTcp}}
	bucket := NewBucket(0)
	bucket.Results[endpoint.CheckDns] = failResult(endpoint.CheckDns, probeadapter.StatusTimeout)
	bucket.Results[endpoint.CheckIcmp] = probeadapter.DNSFailedCascade(endpoint.CheckIcmp, time.Now())
	bucket.Results[endpoint.CheckTcp] = probeadapter.DNSFailedCascade(endpoint.CheckTcp, time.Now())

	pick := SelectPrimary(ep, bucket)
	if pick.Empty || pick.Result.CheckKind != endpoint.CheckDns {
		t.Fatalf("expected the real Dns failure as primary, not a cascaded layer, got %+v", pick)
	}
}

func TestProblems_DNSCascadeSuppressesDescendantsAndSurfacesOnlyDNS(t *testing.T) {
	bucket := NewBucket(0)
	bucket.Results[endpoint.CheckDns] = failResult(endpoint.CheckDns, probeadapter.StatusTimeout)
	bucket.Results[endpoint.CheckIcmp] = probeadapter.DNSFailedCascade(endpoint.CheckIcmp, time.Now())
	bucket.Results[endpoint.CheckTcp] = probeadapter.DNSFailedCascade(endpoint.CheckTcp, time.Now())

	problems := Problems(bucket)
	if len(problems) != 1 || problems[0].CheckKind != endpoint.CheckDns {
		t.Fatalf("expected exactly one Dns problem, got %+v", problems)
	}
}

func TestProblems_CapabilityDeniedNeverAppearsPerEndpoint(t *testing.T) {
	bucket := NewBucket(0)
	bucket.Results[endpoint.CheckIcmp] = failResult(endpoint.CheckIcmp, probeadapter.StatusCapabilityDenied)

	if problems := Problems(bucket); len(problems) != 0 {
		t.Fatalf("expected capability-denied to be excluded from per-endpoint problems, got %+v", problems)
	}
}
