package probeadapter

import (
	"context"
	"testing"
	"time"

	"github.com/hydraping/hydraping/internal/endpoint"
)

func TestICMPAdapter_DeniedShortCircuitsProbe(t *testing.T) {
	a := NewICMPAdapter()
	a.markDenied()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	r := a.Probe(ctx, "127.0.0.1", endpoint.IPAny)
	if r.Status != StatusCapabilityDenied {
		t.Fatalf("expected CapabilityDenied once marked denied, got %v", r.Status)
	}
}

func TestICMPAdapter_NextSeqIsMonotonic(t *testing.T) {
	a := NewICMPAdapter()
	first := a.nextSeq()
	second := a.nextSeq()
	if second != first+1 {
		t.Fatalf("expected sequence numbers to increment, got %d then %d", first, second)
	}
}

func TestICMPAdapter_UnresolvableHostIsUnreachable(t *testing.T) {
	a := NewICMPAdapter()
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	r := a.Probe(ctx, "this-host-does-not-resolve.invalid", endpoint.IPAny)
	if r.Status != StatusUnreachable {
		t.Fatalf("expected Unreachable for an unresolvable host, got %v (%s)", r.Status, r.Detail)
	}
}
