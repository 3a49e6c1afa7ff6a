// Package probeadapter implements one adapter per check kind: each
// maps a single probe attempt to a typed CheckResult.
package probeadapter

import (
	"time"

	"github.com/hydraping/hydraping/internal/endpoint"
)

// Status is the outcome classification of one probe attempt.
type Status int

const (
	StatusOk Status = iota
	StatusTimeout
	StatusRefused
	StatusUnreachable
	StatusNameError
	StatusProtocolError
	StatusCapabilityDenied
	StatusCanceled
)

func (s Status) String() string {
	switch s {
	case StatusOk:
		return "ok"
	case StatusTimeout:
		return "timeout"
	case StatusRefused:
		return "refused"
	case StatusUnreachable:
		return "unreachable"
	case StatusNameError:
		return "name_error"
	case StatusProtocolError:
		return "protocol_error"
	case StatusCapabilityDenied:
		return "capability_denied"
	case StatusCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

func (s Status) IsFailure() bool { return s != StatusOk }

// CheckResult is one probe outcome.
type CheckResult struct {
	CheckKind         endpoint.CheckKind
	StartedAt         time.Time // monotonic reading via time.Now()
	LatencyMS         float64
	HasLatency        bool
	Status            Status
	ProtocolCode      int // e.g. HTTP status when Status == StatusProtocolError
	Detail            string
	ResolvedAddresses []string // DNS Ok only
	Unverified        bool     // UDP Ok with no confirming reply
	Cascaded          bool     // synthesized because Dns failed this tick
}

func ok(kind endpoint.CheckKind, started time.Time, latencyMS float64, detail string) CheckResult {
	return CheckResult{
		CheckKind:  kind,
		StartedAt:  started,
		LatencyMS:  latencyMS,
		HasLatency: true,
		Status:     StatusOk,
		Detail:     detail,
	}
}

func failed(kind endpoint.CheckKind, started time.Time, status Status, detail string) CheckResult {
	return CheckResult{
		CheckKind: kind,
		StartedAt: started,
		Status:    status,
		Detail:    detail,
	}
}

// Canceled builds the synthetic result for an overlap-prevention or
// shutdown cancellation.
func Canceled(kind endpoint.CheckKind, started time.Time) CheckResult {
	return failed(kind, started, StatusCanceled, "canceled")
}

// TimedOut builds the synthetic result for a probe still running at
// its deadline.
func TimedOut(kind endpoint.CheckKind, started time.Time) CheckResult {
	return failed(kind, started, StatusTimeout, "deadline exceeded")
}

// Internal builds the ProtocolError("internal") result the scheduler
// substitutes for an adapter panic.
func Internal(kind endpoint.CheckKind, started time.Time) CheckResult {
	return CheckResult{
		CheckKind:    kind,
		StartedAt:    started,
		Status:       StatusProtocolError,
		Detail:       "internal",
		ProtocolCode: 0,
	}
}

// DNSFailedCascade builds the synthetic Unreachable result a
// dependent layer (Icmp/Tcp/Http) gets that tick when Dns failed for
// the same endpoint.
func DNSFailedCascade(kind endpoint.CheckKind, started time.Time) CheckResult {
	r := failed(kind, started, StatusUnreachable, "dns failed")
	r.Cascaded = true
	return r
}
