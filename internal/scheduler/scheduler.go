// Package scheduler runs a periodic, concurrent fan-out that issues
// all applicable probes for every endpoint on a shared tick, deadlines
// them, and hands completed SampleBuckets to the timeline store.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/hydraping/hydraping/internal/endpoint"
	"github.com/hydraping/hydraping/internal/probeadapter"
	"github.com/hydraping/hydraping/internal/timeline"
)

// Config holds the scheduler's tunables.
type Config struct {
	Interval    time.Duration
	Timeout     time.Duration
	DisableDNS  bool
	DisableICMP bool
}

// Scheduler drives the shared tick and fans probe tasks out per
// endpoint. It is single-threaded as a coordinator; adapters do their
// own I/O on goroutines the runtime multiplexes freely.
type Scheduler struct {
	logger    *zap.Logger
	endpoints []endpoint.Endpoint
	store     *timeline.Store
	adapters  *probeadapter.Adapters
	cfg       Config

	// OnICMPDisabled fires exactly once, the first time Icmp is disabled
	// for lack of capability: either by PrimeICMPCapability at startup or
	// by a probe that returns CapabilityDenied on Icmp.
	OnICMPDisabled func()

	icmpDenied     bool
	icmpDeniedOnce sync.Once
	icmpMu         sync.RWMutex

	inflightMu sync.Mutex
	inflight   map[string]context.CancelFunc

	// sem bounds total concurrent inflight probes so a pile-up of
	// stalled probes across ticks can't spawn an unbounded number of
	// goroutines fighting over sockets.
	sem *semaphore.Weighted

	tickIdx uint64
}

func New(logger *zap.Logger, endpoints []endpoint.Endpoint, store *timeline.Store, adapters *probeadapter.Adapters, cfg Config) *Scheduler {
	if cfg.Timeout > cfg.Interval {
		cfg.Timeout = cfg.Interval
	}
	budget := int64(len(endpoints)) * 5
	if budget < 16 {
		budget = 16
	}
	return &Scheduler{
		logger:    logger,
		endpoints: endpoints,
		store:     store,
		adapters:  adapters,
		cfg:       cfg,
		inflight:  make(map[string]context.CancelFunc),
		sem:       semaphore.NewWeighted(budget),
	}
}

// Run drives ticks until ctx is canceled. Each tick's endpoints are
// fanned out concurrently and independently: a slow endpoint never
// delays another.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	tickTime := time.Now()
	s.fireTick(ctx, s.tickIdx, tickTime)
	s.tickIdx++

	for {
		select {
		case <-ctx.Done():
			return
		case tickTime = <-ticker.C:
			s.fireTick(ctx, s.tickIdx, tickTime)
			s.tickIdx++
		}
	}
}

func (s *Scheduler) fireTick(ctx context.Context, k uint64, tickTime time.Time) {
	nextTick := tickTime.Add(s.cfg.Interval)
	deadline := tickTime.Add(s.cfg.Timeout)
	if deadline.After(nextTick) {
		deadline = nextTick
	}

	for _, ep := range s.endpoints {
		ep := ep
		go s.runEndpointTick(ctx, ep, k, tickTime, deadline)
	}
}

func (s *Scheduler) runEndpointTick(ctx context.Context, ep endpoint.Endpoint, k uint64, tickTime, deadline time.Time) {
	checks := s.effectiveChecks(ep)
	bucket := timeline.NewBucket(k)

	if len(checks) == 0 {
		if err := s.store.Append(ep.ID, bucket); err != nil {
			s.logger.Warn("timeline_append_error", zap.String("endpoint", ep.ID), zap.Error(err))
		}
		return
	}

	dnsIdx := -1
	for i, kind := range checks {
		if kind == endpoint.CheckDns {
			dnsIdx = i
			break
		}
	}

	var toRun []endpoint.CheckKind
	if dnsIdx >= 0 {
		dnsResult := s.safeProbe(ctx, ep, endpoint.CheckDns, deadline, tickTime)
		bucket.Results[endpoint.CheckDns] = dnsResult

		for i, kind := range checks {
			if i == dnsIdx {
				continue
			}
			toRun = append(toRun, kind)
		}

		if dnsResult.Status != probeadapter.StatusOk {
			for _, kind := range toRun {
				bucket.Results[kind] = probeadapter.DNSFailedCascade(kind, tickTime)
			}
			toRun = nil
		}
	} else {
		toRun = checks
	}

	if len(toRun) > 0 {
		s.runConcurrent(ctx, ep, toRun, deadline, tickTime, bucket)
	}

	if err := s.store.Append(ep.ID, bucket); err != nil {
		s.logger.Warn("timeline_append_error", zap.String("endpoint", ep.ID), zap.Error(err))
	}
}

func (s *Scheduler) runConcurrent(ctx context.Context, ep endpoint.Endpoint, kinds []endpoint.CheckKind, deadline, tickTime time.Time, bucket timeline.SampleBucket) {
	type outcome struct {
		kind   endpoint.CheckKind
		result probeadapter.CheckResult
	}
	ch := make(chan outcome, len(kinds))
	for _, kind := range kinds {
		kind := kind
		go func() {
			ch <- outcome{kind: kind, result: s.safeProbe(ctx, ep, kind, deadline, tickTime)}
		}()
	}

	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()

	remaining := len(kinds)
	for remaining > 0 {
		select {
		case out := <-ch:
			bucket.Results[out.kind] = out.result
			remaining--
		case <-timer.C:
			for _, kind := range kinds {
				if _, ok := bucket.Results[kind]; !ok {
					bucket.Results[kind] = probeadapter.TimedOut(kind, tickTime)
				}
			}
			return
		}
	}
}

// safeProbe runs one check with overlap prevention and panic recovery:
// an adapter panic is caught and recorded as ProtocolError(internal)
// rather than crashing the scheduler.
func (s *Scheduler) safeProbe(ctx context.Context, ep endpoint.Endpoint, kind endpoint.CheckKind, deadline, tickTime time.Time) (result probeadapter.CheckResult) {
	probeCtx, cancel := context.WithDeadline(ctx, deadline)
	key := ep.ID + "|" + kind.String()

	s.inflightMu.Lock()
	if prevCancel, ok := s.inflight[key]; ok {
		prevCancel()
	}
	s.inflight[key] = cancel
	s.inflightMu.Unlock()

	if err := s.sem.Acquire(probeCtx, 1); err != nil {
		s.inflightMu.Lock()
		delete(s.inflight, key)
		s.inflightMu.Unlock()
		cancel()
		return probeadapter.TimedOut(kind, tickTime)
	}
	defer s.sem.Release(1)

	defer func() {
		s.inflightMu.Lock()
		if s.inflight[key] != nil {
			delete(s.inflight, key)
		}
		s.inflightMu.Unlock()
		cancel()

		if r := recover(); r != nil {
			s.logger.Warn("probe_panic", zap.String("endpoint", ep.ID), zap.String("check", kind.String()), zap.Any("recover", r))
			result = probeadapter.Internal(kind, tickTime)
		}
	}()

	result = s.dispatch(probeCtx, ep, kind)
	if result.Status == probeadapter.StatusCapabilityDenied && kind == endpoint.CheckIcmp {
		s.disableICMP()
	}

	s.logger.Debug("probe_result",
		zap.String("endpoint", ep.ID),
		zap.String("check", kind.String()),
		zap.String("status", result.Status.String()),
		zap.Float64("latency_ms", result.LatencyMS),
	)
	return result
}

func (s *Scheduler) dispatch(ctx context.Context, ep endpoint.Endpoint, kind endpoint.CheckKind) probeadapter.CheckResult {
	switch kind {
	case endpoint.CheckDns:
		return s.adapters.DNS.Probe(ctx, ep.Host, ep.IPVersionPref)
	case endpoint.CheckIcmp:
		return s.adapters.ICMP.Probe(ctx, ep.Host, ep.IPVersionPref)
	case endpoint.CheckTcp:
		return s.probeTCP(ctx, ep)
	case endpoint.CheckUdp:
		return s.adapters.UDP.Probe(ctx, ep.Host, ep.Port)
	case endpoint.CheckHttp:
		return s.adapters.HTTP.Probe(ctx, buildHTTPURL(ep))
	default:
		return probeadapter.Internal(kind, time.Now())
	}
}

func (s *Scheduler) probeTCP(ctx context.Context, ep endpoint.Endpoint) probeadapter.CheckResult {
	if ep.Kind != endpoint.KindDomain {
		return s.adapters.TCP.Probe(ctx, ep.Host, ep.Port)
	}

	ports := ep.DomainTCPPorts
	if len(ports) == 0 {
		ports = []int{80, 443}
	}

	type outcome struct{ result probeadapter.CheckResult }
	ch := make(chan outcome, len(ports))
	for _, port := range ports {
		port := port
		go func() {
			ch <- outcome{result: s.adapters.TCP.Probe(ctx, ep.Host, port)}
		}()
	}

	results := make([]probeadapter.CheckResult, 0, len(ports))
	for range ports {
		results = append(results, (<-ch).result)
	}

	best := results[0]
	for _, r := range results[1:] {
		best = probeadapter.BestOfPorts(best, r)
	}
	return best
}

func buildHTTPURL(ep endpoint.Endpoint) string {
	return fmt.Sprintf("%s://%s:%d%s", ep.Scheme, ep.Host, ep.Port, ep.Path)
}

func (s *Scheduler) disableICMP() {
	s.icmpMu.Lock()
	s.icmpDenied = true
	s.icmpMu.Unlock()

	s.icmpDeniedOnce.Do(func() {
		s.logger.Warn("icmp_disabled_globally")
		if s.OnICMPDisabled != nil {
			s.OnICMPDisabled()
		}
	})
}

func (s *Scheduler) icmpDisabled() bool {
	s.icmpMu.RLock()
	defer s.icmpMu.RUnlock()
	return s.icmpDenied
}

// effectiveChecks excludes globally disabled Icmp (capability denied,
// or --no-icmp) and --no-dns from an endpoint's applicable checks.
func (s *Scheduler) effectiveChecks(ep endpoint.Endpoint) []endpoint.CheckKind {
	icmpOff := s.cfg.DisableICMP || s.icmpDisabled()
	out := make([]endpoint.CheckKind, 0, len(ep.ApplicableChecks))
	for _, kind := range ep.ApplicableChecks {
		if kind == endpoint.CheckIcmp && icmpOff {
			continue
		}
		if kind == endpoint.CheckDns && s.cfg.DisableDNS {
			continue
		}
		out = append(out, kind)
	}
	return out
}

// ICMPDisabled reports whether Icmp has been globally disabled, either
// by configuration or by a capability probe failure.
func (s *Scheduler) ICMPDisabled() bool {
	return s.cfg.DisableICMP || s.icmpDisabled()
}

// PrimeICMPCapability runs the one-time startup capability probe and
// disables Icmp globally if raw/unprivileged sockets are unavailable.
func (s *Scheduler) PrimeICMPCapability() {
	if s.cfg.DisableICMP {
		return
	}
	if !s.adapters.ICMP.ProbeCapability() {
		s.disableICMP()
	}
}
