// Package debugsrv exposes a loopback-only introspection endpoint for
// the running monitor. It carries no target-facing surface and no
// authentication of its own, and is off unless explicitly bound.
package debugsrv

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hydraping/hydraping/internal/endpoint"
	"github.com/hydraping/hydraping/internal/timeline"
)

type Server struct {
	logger    *zap.Logger
	endpoints []endpoint.Endpoint
	store     *timeline.Store
	startedAt time.Time
}

func NewServer(logger *zap.Logger, endpoints []endpoint.Endpoint, store *timeline.Store) *Server {
	return &Server{logger: logger, endpoints: endpoints, store: store, startedAt: time.Now()}
}

// Router builds the handler. CORS is permissive because this endpoint
// is only ever meant to be bound to loopback; callers are local
// tooling, not third-party origins.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.AllowAll().Handler)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Get("/snapshot", s.handleSnapshot)

	return r
}

type endpointSnapshot struct {
	ID           string             `json:"id"`
	Label        string             `json:"label"`
	Kind         string             `json:"kind"`
	Applicable   []string           `json:"applicable_checks"`
	PrimaryCheck string             `json:"primary_check,omitempty"`
	PrimaryOk    bool               `json:"primary_ok"`
	PacketLoss   float64            `json:"packet_loss_pct"`
	LatencyLast  float64            `json:"latency_last_ms,omitempty"`
	Problems     []timeline.Problem `json:"problems,omitempty"`
}

type snapshotResponse struct {
	UptimeSeconds float64            `json:"uptime_seconds"`
	Endpoints     []endpointSnapshot `json:"endpoints"`
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	resp := snapshotResponse{UptimeSeconds: time.Since(s.startedAt).Seconds()}

	for _, ep := range s.endpoints {
		buckets := s.store.Snapshot(ep.ID)
		agg := timeline.Aggregate(ep, buckets)

		applicable := make([]string, 0, len(ep.ApplicableChecks))
		for _, c := range ep.ApplicableChecks {
			applicable = append(applicable, c.String())
		}

		snap := endpointSnapshot{
			ID:          ep.ID,
			Label:       ep.Label,
			Kind:        ep.Kind.String(),
			Applicable:  applicable,
			PacketLoss:  agg.PacketLossPct,
			LatencyLast: agg.LatencyLast,
		}

		if latest, ok := timeline.MostRecentNonEmpty(buckets); ok {
			pick := timeline.SelectPrimary(ep, latest)
			if !pick.Empty {
				snap.PrimaryCheck = pick.Result.CheckKind.String()
				snap.PrimaryOk = pick.Result.Status.IsFailure() == false
			}
			snap.Problems = timeline.Problems(latest)
		}

		resp.Endpoints = append(resp.Endpoints, snap)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Warn("debugsrv_encode_error", zap.Error(err))
	}
}
