package debugsrv

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hydraping/hydraping/internal/endpoint"
	"github.com/hydraping/hydraping/internal/probeadapter"
	"github.com/hydraping/hydraping/internal/timeline"
)

func setupRouter(t *testing.T, endpoints []endpoint.Endpoint, store *timeline.Store) http.Handler {
	t.Helper()
	srv := NewServer(zap.NewNop(), endpoints, store)
	return srv.Router()
}

func TestHealthz_OK(t *testing.T) {
	h := setupRouter(t, nil, timeline.NewStore(8))
	ts := httptest.NewServer(h)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("want 200, got %d", resp.StatusCode)
	}
}

func TestHandleSnapshot_ReportsPrimaryCheckAndProblems(t *testing.T) {
	ep := endpoint.Endpoint{
		ID:               "web1",
		Label:            "example.com",
		Kind:             endpoint.KindHTTP,
		ApplicableChecks: []endpoint.CheckKind{endpoint.CheckDns, endpoint.CheckTcp, endpoint.CheckHttp},
	}

	store := timeline.NewStore(8)
	bucket := timeline.NewBucket(0)
	bucket.Results[endpoint.CheckDns] = probeadapter.CheckResult{
		CheckKind:  endpoint.CheckDns,
		StartedAt:  time.Now(),
		Status:     probeadapter.StatusOk,
		HasLatency: true,
		LatencyMS:  4.2,
	}
	bucket.Results[endpoint.CheckHttp] = probeadapter.CheckResult{
		CheckKind:    endpoint.CheckHttp,
		StartedAt:    time.Now(),
		Status:       probeadapter.StatusProtocolError,
		ProtocolCode: 503,
		Detail:       "503 Service Unavailable",
	}
	if err := store.Append(ep.ID, bucket); err != nil {
		t.Fatalf("append bucket: %v", err)
	}

	h := setupRouter(t, []endpoint.Endpoint{ep}, store)
	ts := httptest.NewServer(h)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/snapshot")
	if err != nil {
		t.Fatalf("GET /snapshot: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("want 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("want application/json, got %q", ct)
	}

	var body snapshotResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if len(body.Endpoints) != 1 {
		t.Fatalf("want 1 endpoint, got %d", len(body.Endpoints))
	}

	snap := body.Endpoints[0]
	if snap.ID != "web1" || snap.Label != "example.com" || snap.Kind != "http" {
		t.Fatalf("unexpected endpoint fields: %+v", snap)
	}
	// HTTP outranks DNS in priority, so the failing HTTP result wins primary pick.
	if snap.PrimaryCheck != "HTTP" || snap.PrimaryOk {
		t.Fatalf("want primary HTTP/failing, got check=%q ok=%v", snap.PrimaryCheck, snap.PrimaryOk)
	}
	if len(snap.Problems) == 0 {
		t.Fatal("expected the HTTP failure to surface as a problem")
	}
}

func TestHandleSnapshot_EmptyTimelineOmitsPrimaryCheck(t *testing.T) {
	ep := endpoint.Endpoint{
		ID:               "web2",
		Label:            "empty.example",
		Kind:             endpoint.KindDomain,
		ApplicableChecks: []endpoint.CheckKind{endpoint.CheckDns},
	}

	h := setupRouter(t, []endpoint.Endpoint{ep}, timeline.NewStore(8))
	ts := httptest.NewServer(h)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/snapshot")
	if err != nil {
		t.Fatalf("GET /snapshot: %v", err)
	}
	defer resp.Body.Close()

	var body snapshotResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if len(body.Endpoints) != 1 {
		t.Fatalf("want 1 endpoint, got %d", len(body.Endpoints))
	}
	if body.Endpoints[0].PrimaryCheck != "" {
		t.Fatalf("expected no primary check for an endpoint with no samples, got %q", body.Endpoints[0].PrimaryCheck)
	}
}
