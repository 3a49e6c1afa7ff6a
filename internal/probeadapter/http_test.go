package probeadapter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPAdapter_200IsOk(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a := NewHTTPAdapter()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	r := a.Probe(ctx, srv.URL)
	if r.Status != StatusOk {
		t.Fatalf("expected Ok, got %v (%s)", r.Status, r.Detail)
	}
}

func TestHTTPAdapter_503IsProtocolError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	a := NewHTTPAdapter()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	r := a.Probe(ctx, srv.URL)
	if r.Status != StatusProtocolError || r.ProtocolCode != http.StatusServiceUnavailable {
		t.Fatalf("expected ProtocolError/503, got %v code=%d", r.Status, r.ProtocolCode)
	}
}

func TestHTTPAdapter_RedirectCapIsRespected(t *testing.T) {
	var srv *httptest.Server
	hops := 0
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hops++
		http.Redirect(w, r, srv.URL+"/next", http.StatusFound)
	}))
	defer srv.Close()

	a := NewHTTPAdapter()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	r := a.Probe(ctx, srv.URL)

	if hops > maxRedirects+1 {
		t.Fatalf("expected redirect chain to be capped at %d redirects (%d requests), got %d requests", maxRedirects, maxRedirects+1, hops)
	}
	if r.Status != StatusOk && r.Status != StatusProtocolError {
		t.Fatalf("expected the capped chain to resolve to a terminal status, got %v", r.Status)
	}
}

func TestHTTPAdapter_DeadlineExceededIsTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a := NewHTTPAdapter()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	r := a.Probe(ctx, srv.URL)
	if r.Status != StatusTimeout {
		t.Fatalf("expected Timeout, got %v (%s)", r.Status, r.Detail)
	}
}
