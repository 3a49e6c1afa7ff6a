package probeadapter

import (
	"context"
	"net"
	"testing"
	"time"
)

func TestUDPAdapter_NoReplyIsUnverifiedOk(t *testing.T) {
	// Bind a UDP socket and never read from it, so the probe's write
	// succeeds but nothing ever answers or rejects it.
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1")})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer conn.Close()

	addr := conn.LocalAddr().(*net.UDPAddr)
	a := NewUDPAdapter()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	r := a.Probe(ctx, "127.0.0.1", addr.Port)
	if r.Status != StatusOk || !r.Unverified {
		t.Fatalf("expected unverified Ok, got %v unverified=%v (%s)", r.Status, r.Unverified, r.Detail)
	}
}

func TestUDPAdapter_ClosedPortIsRefusedOrUnverifiedOk(t *testing.T) {
	// A UDP write to a port nothing is listening on triggers an
	// ICMP port-unreachable, which the kernel surfaces on the next
	// read as ECONNREFUSED.
	ln, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1")})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.LocalAddr().(*net.UDPAddr).Port
	ln.Close()

	a := NewUDPAdapter()
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	r := a.Probe(ctx, "127.0.0.1", port)
	if r.Status != StatusRefused && r.Status != StatusOk {
		t.Fatalf("expected Refused or unverified Ok depending on platform ICMP delivery, got %v (%s)", r.Status, r.Detail)
	}
}
