// cmd/preflight/main.go verifies a settings.toml and the local
// environment before a monitoring run: it flags config mistakes,
// ICMP capability loss, and a non-color terminal one line at a time
// instead of leaving the operator to read a scrolling dashboard to
// find the same information.
package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/hydraping/hydraping/internal/config"
	"github.com/hydraping/hydraping/internal/endpoint"
	"github.com/hydraping/hydraping/internal/probeadapter"
)

func main() {
	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, "✖", msg)
		os.Exit(1)
	}
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	path := config.DefaultPath()
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	cfg, err := config.Load(path)
	if err != nil {
		fail(fmt.Sprintf("config: %v", err))
	}
	ok(fmt.Sprintf("config loaded from %s", path))

	endpoints, err := endpoint.Parse(cfg.RawTargets())
	if err != nil {
		fail(fmt.Sprintf("endpoints: %v", err))
	}
	ok(fmt.Sprintf("%d endpoint(s) parsed", len(endpoints)))

	if cfg.Timeout >= cfg.Interval {
		warn("checks.timeout_seconds is >= checks.interval_seconds; probes will be clipped to the tick boundary every time")
	} else {
		ok(fmt.Sprintf("interval=%s timeout=%s", cfg.Interval, cfg.Timeout))
	}

	icmp := probeadapter.NewICMPAdapter()
	if icmp.ProbeCapability() {
		ok("unprivileged ICMP echo is available")
	} else {
		warn("unprivileged ICMP echo is not available; ICMP checks will be disabled for the whole run")
	}

	if os.Getenv("NO_COLOR") != "" {
		warn("NO_COLOR is set; the dashboard will render in plain characters")
	} else if !isatty.IsTerminal(os.Stdout.Fd()) {
		warn("stdout is not a terminal; the dashboard will render in plain characters")
	} else {
		ok("color-capable terminal detected")
	}

	ok("preflight passed")
}
