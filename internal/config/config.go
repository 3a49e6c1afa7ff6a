// Package config loads and saves the TOML settings document and turns
// it into the typed values the rest of the program consumes.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/hydraping/hydraping/internal/apperr"
	"github.com/hydraping/hydraping/internal/endpoint"
)

const (
	defaultIntervalSeconds = 5.0
	defaultTimeoutSeconds  = 5.0
	minIntervalSeconds     = 0.25
	minTimeoutSeconds      = 0.1
)

// Target mirrors one `[endpoints] targets` entry. It decodes from
// either a bare TOML string or a table, since go-toml/v2 can't
// unmarshal a heterogeneous array element-by-element on its own.
type Target struct {
	URL              string
	Name             string `toml:"name,omitempty"`
	Protocol         string `toml:"protocol,omitempty"`
	IPVersion        int    `toml:"ip_version,omitempty"`
	PrimaryCheckType string `toml:"primary_check_type,omitempty"`
}

type endpointsSection struct {
	Targets []interface{} `toml:"targets"`
}

type dnsSection struct {
	CustomServers []string `toml:"custom_servers,omitempty"`
}

type checksSection struct {
	IntervalSeconds float64 `toml:"interval_seconds"`
	TimeoutSeconds  float64 `toml:"timeout_seconds"`
}

type uiSection struct {
	GraphWidth int `toml:"graph_width"`
}

// Document is the raw decoded TOML shape, kept separate from the
// runtime Config so Encode can round-trip a semantically equal config
// file rather than reformatting whatever was read.
type Document struct {
	Endpoints endpointsSection `toml:"endpoints"`
	DNS       dnsSection       `toml:"dns"`
	Checks    checksSection    `toml:"checks"`
	UI        uiSection        `toml:"ui"`
}

// Config is the parsed, validated, ready-to-use settings.
type Config struct {
	Targets    []Target
	DNSServers []string
	Interval   time.Duration
	Timeout    time.Duration
	GraphWidth int
	sourcePath string
}

// DefaultPath returns "~/.config/hydraping/settings.toml", falling
// back to a relative path if the home directory can't be resolved.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", "hydraping", "settings.toml")
	}
	return filepath.Join(home, ".config", "hydraping", "settings.toml")
}

// Load reads and validates the TOML document at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, apperr.NewConfigErr(-1, "path", fmt.Sprintf("cannot read %s: %v", path, err))
	}

	var doc Document
	if err := toml.Unmarshal(data, &doc); err != nil {
		return Config{}, apperr.NewConfigErr(-1, "toml", fmt.Sprintf("malformed config: %v", err))
	}

	cfg, err := fromDocument(doc)
	if err != nil {
		return Config{}, err
	}
	cfg.sourcePath = path
	return cfg, nil
}

func fromDocument(doc Document) (Config, error) {
	targets := make([]Target, 0, len(doc.Endpoints.Targets))
	for i, raw := range doc.Endpoints.Targets {
		t, err := decodeTarget(i, raw)
		if err != nil {
			return Config{}, err
		}
		targets = append(targets, t)
	}

	interval := doc.Checks.IntervalSeconds
	if interval == 0 {
		interval = defaultIntervalSeconds
	}
	if interval < minIntervalSeconds {
		return Config{}, apperr.NewConfigErr(-1, "checks.interval_seconds",
			fmt.Sprintf("must be >= %.2f", minIntervalSeconds))
	}

	timeout := doc.Checks.TimeoutSeconds
	if timeout == 0 {
		timeout = defaultTimeoutSeconds
	}
	if timeout < minTimeoutSeconds {
		return Config{}, apperr.NewConfigErr(-1, "checks.timeout_seconds",
			fmt.Sprintf("must be >= %.2f", minTimeoutSeconds))
	}

	if doc.UI.GraphWidth < 0 {
		return Config{}, apperr.NewConfigErr(-1, "ui.graph_width", "must be >= 0")
	}

	return Config{
		Targets:    targets,
		DNSServers: doc.DNS.CustomServers,
		Interval:   time.Duration(interval * float64(time.Second)),
		Timeout:    time.Duration(timeout * float64(time.Second)),
		GraphWidth: doc.UI.GraphWidth,
	}, nil
}

func decodeTarget(index int, raw interface{}) (Target, error) {
	switch v := raw.(type) {
	case string:
		return Target{URL: v}, nil
	case map[string]interface{}:
		t := Target{}
		if url, ok := v["url"].(string); ok {
			t.URL = url
		} else {
			return Target{}, apperr.NewConfigErr(index, "endpoints.targets", "table entry missing url")
		}
		if name, ok := v["name"].(string); ok {
			t.Name = name
		}
		if proto, ok := v["protocol"].(string); ok {
			t.Protocol = proto
		}
		if ipv, ok := v["ip_version"].(int64); ok {
			t.IPVersion = int(ipv)
		}
		if pct, ok := v["primary_check_type"].(string); ok {
			t.PrimaryCheckType = pct
		}
		return t, nil
	default:
		return Target{}, apperr.NewConfigErr(index, "endpoints.targets", "entry must be a string or table")
	}
}

// RawTargets converts Config's targets into endpoint.RawTarget values
// ready for endpoint.Parse.
func (c Config) RawTargets() []endpoint.RawTarget {
	out := make([]endpoint.RawTarget, 0, len(c.Targets))
	for _, t := range c.Targets {
		out = append(out, endpoint.RawTarget{
			URL:              t.URL,
			Name:             t.Name,
			Protocol:         t.Protocol,
			IPVersion:        t.IPVersion,
			PrimaryCheckType: t.PrimaryCheckType,
		})
	}
	return out
}

// Encode serializes cfg back to TOML, used by round-trip tests and by
// `init` when writing the default document.
func (c Config) Encode() ([]byte, error) {
	doc := Document{
		DNS:    dnsSection{CustomServers: c.DNSServers},
		Checks: checksSection{IntervalSeconds: c.Interval.Seconds(), TimeoutSeconds: c.Timeout.Seconds()},
		UI:     uiSection{GraphWidth: c.GraphWidth},
	}
	doc.Endpoints.Targets = make([]interface{}, 0, len(c.Targets))
	for _, t := range c.Targets {
		if t.Name == "" && t.Protocol == "" && t.IPVersion == 0 && t.PrimaryCheckType == "" {
			doc.Endpoints.Targets = append(doc.Endpoints.Targets, t.URL)
			continue
		}
		entry := map[string]interface{}{"url": t.URL}
		if t.Name != "" {
			entry["name"] = t.Name
		}
		if t.Protocol != "" {
			entry["protocol"] = t.Protocol
		}
		if t.IPVersion != 0 {
			entry["ip_version"] = t.IPVersion
		}
		if t.PrimaryCheckType != "" {
			entry["primary_check_type"] = t.PrimaryCheckType
		}
		doc.Endpoints.Targets = append(doc.Endpoints.Targets, entry)
	}

	return toml.Marshal(doc)
}

// Default builds the document `hydraping init` writes: two example
// targets, system DNS resolver, and the documented defaults.
func Default() Config {
	return Config{
		Targets: []Target{
			{URL: "1.1.1.1"},
			{URL: "https://example.com"},
		},
		Interval:   time.Duration(defaultIntervalSeconds * float64(time.Second)),
		Timeout:    time.Duration(defaultTimeoutSeconds * float64(time.Second)),
		GraphWidth: 0,
	}
}

// Init writes a default config to path unless one already exists and
// force is false; with force it overwrites an existing file.
// Returns created=false (and a nil error) when it left an existing
// file untouched, so callers can run it unconditionally on startup.
func Init(path string, force bool) (created bool, err error) {
	if !force {
		if _, statErr := os.Stat(path); statErr == nil {
			return false, nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, apperr.NewTerminalErr("cannot create config directory", err)
	}

	data, err := Default().Encode()
	if err != nil {
		return false, apperr.NewTerminalErr("cannot encode default config", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, apperr.NewTerminalErr("cannot write config file", err)
	}
	return true, nil
}

func (c Config) SourcePath() string { return c.sourcePath }
