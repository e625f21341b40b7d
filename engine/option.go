package engine

import (
	"fmt"
	"strings"
	"time"

	pmagentspec "github.com/Azure/PMAgent-Spec"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ToolLookup selects how tool specs are located.
type ToolLookup int

// Tool lookup variants.
const (
	// ToolLookupManifest resolves names through tool_specs/manifest.yml.
	ToolLookupManifest ToolLookup = iota
	// ToolLookupDirect reads tool_specs/<name>.yml or .yaml.
	ToolLookupDirect
)

// String returns "manifest" or "direct".
func (t ToolLookup) String() string {
	switch t {
	case ToolLookupManifest:
		return "manifest"
	case ToolLookupDirect:
		return "direct"
	default:
		return fmt.Sprintf("ToolLookup(%d)", int(t))
	}
}

// ParseToolLookup parses "manifest" or "direct", case-insensitively.
func ParseToolLookup(s string) (ToolLookup, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "manifest":
		return ToolLookupManifest, nil
	case "direct":
		return ToolLookupDirect, nil
	default:
		return 0, fmt.Errorf("engine: unknown tool lookup %q (want manifest or direct)", s)
	}
}

// Metrics receives candidate attempts and one call per operation.
// telemetry.PrometheusMetrics implements it.
type Metrics interface {
	pmagentspec.Observer
	ObserveOperation(operation, status string, d time.Duration)
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. A nil logger leaves the no-op default.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithTracerProvider sets the provider used for operation spans.
// Without it the global provider is used.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) {
		if tp != nil {
			e.tracerProvider = tp
		}
	}
}

// WithToolLookup selects the tool lookup variant. The default is
// ToolLookupManifest.
func WithToolLookup(t ToolLookup) Option {
	return func(e *Engine) { e.toolLookup = t }
}

// WithLocalReader replaces the local tier (the OS filesystem by default).
// If r also lists directories (see manifest.Lister) it backs the direct
// tool-spec listing.
func WithLocalReader(r pmagentspec.LocalReader) Option {
	return func(e *Engine) {
		if r != nil {
			e.local = r
		}
	}
}

// WithRemoteReader replaces the remote tier (an HTTP client by default).
func WithRemoteReader(r pmagentspec.RemoteReader) Option {
	return func(e *Engine) {
		if r != nil {
			e.remote = r
		}
	}
}
