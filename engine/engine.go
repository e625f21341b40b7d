package engine

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	pmagentspec "github.com/Azure/PMAgent-Spec"
	"github.com/Azure/PMAgent-Spec/expand"
	"github.com/Azure/PMAgent-Spec/filesource"
	"github.com/Azure/PMAgent-Spec/index"
	"github.com/Azure/PMAgent-Spec/internal/doctree"
	"github.com/Azure/PMAgent-Spec/manifest"
	"github.com/Azure/PMAgent-Spec/remotesource"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/Azure/PMAgent-Spec/engine"

// Operation names used in logs, spans and metrics.
const (
	OpBestPractice    = "content_generation_best_practice"
	OpListSpecs       = "list_specs"
	OpFetchSpec       = "fetch_spec"
	OpGetToolManifest = "get_tool_manifest"
	OpFetchToolSpec   = "fetch_tool_spec"
)

// Operation statuses reported to Metrics and spans.
const (
	statusOK          = "ok"
	statusNotFound    = "not_found"
	statusUnavailable = "unavailable"
	statusTransport   = "transport"
	statusInvalid     = "invalid"
	statusError       = "error"
)

// Engine answers the five resolution operations. Safe for concurrent use.
type Engine struct {
	cfg            pmagentspec.Config
	local          pmagentspec.LocalReader
	remote         pmagentspec.RemoteReader
	logger         *zap.Logger
	metrics        Metrics
	tracerProvider trace.TracerProvider
	toolLookup     ToolLookup

	tracer    trace.Tracer
	locator   *pmagentspec.Locator
	fetcher   *pmagentspec.Fetcher
	index     *index.Resolver
	manifests *manifest.Resolver
	expander  *expand.Expander
}

// New validates cfg and wires the resolution stack.
func New(cfg pmagentspec.Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		cfg:    cfg,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.toolLookup != ToolLookupManifest && e.toolLookup != ToolLookupDirect {
		return nil, fmt.Errorf("engine: unknown tool lookup %d", int(e.toolLookup))
	}
	if e.local == nil {
		e.local = filesource.New()
	}
	if e.remote == nil {
		e.remote = remotesource.NewHTTPFetcher()
	}
	if e.tracerProvider == nil {
		e.tracerProvider = otel.GetTracerProvider()
	}
	e.tracer = e.tracerProvider.Tracer(tracerName)
	e.logger = e.logger.Named("engine")

	fetchOpts := []pmagentspec.FetcherOption{pmagentspec.WithLogger(e.logger)}
	if e.metrics != nil {
		fetchOpts = append(fetchOpts, pmagentspec.WithObserver(e.metrics))
	}
	e.locator = pmagentspec.NewLocator(cfg)
	e.fetcher = pmagentspec.NewFetcher(e.local, e.remote, fetchOpts...)
	e.index = index.New(e.locator, e.fetcher, index.WithLogger(e.logger))
	manifestOpts := []manifest.Option{manifest.WithLogger(e.logger)}
	if lister, ok := e.local.(manifest.Lister); ok {
		manifestOpts = append(manifestOpts, manifest.WithLister(lister))
	}
	e.manifests = manifest.New(e.locator, e.fetcher, manifestOpts...)
	e.expander = expand.New(e.locator, e.fetcher, expand.WithLogger(e.logger))
	return e, nil
}

// Config returns the configuration the engine resolves against.
func (e *Engine) Config() pmagentspec.Config { return e.cfg }

// ToolLookup returns the active tool lookup variant.
func (e *Engine) ToolLookup() ToolLookup { return e.toolLookup }

// BestPractice returns the system prompt text, trimmed.
func (e *Engine) BestPractice(ctx context.Context) string {
	return e.run(ctx, OpBestPractice, "", func(ctx context.Context, log *zap.Logger) (string, string) {
		locs, err := e.locator.Locate(pmagentspec.ClassPrompt, "")
		if err == nil {
			var doc pmagentspec.Document
			if doc, err = e.fetcher.Fetch(ctx, locs); err == nil {
				return strings.TrimSpace(doc.Text), statusOK
			}
		}
		log.Info("system prompt unavailable", zap.Error(err))
		return "Error: Could not read system prompts for best practice.", statusOf(err)
	})
}

// ListSpecs renders the index as one "- name: description" line per entry.
func (e *Engine) ListSpecs(ctx context.Context) string {
	return e.run(ctx, OpListSpecs, "", func(ctx context.Context, log *zap.Logger) (string, string) {
		entries, err := e.index.List(ctx)
		if err != nil {
			log.Info("index unavailable", zap.Error(err))
			return "No specifications found (checked local and remote).", statusOf(err)
		}
		var b strings.Builder
		b.WriteString("Available Specifications:\n")
		for _, entry := range entries {
			name := cmp.Or(entry.Name, "Unknown")
			desc := cmp.Or(entry.Description, "No description")
			fmt.Fprintf(&b, "- %s: %s\n", name, desc)
		}
		return b.String(), statusOK
	})
}

// FetchSpec returns the document registered under name in the index, with
// its placeholders expanded.
func (e *Engine) FetchSpec(ctx context.Context, name string) string {
	return e.run(ctx, OpFetchSpec, name, func(ctx context.Context, log *zap.Logger) (string, string) {
		entry, err := e.index.Find(ctx, name)
		switch {
		case errors.Is(err, pmagentspec.ErrUnavailable):
			log.Info("index unavailable", zap.Error(err))
			return "Error: Could not load index file (local or remote).", statusUnavailable
		case errors.Is(err, pmagentspec.ErrNotFound):
			return fmt.Sprintf("Error: Spec '%s' not found in index.", name), statusNotFound
		case err != nil:
			return fmt.Sprintf("Error fetching spec: %v", err), statusOf(err)
		}
		if strings.TrimSpace(entry.File) == "" {
			return fmt.Sprintf("Error: Spec '%s' not found in index.", name), statusNotFound
		}
		locs, err := e.locator.Locate(pmagentspec.ClassSpecDocument, entry.File)
		if err != nil {
			return fmt.Sprintf("Error fetching spec: %v", err), statusInvalid
		}
		doc, err := e.fetcher.Fetch(ctx, locs)
		if err != nil {
			return documentFailure(err, "Error: Spec file '%s' not found locally or in public repository (404).\nURL: %s",
				"Error: Failed to fetch spec. Status code: %d", "Error fetching spec: %v")
		}
		text, used := e.expander.Expand(ctx, doc.Text)
		log.Debug("spec resolved",
			zap.String("file", doc.Source.Path),
			zap.Stringer("tier", doc.Source.Tier),
			zap.Strings("templates", used))
		return text, statusOK
	})
}

// GetToolManifest returns the manifest, or the entry named name, as indented
// JSON. With ToolLookupDirect it lists the local tool-spec names instead, or
// renders the tool spec named name.
func (e *Engine) GetToolManifest(ctx context.Context, name string) string {
	return e.run(ctx, OpGetToolManifest, name, func(ctx context.Context, log *zap.Logger) (string, string) {
		if e.toolLookup == ToolLookupDirect {
			return e.directToolManifest(ctx, log, name)
		}
		m, err := e.manifests.Load(ctx)
		if err != nil {
			log.Info("tool manifest unavailable", zap.Error(err))
			return "Error: Could not load tool manifest (local or remote).", statusOf(err)
		}
		node := m.Root
		if name != "" {
			entry, ok := m.Lookup(name)
			if !ok {
				return fmt.Sprintf("Error: Tool spec '%s' not found in manifest.", name), statusNotFound
			}
			node = entry.Node
		}
		out, err := doctree.IndentJSON(node, "  ")
		if err != nil {
			return fmt.Sprintf("Error: Could not encode tool manifest: %v", err), statusError
		}
		return out, statusOK
	})
}

func (e *Engine) directToolManifest(ctx context.Context, log *zap.Logger, name string) (string, string) {
	if name == "" {
		names, err := e.manifests.ListSpecNames(ctx)
		if err != nil {
			log.Warn("listing tool specs failed", zap.Error(err))
			return fmt.Sprintf("Error: Could not list tool specs: %v", err), statusError
		}
		if len(names) == 0 {
			return "No tool specs found.", statusNotFound
		}
		var b strings.Builder
		b.WriteString("Available tool specs:\n")
		for _, n := range names {
			fmt.Fprintf(&b, "- %s\n", n)
		}
		return b.String(), statusOK
	}
	doc, err := e.manifests.FetchDirect(ctx, name)
	if err != nil {
		var docErr *pmagentspec.DocumentError
		if errors.As(err, &docErr) && docErr.Status == http.StatusNotFound {
			return fmt.Sprintf("Error: Tool spec '%s' not found.", name), statusNotFound
		}
		return documentFailure(err, "", "Error: Failed to fetch tool spec. Status code: %d", "Error fetching tool spec: %v")
	}
	node, perr := doctree.Parse([]byte(doc.Text))
	if perr != nil || node.Empty() {
		return doc.Text, statusOK
	}
	out, err := doctree.IndentJSON(node, "  ")
	if err != nil {
		return doc.Text, statusOK
	}
	return out, statusOK
}

// FetchToolSpec returns the tool spec document for name: the manifest
// entry's spec_file, or name.yml/name.yaml with ToolLookupDirect.
func (e *Engine) FetchToolSpec(ctx context.Context, name string) string {
	return e.run(ctx, OpFetchToolSpec, name, func(ctx context.Context, log *zap.Logger) (string, string) {
		var (
			doc pmagentspec.Document
			err error
		)
		if e.toolLookup == ToolLookupDirect {
			doc, err = e.manifests.FetchDirect(ctx, name)
		} else {
			doc, err = e.manifests.FetchSpec(ctx, name)
		}
		switch {
		case err == nil:
			log.Debug("tool spec resolved",
				zap.String("file", doc.Source.Path),
				zap.Stringer("tier", doc.Source.Tier))
			return doc.Text, statusOK
		case errors.Is(err, pmagentspec.ErrUnavailable):
			log.Info("tool manifest unavailable", zap.Error(err))
			return "Error: Could not load tool manifest (local or remote).", statusUnavailable
		case errors.Is(err, pmagentspec.ErrNoSpecFile):
			return fmt.Sprintf("Error: Tool spec '%s' does not define a spec_file.", name), statusInvalid
		}
		var lookupErr *pmagentspec.LookupError
		if errors.As(err, &lookupErr) && errors.Is(err, pmagentspec.ErrNotFound) {
			return fmt.Sprintf("Error: Tool spec '%s' not found in manifest.", name), statusNotFound
		}
		return documentFailure(err, "Error: Tool spec file '%s' not found locally or remotely (404).\nURL: %s",
			"Error: Failed to fetch tool spec. Status code: %d", "Error fetching tool spec: %v")
	})
}

// documentFailure renders a failed document fetch. notFound takes the path
// and URL; an empty notFound falls back to the generic form.
func documentFailure(err error, notFound, badStatus, generic string) (string, string) {
	var docErr *pmagentspec.DocumentError
	if errors.As(err, &docErr) {
		switch {
		case docErr.Status == http.StatusNotFound && notFound != "":
			return fmt.Sprintf(notFound, docErr.Path, docErr.URL), statusNotFound
		case docErr.Status != 0 && docErr.Status != http.StatusNotFound:
			return fmt.Sprintf(badStatus, docErr.Status), statusTransport
		}
	}
	return fmt.Sprintf(generic, err), statusOf(err)
}

func statusOf(err error) string {
	switch {
	case err == nil:
		return statusOK
	case errors.Is(err, pmagentspec.ErrUnavailable):
		return statusUnavailable
	case errors.Is(err, pmagentspec.ErrTransport):
		return statusTransport
	case errors.Is(err, pmagentspec.ErrNotFound):
		return statusNotFound
	case errors.Is(err, pmagentspec.ErrInvalidName), errors.Is(err, pmagentspec.ErrInvalidDocument):
		return statusInvalid
	default:
		return statusError
	}
}

// run wraps one operation with a request id, a span, a log line and metrics.
func (e *Engine) run(ctx context.Context, op, name string, fn func(context.Context, *zap.Logger) (string, string)) string {
	requestID := uuid.NewString()
	ctx, span := e.tracer.Start(ctx, "pmagentspec."+op,
		trace.WithAttributes(
			attribute.String("pmagentspec.operation", op),
			attribute.String("pmagentspec.request_id", requestID),
			attribute.String("pmagentspec.tool_lookup", e.toolLookup.String()),
		),
	)
	defer span.End()
	if name != "" {
		span.SetAttributes(attribute.String("pmagentspec.name", name))
	}
	log := e.logger.With(zap.String("operation", op), zap.String("request_id", requestID))
	if name != "" {
		log = log.With(zap.String("name", name))
	}

	start := time.Now()
	out, status := fn(ctx, log)
	d := time.Since(start)

	span.SetAttributes(attribute.String("pmagentspec.status", status))
	if status == statusOK {
		span.SetStatus(codes.Ok, "")
	} else {
		span.SetStatus(codes.Error, status)
	}
	if e.metrics != nil {
		e.metrics.ObserveOperation(op, status, d)
	}
	log.Debug("operation finished", zap.String("status", status), zap.Duration("duration", d))
	return out
}
