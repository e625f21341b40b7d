// Package cli implements the pmagent-spec command tree.
package cli

import (
	"context"
	"io"
	"strings"

	pmagentspec "github.com/Azure/PMAgent-Spec"
	"github.com/Azure/PMAgent-Spec/engine"
	"github.com/Azure/PMAgent-Spec/internal/config"
	"github.com/Azure/PMAgent-Spec/internal/logging"
	"github.com/Azure/PMAgent-Spec/mcpserver"
	"github.com/Azure/PMAgent-Spec/remotesource"
	"github.com/Azure/PMAgent-Spec/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app carries the state built once per invocation by the root pre-run hook.
type app struct {
	version  string
	cfg      config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	engine   *engine.Engine
}

// NewRootCmd returns the root command with every subcommand attached.
func NewRootCmd(version string) *cobra.Command {
	a := &app{version: version}
	root := &cobra.Command{
		Use:           "pmagent-spec",
		Short:         "Resolve PMAgent spec documents and tool specs",
		Long:          "pmagent-spec serves the PMAgent content-generation specs over MCP and resolves them from a local checkout or the public mirror.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.SetVersionTemplate("pmagent-spec version {{.Version}}\n")

	def := pmagentspec.DefaultConfig()
	pf := root.PersistentFlags()
	pf.String("config", "", "Path to a YAML config file")
	pf.String("root", def.Root, "Repository root for relative local directories")
	pf.String("spec-dir", def.SpecDir, "Local spec directory")
	pf.String("prompt-dir", def.PromptDir, "Local prompt directory")
	pf.String("tool-spec-dir", def.ToolSpecDir, "Local tool spec directory")
	pf.String("template-dir", def.TemplateDir, "Local template fragment directory")
	pf.String("base-url", def.BaseURL, "Mirror base URL")
	pf.String("tool-lookup", engine.ToolLookupManifest.String(), "Tool spec lookup: manifest or direct")
	pf.String("log-level", "info", "Log level: debug, info, warn, error")
	pf.String("log-format", logging.FormatJSON, "Log format: json or console")

	root.AddCommand(
		newServeCmd(a),
		newListCmd(a),
		newFetchCmd(a),
		newManifestCmd(a),
		newToolCmd(a),
		newBestPracticeCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	file, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cmd.Flags(), file)
	if err != nil {
		return err
	}
	logger, err := logging.NewWriter(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	eng, err := engine.New(cfg.Engine,
		engine.WithLogger(logger),
		engine.WithMetrics(telemetry.NewPrometheusMetrics(registry)),
		engine.WithToolLookup(cfg.ToolLookup),
		engine.WithRemoteReader(remotesource.NewHTTPFetcher(
			remotesource.WithUserAgent("pmagent-spec/"+a.version),
		)),
	)
	if err != nil {
		return err
	}
	logger.Debug("configuration loaded",
		zap.String("root", cfg.Engine.Root),
		zap.String("base_url", cfg.Engine.BaseURL),
		zap.Stringer("tool_lookup", cfg.ToolLookup))
	a.cfg, a.logger, a.registry, a.engine = cfg, logger, registry, eng
	return nil
}

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the spec tools over MCP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			srv := mcpserver.New(a.engine, a.version,
				mcpserver.WithLogger(a.logger),
				mcpserver.WithGatherer(a.registry))
			ctx := cmd.Context()
			switch a.cfg.Server.Transport {
			case config.TransportHTTP:
				return srv.ListenAndServe(ctx, a.cfg.Server.Addr, a.cfg.Server.Path)
			default:
				return srv.RunStdio(ctx)
			}
		},
	}
	cmd.Flags().String("transport", config.TransportStdio, "MCP transport: stdio or http")
	cmd.Flags().String("addr", mcpserver.DefaultAddr, "Listen address for the http transport")
	cmd.Flags().String("path", mcpserver.DefaultPath, "MCP endpoint path for the http transport")
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the available specs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return writeText(cmd.OutOrStdout(), a.engine.ListSpecs(cmd.Context()))
		},
	}
}

func newFetchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch <name>",
		Short: "Print a spec document with template placeholders expanded",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeText(cmd.OutOrStdout(), a.engine.FetchSpec(cmd.Context(), args[0]))
		},
	}
}

func newManifestCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "manifest [name]",
		Short: "Print the tool manifest or a single manifest entry",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var name string
			if len(args) == 1 {
				name = args[0]
			}
			return writeText(cmd.OutOrStdout(), a.engine.GetToolManifest(cmd.Context(), name))
		},
	}
}

func newToolCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tool <name>",
		Short: "Print the spec of a tool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeText(cmd.OutOrStdout(), a.engine.FetchToolSpec(cmd.Context(), args[0]))
		},
	}
}

func newBestPracticeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "best-practice",
		Short: "Print the content generation system prompt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return writeText(cmd.OutOrStdout(), a.engine.BestPractice(cmd.Context()))
		},
	}
}

func writeText(w io.Writer, text string) error {
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	_, err := io.WriteString(w, text)
	return err
}

// Execute runs the command tree under ctx.
func Execute(ctx context.Context, version string, args []string, stdout, stderr io.Writer) error {
	root := NewRootCmd(version)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}
