// Package config loads runtime settings from defaults, an optional YAML file,
// PMAGENT_SPEC_* environment variables and command-line flags, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"

	pmagentspec "github.com/Azure/PMAgent-Spec"
	"github.com/Azure/PMAgent-Spec/engine"
	"github.com/Azure/PMAgent-Spec/internal/logging"
	"github.com/Azure/PMAgent-Spec/mcpserver"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. PMAGENT_SPEC_BASE_URL.
const EnvPrefix = "PMAGENT_SPEC"

// Transports accepted by Server.Transport.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// ServerConfig configures the MCP transport.
type ServerConfig struct {
	Transport string `mapstructure:"transport"`
	Addr      string `mapstructure:"addr"`
	Path      string `mapstructure:"path"`
}

// Config is the resolved runtime configuration.
type Config struct {
	Engine     pmagentspec.Config
	ToolLookup engine.ToolLookup
	Server     ServerConfig
	Log        logging.Config
}

type rawConfig struct {
	Root        string         `mapstructure:"root"`
	SpecDir     string         `mapstructure:"spec_dir"`
	PromptDir   string         `mapstructure:"prompt_dir"`
	ToolSpecDir string         `mapstructure:"tool_spec_dir"`
	TemplateDir string         `mapstructure:"template_dir"`
	BaseURL     string         `mapstructure:"base_url"`
	ToolLookup  string         `mapstructure:"tool_lookup"`
	Server      ServerConfig   `mapstructure:"server"`
	Log         logging.Config `mapstructure:"log"`
}

// flagKeys maps flag names to configuration keys. Flags absent from the
// flag set are skipped.
var flagKeys = map[string]string{
	"root":          "root",
	"spec-dir":      "spec_dir",
	"prompt-dir":    "prompt_dir",
	"tool-spec-dir": "tool_spec_dir",
	"template-dir":  "template_dir",
	"base-url":      "base_url",
	"tool-lookup":   "tool_lookup",
	"log-level":     "log.level",
	"log-format":    "log.format",
	"transport":     "server.transport",
	"addr":          "server.addr",
	"path":          "server.path",
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

func setDefaults(v *viper.Viper) {
	def := pmagentspec.DefaultConfig()
	v.SetDefault("root", def.Root)
	v.SetDefault("spec_dir", def.SpecDir)
	v.SetDefault("prompt_dir", def.PromptDir)
	v.SetDefault("tool_spec_dir", def.ToolSpecDir)
	v.SetDefault("template_dir", def.TemplateDir)
	v.SetDefault("base_url", def.BaseURL)
	v.SetDefault("tool_lookup", engine.ToolLookupManifest.String())
	v.SetDefault("server.transport", TransportStdio)
	v.SetDefault("server.addr", mcpserver.DefaultAddr)
	v.SetDefault("server.path", mcpserver.DefaultPath)
	logDef := logging.DefaultConfig()
	v.SetDefault("log.level", logDef.Level)
	v.SetDefault("log.format", logDef.Format)
}

// Load resolves the configuration. file may be empty; flags may be nil.
func Load(flags *pflag.FlagSet, file string) (Config, error) {
	v := newViper()
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", file, err)
		}
	}
	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("config: bind flag %s: %w", name, err)
				}
			}
		}
	}

	var raw rawConfig
	if err := v.Unmarshal(&raw); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	return raw.resolve()
}

func (r rawConfig) resolve() (Config, error) {
	eng := pmagentspec.DefaultConfig()
	eng.Root = r.Root
	eng.SpecDir = r.SpecDir
	eng.PromptDir = r.PromptDir
	eng.ToolSpecDir = r.ToolSpecDir
	eng.TemplateDir = r.TemplateDir
	eng.BaseURL = r.BaseURL
	if err := eng.Validate(); err != nil {
		return Config{}, err
	}
	lookup, err := engine.ParseToolLookup(r.ToolLookup)
	if err != nil {
		return Config{}, err
	}
	srv := r.Server
	srv.Transport = strings.ToLower(strings.TrimSpace(srv.Transport))
	switch srv.Transport {
	case TransportStdio, TransportHTTP:
	default:
		return Config{}, fmt.Errorf("config: unknown transport %q (want %s or %s)", r.Server.Transport, TransportStdio, TransportHTTP)
	}
	if srv.Transport == TransportHTTP && !strings.HasPrefix(srv.Path, "/") {
		return Config{}, errors.New("config: server path must start with /")
	}
	return Config{
		Engine:     eng,
		ToolLookup: lookup,
		Server:     srv,
		Log:        r.Log,
	}, nil
}
