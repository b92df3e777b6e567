// Package config loads the service configuration from an optional YAML file
// and the environment. Environment variables take precedence over the file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	goutils "github.com/jkaninda/go-utils"
	"gopkg.in/yaml.v3"

	"github.com/bpcreech/http-eval/engines/types"
	"github.com/bpcreech/http-eval/internal/observability"
	"github.com/bpcreech/http-eval/platform/data"
)

// Environment variables read by Load.
const (
	EnvConfig             = "HTTP_EVAL_CONFIG"
	EnvSocketPath         = "HTTP_EVAL_UDS_PATH"
	EnvIgnoreInsecure     = "IGNORE_INSECURE_SOCKET_PERMISSION"
	EnvEngine             = "HTTP_EVAL_ENGINE"
	EnvEvalPath           = "HTTP_EVAL_PATH"
	EnvMetricsSocketPath  = "HTTP_EVAL_METRICS_UDS_PATH"
	EnvLogLevel           = "HTTP_EVAL_LOG_LEVEL"
	EnvLogFormat          = "HTTP_EVAL_LOG_FORMAT"
	EnvContextFile        = "HTTP_EVAL_CONTEXT_FILE"
	defaultEvalPath       = "/run"
	defaultMaxRequestSize = 1 << 20
	defaultShutdown       = 10 * time.Second
)

var (
	ErrMissingSocketPath = errors.New("you must define the variable " + EnvSocketPath)
	ErrInvalidConfig     = errors.New("invalid configuration")
)

// Config is the process configuration.
type Config struct {
	SocketPath                     string        `yaml:"socket_path"`
	IgnoreInsecureSocketPermission bool          `yaml:"ignore_insecure_socket_permission"`
	Engine                         string        `yaml:"engine"`    // "javascript" (default), "starlark" or "risor"
	EvalPath                       string        `yaml:"eval_path"` // Default: "/run"
	MetricsSocketPath              string        `yaml:"metrics_socket_path,omitempty"`
	MaxRequestSize                 int64         `yaml:"max_request_size"` // bytes. Default: 1 MiB
	ShutdownTimeout                time.Duration `yaml:"shutdown_timeout"` // Default: 10s

	// InitialContext seeds the execution context at startup. Keys here
	// override keys read from InitialContextFile.
	InitialContext     map[string]any `yaml:"initial_context,omitempty"`
	InitialContextFile string         `yaml:"initial_context_file,omitempty"` // absolute path, YAML or JSON

	Log     LogConfig                    `yaml:"log"`
	Tracing *observability.TracingConfig `yaml:"tracing,omitempty"` // nil = tracing disabled
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error. Default: info
	Format string `yaml:"format"` // text or json. Default: text
}

// Default returns a Config with every default applied and no socket path.
func Default() *Config {
	return &Config{
		Engine:          types.Goja.String(),
		EvalPath:        defaultEvalPath,
		MaxRequestSize:  defaultMaxRequestSize,
		ShutdownTimeout: defaultShutdown,
		Log:             LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads path (if non-empty), applies environment overrides and
// validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
		if err := cfg.decode(data); err != nil {
			return nil, fmt.Errorf("parsing YAML config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.SocketPath = env(EnvSocketPath, c.SocketPath)
	c.Engine = env(EnvEngine, c.Engine)
	c.EvalPath = env(EnvEvalPath, c.EvalPath)
	c.MetricsSocketPath = env(EnvMetricsSocketPath, c.MetricsSocketPath)
	c.Log.Level = env(EnvLogLevel, c.Log.Level)
	c.Log.Format = env(EnvLogFormat, c.Log.Format)
	c.InitialContextFile = env(EnvContextFile, c.InitialContextFile)

	if v := env(EnvIgnoreInsecure, ""); v != "" {
		ignore, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a boolean", ErrInvalidConfig, EnvIgnoreInsecure, v)
		}
		c.IgnoreInsecureSocketPermission = ignore
	}
	return nil
}

// env returns the trimmed value of key, or fallback when it is unset or blank.
func env(key, fallback string) string {
	if v := strings.TrimSpace(goutils.Env(key, "")); v != "" {
		return v
	}
	return fallback
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	if c.SocketPath == "" {
		return ErrMissingSocketPath
	}
	if c.MetricsSocketPath != "" && c.MetricsSocketPath == c.SocketPath {
		return fmt.Errorf("%w: metrics socket must differ from the eval socket", ErrInvalidConfig)
	}
	if _, err := types.Parse(c.Engine); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if !strings.HasPrefix(c.EvalPath, "/") {
		return fmt.Errorf("%w: eval_path must start with '/', got %q", ErrInvalidConfig, c.EvalPath)
	}
	if c.MaxRequestSize <= 0 {
		return fmt.Errorf("%w: max_request_size must be positive", ErrInvalidConfig)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("%w: shutdown_timeout must be positive", ErrInvalidConfig)
	}
	if _, err := c.SeedProvider(); err != nil {
		return err
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: unknown log format %q", ErrInvalidConfig, c.Log.Format)
	}
	return nil
}

// SeedProvider returns the provider for the initial execution context, or
// nil when none is configured.
func (c *Config) SeedProvider() (data.Provider, error) {
	if c.InitialContextFile == "" && len(c.InitialContext) == 0 {
		return nil, nil
	}
	providers := make([]data.Provider, 0, 2)
	if c.InitialContextFile != "" {
		fp, err := data.NewFileProvider(c.InitialContextFile)
		if err != nil {
			return nil, fmt.Errorf("%w: initial_context_file: %w", ErrInvalidConfig, err)
		}
		providers = append(providers, fp)
	}
	if len(c.InitialContext) > 0 {
		providers = append(providers, data.NewStaticProvider(c.InitialContext))
	}
	return data.NewCompositeProvider(providers...), nil
}

// EngineType returns the configured engine.
func (c *Config) EngineType() types.Type {
	t, err := types.Parse(c.Engine)
	if err != nil {
		return types.Goja
	}
	return t
}

// NewLogHandler builds the slog handler described by c.Log.
func (c *Config) NewLogHandler(w io.Writer) slog.Handler {
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Log.Format, "json") {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

func parseLevel(s string) (slog.Level, error) {
	if s == "" {
		return slog.LevelInfo, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}
