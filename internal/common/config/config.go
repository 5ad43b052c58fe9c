package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/edgecomet/chatexport/internal/common/configtypes"
	"github.com/edgecomet/chatexport/internal/common/yamlutil"
)

// Extraction strategies selectable per endpoint
const (
	StrategyEmbedded = "embedded" // hydration payload in the static HTML
	StrategyDOM      = "dom"      // rendered message elements
)

// Paper formats the renderer knows dimensions for
const (
	PaperA4     = "A4"
	PaperLetter = "Letter"
	PaperLegal  = "Legal"
)

// SupportedPaperFormats is the superset allowed in export.paper_formats
var SupportedPaperFormats = []string{PaperA4, PaperLetter, PaperLegal}

const (
	// SafetyMargin is added on top of the pipeline budget so fasthttp
	// does not drop a connection while a PDF is still printing
	SafetyMargin = 10 * time.Second

	defaultListen             = ":10080"
	defaultFetchTimeout       = 20 * time.Second
	defaultUserAgent          = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	defaultMaxRedirects       = 5
	defaultMaxBodySize        = 20 * 1024 * 1024
	defaultNavigationTimeout  = 30 * time.Second
	defaultRenderTimeout      = 60 * time.Second
	defaultMaxFileNameLength  = 255
	defaultFileName           = "downloaded-content.pdf"
	defaultTitle              = "Downloaded Content"
	defaultMarginPx           = 20
	defaultMetricsPath        = "/metrics"
	defaultMetricsNamespace   = "chatexport"
	defaultRequestBodyMaxSize = 64 * 1024
)

// Config is the service configuration file
type Config struct {
	Server  ServerConfig              `yaml:"server"`
	Fetch   FetchConfig               `yaml:"fetch"`
	Chrome  ChromeConfig              `yaml:"chrome"`
	Export  ExportConfig              `yaml:"export"`
	Log     configtypes.LogConfig     `yaml:"log"`
	Metrics configtypes.MetricsConfig `yaml:"metrics"`
}

type ServerConfig struct {
	Listen             string               `yaml:"listen"`
	Timeout            configtypes.Duration `yaml:"timeout,omitempty"` // 0 = derived from fetch/chrome budgets
	MaxRequestBodySize int                  `yaml:"max_request_body_size,omitempty"`
}

// FetchConfig controls the static page fetcher
type FetchConfig struct {
	Timeout        configtypes.Duration `yaml:"timeout"`
	UserAgent      string               `yaml:"user_agent"`
	MaxRedirects   int                  `yaml:"max_redirects"`
	MaxBodySize    int                  `yaml:"max_body_size"`
	SSRFProtection *bool                `yaml:"ssrf_protection,omitempty"` // default true
}

// SSRFEnabled reports whether outbound fetches are restricted to public IPs
func (f FetchConfig) SSRFEnabled() bool {
	return f.SSRFProtection == nil || *f.SSRFProtection
}

// ChromeConfig controls the headless browser launches
type ChromeConfig struct {
	ExecPath          string               `yaml:"exec_path,omitempty"`
	AutoDownload      bool                 `yaml:"auto_download"`
	NoSandbox         bool                 `yaml:"no_sandbox"`
	NavigationTimeout configtypes.Duration `yaml:"navigation_timeout"`
	RenderTimeout     configtypes.Duration `yaml:"render_timeout"`

	// Extra URL patterns and CDP resource types aborted during rendered fetches.
	// Patterns: exact, "*wildcard*", "~regexp" or "~*case-insensitive regexp".
	BlockedPatterns      []string `yaml:"blocked_patterns,omitempty"`
	BlockedResourceTypes []string `yaml:"blocked_resource_types,omitempty"`
}

// ExportConfig is the immutable export policy handed to the renderer and
// the artifact finalizer.
type ExportConfig struct {
	ExtractStrategy    string   `yaml:"extract_strategy"`
	RenderStrategy     string   `yaml:"render_strategy"`
	PaperFormats       []string `yaml:"paper_formats"`
	DefaultPaperFormat string   `yaml:"default_paper_format"`
	MaxFileNameLength  int      `yaml:"max_filename_length"`
	DefaultFileName    string   `yaml:"default_file_name"`
	DefaultTitle       string   `yaml:"default_title"`
	MarginPx           float64  `yaml:"margin_px"`
}

// IsAllowedPaperFormat reports whether name is in the configured allow-list
func (e ExportConfig) IsAllowedPaperFormat(name string) bool {
	return slices.Contains(e.PaperFormats, name)
}

// DefaultExportConfig returns the export policy used when the file omits it
func DefaultExportConfig() ExportConfig {
	return ExportConfig{
		ExtractStrategy:    StrategyEmbedded,
		RenderStrategy:     StrategyDOM,
		PaperFormats:       slices.Clone(SupportedPaperFormats),
		DefaultPaperFormat: PaperA4,
		MaxFileNameLength:  defaultMaxFileNameLength,
		DefaultFileName:    defaultFileName,
		DefaultTitle:       defaultTitle,
		MarginPx:           defaultMarginPx,
	}
}

// CalculateServerTimeout returns the read/write timeout for the HTTP server.
// A render request may fetch, navigate and print in sequence.
func (cfg *Config) CalculateServerTimeout() time.Duration {
	if cfg.Server.Timeout > 0 {
		return cfg.Server.Timeout.ToDuration()
	}
	return cfg.Fetch.Timeout.ToDuration() +
		cfg.Chrome.NavigationTimeout.ToDuration() +
		cfg.Chrome.RenderTimeout.ToDuration() +
		SafetyMargin
}

// Load reads, defaults and validates the configuration file
func Load(configPath string, logger *zap.Logger) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yamlutil.UnmarshalStrict(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	// bare ports such as "8080" are accepted, fasthttp needs ":8080"
	cfg.Server.Listen, _ = configtypes.NormalizeListen(cfg.Server.Listen)
	if cfg.Metrics.Enabled {
		cfg.Metrics.Listen, _ = configtypes.NormalizeListen(cfg.Metrics.Listen)
	}

	logger.Debug("Configuration loaded",
		zap.String("path", configPath),
		zap.String("extract_strategy", cfg.Export.ExtractStrategy),
		zap.String("render_strategy", cfg.Export.RenderStrategy),
		zap.Strings("paper_formats", cfg.Export.PaperFormats))

	return &cfg, nil
}

// Default returns a fully defaulted configuration
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = defaultListen
	}
	if cfg.Server.MaxRequestBodySize == 0 {
		cfg.Server.MaxRequestBodySize = defaultRequestBodyMaxSize
	}

	if cfg.Fetch.Timeout == 0 {
		cfg.Fetch.Timeout = configtypes.Duration(defaultFetchTimeout)
	}
	if cfg.Fetch.UserAgent == "" {
		cfg.Fetch.UserAgent = defaultUserAgent
	}
	if cfg.Fetch.MaxRedirects == 0 {
		cfg.Fetch.MaxRedirects = defaultMaxRedirects
	}
	if cfg.Fetch.MaxBodySize == 0 {
		cfg.Fetch.MaxBodySize = defaultMaxBodySize
	}

	if cfg.Chrome.NavigationTimeout == 0 {
		cfg.Chrome.NavigationTimeout = configtypes.Duration(defaultNavigationTimeout)
	}
	if cfg.Chrome.RenderTimeout == 0 {
		cfg.Chrome.RenderTimeout = configtypes.Duration(defaultRenderTimeout)
	}

	defaults := DefaultExportConfig()
	if cfg.Export.ExtractStrategy == "" {
		cfg.Export.ExtractStrategy = defaults.ExtractStrategy
	}
	if cfg.Export.RenderStrategy == "" {
		cfg.Export.RenderStrategy = defaults.RenderStrategy
	}
	if len(cfg.Export.PaperFormats) == 0 {
		cfg.Export.PaperFormats = defaults.PaperFormats
	}
	if cfg.Export.DefaultPaperFormat == "" {
		cfg.Export.DefaultPaperFormat = defaults.DefaultPaperFormat
	}
	if cfg.Export.MaxFileNameLength == 0 {
		cfg.Export.MaxFileNameLength = defaults.MaxFileNameLength
	}
	if cfg.Export.DefaultFileName == "" {
		cfg.Export.DefaultFileName = defaults.DefaultFileName
	}
	if cfg.Export.DefaultTitle == "" {
		cfg.Export.DefaultTitle = defaults.DefaultTitle
	}
	if cfg.Export.MarginPx == 0 {
		cfg.Export.MarginPx = defaults.MarginPx
	}

	// If both outputs are disabled, enable console
	if !cfg.Log.Console.Enabled && !cfg.Log.File.Enabled {
		cfg.Log.Console.Enabled = true
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = configtypes.LogLevelInfo
	}
	if cfg.Log.Console.Format == "" {
		cfg.Log.Console.Format = configtypes.LogFormatConsole
	}
	if cfg.Log.File.Format == "" {
		cfg.Log.File.Format = configtypes.LogFormatText
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = defaultMetricsPath
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = defaultMetricsNamespace
	}
}

var (
	metricsNamespacePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
	safeFileNamePattern     = regexp.MustCompile(`^[A-Za-z0-9_.-]+\.pdf$`)
)

// Validate checks configuration validity
func (cfg *Config) Validate() error {
	if err := configtypes.ValidateListenAddress(cfg.Server.Listen); err != nil {
		return fmt.Errorf("invalid server.listen: %w", err)
	}
	if cfg.Server.Timeout < 0 {
		return fmt.Errorf("server.timeout must not be negative")
	}

	if cfg.Fetch.Timeout <= 0 {
		return fmt.Errorf("fetch.timeout must be positive")
	}
	if cfg.Fetch.MaxRedirects < 0 {
		return fmt.Errorf("fetch.max_redirects must be >= 0, got %d", cfg.Fetch.MaxRedirects)
	}
	if cfg.Fetch.MaxBodySize < 0 {
		return fmt.Errorf("fetch.max_body_size must be >= 0, got %d", cfg.Fetch.MaxBodySize)
	}

	if cfg.Chrome.NavigationTimeout <= 0 {
		return fmt.Errorf("chrome.navigation_timeout must be positive")
	}
	if cfg.Chrome.RenderTimeout <= 0 {
		return fmt.Errorf("chrome.render_timeout must be positive")
	}
	if cfg.Chrome.ExecPath != "" && cfg.Chrome.AutoDownload {
		return fmt.Errorf("chrome.exec_path and chrome.auto_download are mutually exclusive")
	}
	for _, p := range cfg.Chrome.BlockedPatterns {
		if strings.HasPrefix(p, "~") {
			expr := strings.TrimPrefix(strings.TrimPrefix(p, "~"), "*")
			if _, err := regexp.Compile(expr); err != nil {
				return fmt.Errorf("invalid chrome.blocked_patterns entry %q: %w", p, err)
			}
		}
	}

	if err := cfg.Export.Validate(); err != nil {
		return err
	}

	validLogLevels := []string{
		configtypes.LogLevelDebug, configtypes.LogLevelInfo, configtypes.LogLevelWarn,
		configtypes.LogLevelError, configtypes.LogLevelDPanic, configtypes.LogLevelPanic,
		configtypes.LogLevelFatal,
	}
	if !slices.Contains(validLogLevels, cfg.Log.Level) {
		return fmt.Errorf("invalid log.level: %s (must be debug, info, warn, error, dpanic, panic, or fatal)", cfg.Log.Level)
	}
	if cfg.Log.Console.Enabled && cfg.Log.Console.Format != configtypes.LogFormatJSON && cfg.Log.Console.Format != configtypes.LogFormatConsole {
		return fmt.Errorf("invalid log.console.format: %s (must be json or console)", cfg.Log.Console.Format)
	}
	if cfg.Log.File.Enabled {
		if cfg.Log.File.Path == "" {
			return fmt.Errorf("log.file.path must be specified when file logging is enabled")
		}
		if cfg.Log.File.Format != configtypes.LogFormatJSON && cfg.Log.File.Format != configtypes.LogFormatText {
			return fmt.Errorf("invalid log.file.format: %s (must be json or text)", cfg.Log.File.Format)
		}
		r := cfg.Log.File.Rotation
		if r.MaxSize < 0 || r.MaxAge < 0 || r.MaxBackups < 0 {
			return fmt.Errorf("log.file.rotation values must be >= 0")
		}
	}

	if cfg.Metrics.Enabled {
		if err := configtypes.ValidateListenAddress(cfg.Metrics.Listen); err != nil {
			return fmt.Errorf("invalid metrics.listen: %w", err)
		}
		_, metricsPort, _ := configtypes.ParseListenAddress(cfg.Metrics.Listen)
		_, serverPort, _ := configtypes.ParseListenAddress(cfg.Server.Listen)
		if metricsPort == serverPort {
			return fmt.Errorf("metrics.listen port (%d) must differ from server.listen port (%d)", metricsPort, serverPort)
		}
	}
	if !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return fmt.Errorf("invalid metrics.path: %s (must start with /)", cfg.Metrics.Path)
	}
	if !metricsNamespacePattern.MatchString(cfg.Metrics.Namespace) {
		return fmt.Errorf("invalid metrics.namespace: %s (must match [a-zA-Z_][a-zA-Z0-9_]*)", cfg.Metrics.Namespace)
	}

	return nil
}

// Validate checks the export policy on its own
func (e ExportConfig) Validate() error {
	for _, field := range []struct{ name, value string }{
		{"export.extract_strategy", e.ExtractStrategy},
		{"export.render_strategy", e.RenderStrategy},
	} {
		if field.value != StrategyEmbedded && field.value != StrategyDOM {
			return fmt.Errorf("invalid %s: %q (must be %s or %s)", field.name, field.value, StrategyEmbedded, StrategyDOM)
		}
	}

	if len(e.PaperFormats) == 0 {
		return fmt.Errorf("export.paper_formats must not be empty")
	}
	for _, format := range e.PaperFormats {
		if !slices.Contains(SupportedPaperFormats, format) {
			return fmt.Errorf("unsupported paper format in export.paper_formats: %q", format)
		}
	}
	if !e.IsAllowedPaperFormat(e.DefaultPaperFormat) {
		return fmt.Errorf("export.default_paper_format %q is not in export.paper_formats", e.DefaultPaperFormat)
	}

	// room for at least one character plus ".pdf"
	if e.MaxFileNameLength < 5 || e.MaxFileNameLength > 255 {
		return fmt.Errorf("export.max_filename_length must be between 5 and 255, got %d", e.MaxFileNameLength)
	}
	if !safeFileNamePattern.MatchString(e.DefaultFileName) {
		return fmt.Errorf("export.default_file_name %q must use only [A-Za-z0-9-_.] and end in .pdf", e.DefaultFileName)
	}
	if len(e.DefaultFileName) > e.MaxFileNameLength {
		return fmt.Errorf("export.default_file_name is longer than export.max_filename_length (%d)", e.MaxFileNameLength)
	}
	if e.MarginPx < 0 {
		return fmt.Errorf("export.margin_px must be >= 0")
	}
	return nil
}

// GetConfigPath resolves the config file path
func GetConfigPath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("config path cannot be empty")
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve config path: %w", err)
	}

	if _, err := os.Stat(absPath); os.IsNotExist(err) {
		return "", fmt.Errorf("config file does not exist: %s", absPath)
	}

	return absPath, nil
}
