package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edgecomet/chatexport/internal/common/configtypes"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chat-export.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_MinimalAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  listen: ":9090"
`)

	cfg, err := Load(path, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Listen)
	assert.Equal(t, 20*time.Second, cfg.Fetch.Timeout.ToDuration())
	assert.Equal(t, 30*time.Second, cfg.Chrome.NavigationTimeout.ToDuration())
	assert.True(t, cfg.Fetch.SSRFEnabled())
	assert.Equal(t, StrategyEmbedded, cfg.Export.ExtractStrategy)
	assert.Equal(t, StrategyDOM, cfg.Export.RenderStrategy)
	assert.Equal(t, []string{"A4", "Letter", "Legal"}, cfg.Export.PaperFormats)
	assert.Equal(t, "A4", cfg.Export.DefaultPaperFormat)
	assert.Equal(t, 255, cfg.Export.MaxFileNameLength)
	assert.Equal(t, "downloaded-content.pdf", cfg.Export.DefaultFileName)
	assert.Equal(t, "Downloaded Content", cfg.Export.DefaultTitle)
	assert.Equal(t, 20.0, cfg.Export.MarginPx)
	assert.True(t, cfg.Log.Console.Enabled)
	assert.Equal(t, configtypes.LogLevelInfo, cfg.Log.Level)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, "chatexport", cfg.Metrics.Namespace)
}

func TestLoad_BarePortIsNormalized(t *testing.T) {
	path := writeConfig(t, `
server:
  listen: "9090"
`)

	cfg, err := Load(path, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Listen)
}

func TestLoad_FullConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  listen: "127.0.0.1:8080"
  timeout: 2m
fetch:
  timeout: 5s
  user_agent: "test-agent"
  max_redirects: 2
  ssrf_protection: false
chrome:
  no_sandbox: true
  navigation_timeout: 10s
  render_timeout: 15s
export:
  extract_strategy: dom
  render_strategy: embedded
  paper_formats: [A4, Letter]
  default_paper_format: Letter
  max_filename_length: 100
log:
  level: debug
  console:
    enabled: true
    format: json
metrics:
  enabled: true
  listen: ":9100"
  namespace: "export_svc"
`)

	cfg, err := Load(path, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, 2*time.Minute, cfg.CalculateServerTimeout())
	assert.Equal(t, "test-agent", cfg.Fetch.UserAgent)
	assert.Equal(t, 2, cfg.Fetch.MaxRedirects)
	assert.False(t, cfg.Fetch.SSRFEnabled())
	assert.True(t, cfg.Chrome.NoSandbox)
	assert.Equal(t, StrategyDOM, cfg.Export.ExtractStrategy)
	assert.Equal(t, StrategyEmbedded, cfg.Export.RenderStrategy)
	assert.True(t, cfg.Export.IsAllowedPaperFormat("Letter"))
	assert.False(t, cfg.Export.IsAllowedPaperFormat("Legal"))
	assert.Equal(t, 100, cfg.Export.MaxFileNameLength)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{
			name:    "unknown field",
			content: "server:\n  listen: \":8080\"\n  bogus: 1\n",
			errMsg:  "unknown configuration field",
		},
		{
			name:    "empty file",
			content: "",
			errMsg:  "configuration is empty",
		},
		{
			name:    "unsupported paper format",
			content: "export:\n  paper_formats: [A4, A3]\n",
			errMsg:  "unsupported paper format",
		},
		{
			name:    "default paper format outside allow-list",
			content: "export:\n  paper_formats: [Letter]\n",
			errMsg:  "default_paper_format",
		},
		{
			name:    "invalid strategy",
			content: "export:\n  extract_strategy: magic\n",
			errMsg:  "export.extract_strategy",
		},
		{
			name:    "filename length too large",
			content: "export:\n  max_filename_length: 300\n",
			errMsg:  "max_filename_length",
		},
		{
			name:    "default file name with unsafe characters",
			content: "export:\n  default_file_name: \"my report.pdf\"\n",
			errMsg:  "export.default_file_name",
		},
		{
			name:    "default file name without pdf suffix",
			content: "export:\n  default_file_name: report.txt\n",
			errMsg:  "export.default_file_name",
		},
		{
			name:    "default file name longer than limit",
			content: "export:\n  max_filename_length: 10\n  default_file_name: long-report-name.pdf\n",
			errMsg:  "longer than export.max_filename_length",
		},
		{
			name:    "metrics port collides with server",
			content: "server:\n  listen: \":8080\"\nmetrics:\n  enabled: true\n  listen: \":8080\"\n",
			errMsg:  "must differ",
		},
		{
			name:    "invalid metrics namespace",
			content: "metrics:\n  namespace: \"1bad\"\n",
			errMsg:  "metrics.namespace",
		},
		{
			name:    "exec path with auto download",
			content: "chrome:\n  exec_path: /usr/bin/chromium\n  auto_download: true\n",
			errMsg:  "mutually exclusive",
		},
		{
			name:    "file logging without path",
			content: "log:\n  file:\n    enabled: true\n",
			errMsg:  "log.file.path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content), zap.NewNop())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config")
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 20*time.Second+30*time.Second+60*time.Second+SafetyMargin, cfg.CalculateServerTimeout())
}

func TestDefaultExportConfig_DoesNotShareSlice(t *testing.T) {
	a := DefaultExportConfig()
	a.PaperFormats[0] = "Legal"
	assert.Equal(t, PaperA4, SupportedPaperFormats[0])
}

func TestGetConfigPath(t *testing.T) {
	path := writeConfig(t, "server:\n  listen: \":8080\"\n")

	resolved, err := GetConfigPath(path)
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(resolved))

	_, err = GetConfigPath("")
	assert.Error(t, err)

	_, err = GetConfigPath(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidBlockedPattern(t *testing.T) {
	_, err := Load(writeConfig(t, "chrome:\n  blocked_patterns: [\"~([\"]\n"), zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chrome.blocked_patterns")
}
