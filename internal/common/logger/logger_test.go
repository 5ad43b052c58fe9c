package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/edgecomet/chatexport/internal/common/configtypes"
)

func TestNewLogger_ConsoleOnly(t *testing.T) {
	logger, err := NewLogger(configtypes.LogConfig{
		Level:   "info",
		Console: configtypes.ConsoleLogConfig{Enabled: true, Format: "console"},
	})
	require.NoError(t, err)
	require.NotNil(t, logger)
	assert.Nil(t, logger.fileLevel)

	logger.Info("test console logging")
}

func TestNewLogger_FileOnly(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "export.log")

	logger, err := NewLogger(configtypes.LogConfig{
		Level: "debug",
		File: configtypes.FileLogConfig{
			Enabled: true,
			Path:    logPath,
			Format:  "json",
			Rotation: configtypes.RotationConfig{
				MaxSize:    10,
				MaxAge:     7,
				MaxBackups: 3,
			},
		},
	})
	require.NoError(t, err)

	logger.Info("pdf generated", zap.String("file_name", "chat.pdf"))
	_ = logger.Sync()

	content, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "pdf generated")
	assert.Contains(t, string(content), "chat.pdf")
}

func TestNewLogger_Errors(t *testing.T) {
	_, err := NewLogger(configtypes.LogConfig{Level: "info"})
	assert.ErrorContains(t, err, "at least one log output")

	_, err = NewLogger(configtypes.LogConfig{
		Level: "info",
		File:  configtypes.FileLogConfig{Enabled: true},
	})
	assert.ErrorContains(t, err, "file.path")
}

func TestNewLoggerWithStartupOverride(t *testing.T) {
	logger, err := NewLoggerWithStartupOverride(configtypes.LogConfig{
		Level:   "error",
		Console: configtypes.ConsoleLogConfig{Enabled: true, Format: "console"},
	})
	require.NoError(t, err)
	require.NotNil(t, logger.consoleLevel)
	assert.Equal(t, zapcore.InfoLevel, logger.consoleLevel.Level())

	logger.SwitchToConfiguredLevel()
	assert.Equal(t, zapcore.ErrorLevel, logger.consoleLevel.Level())

	logger.EnsureInfoLevelForShutdown()
	assert.Equal(t, zapcore.InfoLevel, logger.consoleLevel.Level())
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLogLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, parseLogLevel("warn"))
	assert.Equal(t, zapcore.InfoLevel, parseLogLevel("unknown"))
	assert.Equal(t, zapcore.WarnLevel, resolveLogLevel("warn", zapcore.DebugLevel))
	assert.Equal(t, zapcore.DebugLevel, resolveLogLevel("", zapcore.DebugLevel))
}

func TestStartupOverride_PerOutputLevels(t *testing.T) {
	logger, err := NewLoggerWithStartupOverride(configtypes.LogConfig{
		Level:   "warn",
		Console: configtypes.ConsoleLogConfig{Enabled: true, Format: "console", Level: "debug"},
		File: configtypes.FileLogConfig{
			Enabled: true,
			Path:    filepath.Join(t.TempDir(), "export.log"),
			Format:  "text",
		},
	})
	require.NoError(t, err)

	// debug console stays verbose, the file inherits warn and is capped at info
	assert.Equal(t, zapcore.DebugLevel, logger.consoleLevel.Level())
	assert.Equal(t, zapcore.InfoLevel, logger.fileLevel.Level())

	logger.SwitchToConfiguredLevel()
	assert.Equal(t, zapcore.DebugLevel, logger.consoleLevel.Level())
	assert.Equal(t, zapcore.WarnLevel, logger.fileLevel.Level())

	logger.EnsureInfoLevelForShutdown()
	assert.Equal(t, zapcore.DebugLevel, logger.consoleLevel.Level())
	assert.Equal(t, zapcore.InfoLevel, logger.fileLevel.Level())
}
