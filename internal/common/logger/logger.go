// Package logger builds the service's zap logger from the log section of the
// config. Console and file outputs carry their own atomic level, so the
// process can log startup at INFO, drop to the configured level once the
// HTTP server is up, and come back to INFO for shutdown.
package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/edgecomet/chatexport/internal/common/configtypes"
)

// DynamicLogger is a *zap.Logger whose per-output levels can be moved after construction
type DynamicLogger struct {
	*zap.Logger
	consoleLevel *zap.AtomicLevel
	fileLevel    *zap.AtomicLevel
	configured   configtypes.LogConfig
}

// SwitchToConfiguredLevel applies the levels from the log config
func (dl *DynamicLogger) SwitchToConfiguredLevel() {
	dl.Info("Switching logger to configured level", zap.String("level", dl.configured.Level))

	console, file := outputLevels(dl.configured)
	dl.setLevels(console, file)
}

// EnsureInfoLevelForShutdown lets INFO through on every output again
func (dl *DynamicLogger) EnsureInfoLevelForShutdown() {
	console, file := outputLevels(dl.configured)
	if dl.setLevels(min(console, zap.InfoLevel), min(file, zap.InfoLevel)) {
		dl.Info("Switched to INFO level for shutdown visibility")
	}
}

// setLevels reports whether any output level changed
func (dl *DynamicLogger) setLevels(console, file zapcore.Level) bool {
	changed := false
	for _, out := range []struct {
		level  *zap.AtomicLevel
		target zapcore.Level
	}{
		{dl.consoleLevel, console},
		{dl.fileLevel, file},
	} {
		if out.level != nil && out.level.Level() != out.target {
			out.level.SetLevel(out.target)
			changed = true
		}
	}
	return changed
}

// NewLogger builds the logger at the configured levels
func NewLogger(config configtypes.LogConfig) (*DynamicLogger, error) {
	return build(config, zapcore.FatalLevel)
}

// NewLoggerWithStartupOverride builds the logger with every output capped at
// INFO, whatever the config says. SwitchToConfiguredLevel lifts the cap.
func NewLoggerWithStartupOverride(config configtypes.LogConfig) (*DynamicLogger, error) {
	return build(config, zap.InfoLevel)
}

// NewDefaultLogger is the console logger used until the config file is read
func NewDefaultLogger() (*DynamicLogger, error) {
	return NewLogger(configtypes.LogConfig{
		Level: configtypes.LogLevelDebug,
		Console: configtypes.ConsoleLogConfig{
			Enabled: true,
			Format:  configtypes.LogFormatConsole,
		},
	})
}

// build creates the cores; ceiling is the highest level any output may start at
func build(config configtypes.LogConfig, ceiling zapcore.Level) (*DynamicLogger, error) {
	if config.File.Enabled && config.File.Path == "" {
		return nil, fmt.Errorf("file.path must be specified when file logging is enabled")
	}

	dl := &DynamicLogger{configured: config}
	console, file := outputLevels(config)

	var cores []zapcore.Core
	if config.Console.Enabled {
		level := zap.NewAtomicLevelAt(min(console, ceiling))
		dl.consoleLevel = &level
		cores = append(cores, zapcore.NewCore(encoderFor(config.Console.Format), zapcore.Lock(os.Stdout), level))
	}
	if config.File.Enabled {
		level := zap.NewAtomicLevelAt(min(file, ceiling))
		dl.fileLevel = &level
		cores = append(cores, zapcore.NewCore(encoderFor(config.File.Format), rotatingFile(config.File), level))
	}
	if len(cores) == 0 {
		return nil, fmt.Errorf("at least one log output (console or file) must be enabled")
	}

	dl.Logger = zap.New(zapcore.NewTee(cores...))
	return dl, nil
}

// outputLevels resolves console and file levels; an output without its own
// level follows log.level
func outputLevels(config configtypes.LogConfig) (console, file zapcore.Level) {
	global := parseLogLevel(config.Level)
	return resolveLogLevel(config.Console.Level, global), resolveLogLevel(config.File.Level, global)
}

// parseLogLevel falls back to INFO for empty or unknown names
func parseLogLevel(level string) zapcore.Level {
	parsed, err := zapcore.ParseLevel(level)
	if err != nil || level == "" {
		return zap.InfoLevel
	}
	return parsed
}

func resolveLogLevel(outputLevel string, global zapcore.Level) zapcore.Level {
	if outputLevel == "" {
		return global
	}
	return parseLogLevel(outputLevel)
}

// encoderFor maps log formats: json for collectors, text for plain files,
// console (colored) for terminals
func encoderFor(format string) zapcore.Encoder {
	switch format {
	case configtypes.LogFormatJSON:
		return zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	case configtypes.LogFormatText:
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		return zapcore.NewConsoleEncoder(cfg)
	default:
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zapcore.NewConsoleEncoder(cfg)
	}
}

func rotatingFile(file configtypes.FileLogConfig) zapcore.WriteSyncer {
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   file.Path,
		MaxSize:    file.Rotation.MaxSize,
		MaxAge:     file.Rotation.MaxAge,
		MaxBackups: file.Rotation.MaxBackups,
		Compress:   file.Rotation.Compress,
	})
}
