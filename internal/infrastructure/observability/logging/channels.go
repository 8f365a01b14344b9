// Package logging provides structured logging channels for diagram-go
// operations with per-channel levels and real-time streaming to the sysop
// dashboard.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Channel represents a logical logging channel for different system components
type Channel string

const (
	// System channels
	ChannelSystem   Channel = "system"   // General system operations
	ChannelStartup  Channel = "startup"  // Application startup and initialization
	ChannelShutdown Channel = "shutdown" // Application shutdown and cleanup

	// Domain channels
	ChannelEngine Channel = "engine" // Engine acquisition and configuration
	ChannelRender Channel = "render" // Render attempts and lifecycle transitions
	ChannelCache  Channel = "cache"  // Render cache operations

	// Infrastructure channels
	ChannelDatabase Channel = "database" // Render history persistence
	ChannelAuth     Channel = "auth"     // Sysop authentication
	ChannelSSE      Channel = "sse"      // Server-sent events and websockets

	// Monitoring channels
	ChannelPerf  Channel = "performance" // Performance markers
	ChannelAlert Channel = "alert"       // Engine availability alerts

	// Development channels
	ChannelDebug Channel = "debug" // Debug information
)

// ChanneledLogger provides structured logging with multiple channels
type ChanneledLogger struct {
	channelsMu sync.RWMutex
	channels   map[Channel]*slog.Logger
	config     *LoggerConfig
	configMu   sync.RWMutex
}

// LoggerConfig contains configuration options for the channeled logger
type LoggerConfig struct {
	OutputToFile    bool   `json:"outputToFile"`    // Whether to write logs to files
	OutputToConsole bool   `json:"outputToConsole"` // Whether to write logs to console
	LogDirectory    string `json:"logDirectory"`    // Directory for log files
	JSONFormat      bool   `json:"jsonFormat"`      // Use JSON format for structured logging
	IncludeSource   bool   `json:"includeSource"`   // Include source file and line in logs

	DefaultLevel  slog.Level             `json:"defaultLevel"`  // Default log level
	ChannelLevels map[Channel]slog.Level `json:"channelLevels"` // Per-channel log levels
}

// DefaultLoggerConfig returns a sensible default configuration
func DefaultLoggerConfig() *LoggerConfig {
	return &LoggerConfig{
		OutputToFile:    false,
		OutputToConsole: true,
		LogDirectory:    "logs",
		JSONFormat:      true,
		IncludeSource:   false,
		DefaultLevel:    slog.LevelInfo,
		ChannelLevels:   make(map[Channel]slog.Level),
	}
}

// AllChannels lists every channel the logger initializes.
func AllChannels() []Channel {
	return []Channel{
		ChannelSystem, ChannelStartup, ChannelShutdown,
		ChannelEngine, ChannelRender, ChannelCache,
		ChannelDatabase, ChannelAuth, ChannelSSE,
		ChannelPerf, ChannelAlert,
		ChannelDebug,
	}
}

// NewChanneledLogger creates a new channeled logger with the given configuration
func NewChanneledLogger(config *LoggerConfig) (*ChanneledLogger, error) {
	if config == nil {
		config = DefaultLoggerConfig()
	}

	logger := &ChanneledLogger{
		channels: make(map[Channel]*slog.Logger),
		config:   config,
	}

	if config.OutputToFile {
		if err := os.MkdirAll(config.LogDirectory, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	for _, channel := range AllChannels() {
		channelLogger, err := logger.createChannelLogger(channel)
		if err != nil {
			return nil, fmt.Errorf("failed to create logger for channel %s: %w", channel, err)
		}
		logger.channels[channel] = channelLogger
	}

	return logger, nil
}

// createChannelLogger creates a slog.Logger for a specific channel
func (cl *ChanneledLogger) createChannelLogger(channel Channel) (*slog.Logger, error) {
	cl.configMu.RLock()
	defer cl.configMu.RUnlock()

	level := cl.config.DefaultLevel
	if channelLevel, exists := cl.config.ChannelLevels[channel]; exists {
		level = channelLevel
	}

	var writers []io.Writer

	if cl.config.OutputToConsole {
		writers = append(writers, os.Stdout)
	}

	if cl.config.OutputToFile {
		filename := fmt.Sprintf("%s.log", string(channel))
		path := filepath.Join(cl.config.LogDirectory, filename)

		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
		}

		writers = append(writers, file)
	}

	// Every log message is also forwarded to the sysop log stream.
	writers = append(writers, NewStreamWriter())

	var writer io.Writer
	if len(writers) == 1 {
		writer = writers[0]
	} else {
		writer = io.MultiWriter(writers...)
	}

	handlerOpts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cl.config.IncludeSource,
	}

	var handler slog.Handler
	if cl.config.JSONFormat {
		handler = slog.NewJSONHandler(writer, handlerOpts)
	} else {
		handler = slog.NewTextHandler(writer, handlerOpts)
	}

	return slog.New(handler).With(slog.String("channel", string(channel))), nil
}

// channel reads the channel map under lock; SetChannelLevel swaps entries
// at runtime from request goroutines.
func (cl *ChanneledLogger) channel(ch Channel) *slog.Logger {
	cl.channelsMu.RLock()
	defer cl.channelsMu.RUnlock()
	return cl.channels[ch]
}

func (cl *ChanneledLogger) System() *slog.Logger   { return cl.channel(ChannelSystem) }
func (cl *ChanneledLogger) Startup() *slog.Logger  { return cl.channel(ChannelStartup) }
func (cl *ChanneledLogger) Shutdown() *slog.Logger { return cl.channel(ChannelShutdown) }
func (cl *ChanneledLogger) Engine() *slog.Logger   { return cl.channel(ChannelEngine) }
func (cl *ChanneledLogger) Render() *slog.Logger   { return cl.channel(ChannelRender) }
func (cl *ChanneledLogger) Cache() *slog.Logger    { return cl.channel(ChannelCache) }
func (cl *ChanneledLogger) Database() *slog.Logger { return cl.channel(ChannelDatabase) }
func (cl *ChanneledLogger) Auth() *slog.Logger     { return cl.channel(ChannelAuth) }
func (cl *ChanneledLogger) SSE() *slog.Logger      { return cl.channel(ChannelSSE) }
func (cl *ChanneledLogger) Perf() *slog.Logger     { return cl.channel(ChannelPerf) }
func (cl *ChanneledLogger) Alert() *slog.Logger    { return cl.channel(ChannelAlert) }
func (cl *ChanneledLogger) Debug() *slog.Logger    { return cl.channel(ChannelDebug) }

// GetChannel returns a logger for a specific channel
func (cl *ChanneledLogger) GetChannel(channel Channel) *slog.Logger {
	cl.channelsMu.RLock()
	logger, exists := cl.channels[channel]
	cl.channelsMu.RUnlock()

	if exists {
		return logger
	}
	return cl.channel(ChannelSystem)
}

// WithWidget returns a logger with widget context
func (cl *ChanneledLogger) WithWidget(channel Channel, widgetID string) *slog.Logger {
	return cl.GetChannel(channel).With(slog.String("widgetId", widgetID))
}

// WithOperation returns a logger with operation context
func (cl *ChanneledLogger) WithOperation(channel Channel, operation string) *slog.Logger {
	return cl.GetChannel(channel).With(slog.String("operation", operation))
}

// GetChannelLevel reports the effective level for a channel.
func (cl *ChanneledLogger) GetChannelLevel(channel Channel) slog.Level {
	cl.configMu.RLock()
	defer cl.configMu.RUnlock()

	if level, exists := cl.config.ChannelLevels[channel]; exists {
		return level
	}
	return cl.config.DefaultLevel
}

// SetChannelLevel changes the level of one channel at runtime and rebuilds
// its underlying handler.
func (cl *ChanneledLogger) SetChannelLevel(channel Channel, level slog.Level) error {
	cl.configMu.Lock()
	cl.config.ChannelLevels[channel] = level
	cl.configMu.Unlock()

	channelLogger, err := cl.createChannelLogger(channel)
	if err != nil {
		return fmt.Errorf("failed to rebuild logger for channel %s: %w", channel, err)
	}

	cl.channelsMu.Lock()
	cl.channels[channel] = channelLogger
	cl.channelsMu.Unlock()
	return nil
}

// LogCacheOperation logs cache operations with hit/miss context
func (cl *ChanneledLogger) LogCacheOperation(operation, key string, hit bool, duration time.Duration) {
	logger := cl.Cache().With(
		slog.String("operation", operation),
		slog.String("key", key),
		slog.Bool("hit", hit),
		slog.Duration("duration", duration),
	)

	if hit {
		logger.Debug("Cache hit")
	} else {
		logger.Debug("Cache miss")
	}
}
