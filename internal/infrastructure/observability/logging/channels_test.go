package logging

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newQuietLogger(t *testing.T) *ChanneledLogger {
	t.Helper()
	cfg := DefaultLoggerConfig()
	cfg.OutputToConsole = false
	logger, err := NewChanneledLogger(cfg)
	require.NoError(t, err)
	return logger
}

func TestSetChannelLevelConcurrentWithLogging(t *testing.T) {
	logger := newQuietLogger(t)

	// Runtime level changes arrive from sysop request goroutines while other
	// goroutines keep logging through the same channel map.
	var wg sync.WaitGroup
	stop := make(chan struct{})

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					logger.Engine().Info("engine activity")
					logger.SSE().Debug("stream activity")
					logger.GetChannel(ChannelRender).Info("render activity")
				}
			}
		}()
	}

	for i := 0; i < 200; i++ {
		level := slog.LevelDebug
		if i%2 == 0 {
			level = slog.LevelWarn
		}
		require.NoError(t, logger.SetChannelLevel(ChannelEngine, level))
		require.NoError(t, logger.SetChannelLevel(ChannelSSE, level))
	}
	close(stop)
	wg.Wait()

	assert.Equal(t, slog.LevelDebug, logger.GetChannelLevel(ChannelEngine))
}

func TestSetChannelLevelTakesEffect(t *testing.T) {
	logger := newQuietLogger(t)

	assert.Equal(t, slog.LevelInfo, logger.GetChannelLevel(ChannelCache))

	require.NoError(t, logger.SetChannelLevel(ChannelCache, slog.LevelError))
	assert.Equal(t, slog.LevelError, logger.GetChannelLevel(ChannelCache))
	assert.False(t, logger.Cache().Enabled(context.Background(), slog.LevelWarn))
	assert.True(t, logger.Cache().Enabled(context.Background(), slog.LevelError))

	// Other channels keep the default level.
	assert.Equal(t, slog.LevelInfo, logger.GetChannelLevel(ChannelRender))
}

func TestGetChannelFallsBackToSystem(t *testing.T) {
	logger := newQuietLogger(t)
	assert.Same(t, logger.System(), logger.GetChannel(Channel("nonsense")))
}

func TestBroadcasterDeliversHigherSeverityThanFilter(t *testing.T) {
	b := GetBroadcaster()

	client := b.NewClient(AppliedFilters{Channel: "all", Level: slog.LevelInfo})
	b.RegisterClient(client)
	defer b.UnregisterClient(client)

	b.SubmitLog(LogEntry{
		Timestamp: "2026-08-25T00:00:00Z",
		Channel:   string(ChannelEngine),
		Level:     slog.LevelError.String(),
		Message:   "engine acquisition failed",
	})

	// An ERROR entry must pass an INFO filter.
	select {
	case message := <-client.Channel:
		assert.Contains(t, string(message), "engine acquisition failed")
	case <-time.After(2 * time.Second):
		t.Fatal("error-level entry was filtered out by an info-level filter")
	}
}

func TestBroadcasterFiltersLowerSeverity(t *testing.T) {
	b := GetBroadcaster()

	client := b.NewClient(AppliedFilters{Channel: "all", Level: slog.LevelWarn})
	b.RegisterClient(client)
	defer b.UnregisterClient(client)

	b.SubmitLog(LogEntry{
		Timestamp: "2026-08-25T00:00:00Z",
		Channel:   string(ChannelEngine),
		Level:     slog.LevelInfo.String(),
		Message:   "routine engine activity",
	})
	b.SubmitLog(LogEntry{
		Timestamp: "2026-08-25T00:00:00Z",
		Channel:   string(ChannelEngine),
		Level:     slog.LevelWarn.String(),
		Message:   "engine warning",
	})

	// Only the WARN entry comes through; the INFO one is dropped.
	select {
	case message := <-client.Channel:
		assert.Contains(t, string(message), "engine warning")
	case <-time.After(2 * time.Second):
		t.Fatal("warn-level entry was filtered out by a warn-level filter")
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelError, parseLevel("ERROR"))
	assert.Equal(t, slog.LevelWarn+2, parseLevel("WARN+2"))
	assert.Equal(t, slog.LevelInfo, parseLevel("garbage"))
}
