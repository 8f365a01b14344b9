// Package performance provides performance tracking for diagram-go
// operations with aggregate statistics for the sysop dashboard.
package performance

import (
	"fmt"
	"sync"
	"time"
)

// Tracker manages performance markers and provides metrics aggregation
type Tracker struct {
	markers    map[string]*Marker
	mu         sync.RWMutex
	maxMarkers int
	counter    uint64
}

// Stats holds aggregate operation statistics.
type Stats struct {
	TotalOperations int           `json:"totalOperations"`
	Failures        int           `json:"failures"`
	AverageDuration time.Duration `json:"averageDuration"`
	SlowestDuration time.Duration `json:"slowestDuration"`
	CacheHits       int           `json:"cacheHits"`
	CacheMisses     int           `json:"cacheMisses"`
}

// NewTracker creates a performance tracker.
func NewTracker() *Tracker {
	return &Tracker{
		markers:    make(map[string]*Marker),
		maxMarkers: 1000,
	}
}

// StartOperation begins tracking an operation and returns its marker.
func (t *Tracker) StartOperation(operation, widgetID string) *Marker {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.counter++
	id := fmt.Sprintf("%s:%d", operation, t.counter)

	marker := &Marker{
		Operation: operation,
		WidgetID:  widgetID,
		StartTime: time.Now(),
		Metadata:  make(map[string]any),
	}
	t.markers[id] = marker

	// Bounded retention: evict completed markers once the cap is exceeded.
	if len(t.markers) > t.maxMarkers {
		for key, m := range t.markers {
			if m.Completed {
				delete(t.markers, key)
				break
			}
		}
	}

	return marker
}

// GetStats aggregates completed markers for one operation prefix. An empty
// prefix aggregates everything.
func (t *Tracker) GetStats(operationPrefix string) Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var stats Stats
	var total time.Duration

	for _, m := range t.markers {
		if !m.Completed {
			continue
		}
		if operationPrefix != "" && !hasPrefix(m.Operation, operationPrefix) {
			continue
		}
		stats.TotalOperations++
		if !m.Success {
			stats.Failures++
		}
		total += m.Duration
		if m.Duration > stats.SlowestDuration {
			stats.SlowestDuration = m.Duration
		}
		stats.CacheHits += m.CacheHits
		stats.CacheMisses += m.CacheMisses
	}

	if stats.TotalOperations > 0 {
		stats.AverageDuration = total / time.Duration(stats.TotalOperations)
	}
	return stats
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}
