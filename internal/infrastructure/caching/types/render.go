// Package types defines cache payload types for rendered diagram markup.
package types

import "time"

// RenderChunk is one cached serialized render output.
type RenderChunk struct {
	Key         string    `json:"key"`
	SVG         string    `json:"svg"`
	LastUpdated time.Time `json:"lastUpdated"`
	Hits        int64     `json:"hits"`
}

// CacheStats summarizes render cache usage for the sysop surface.
type CacheStats struct {
	Entries   int   `json:"entries"`
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
	SizeBytes int64 `json:"sizeBytes"`
}
