package engine

import "sync"

// HostEnv models the host environment the service runs in: a registry of
// named engine symbols. An embedding application may install an engine
// instance ahead of time (the loader adopts it directly); the remote
// installer writes the fetched engine here under the expected symbol.
//
// A nil *HostEnv represents a headless context with no host environment at
// all; acquisition fails immediately there and no fetch is attempted.
type HostEnv struct {
	mu      sync.RWMutex
	symbols map[string]Engine
}

// NewHostEnv creates an empty host environment.
func NewHostEnv() *HostEnv {
	return &HostEnv{symbols: make(map[string]Engine)}
}

// Lookup returns the engine registered under symbol, if any.
func (e *HostEnv) Lookup(symbol string) (Engine, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	eng, ok := e.symbols[symbol]
	return eng, ok
}

// Install registers an engine under symbol. The first installation wins;
// a symbol is never replaced once set.
func (e *HostEnv) Install(symbol string, eng Engine) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.symbols[symbol]; exists {
		return
	}
	e.symbols[symbol] = eng
}
