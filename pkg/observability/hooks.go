// Package observability provides hook points for instrumenting the
// transpiler without coupling it to a metrics or tracing backend.
//
// Callers register implementations at startup; the default no-op hooks
// make instrumentation free when nothing is registered.
package observability

import (
	"sync"
	"time"
)

// TranspilerHooks observes pipeline stage execution.
type TranspilerHooks interface {
	// OnStageStart is called when a pipeline stage begins.
	// Stage is one of "parse", "classify", "generate", "render".
	OnStageStart(stage string)

	// OnStageComplete is called when a pipeline stage finishes.
	OnStageComplete(stage string, duration time.Duration, err error)

	// OnStrategySelected is called after classification with the chosen
	// strategy ("native" or "state-machine") and whether it was forced.
	OnStrategySelected(strategy string, forced bool)
}

// CacheHooks observes cache operations.
type CacheHooks interface {
	// OnHit is called when a cache lookup succeeds.
	OnHit(keyFamily string)

	// OnMiss is called when a cache lookup fails.
	OnMiss(keyFamily string)

	// OnSet is called after a value is stored.
	OnSet(keyFamily string, size int)

	// OnError is called when a cache operation fails.
	OnError(op string, err error)
}

// ServerHooks observes HTTP request handling.
type ServerHooks interface {
	// OnRequest is called after a request completes.
	OnRequest(method, path string, status int, duration time.Duration)
}

// NoopTranspilerHooks is a TranspilerHooks that does nothing.
type NoopTranspilerHooks struct{}

func (NoopTranspilerHooks) OnStageStart(string)                          {}
func (NoopTranspilerHooks) OnStageComplete(string, time.Duration, error) {}
func (NoopTranspilerHooks) OnStrategySelected(string, bool)              {}

// NoopCacheHooks is a CacheHooks that does nothing.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnHit(string)          {}
func (NoopCacheHooks) OnMiss(string)         {}
func (NoopCacheHooks) OnSet(string, int)     {}
func (NoopCacheHooks) OnError(string, error) {}

// NoopServerHooks is a ServerHooks that does nothing.
type NoopServerHooks struct{}

func (NoopServerHooks) OnRequest(string, string, int, time.Duration) {}

var (
	mu              sync.RWMutex
	transpilerHooks TranspilerHooks = NoopTranspilerHooks{}
	cacheHooks      CacheHooks      = NoopCacheHooks{}
	serverHooks     ServerHooks     = NoopServerHooks{}
)

// SetTranspilerHooks registers the transpiler hooks. Passing nil
// restores the no-op hooks.
func SetTranspilerHooks(h TranspilerHooks) {
	mu.Lock()
	defer mu.Unlock()
	if h == nil {
		h = NoopTranspilerHooks{}
	}
	transpilerHooks = h
}

// Transpiler returns the registered transpiler hooks.
func Transpiler() TranspilerHooks {
	mu.RLock()
	defer mu.RUnlock()
	return transpilerHooks
}

// SetCacheHooks registers the cache hooks. Passing nil restores the
// no-op hooks.
func SetCacheHooks(h CacheHooks) {
	mu.Lock()
	defer mu.Unlock()
	if h == nil {
		h = NoopCacheHooks{}
	}
	cacheHooks = h
}

// CacheObserver returns the registered cache hooks.
func CacheObserver() CacheHooks {
	mu.RLock()
	defer mu.RUnlock()
	return cacheHooks
}

// SetServerHooks registers the server hooks. Passing nil restores the
// no-op hooks.
func SetServerHooks(h ServerHooks) {
	mu.Lock()
	defer mu.Unlock()
	if h == nil {
		h = NoopServerHooks{}
	}
	serverHooks = h
}

// Server returns the registered server hooks.
func Server() ServerHooks {
	mu.RLock()
	defer mu.RUnlock()
	return serverHooks
}

// Reset restores every hook to its no-op default. Intended for tests.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	transpilerHooks = NoopTranspilerHooks{}
	cacheHooks = NoopCacheHooks{}
	serverHooks = NoopServerHooks{}
}
