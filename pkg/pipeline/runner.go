package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/FezVrasta/hassflow/pkg/automation"
	"github.com/FezVrasta/hassflow/pkg/cache"
	"github.com/FezVrasta/hassflow/pkg/graph"
	"github.com/FezVrasta/hassflow/pkg/observability"
	"github.com/FezVrasta/hassflow/pkg/render"
	"github.com/FezVrasta/hassflow/pkg/transpile"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API can use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// cachedParse is the cache representation of a parse result.
type cachedParse struct {
	Graph    *graph.Graph `json:"graph"`
	Warnings []string     `json:"warnings,omitempty"`
}

// cachedTranspile is the cache representation of a transpile result.
type cachedTranspile struct {
	Strategy string   `json:"strategy"`
	YAML     []byte   `json:"yaml"`
	Warnings []string `json:"warnings,omitempty"`
}

// Execute runs the complete parse → transpile → render pipeline with
// caching. The render stage only runs when opts.Formats is non-empty.
func (r *Runner) Execute(ctx context.Context, source []byte, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	r.applyLogger(&opts)

	result := &Result{
		Artifacts: make(map[string][]byte),
	}

	// Stage 1: Parse
	parseStart := time.Now()
	g, warnings, parseHit, err := r.ParseWithCacheInfo(ctx, source, opts)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	result.Graph = g
	result.Warnings = append(result.Warnings, warnings...)
	result.Stats.ParseTime = time.Since(parseStart)
	result.Stats.NodeCount = len(g.Nodes)
	result.Stats.EdgeCount = len(g.Edges)
	result.CacheInfo.ParseHit = parseHit

	// Compute graph hash for cache keys and API responses
	if graphData, err := json.Marshal(g); err == nil {
		result.GraphHash = cache.Hash(graphData)
	}

	r.Logger.Info("parsed document",
		"nodes", len(g.Nodes),
		"edges", len(g.Edges),
		"duration", result.Stats.ParseTime)

	// Stage 2: Transpile
	transpileStart := time.Now()
	doc, yamlOut, strategy, warnings, transpileHit, err := r.TranspileWithCacheInfo(ctx, g, opts)
	if err != nil {
		return nil, fmt.Errorf("transpile: %w", err)
	}
	result.Document = doc
	result.YAML = yamlOut
	result.Strategy = strategy
	result.Warnings = append(result.Warnings, warnings...)
	result.Stats.TranspileTime = time.Since(transpileStart)
	result.CacheInfo.TranspileHit = transpileHit

	r.Logger.Info("generated document",
		"strategy", strategy,
		"duration", result.Stats.TranspileTime)

	// Stage 3: Render previews
	if len(opts.Formats) > 0 {
		renderStart := time.Now()
		artifacts, renderHit, err := r.RenderWithCacheInfo(ctx, g, opts)
		if err != nil {
			return nil, fmt.Errorf("render: %w", err)
		}
		result.Artifacts = artifacts
		result.Stats.RenderTime = time.Since(renderStart)
		result.CacheInfo.RenderHit = renderHit

		r.Logger.Info("rendered previews",
			"formats", opts.Formats,
			"duration", result.Stats.RenderTime)
	}

	return result, nil
}

// ParseWithCacheInfo parses a document with caching and returns cache
// hit info.
func (r *Runner) ParseWithCacheInfo(ctx context.Context, source []byte, opts Options) (*graph.Graph, []string, bool, error) {
	opts.setDefaults()
	r.applyLogger(&opts)

	hooks := observability.Transpiler()
	hooks.OnStageStart("parse")
	start := time.Now()

	cacheKey := r.Keyer.GraphKey(cache.Hash(source), opts.GraphKeyOpts())

	// Try cache first (unless refresh requested)
	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			var cached cachedParse
			if err := json.Unmarshal(data, &cached); err == nil && cached.Graph != nil {
				observability.CacheObserver().OnHit("graph")
				hooks.OnStageComplete("parse", time.Since(start), nil)
				return cached.Graph, cached.Warnings, true, nil
			}
		}
		observability.CacheObserver().OnMiss("graph")
	}

	res := transpile.ParseWithLimits(source, opts.Limits())
	if !res.Success {
		err := firstError(res.Errors)
		hooks.OnStageComplete("parse", time.Since(start), err)
		return nil, nil, false, err
	}

	// Cache the result
	if !opts.Refresh {
		if data, err := json.Marshal(cachedParse{Graph: res.Graph, Warnings: res.Warnings}); err == nil {
			if err := r.Cache.Set(ctx, cacheKey, data, cache.TTLGraph); err == nil {
				observability.CacheObserver().OnSet("graph", len(data))
			} else {
				observability.CacheObserver().OnError("set", err)
			}
		}
	}

	hooks.OnStageComplete("parse", time.Since(start), nil)
	return res.Graph, res.Warnings, false, nil
}

// Parse is a convenience wrapper that calls ParseWithCacheInfo and
// discards the cache hit info.
func (r *Runner) Parse(ctx context.Context, source []byte, opts Options) (*graph.Graph, []string, error) {
	g, warnings, _, err := r.ParseWithCacheInfo(ctx, source, opts)
	return g, warnings, err
}

// TranspileWithCacheInfo generates a document with caching and returns
// cache hit info.
func (r *Runner) TranspileWithCacheInfo(ctx context.Context, g *graph.Graph, opts Options) (*automation.Document, []byte, string, []string, bool, error) {
	opts.setDefaults()
	r.applyLogger(&opts)

	hooks := observability.Transpiler()
	hooks.OnStageStart("generate")
	start := time.Now()

	// Compute cache key from the graph content
	graphData, err := json.Marshal(g)
	if err != nil {
		return nil, nil, "", nil, false, fmt.Errorf("serialize graph for cache key: %w", err)
	}
	cacheKey := r.Keyer.DocumentKey(cache.Hash(graphData), opts.DocumentKeyOpts())

	// Try cache first (unless refresh requested)
	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			var cached cachedTranspile
			if err := json.Unmarshal(data, &cached); err == nil && len(cached.YAML) > 0 {
				if doc, _, err := automation.Parse(cached.YAML); err == nil {
					observability.CacheObserver().OnHit("document")
					hooks.OnStrategySelected(cached.Strategy, opts.Strategy != "")
					hooks.OnStageComplete("generate", time.Since(start), nil)
					return doc, cached.YAML, cached.Strategy, cached.Warnings, true, nil
				}
			}
		}
		observability.CacheObserver().OnMiss("document")
	}

	res := transpile.Transpile(g, opts.TranspileOptions())
	if !res.Success {
		err := firstError(res.Errors)
		hooks.OnStageComplete("generate", time.Since(start), err)
		return nil, nil, "", nil, false, err
	}

	// Cache the result
	if !opts.Refresh {
		entry := cachedTranspile{
			Strategy: string(res.Strategy),
			YAML:     res.YAML,
			Warnings: res.Warnings,
		}
		if data, err := json.Marshal(entry); err == nil {
			if err := r.Cache.Set(ctx, cacheKey, data, cache.TTLDocument); err == nil {
				observability.CacheObserver().OnSet("document", len(data))
			} else {
				observability.CacheObserver().OnError("set", err)
			}
		}
	}

	hooks.OnStrategySelected(string(res.Strategy), opts.Strategy != "")
	hooks.OnStageComplete("generate", time.Since(start), nil)
	return res.Document, res.YAML, string(res.Strategy), res.Warnings, false, nil
}

// Transpile is a convenience wrapper that calls TranspileWithCacheInfo
// and discards the cache hit info.
func (r *Runner) Transpile(ctx context.Context, g *graph.Graph, opts Options) (*automation.Document, []byte, string, error) {
	doc, data, strategy, _, _, err := r.TranspileWithCacheInfo(ctx, g, opts)
	return doc, data, strategy, err
}

// RenderWithCacheInfo generates previews with caching and returns cache
// hit info.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, g *graph.Graph, opts Options) (map[string][]byte, bool, error) {
	opts.setDefaults()
	if err := ValidateFormats(opts.Formats); err != nil {
		return nil, false, err
	}
	r.applyLogger(&opts)

	hooks := observability.Transpiler()
	hooks.OnStageStart("render")
	start := time.Now()

	graphData, err := json.Marshal(g)
	if err != nil {
		return nil, false, fmt.Errorf("serialize graph for cache key: %w", err)
	}
	graphHash := cache.Hash(graphData)

	// Try to get all formats from cache
	allCached := true
	artifacts := make(map[string][]byte)

	if !opts.Refresh {
		for _, format := range opts.Formats {
			cacheKey := r.Keyer.ArtifactKey(graphHash, opts.ArtifactKeyOpts(format))
			if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
				artifacts[format] = data
			} else {
				allCached = false
				break
			}
		}
		if allCached && len(artifacts) == len(opts.Formats) {
			observability.CacheObserver().OnHit("artifact")
			hooks.OnStageComplete("render", time.Since(start), nil)
			return artifacts, true, nil
		}
		observability.CacheObserver().OnMiss("artifact")
	}

	// Render all formats
	rendered := make(map[string][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		data, err := render.Render(ctx, g, render.Format(format), render.Options{Detailed: opts.Detailed})
		if err != nil {
			hooks.OnStageComplete("render", time.Since(start), err)
			return nil, false, fmt.Errorf("render %s: %w", format, err)
		}
		rendered[format] = data
	}

	// Cache each format
	if !opts.Refresh {
		for format, data := range rendered {
			cacheKey := r.Keyer.ArtifactKey(graphHash, opts.ArtifactKeyOpts(format))
			if err := r.Cache.Set(ctx, cacheKey, data, cache.TTLArtifact); err == nil {
				observability.CacheObserver().OnSet("artifact", len(data))
			} else {
				observability.CacheObserver().OnError("set", err)
			}
		}
	}

	hooks.OnStageComplete("render", time.Since(start), nil)
	return rendered, false, nil
}

// Render is a convenience wrapper that calls RenderWithCacheInfo and
// discards the cache hit info.
func (r *Runner) Render(ctx context.Context, g *graph.Graph, opts Options) (map[string][]byte, error) {
	artifacts, _, err := r.RenderWithCacheInfo(ctx, g, opts)
	return artifacts, err
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

// firstError returns the leading error of a failed stage result.
func firstError(errs []error) error {
	if len(errs) == 0 {
		return fmt.Errorf("stage failed without a reported error")
	}
	return errs[0]
}
