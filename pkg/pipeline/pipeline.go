// Package pipeline provides the core transpilation pipeline for hassflow.
//
// This package implements the complete parse → transpile → render pipeline
// that can be used by CLI and API components. By centralizing this logic,
// we ensure consistent behavior across all entry points and avoid code
// duplication.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Parse: Convert an automation document into a node/edge graph
//  2. Transpile: Generate an automation document from a graph, choosing
//     between the native and state-machine strategies
//  3. Render: Generate visual previews (DOT, SVG)
//
// Each stage can be run independently or as part of the complete pipeline.
//
// # Usage
//
// Create a Runner and execute the pipeline:
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.Options{Formats: []string{"svg"}}
//	result, err := runner.Execute(ctx, source, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svg := result.Artifacts["svg"]
//
// Run individual stages:
//
//	g, warnings, err := runner.Parse(ctx, source, opts)
//	doc, err := runner.Transpile(ctx, g, opts)
package pipeline

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/FezVrasta/hassflow/pkg/automation"
	"github.com/FezVrasta/hassflow/pkg/cache"
	"github.com/FezVrasta/hassflow/pkg/graph"
	"github.com/FezVrasta/hassflow/pkg/render"
	"github.com/FezVrasta/hassflow/pkg/transpile"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

// Format constants for preview output formats.
const (
	FormatDOT = string(render.FormatDOT)
	FormatSVG = string(render.FormatSVG)
)

// ValidFormats is the set of supported preview formats.
var ValidFormats = map[string]bool{
	FormatDOT: true,
	FormatSVG: true,
}

// ValidStrategies is the set of strategies that may be forced.
// The empty string means automatic selection.
var ValidStrategies = map[string]bool{
	string(transpile.StrategyNative):       true,
	string(transpile.StrategyStateMachine): true,
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for the transpilation pipeline.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Parse options
	ExplosionFactor  int  `json:"explosion_factor,omitempty"`
	MaxDepth         int  `json:"max_depth,omitempty"`
	IterationCeiling int  `json:"iteration_ceiling,omitempty"`
	MaxNodes         int  `json:"max_nodes,omitempty"`
	Refresh          bool `json:"refresh,omitempty"` // Bypass the cache and recompute

	// Transpile options
	Strategy string `json:"strategy,omitempty"` // Force a strategy; empty = auto

	// Render options
	Formats  []string `json:"formats,omitempty"` // Preview formats; empty = no previews
	Detailed bool     `json:"detailed,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Graph is the parsed automation graph.
	Graph *graph.Graph

	// GraphHash is the content hash of the graph.
	GraphHash string

	// Strategy is the generation strategy that was used.
	Strategy string

	// Document is the generated automation document.
	Document *automation.Document

	// YAML is the serialized automation document.
	YAML []byte

	// Artifacts contains rendered previews keyed by format.
	Artifacts map[string][]byte

	// Warnings collects non-fatal diagnostics from every stage.
	Warnings []string

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	NodeCount     int
	EdgeCount     int
	ParseTime     time.Duration
	TranspileTime time.Duration
	RenderTime    time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	ParseHit     bool // Whether the parse result came from cache
	TranspileHit bool // Whether the transpile result came from cache
	RenderHit    bool // Whether all previews came from cache
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a preview format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return fmt.Errorf("invalid format: %q (must be one of: dot, svg)", format)
	}
	return nil
}

// ValidateFormats checks that all preview formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ValidateStrategy checks that a forced strategy is valid.
// The empty string is valid and means automatic selection.
func ValidateStrategy(strategy string) error {
	if strategy != "" && !ValidStrategies[strategy] {
		return fmt.Errorf("invalid strategy: %q (must be one of: native, state-machine)", strategy)
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks fields and applies defaults for the full
// pipeline. This method is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := ValidateStrategy(o.Strategy); err != nil {
		return err
	}
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	o.setDefaults()
	o.validated = true
	return nil
}

func (o *Options) setDefaults() {
	if o.ExplosionFactor == 0 {
		o.ExplosionFactor = transpile.DefaultExplosionFactor
	}
	if o.MaxDepth == 0 {
		o.MaxDepth = transpile.DefaultMaxDepth
	}
	if o.IterationCeiling == 0 {
		o.IterationCeiling = transpile.DefaultIterationCeiling
	}
	if o.MaxNodes == 0 {
		o.MaxNodes = transpile.DefaultMaxNodes
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// Limits returns the resource bounds as transpiler limits.
func (o *Options) Limits() transpile.Limits {
	return transpile.Limits{
		ExplosionFactor:  o.ExplosionFactor,
		MaxDepth:         o.MaxDepth,
		IterationCeiling: o.IterationCeiling,
		MaxNodes:         o.MaxNodes,
	}
}

// TranspileOptions returns the stage options for document generation.
func (o *Options) TranspileOptions() transpile.Options {
	return transpile.Options{
		ForceStrategy: transpile.Strategy(o.Strategy),
		Limits:        o.Limits(),
	}
}

// GraphKeyOpts returns cache key options for parse results.
func (o *Options) GraphKeyOpts() cache.GraphKeyOpts {
	return cache.GraphKeyOpts{
		ExplosionFactor: o.ExplosionFactor,
		MaxDepth:        o.MaxDepth,
		MaxNodes:        o.MaxNodes,
	}
}

// DocumentKeyOpts returns cache key options for transpile results.
func (o *Options) DocumentKeyOpts() cache.DocumentKeyOpts {
	return cache.DocumentKeyOpts{
		Strategy:         o.Strategy,
		IterationCeiling: o.IterationCeiling,
	}
}

// ArtifactKeyOpts returns cache key options for preview rendering.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{
		Format: format,
	}
}
