package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/FezVrasta/hassflow/pkg/cache"
	"github.com/FezVrasta/hassflow/pkg/graph"
	"github.com/FezVrasta/hassflow/pkg/pipeline"
)

// readInput reads the file at path, or stdin when path is "-".
func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

// loadGraph reads and decodes a graph JSON file.
func loadGraph(path string) (*graph.Graph, error) {
	data, err := readInput(path)
	if err != nil {
		return nil, err
	}
	g, err := graph.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return g, nil
}

// writeOutput writes data to path, or stdout when path is empty.
func writeOutput(data []byte, path string) error {
	if path == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// writeGraphJSON serializes g as indented JSON to path (or stdout).
func writeGraphJSON(g *graph.Graph, path string) error {
	data, err := graph.Marshal(g)
	if err != nil {
		return err
	}
	return writeOutput(append(data, '\n'), path)
}

// newRunner builds a pipeline runner from the configuration.
// The cache backend is a file cache under the configured directory,
// or a null cache when caching is disabled.
func newRunner(ctx context.Context, cfg Config) (*pipeline.Runner, error) {
	logger := loggerFromContext(ctx)

	var backend cache.Cache
	if cfg.Cache.Disabled {
		backend = cache.NewNullCache()
	} else {
		dir, err := cfg.cacheDir()
		if err != nil {
			return nil, err
		}
		backend, err = cache.NewFileCache(dir)
		if err != nil {
			return nil, err
		}
	}

	return pipeline.NewRunner(backend, nil, logger), nil
}

// pipelineOptions converts the configured limits into stage options.
func pipelineOptions(cfg Config) pipeline.Options {
	return pipeline.Options{
		ExplosionFactor:  cfg.Limits.ExplosionFactor,
		MaxDepth:         cfg.Limits.MaxDepth,
		IterationCeiling: cfg.Limits.IterationCeiling,
		MaxNodes:         cfg.Limits.MaxNodes,
	}
}
