package cli

import (
	"github.com/spf13/cobra"

	"github.com/FezVrasta/hassflow/internal/server"
	"github.com/FezVrasta/hassflow/pkg/cache"
	"github.com/FezVrasta/hassflow/pkg/pipeline"
)

// serveOpts holds the command-line flags for the serve command.
type serveOpts struct {
	addr     string // listen address
	redisURL string // shared cache backend
	noCache  bool   // disable caching entirely
}

// newServeCmd creates the serve command, which runs the HTTP API.
// The cache backend is Redis when --redis (or the config) provides a
// URL, otherwise the local file cache.
func newServeCmd(root *rootOpts) *cobra.Command {
	opts := serveOpts{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the hassflow HTTP API",
		Long: `Run the HTTP API exposing the transpilation pipeline.

Endpoints:
  POST /api/parse      automation YAML to graph JSON
  POST /api/transpile  graph JSON to automation YAML
  POST /api/render     graph JSON to DOT or SVG preview
  GET  /healthz        liveness probe
  GET  /version        build information`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, root, &opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (default from config, then :8089)")
	cmd.Flags().StringVar(&opts.redisURL, "redis", "", "redis URL for a shared cache")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable result caching")

	return cmd
}

func runServe(cmd *cobra.Command, root *rootOpts, opts *serveOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	cfg, err := root.config()
	if err != nil {
		return err
	}

	addr := opts.addr
	if addr == "" {
		addr = cfg.Server.Addr
	}
	redisURL := opts.redisURL
	if redisURL == "" {
		redisURL = cfg.Server.RedisURL
	}

	backend, err := serveCache(cmd, cfg, redisURL, opts.noCache)
	if err != nil {
		return err
	}

	runner := pipeline.NewRunner(backend, nil, logger)
	defer runner.Close()

	printInfo("Serving on %s", addr)
	return server.New(runner, logger).ListenAndServe(ctx, addr)
}

// serveCache selects the cache backend for the server.
func serveCache(cmd *cobra.Command, cfg Config, redisURL string, disabled bool) (cache.Cache, error) {
	logger := loggerFromContext(cmd.Context())

	switch {
	case disabled || cfg.Cache.Disabled:
		logger.Debug("caching disabled")
		return cache.NewNullCache(), nil
	case redisURL != "":
		logger.Info("using redis cache")
		return cache.NewRedisCache(cmd.Context(), redisURL)
	default:
		dir, err := cfg.cacheDir()
		if err != nil {
			return nil, err
		}
		logger.Debug("using file cache", "dir", dir)
		return cache.NewFileCache(dir)
	}
}
