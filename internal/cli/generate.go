package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// generateOpts holds the command-line flags for the generate command.
type generateOpts struct {
	output   string // output file path (stdout if empty)
	strategy string // force a generation strategy
	refresh  bool   // bypass the result cache
}

// newGenerateCmd creates the generate command, which converts a graph
// back into an automation document.
func newGenerateCmd(root *rootOpts) *cobra.Command {
	opts := generateOpts{}

	cmd := &cobra.Command{
		Use:   "generate <graph.json>",
		Short: "Convert a graph into an automation document",
		Long: `Generate a Home Assistant automation document from a graph.

The generation strategy is chosen automatically: structured graphs
produce native condition and choose blocks, while graphs with cycles or
non-structured merges are emulated with a bounded state-machine loop.
Use --strategy to force a specific strategy; forcing "native" on a graph
that needs emulation fails with a structural diagnosis.

Examples:
  hassflow generate graph.json                         # YAML to stdout
  hassflow generate graph.json -o automation.yaml      # Write to a file
  hassflow generate graph.json --strategy state-machine`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, args[0], root, &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (stdout if empty)")
	cmd.Flags().StringVarP(&opts.strategy, "strategy", "s", "", "force strategy: native or state-machine")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "bypass cache")

	return cmd
}

func runGenerate(cmd *cobra.Command, input string, root *rootOpts, opts *generateOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	cfg, err := root.config()
	if err != nil {
		return err
	}
	runner, err := newRunner(ctx, cfg)
	if err != nil {
		return err
	}
	defer runner.Close()

	g, err := loadGraph(input)
	if err != nil {
		return err
	}
	logger.Infof("Loaded graph: %d nodes, %d edges", len(g.Nodes), len(g.Edges))

	pOpts := pipelineOptions(cfg)
	pOpts.Strategy = opts.strategy
	pOpts.Refresh = opts.refresh

	prog := newProgress(logger)
	_, data, strategy, warnings, hit, err := runner.TranspileWithCacheInfo(ctx, g, pOpts)
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Generated %s document", strategy))

	for _, warning := range warnings {
		printWarning("%s", warning)
	}

	if err := writeOutput(data, opts.output); err != nil {
		return err
	}
	if opts.output != "" {
		printSuccess("Wrote automation (%s strategy)", strategy)
		printFile(opts.output)
		printStats(len(g.Nodes), len(g.Edges), hit)
	}
	return nil
}
