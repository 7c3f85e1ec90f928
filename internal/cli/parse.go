package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// parseOpts holds the command-line flags for the parse command.
type parseOpts struct {
	output  string // output file path (stdout if empty)
	refresh bool   // bypass the result cache
}

// newParseCmd creates the parse command, which converts an automation
// document into a graph JSON file ready for visual editing.
func newParseCmd(root *rootOpts) *cobra.Command {
	opts := parseOpts{}

	cmd := &cobra.Command{
		Use:   "parse <automation.yaml>",
		Short: "Convert an automation document into a graph",
		Long: `Parse a Home Assistant automation document into a node/edge graph.

The graph is written as JSON and can be edited, rendered, or converted
back with "hassflow generate". Stored layout metadata in the document is
used to restore node ids and positions.

Examples:
  hassflow parse automation.yaml                 # Graph JSON to stdout
  hassflow parse automation.yaml -o graph.json   # Write to a file
  cat automation.yaml | hassflow parse -         # Read from stdin`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(cmd, args[0], root, &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (stdout if empty)")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "bypass cache")

	return cmd
}

func runParse(cmd *cobra.Command, input string, root *rootOpts, opts *parseOpts) error {
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

	source, err := readInput(input)
	if err != nil {
		return err
	}

	prog := newProgress(logger)
	pOpts := pipelineOptions(cfg)
	pOpts.Refresh = opts.refresh

	g, warnings, hit, err := runner.ParseWithCacheInfo(ctx, source, pOpts)
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Parsed %d nodes with %d edges", len(g.Nodes), len(g.Edges)))

	for _, warning := range warnings {
		printWarning("%s", warning)
	}

	if err := writeGraphJSON(g, opts.output); err != nil {
		return err
	}
	if opts.output != "" {
		printSuccess("Wrote graph")
		printFile(opts.output)
		printStats(len(g.Nodes), len(g.Edges), hit)
		printNextStep("Generate it back", fmt.Sprintf("hassflow generate %s", opts.output))
	}
	return nil
}
