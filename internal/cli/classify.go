package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/FezVrasta/hassflow/pkg/transpile"
)

// newClassifyCmd creates the classify command, which reports whether a
// graph can be generated natively or needs state-machine emulation.
func newClassifyCmd(root *rootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "classify <graph.json>",
		Short: "Report which generation strategy a graph needs",
		Long: `Analyze a graph's structure and report the generation strategy.

A graph is native when its control flow is structured: no cycles and
every branch reconverges at a single join. Cycles and non-structured
merges force state-machine emulation; the analysis lists each offending
edge and node.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := loadGraph(args[0])
			if err != nil {
				return err
			}

			analysis := transpile.Analyze(g)

			printKeyValue("strategy", string(analysis.Strategy))
			printKeyValue("nodes", fmt.Sprintf("%d", len(g.Nodes)))
			printKeyValue("edges", fmt.Sprintf("%d", len(g.Edges)))

			if len(analysis.BackEdges) > 0 {
				printNewlineSection("Cycles")
				for _, e := range analysis.BackEdges {
					printDetail("%s %s %s", e.Source, iconArrow, e.Target)
				}
			}
			if len(analysis.Reconvergent) > 0 {
				printNewlineSection("Non-structured merges")
				printDetail("%s", strings.Join(analysis.Reconvergent, ", "))
			}

			if analysis.Strategy == transpile.StrategyNative {
				printSuccess("Graph is structured; native generation applies")
			} else {
				printInfo("Graph needs state-machine emulation")
			}
			return nil
		},
	}
}

// printNewlineSection prints a blank line followed by a dim heading.
func printNewlineSection(title string) {
	fmt.Println()
	fmt.Println(StyleDim.Render(title))
}
