package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	version string // semantic version (e.g., "v1.2.3")
	commit  string // git commit SHA
	date    string // build timestamp
)

// SetVersion sets the version information displayed by --version.
// This is typically called by the main package during initialization
// with values injected via ldflags at build time.
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// rootOpts holds the persistent flags shared by every command.
type rootOpts struct {
	verbose    bool
	configFile string
}

// config loads the configuration honoring the --config flag.
func (o *rootOpts) config() (Config, error) {
	return loadConfig(o.configFile)
}

// Execute runs the hassflow CLI and returns an error if any command
// fails. This is the main entry point for the CLI application.
//
// The function sets up the root command with all subcommands, configures
// logging based on the --verbose flag, and executes the command tree.
//
// Logging:
//   - Default: info level (logs to stderr)
//   - With --verbose (-v): debug level
//
// The logger is attached to the context and accessible to all commands
// via loggerFromContext.
func Execute() error {
	opts := &rootOpts{}

	root := &cobra.Command{
		Use:          "hassflow",
		Short:        "hassflow converts automation documents to graphs and back",
		Long:         `hassflow is a bidirectional transpiler between Home Assistant automation documents and visual node graphs. It parses YAML automations into editable graphs and generates clean YAML back, emulating loops with a state machine when the structure requires it.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := charmlog.InfoLevel
			if opts.verbose {
				level = charmlog.DebugLevel
			}
			ctx := withLogger(cmd.Context(), newLogger(os.Stderr, level))
			cmd.SetContext(ctx)
		},
	}

	root.SetVersionTemplate(fmt.Sprintf("hassflow %s\ncommit: %s\nbuilt: %s\n", version, commit, date))
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (default ~/.config/hassflow/config.toml)")

	root.AddCommand(newParseCmd(opts))
	root.AddCommand(newGenerateCmd(opts))
	root.AddCommand(newClassifyCmd(opts))
	root.AddCommand(newRenderCmd(opts))
	root.AddCommand(newInspectCmd(opts))
	root.AddCommand(newServeCmd(opts))
	root.AddCommand(newCacheCmd(opts))
	root.AddCommand(newCompletionCmd())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return root.ExecuteContext(ctx)
}
