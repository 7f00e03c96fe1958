// Package commands implements the CLI commands for the bindle bundler.
package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.trai.ch/bindle/internal/adapters/telemetry"
	"go.trai.ch/bindle/internal/app"
	"go.trai.ch/bindle/internal/build"
)

// CLI represents the command line interface for bindle.
type CLI struct {
	components      *app.Components
	rootCmd         *cobra.Command
	shutdownTracing func(context.Context) error
}

// New creates a new CLI instance with the given components.
func New(components *app.Components) *CLI {
	rootCmd := &cobra.Command{
		Use:           "bindle",
		Short:         "A dependency-aware module bundler for the browser",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       build.Version,
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"{{.Name}} version {{.Version}} (commit: %s, date: %s)\n",
		build.Commit,
		build.Date,
	))
	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	rootCmd.PersistentFlags().Bool("json", false, "Log as JSON instead of pretty output")
	rootCmd.PersistentFlags().Bool("trace", false, "Log operations slower than the tracing threshold")

	c := &CLI{
		components: components,
		rootCmd:    rootCmd,
	}

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, _ []string) {
		if jsonLogs, _ := cmd.Flags().GetBool("json"); jsonLogs {
			components.Logger.SetJSON(true)
		}
		if traced, _ := cmd.Flags().GetBool("trace"); traced {
			c.shutdownTracing = telemetry.Setup(components.Logger)
		}
	}
	rootCmd.PersistentPostRun = func(cmd *cobra.Command, _ []string) {
		if c.shutdownTracing != nil {
			_ = c.shutdownTracing(cmd.Context())
		}
	}

	rootCmd.AddCommand(c.newServeCmd())
	rootCmd.AddCommand(c.newBuildCmd())
	rootCmd.AddCommand(c.newCleanCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput sets the output and error streams for the root command. Used for testing.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}
