package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sha1n/mcp-vocab-server/internal/app"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	// Version is injected at build time
	Version = "dev"
	// Build is injected at build time
	Build = "unknown"
	// ProgramName is injected at build time
	ProgramName = "vocab-mcp"
)

func main() {
	runMain(os.Args, os.Exit)
}

func runMain(args []string, exit func(int)) {
	if err := Execute(Version, Build, ProgramName, args[1:]); err != nil {
		exit(1)
	}
}

// Execute is the entry point for the CLI, extracted for testing
func Execute(version, build, programName string, args []string) error {
	rootCmd := newRootCmd(version, build, programName)
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func newRootCmd(version, build, programName string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   programName,
		Short: "Vocabulary MCP Server",
		Long: `Serves search over SKOS vocabularies exported as JSON-LD.

Without a subcommand the MCP server is started on stdio or SSE.`,
		Version:      version,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithFlags(cmd.Context(), cmd.Flags(), version)
		},
	}

	rootCmd.SetVersionTemplate(`{{.Version}} (build ` + build + `)
`)

	app.RegisterFlags(rootCmd.Flags())
	rootCmd.AddCommand(newIndexCmd(), newSearchCmd(), newAggregateCmd())

	return rootCmd
}

func runWithFlags(ctx context.Context, flags *pflag.FlagSet, version string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return app.RunWithDeps(ctx, app.DefaultRunParams(), flags, version)
}
