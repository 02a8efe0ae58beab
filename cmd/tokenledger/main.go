package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/janekbaraniewski/tokenledger/internal/version"
)

const debugEnv = "TOKENLEDGER_DEBUG"

func main() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	flags := &reportFlags{}
	root := &cobra.Command{
		Use:           "tokenledger",
		Short:         "tokenledger reports token usage and cost from local AI coding assistant logs.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags.register(root)

	// Report commands at the top level read Claude Code logs.
	root.AddCommand(newReportCommands(flags, "claude")...)
	root.AddCommand(newSourceCommands(flags)...)
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	})
	return root
}

// newLogger returns a no-op logger unless debugging is requested.
func newLogger(debug bool) *zap.Logger {
	if !debug && strings.TrimSpace(os.Getenv(debugEnv)) == "" {
		return zap.NewNop()
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	cfg.OutputPaths = []string{"stderr"}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
