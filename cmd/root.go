// Package cmd contains the roze-mcp command line interface.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// subCommandGroup is used to group subcommands in the help output.
type subCommandGroup string

const (
	subCommandGroupBasic    subCommandGroup = "basic"
	subCommandGroupAdvanced subCommandGroup = "advanced"
)

var rootCmd = &cobra.Command{
	Use:   "roze-mcp",
	Short: "Contract-validating bridge between MCP clients and the Roze API",
	Long: "roze-mcp exposes the Roze API as MCP tools over a stdio JSON-RPC channel.\n\n" +
		"Every tool payload is validated against the shared contract (OpenAPI + JSON Schema)\n" +
		"before it is forwarded to the backend, and a proxy policy decides which environment\n" +
		"targets may be reached. By default only the dev target is permitted.",
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// newLogger builds the process logger. All log output goes to stderr because
// stdout carries the JSON-RPC protocol stream.
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level '%s': %w", level, err)
	}

	conf := zap.NewProductionConfig()
	conf.Level = zap.NewAtomicLevelAt(lvl)
	conf.OutputPaths = []string{"stderr"}
	conf.ErrorOutputPaths = []string{"stderr"}
	return conf.Build()
}
