package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/emscape/roze-mcp/internal/config"
	"github.com/emscape/roze-mcp/internal/devbackend"
	"github.com/emscape/roze-mcp/internal/telemetry"
)

const (
	devBackendPortEnvVar  = "PORT"
	devBackendPortDefault = "8787"
)

var devBackendCmd = &cobra.Command{
	Use:   "dev-backend",
	Short: "Run a local stub of the backend API",
	Long: "Runs a local HTTP server implementing the backend endpoint family\n" +
		"(GET /healthz, POST /v1/orders, POST /v1/subscribe) with canned responses.\n" +
		"Point " + config.APIBaseDevEnvVar + " at it to exercise the bridge end-to-end without a real backend.",
	RunE: runDevBackend,
	Annotations: map[string]string{
		"group": string(subCommandGroupAdvanced),
		"order": "4",
	},
}

var devBackendCmdBindPort string

func init() {
	devBackendCmd.Flags().StringVar(
		&devBackendCmdBindPort,
		"port",
		"",
		fmt.Sprintf("port to bind the HTTP server to (overrides env var %s)", devBackendPortEnvVar),
	)

	rootCmd.AddCommand(devBackendCmd)
}

// getDevBackendBindPort returns the TCP port to bind the stub backend to.
// precedence: command line flag > environment variable > default
func getDevBackendBindPort() string {
	port := devBackendCmdBindPort
	if port == "" {
		port = os.Getenv(devBackendPortEnvVar)
	}
	if port == "" {
		port = devBackendPortDefault
	}
	return port
}

func runDevBackend(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	conf, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := newLogger(conf.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	otelProviders, err := telemetry.Init(cmd.Context(), &telemetry.Config{
		ServiceName: "roze-dev-backend",
		Enabled:     conf.TelemetryEnabled,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry providers: %w", err)
	}
	defer func() {
		if err := otelProviders.Shutdown(cmd.Context()); err != nil {
			cmd.Printf("Warning: failed to shutdown telemetry providers: %v\n", err)
		}
	}()

	port := getDevBackendBindPort()

	s, err := devbackend.NewServer(&devbackend.ServerOptions{
		Port:          port,
		OtelProviders: otelProviders,
		Logger:        logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create dev backend server: %w", err)
	}

	cmd.Printf("Stub backend listening on :%s\n", port)
	if err := s.Start(); err != nil {
		return fmt.Errorf("failed to run the server: %w", err)
	}
	return nil
}
