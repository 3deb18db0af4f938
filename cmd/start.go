package cmd

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/emscape/roze-mcp/internal/config"
	"github.com/emscape/roze-mcp/internal/contract"
	"github.com/emscape/roze-mcp/internal/db"
	"github.com/emscape/roze-mcp/internal/gateway"
	"github.com/emscape/roze-mcp/internal/migrations"
	"github.com/emscape/roze-mcp/internal/policy"
	"github.com/emscape/roze-mcp/internal/service/audit"
	"github.com/emscape/roze-mcp/internal/service/bridge"
	"github.com/emscape/roze-mcp/internal/telemetry"
	"github.com/emscape/roze-mcp/internal/transport"
	"github.com/emscape/roze-mcp/pkg/types"
	"github.com/emscape/roze-mcp/pkg/version"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the roze-mcp bridge on stdin/stdout",
	Long: "Starts the bridge: it reads JSON-RPC requests from stdin, one per line, and writes\n" +
		"responses to stdout. All logging goes to stderr.\n\n" +
		"The backend is selected with the " + config.BackendEnvVar + " environment variable ('http' or 'callable').\n" +
		"For the http backend, set " + config.APIBaseDevEnvVar + " and (if the proxy mode permits prod)\n" +
		config.APIBaseProdEnvVar + ". For the callable backend, set " + config.CallableRegionEnvVar + " and " + config.CallableProjectEnvVar + ".\n\n" +
		"Set " + config.ProxyModeEnvVar + " to 'all' to lift the default dev-only restriction.\n" +
		"Set " + config.DBUrlEnvVar + " to enable the invocation audit trail (sqlite path or postgres:// DSN).",
	RunE: runStart,
	Annotations: map[string]string{
		"group": string(subCommandGroupBasic),
		"order": "1",
	},
}

func init() {
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
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

	store, err := contract.Load(afero.NewOsFs(), conf.ContractsDir)
	if err != nil {
		return fmt.Errorf("failed to load contract documents: %w", err)
	}

	gate := policy.NewGate(conf.ProxyMode)

	endpoints := make(map[types.Target]types.EndpointSet, len(conf.TargetBaseURLs))
	for target := range conf.TargetBaseURLs {
		eps, err := conf.Endpoints(target)
		if err != nil {
			return err
		}
		endpoints[target] = eps
	}

	var gw gateway.Gateway
	switch conf.Backend {
	case config.BackendCallable:
		gw = gateway.NewCallableGateway(&gateway.CallableConfig{
			Region:  conf.CallableRegion,
			Project: conf.CallableProject,
		}, logger)
	default:
		gw = gateway.NewHTTPGateway(endpoints, logger)
	}

	otelProviders, err := telemetry.Init(cmd.Context(), &telemetry.Config{
		ServiceName: "roze-mcp",
		Enabled:     conf.TelemetryEnabled,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry providers: %w", err)
	}
	defer func() {
		if err := otelProviders.Shutdown(cmd.Context()); err != nil {
			logger.Warn("failed to shutdown telemetry providers", zap.Error(err))
		}
	}()

	// A no-op metrics implementation is used when telemetry is disabled, so
	// the dispatch pipeline never checks whether metrics are enabled.
	metrics := telemetry.NewNoopCustomMetrics()
	if otelProviders.IsEnabled() {
		metrics, err = telemetry.NewOtelCustomMetrics(otelProviders.Meter)
		if err != nil {
			return fmt.Errorf("failed to create bridge metrics: %w", err)
		}
		// stdout is the protocol channel, so metrics get their own listener.
		go serveMetrics(conf.MetricsPort, logger)
	}

	recorder := audit.NewNoopRecorder()
	if conf.DatabaseURL != "" {
		dbConn, err := db.NewDBConnection(conf.DatabaseURL)
		if err != nil {
			return err
		}
		if err := migrations.Migrate(dbConn); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		recorder = audit.NewDBRecorder(dbConn, logger)
	}

	mcpServer := server.NewMCPServer(
		"roze-mcp",
		version.GetVersion(),
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	svc, err := bridge.NewService(&bridge.ServiceConfig{
		MCPServer: mcpServer,
		Contracts: store,
		Gate:      gate,
		Gateway:   gw,
		Endpoints: endpoints,
		Metrics:   metrics,
		Audit:     recorder,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create bridge service: %w", err)
	}

	logger.Info("bridge ready",
		zap.Strings("tools", svc.ToolNames()),
		zap.String("backend", string(conf.Backend)),
		zap.String("proxyMode", string(conf.ProxyMode)),
	)

	// A fatal signal closes the input stream gracefully and exits 0.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loop := transport.NewStdioLoop(mcpServer, logger)
	return loop.Listen(ctx)
}

func serveMetrics(port string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(":"+port, mux); err != nil {
		logger.Warn("metrics listener stopped", zap.Error(err))
	}
}
