// Package config builds the bridge configuration from the process environment.
// The configuration is constructed exactly once at startup and passed by
// reference into each component constructor; no component reads ambient
// process state directly.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/emscape/roze-mcp/pkg/types"
)

const (
	BackendEnvVar         = "ROZE_BACKEND"
	ProxyModeEnvVar       = "ROZE_PROXY_MODE"
	APIBaseDevEnvVar      = "ROZE_API_BASE_DEV"
	APIBaseProdEnvVar     = "ROZE_API_BASE_PROD"
	CallableRegionEnvVar  = "ROZE_CALLABLE_REGION"
	CallableProjectEnvVar = "ROZE_CALLABLE_PROJECT"
	ContractsDirEnvVar    = "ROZE_CONTRACTS_DIR"
	LogLevelEnvVar        = "ROZE_LOG_LEVEL"
	MetricsPortEnvVar     = "ROZE_METRICS_PORT"

	DBUrlEnvVar            = "DATABASE_URL"
	TelemetryEnabledEnvVar = "OTEL_ENABLED"
)

const (
	APIBaseDevDefault   = "http://localhost:8787"
	ContractsDirDefault = "contracts"
	LogLevelDefault     = "info"
	MetricsPortDefault  = "9090"
)

// BackendKind selects the transport strategy used by the backend gateway.
type BackendKind string

const (
	BackendHTTP     BackendKind = "http"
	BackendCallable BackendKind = "callable"
)

// Config holds every setting the bridge needs, resolved and validated.
type Config struct {
	Backend   BackendKind
	ProxyMode types.ProxyMode

	// TargetBaseURLs maps each declared environment target to its backend
	// base address. Only used by the HTTP backend strategy.
	TargetBaseURLs map[types.Target]string

	// CallableRegion and CallableProject identify the remote callable-function
	// deployment. Only used by the callable backend strategy.
	CallableRegion  string
	CallableProject string

	ContractsDir string
	LogLevel     string

	// DatabaseURL, when set, enables the invocation audit trail.
	DatabaseURL string

	// TelemetryEnabled turns on the OpenTelemetry metrics pipeline.
	TelemetryEnabled bool
	MetricsPort      string
}

// Load reads the bridge configuration from environment variables.
// Invalid or missing required settings produce an error so the caller can
// abort startup before serving any request.
func Load() (*Config, error) {
	c := &Config{
		Backend:      BackendHTTP,
		ProxyMode:    types.ProxyModeDevOnly,
		ContractsDir: ContractsDirDefault,
		LogLevel:     LogLevelDefault,
		MetricsPort:  MetricsPortDefault,
		DatabaseURL:  os.Getenv(DBUrlEnvVar),
	}

	if v := strings.TrimSpace(os.Getenv(BackendEnvVar)); v != "" {
		switch BackendKind(strings.ToLower(v)) {
		case BackendHTTP, BackendCallable:
			c.Backend = BackendKind(strings.ToLower(v))
		default:
			return nil, fmt.Errorf(
				"invalid value for %s environment variable: '%s', valid values are '%s' and '%s'",
				BackendEnvVar, v, BackendHTTP, BackendCallable,
			)
		}
	}

	if v := strings.TrimSpace(os.Getenv(ProxyModeEnvVar)); v != "" {
		mode, err := types.ValidateProxyMode(strings.ToLower(v))
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s environment variable: %w", ProxyModeEnvVar, err)
		}
		c.ProxyMode = mode
	}

	if v := os.Getenv(ContractsDirEnvVar); v != "" {
		c.ContractsDir = v
	}
	if v := os.Getenv(LogLevelEnvVar); v != "" {
		c.LogLevel = strings.ToLower(v)
	}
	if v := os.Getenv(MetricsPortEnvVar); v != "" {
		c.MetricsPort = v
	}

	telemetryEnabled, err := parseTelemetryEnabled()
	if err != nil {
		return nil, err
	}
	c.TelemetryEnabled = telemetryEnabled

	switch c.Backend {
	case BackendHTTP:
		if err := c.loadHTTPTargets(); err != nil {
			return nil, err
		}
	case BackendCallable:
		c.CallableRegion = strings.TrimSpace(os.Getenv(CallableRegionEnvVar))
		c.CallableProject = strings.TrimSpace(os.Getenv(CallableProjectEnvVar))
		if c.CallableRegion == "" || c.CallableProject == "" {
			return nil, fmt.Errorf(
				"backend '%s' requires both %s and %s to be set",
				BackendCallable, CallableRegionEnvVar, CallableProjectEnvVar,
			)
		}
	}

	return c, nil
}

// loadHTTPTargets resolves the per-target base URLs for the HTTP backend.
// The prod base URL is only required when the proxy mode actually permits
// reaching prod.
func (c *Config) loadHTTPTargets() error {
	devBase := os.Getenv(APIBaseDevEnvVar)
	if devBase == "" {
		devBase = APIBaseDevDefault
	}
	if err := validateBaseURL(APIBaseDevEnvVar, devBase); err != nil {
		return err
	}

	c.TargetBaseURLs = map[types.Target]string{
		types.TargetDev: strings.TrimSuffix(devBase, "/"),
	}

	prodBase := os.Getenv(APIBaseProdEnvVar)
	if prodBase == "" {
		if c.ProxyMode == types.ProxyModeAll {
			return fmt.Errorf(
				"proxy mode '%s' permits the prod target, so %s must be set",
				types.ProxyModeAll, APIBaseProdEnvVar,
			)
		}
		return nil
	}
	if err := validateBaseURL(APIBaseProdEnvVar, prodBase); err != nil {
		return err
	}
	c.TargetBaseURLs[types.TargetProd] = strings.TrimSuffix(prodBase, "/")

	return nil
}

// Endpoints resolves the full endpoint set for a target.
// Returns an error if the target has no configured base address.
func (c *Config) Endpoints(target types.Target) (types.EndpointSet, error) {
	base, ok := c.TargetBaseURLs[target]
	if !ok {
		return types.EndpointSet{}, fmt.Errorf("no base address configured for target '%s'", target)
	}
	return types.EndpointSet{
		Target:    target,
		BaseURL:   base,
		Orders:    base + "/v1/orders",
		Subscribe: base + "/v1/subscribe",
		Healthz:   base + "/healthz",
	}, nil
}

func validateBaseURL(envVar, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid value for %s: '%s' must be a valid http(s) URL", envVar, raw)
	}
	return nil
}

func parseTelemetryEnabled() (bool, error) {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(TelemetryEnabledEnvVar)))
	switch v {
	case "":
		return false, nil
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	}
	return false, fmt.Errorf(
		"invalid value for %s environment variable: '%s', valid values are 'true' or 'false'",
		TelemetryEnabledEnvVar, v,
	)
}
