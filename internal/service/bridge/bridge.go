// Package bridge provides the tool registry and dispatch pipeline of roze-mcp.
// Every tools/call runs the same fixed pipeline: structural argument check,
// policy gate, schema validation, backend gateway call. There is exactly one
// validated call path per invocation.
package bridge

import (
	"fmt"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/emscape/roze-mcp/internal/contract"
	"github.com/emscape/roze-mcp/internal/gateway"
	"github.com/emscape/roze-mcp/internal/policy"
	"github.com/emscape/roze-mcp/internal/service/audit"
	"github.com/emscape/roze-mcp/internal/telemetry"
	"github.com/emscape/roze-mcp/pkg/types"
)

// ServiceConfig holds the configuration parameters for initializing the Service.
type ServiceConfig struct {
	MCPServer *server.MCPServer

	Contracts *contract.Store
	Gate      *policy.Gate
	Gateway   gateway.Gateway

	// Endpoints maps each configured target to its resolved endpoint set.
	// May be empty for the callable backend, which has no per-target bases.
	Endpoints map[types.Target]types.EndpointSet

	Metrics telemetry.CustomMetrics
	Audit   audit.Recorder
	Logger  *zap.Logger
}

// Service coordinates the tool registry, the contract store, the policy gate
// and the backend gateway. All of its state is read-only after construction,
// so concurrent in-flight dispatches need no coordination.
type Service struct {
	mcpServer *server.MCPServer

	contracts *contract.Store
	gate      *policy.Gate
	gateway   gateway.Gateway
	endpoints map[types.Target]types.EndpointSet

	metrics telemetry.CustomMetrics
	audit   audit.Recorder
	logger  *zap.Logger

	tools     map[string]*toolSpec
	toolOrder []string
}

// NewService creates a new bridge Service and registers the fixed tool set
// on the MCP server. The tool set is immutable after this point.
func NewService(c *ServiceConfig) (*Service, error) {
	if c.MCPServer == nil {
		return nil, fmt.Errorf("MCP server must not be nil")
	}
	if c.Contracts == nil {
		return nil, fmt.Errorf("contract store must not be nil")
	}
	if c.Gate == nil {
		return nil, fmt.Errorf("policy gate must not be nil")
	}
	if c.Gateway == nil {
		return nil, fmt.Errorf("backend gateway must not be nil")
	}
	if c.Logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	s := &Service{
		mcpServer: c.MCPServer,
		contracts: c.Contracts,
		gate:      c.Gate,
		gateway:   c.Gateway,
		endpoints: c.Endpoints,
		metrics:   c.Metrics,
		audit:     c.Audit,
		logger:    c.Logger,
	}
	if s.metrics == nil {
		s.metrics = telemetry.NewNoopCustomMetrics()
	}
	if s.audit == nil {
		s.audit = audit.NewNoopRecorder()
	}

	s.tools, s.toolOrder = s.buildToolSpecs()
	for _, name := range s.toolOrder {
		s.mcpServer.AddTool(s.tools[name].tool, s.toolCallHandler(name))
	}

	return s, nil
}

// ToolNames returns the registered tool names in registration order.
func (s *Service) ToolNames() []string {
	names := make([]string, len(s.toolOrder))
	copy(names, s.toolOrder)
	return names
}
