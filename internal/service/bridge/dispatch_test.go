package bridge

import (
	"context"
	"net/http"
	"testing"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/emscape/roze-mcp/internal/contract"
	"github.com/emscape/roze-mcp/internal/policy"
	"github.com/emscape/roze-mcp/pkg/types"
)

const testOrderSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["customer", "items"],
  "properties": {
    "customer": {
      "type": "object",
      "required": ["email", "name"],
      "properties": {
        "email": {"type": "string", "format": "email"},
        "name": {"type": "string", "minLength": 1}
      }
    },
    "items": {"type": "array", "minItems": 1}
  }
}`

const testSubscribeSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["email", "plan"],
  "properties": {
    "email": {"type": "string", "format": "email"},
    "plan": {"type": "string", "enum": ["monthly", "annual"]}
  }
}`

// countingGateway records every backend call so tests can assert that gated
// invocations never reach the backend.
type countingGateway struct {
	healthCalls    int
	orderCalls     int
	subscribeCalls int

	lastTarget  types.Target
	lastPayload map[string]any

	result types.GatewayResult
}

func (g *countingGateway) HealthCheck(_ context.Context, target types.Target) types.GatewayResult {
	g.healthCalls++
	g.lastTarget = target
	r := g.result
	r.Target = target
	return r
}

func (g *countingGateway) CreateOrder(_ context.Context, target types.Target, payload map[string]any) types.GatewayResult {
	g.orderCalls++
	g.lastTarget = target
	g.lastPayload = payload
	r := g.result
	r.Target = target
	return r
}

func (g *countingGateway) CreateSubscription(_ context.Context, target types.Target, payload map[string]any) types.GatewayResult {
	g.subscribeCalls++
	g.lastTarget = target
	g.lastPayload = payload
	r := g.result
	r.Target = target
	return r
}

func (g *countingGateway) totalCalls() int {
	return g.healthCalls + g.orderCalls + g.subscribeCalls
}

func newTestContracts(t *testing.T) *contract.Store {
	t.Helper()
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "contracts/openapi.yaml", []byte("openapi: 3.1.0\npaths: {}\n"), 0o644))
	require.NoError(t, afero.WriteFile(fsys, "contracts/order.create.schema.json", []byte(testOrderSchema), 0o644))
	require.NoError(t, afero.WriteFile(fsys, "contracts/subscribe.create.schema.json", []byte(testSubscribeSchema), 0o644))
	store, err := contract.Load(fsys, "contracts")
	require.NoError(t, err)
	return store
}

func newTestService(t *testing.T, mode types.ProxyMode, gw *countingGateway) *Service {
	t.Helper()
	s, err := NewService(&ServiceConfig{
		MCPServer: server.NewMCPServer("roze-mcp-test", "0.0.1", server.WithToolCapabilities(true)),
		Contracts: newTestContracts(t),
		Gate:      policy.NewGate(mode),
		Gateway:   gw,
		Endpoints: map[types.Target]types.EndpointSet{
			types.TargetDev: {
				Target:    types.TargetDev,
				BaseURL:   "http://localhost:8787",
				Orders:    "http://localhost:8787/v1/orders",
				Subscribe: "http://localhost:8787/v1/subscribe",
				Healthz:   "http://localhost:8787/healthz",
			},
		},
		Logger: zap.NewNop(),
	})
	require.NoError(t, err)
	return s
}

func validOrderArgs() map[string]any {
	return map[string]any{
		"payload": map[string]any{
			"customer": map[string]any{"email": "ada@example.com", "name": "Ada"},
			"items":    []any{map[string]any{"sku": "tea-001"}},
		},
	}
}

func TestNewServiceValidatesConfig(t *testing.T) {
	gw := &countingGateway{}
	contracts := newTestContracts(t)
	srv := server.NewMCPServer("roze-mcp-test", "0.0.1")

	tests := []struct {
		name string
		conf *ServiceConfig
	}{
		{name: "nil MCP server", conf: &ServiceConfig{Contracts: contracts, Gate: policy.NewGate(types.ProxyModeDevOnly), Gateway: gw, Logger: zap.NewNop()}},
		{name: "nil contracts", conf: &ServiceConfig{MCPServer: srv, Gate: policy.NewGate(types.ProxyModeDevOnly), Gateway: gw, Logger: zap.NewNop()}},
		{name: "nil gate", conf: &ServiceConfig{MCPServer: srv, Contracts: contracts, Gateway: gw, Logger: zap.NewNop()}},
		{name: "nil gateway", conf: &ServiceConfig{MCPServer: srv, Contracts: contracts, Gate: policy.NewGate(types.ProxyModeDevOnly), Logger: zap.NewNop()}},
		{name: "nil logger", conf: &ServiceConfig{MCPServer: srv, Contracts: contracts, Gate: policy.NewGate(types.ProxyModeDevOnly), Gateway: gw}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewService(tt.conf)
			require.Error(t, err)
			assert.Nil(t, s)
		})
	}
}

func TestToolNames(t *testing.T) {
	s := newTestService(t, types.ProxyModeDevOnly, &countingGateway{})

	names := s.ToolNames()
	assert.Equal(t, []string{
		ToolReadOpenAPI,
		ToolReadSchema,
		ToolGetTarget,
		ToolGetEndpoints,
		ToolOrdersCreate,
		ToolSubscribeCreate,
		ToolHealthz,
	}, names)

	// The returned slice is a copy; mutating it must not affect the registry.
	names[0] = "mutated"
	assert.Equal(t, ToolReadOpenAPI, s.ToolNames()[0])
}

func TestInvokeUnknownTool(t *testing.T) {
	gw := &countingGateway{}
	s := newTestService(t, types.ProxyModeDevOnly, gw)

	_, err := s.Invoke(context.Background(), "api.orders.delete", map[string]any{})
	require.Error(t, err)

	var unknownErr *UnknownToolError
	require.ErrorAs(t, err, &unknownErr)
	assert.Equal(t, "api.orders.delete", unknownErr.Name)
	assert.Equal(t, s.ToolNames(), unknownErr.Registered)
	assert.Zero(t, gw.totalCalls())
}

func TestInvokeMissingRequiredArgument(t *testing.T) {
	gw := &countingGateway{}
	s := newTestService(t, types.ProxyModeDevOnly, gw)

	_, err := s.Invoke(context.Background(), ToolOrdersCreate, map[string]any{})
	require.Error(t, err)

	var missingErr *MissingArgumentError
	require.ErrorAs(t, err, &missingErr)
	assert.Equal(t, "payload", missingErr.Argument)
	assert.Zero(t, gw.totalCalls())
}

func TestInvokeInvalidPayload(t *testing.T) {
	gw := &countingGateway{}
	s := newTestService(t, types.ProxyModeDevOnly, gw)

	result, err := s.Invoke(context.Background(), ToolOrdersCreate, map[string]any{
		"payload": map[string]any{
			"customer": map[string]any{"email": "not-an-email", "name": "Ada"},
			"items":    []any{map[string]any{"sku": "tea-001"}},
		},
	})
	require.NoError(t, err)

	failure, ok := result.(types.ValidationFailure)
	require.True(t, ok)
	assert.Equal(t, "Validation failed", failure.Error)
	assert.Contains(t, failure.Details, "email")
	require.NotEmpty(t, failure.Fields)
	assert.Equal(t, "customer.email", failure.Fields[0].Path)

	// A payload that fails validation never reaches the backend.
	assert.Zero(t, gw.totalCalls())
}

func TestInvokeNonObjectPayload(t *testing.T) {
	gw := &countingGateway{}
	s := newTestService(t, types.ProxyModeDevOnly, gw)

	_, err := s.Invoke(context.Background(), ToolOrdersCreate, map[string]any{"payload": "not an object"})
	require.Error(t, err)

	var invalidErr *InvalidArgumentError
	require.ErrorAs(t, err, &invalidErr)
	assert.Equal(t, "payload", invalidErr.Argument)
	assert.Zero(t, gw.totalCalls())
}

func TestInvokeRefusesProdInDevOnlyMode(t *testing.T) {
	gw := &countingGateway{}
	s := newTestService(t, types.ProxyModeDevOnly, gw)

	// The payload is deliberately invalid: the policy gate runs before schema
	// validation, so the refusal must win regardless of payload content.
	result, err := s.Invoke(context.Background(), ToolOrdersCreate, map[string]any{
		"payload": map[string]any{},
		"target":  "prod",
	})
	require.NoError(t, err)

	gr, ok := result.(types.GatewayResult)
	require.True(t, ok)
	assert.False(t, gr.OK)
	assert.Equal(t, http.StatusForbidden, gr.Status)

	refusal, ok := gr.Body.(types.PolicyRefusal)
	require.True(t, ok)
	assert.Equal(t, types.TargetProd, refusal.Target)
	assert.Equal(t, types.ProxyModeDevOnly, refusal.ProxyMode)
	assert.Contains(t, refusal.Error, "Proxy disabled in prod")

	assert.Zero(t, gw.totalCalls())
}

func TestInvokePermitsProdInAllMode(t *testing.T) {
	gw := &countingGateway{result: types.GatewayResult{OK: true, Status: http.StatusOK}}
	s := newTestService(t, types.ProxyModeAll, gw)

	result, err := s.Invoke(context.Background(), ToolHealthz, map[string]any{"target": "prod"})
	require.NoError(t, err)

	gr, ok := result.(types.GatewayResult)
	require.True(t, ok)
	assert.True(t, gr.OK)
	assert.Equal(t, types.TargetProd, gw.lastTarget)
	assert.Equal(t, 1, gw.healthCalls)
}

func TestInvokeRejectsUnknownTarget(t *testing.T) {
	gw := &countingGateway{}
	s := newTestService(t, types.ProxyModeDevOnly, gw)

	_, err := s.Invoke(context.Background(), ToolHealthz, map[string]any{"target": "staging"})
	require.Error(t, err)

	var invalidErr *InvalidArgumentError
	require.ErrorAs(t, err, &invalidErr)
	assert.Equal(t, "target", invalidErr.Argument)
	assert.Zero(t, gw.totalCalls())
}

func TestInvokeHealthzDefaultsToDev(t *testing.T) {
	gw := &countingGateway{result: types.GatewayResult{OK: true, Status: http.StatusOK, Body: map[string]any{"status": "ok"}}}
	s := newTestService(t, types.ProxyModeDevOnly, gw)

	result, err := s.Invoke(context.Background(), ToolHealthz, map[string]any{})
	require.NoError(t, err)

	gr, ok := result.(types.GatewayResult)
	require.True(t, ok)
	assert.True(t, gr.OK)
	assert.Equal(t, http.StatusOK, gr.Status)
	assert.Equal(t, types.TargetDev, gr.Target)
	assert.Equal(t, 1, gw.healthCalls)
}

func TestInvokeCreateOrder(t *testing.T) {
	gw := &countingGateway{result: types.GatewayResult{OK: true, Status: http.StatusCreated, Body: map[string]any{"id": "ord_1"}}}
	s := newTestService(t, types.ProxyModeDevOnly, gw)

	args := validOrderArgs()
	result, err := s.Invoke(context.Background(), ToolOrdersCreate, args)
	require.NoError(t, err)

	gr, ok := result.(types.GatewayResult)
	require.True(t, ok)
	assert.True(t, gr.OK)
	assert.Equal(t, http.StatusCreated, gr.Status)
	assert.Equal(t, 1, gw.orderCalls)
	assert.Equal(t, args["payload"], any(gw.lastPayload))
}

func TestInvokeCreateSubscription(t *testing.T) {
	gw := &countingGateway{result: types.GatewayResult{OK: true, Status: http.StatusCreated, Body: map[string]any{"id": "sub_1"}}}
	s := newTestService(t, types.ProxyModeDevOnly, gw)

	result, err := s.Invoke(context.Background(), ToolSubscribeCreate, map[string]any{
		"payload": map[string]any{"email": "ada@example.com", "plan": "monthly"},
	})
	require.NoError(t, err)

	gr, ok := result.(types.GatewayResult)
	require.True(t, ok)
	assert.True(t, gr.OK)
	assert.Equal(t, 1, gw.subscribeCalls)
}

func TestInvokeReadOpenAPI(t *testing.T) {
	s := newTestService(t, types.ProxyModeDevOnly, &countingGateway{})

	first, err := s.Invoke(context.Background(), ToolReadOpenAPI, map[string]any{})
	require.NoError(t, err)
	second, err := s.Invoke(context.Background(), ToolReadOpenAPI, map[string]any{})
	require.NoError(t, err)

	doc, ok := first.(string)
	require.True(t, ok)
	assert.NotEmpty(t, doc)
	// Contract reads are idempotent.
	assert.Equal(t, first, second)
}

func TestInvokeReadSchema(t *testing.T) {
	s := newTestService(t, types.ProxyModeDevOnly, &countingGateway{})

	result, err := s.Invoke(context.Background(), ToolReadSchema, map[string]any{"name": "order.create"})
	require.NoError(t, err)
	assert.Equal(t, testOrderSchema, result)

	_, err = s.Invoke(context.Background(), ToolReadSchema, map[string]any{"name": "order.delete"})
	require.ErrorIs(t, err, contract.ErrUnknownContract)
}

func TestInvokeGetTarget(t *testing.T) {
	s := newTestService(t, types.ProxyModeDevOnly, &countingGateway{})

	result, err := s.Invoke(context.Background(), ToolGetTarget, map[string]any{"target": "dev"})
	require.NoError(t, err)

	info, ok := result.(targetInfo)
	require.True(t, ok)
	assert.Equal(t, types.TargetDev, info.Target)
	assert.Equal(t, "http://localhost:8787", info.BaseURL)
	assert.Equal(t, types.ProxyModeDevOnly, info.ProxyMode)
}

func TestInvokeGetEndpoints(t *testing.T) {
	s := newTestService(t, types.ProxyModeDevOnly, &countingGateway{})

	result, err := s.Invoke(context.Background(), ToolGetEndpoints, map[string]any{"target": "dev"})
	require.NoError(t, err)

	eps, ok := result.(types.EndpointSet)
	require.True(t, ok)
	assert.Equal(t, "http://localhost:8787/v1/orders", eps.Orders)
	assert.Equal(t, "http://localhost:8787/healthz", eps.Healthz)
}

func TestToolCatalog(t *testing.T) {
	catalog := ToolCatalog()
	require.Len(t, catalog, 7)
	assert.Equal(t, ToolReadOpenAPI, catalog[0].Name)
	assert.Equal(t, ToolHealthz, catalog[len(catalog)-1].Name)
}
