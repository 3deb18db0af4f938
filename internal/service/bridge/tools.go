package bridge

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/emscape/roze-mcp/internal/contract"
	"github.com/emscape/roze-mcp/pkg/types"
)

// Tool names use the dotted convention throughout.
const (
	ToolReadOpenAPI     = "contracts.readOpenAPI"
	ToolReadSchema      = "contracts.readSchema"
	ToolGetTarget       = "env.getTarget"
	ToolGetEndpoints    = "env.getEndpoints"
	ToolOrdersCreate    = "api.orders.create"
	ToolSubscribeCreate = "api.subscribe.create"
	ToolHealthz         = "healthz"
)

// toolOrder fixes the order in which tools are registered and listed.
var toolOrder = []string{
	ToolReadOpenAPI,
	ToolReadSchema,
	ToolGetTarget,
	ToolGetEndpoints,
	ToolOrdersCreate,
	ToolSubscribeCreate,
	ToolHealthz,
}

// toolDefinitions builds the MCP tool definitions for the fixed tool set.
func toolDefinitions() map[string]mcp.Tool {
	targetValues := make([]string, len(types.Targets))
	for i, t := range types.Targets {
		targetValues[i] = string(t)
	}

	return map[string]mcp.Tool{
		ToolReadOpenAPI: mcp.NewTool(
			ToolReadOpenAPI,
			mcp.WithDescription("Read the shared OpenAPI document, verbatim."),
		),
		ToolReadSchema: mcp.NewTool(
			ToolReadSchema,
			mcp.WithDescription("Read a registered JSON Schema contract, verbatim."),
			mcp.WithString("name",
				mcp.Required(),
				mcp.Description("Name of the contract to read."),
				mcp.Enum(contract.ContractOrderCreate, contract.ContractSubscribeCreate),
			),
		),
		ToolGetTarget: mcp.NewTool(
			ToolGetTarget,
			mcp.WithDescription("Resolve an environment target and report whether the proxy permits it."),
			mcp.WithString("target",
				mcp.Required(),
				mcp.Description("Environment target to resolve."),
				mcp.Enum(targetValues...),
			),
		),
		ToolGetEndpoints: mcp.NewTool(
			ToolGetEndpoints,
			mcp.WithDescription("Resolve the backend endpoint set for an environment target."),
			mcp.WithString("target",
				mcp.Required(),
				mcp.Description("Environment target to resolve endpoints for."),
				mcp.Enum(targetValues...),
			),
		),
		ToolOrdersCreate: mcp.NewTool(
			ToolOrdersCreate,
			mcp.WithDescription("Create an order. The payload is validated against the order.create contract before the backend is called."),
			mcp.WithObject("payload",
				mcp.Required(),
				mcp.Description("Order creation payload."),
			),
			mcp.WithString("target",
				mcp.Description("Environment target, defaults to dev."),
				mcp.Enum(targetValues...),
			),
		),
		ToolSubscribeCreate: mcp.NewTool(
			ToolSubscribeCreate,
			mcp.WithDescription("Create a subscription. The payload is validated against the subscribe.create contract before the backend is called."),
			mcp.WithObject("payload",
				mcp.Required(),
				mcp.Description("Subscription creation payload."),
			),
			mcp.WithString("target",
				mcp.Description("Environment target, defaults to dev."),
				mcp.Enum(targetValues...),
			),
		),
		ToolHealthz: mcp.NewTool(
			ToolHealthz,
			mcp.WithDescription("Check the health of the backend for an environment target."),
			mcp.WithString("target",
				mcp.Description("Environment target, defaults to dev."),
				mcp.Enum(targetValues...),
			),
		),
	}
}

// ToolCatalog returns the full tool definition catalogue in registration
// order. Purely descriptive, no side effects.
func ToolCatalog() []mcp.Tool {
	defs := toolDefinitions()
	catalog := make([]mcp.Tool, len(toolOrder))
	for i, name := range toolOrder {
		catalog[i] = defs[name]
	}
	return catalog
}

// buildToolSpecs wires each tool definition to its dispatch metadata and
// handler. The dispatch pipeline consults this table and nothing else, so a
// tool cannot reach the gateway without passing the declared gates.
func (s *Service) buildToolSpecs() (map[string]*toolSpec, []string) {
	defs := toolDefinitions()

	specs := map[string]*toolSpec{
		ToolReadOpenAPI: {
			tool: defs[ToolReadOpenAPI],
			run:  s.runReadOpenAPI,
		},
		ToolReadSchema: {
			tool:     defs[ToolReadSchema],
			required: []string{"name"},
			run:      s.runReadSchema,
		},
		ToolGetTarget: {
			tool:     defs[ToolGetTarget],
			required: []string{"target"},
			envAware: true,
			run:      s.runGetTarget,
		},
		ToolGetEndpoints: {
			tool:     defs[ToolGetEndpoints],
			required: []string{"target"},
			envAware: true,
			run:      s.runGetEndpoints,
		},
		ToolOrdersCreate: {
			tool:         defs[ToolOrdersCreate],
			required:     []string{"payload"},
			envAware:     true,
			contractName: contract.ContractOrderCreate,
			run:          s.runCreateOrder,
		},
		ToolSubscribeCreate: {
			tool:         defs[ToolSubscribeCreate],
			required:     []string{"payload"},
			envAware:     true,
			contractName: contract.ContractSubscribeCreate,
			run:          s.runCreateSubscription,
		},
		ToolHealthz: {
			tool:     defs[ToolHealthz],
			envAware: true,
			run:      s.runHealthz,
		},
	}

	return specs, toolOrder
}
