package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/emscape/roze-mcp/internal/contract"
	"github.com/emscape/roze-mcp/internal/model"
	"github.com/emscape/roze-mcp/internal/telemetry"
	"github.com/emscape/roze-mcp/pkg/types"
)

// toolSpec describes one registered tool: its MCP definition, its argument
// contract and the handler that runs once every gate has passed.
type toolSpec struct {
	tool mcp.Tool

	// required lists the argument names that must be present.
	required []string

	// envAware tools resolve a target and pass the policy gate before
	// anything else runs against that target.
	envAware bool

	// contractName, when set, names the schema the payload argument is
	// validated against. Empty means no schema gate.
	contractName string

	run func(ctx context.Context, inv *Invocation) (any, error)
}

// Invocation is one concrete request to execute a tool. It is constructed
// once per tools/call, never mutated after dispatch, and consumed by exactly
// one dispatch.
type Invocation struct {
	Tool string
	Args map[string]any

	// Target is set for environment-aware tools, after resolution.
	Target types.Target

	// Payload is set only after the payload has passed schema validation.
	// Unvalidated payloads never reach a tool handler.
	Payload map[string]any
}

// targetInfo is the result of env.getTarget.
type targetInfo struct {
	Target    types.Target    `json:"target"`
	BaseURL   string          `json:"baseUrl,omitempty"`
	ProxyMode types.ProxyMode `json:"proxyMode"`
}

// toolCallHandler adapts a registered tool to the MCP handler signature.
// Dispatch failures become tool-result errors, never protocol errors: the
// call "succeeded" at the protocol layer even when the operation failed.
func (s *Service) toolCallHandler(name string) func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := s.Invoke(ctx, name, req.GetArguments())
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return wrapToolResult(result), nil
	}
}

// Invoke runs the dispatch pipeline for one tool invocation, in fixed order:
// structural check, policy gate, schema validation, backend call.
// The policy check deliberately runs before schema validation so a refused
// target is rejected deterministically regardless of payload content.
// Validation and policy failures are returned as ordinary results; only
// structural failures surface as errors.
func (s *Service) Invoke(ctx context.Context, name string, args map[string]any) (any, error) {
	spec, ok := s.tools[name]
	if !ok {
		return nil, &UnknownToolError{Name: name, Registered: s.ToolNames()}
	}

	started := time.Now()
	outcome := telemetry.ToolCallOutcomeError
	status := 0
	inv := &Invocation{Tool: name, Args: args}

	defer func() {
		duration := time.Since(started)
		s.metrics.RecordToolCall(ctx, name, string(inv.Target), outcome, duration)
		s.recordInvocation(inv, outcome, status, duration)
	}()

	// 1. Structural check: required arguments must be present.
	for _, arg := range spec.required {
		if _, present := args[arg]; !present {
			outcome = telemetry.ToolCallOutcomeInvalid
			return nil, &MissingArgumentError{Tool: name, Argument: arg}
		}
	}

	// 2. Policy gate, before schema validation.
	if spec.envAware {
		target, err := resolveTarget(name, args)
		if err != nil {
			outcome = telemetry.ToolCallOutcomeInvalid
			return nil, err
		}
		inv.Target = target

		if !s.gate.IsAllowed(target) {
			outcome = telemetry.ToolCallOutcomeDenied
			status = http.StatusForbidden
			s.logger.Info("policy gate refused target",
				zap.String("tool", name),
				zap.String("target", string(target)),
				zap.String("proxyMode", string(s.gate.Mode())),
			)
			return s.gate.Refusal(target), nil
		}
	}

	// 3. Schema validation. A failed payload never reaches the backend.
	if spec.contractName != "" {
		payload, ok := args["payload"].(map[string]any)
		if !ok {
			outcome = telemetry.ToolCallOutcomeInvalid
			return nil, &InvalidArgumentError{Tool: name, Argument: "payload", Reason: "must be an object"}
		}

		vr, err := s.contracts.Validate(spec.contractName, payload)
		if err != nil {
			return nil, fmt.Errorf("failed to validate payload for tool %s: %w", name, err)
		}
		if !vr.Valid {
			outcome = telemetry.ToolCallOutcomeInvalid
			status = http.StatusBadRequest
			return validationFailure(vr), nil
		}
		inv.Payload = payload
	}

	// 4. Backend call. The GatewayResult is returned verbatim.
	result, err := spec.run(ctx, inv)
	if err != nil {
		return nil, err
	}

	outcome = telemetry.ToolCallOutcomeSuccess
	if gr, ok := result.(types.GatewayResult); ok {
		status = gr.Status
		if !gr.OK {
			outcome = telemetry.ToolCallOutcomeError
		}
	}
	return result, nil
}

func (s *Service) runReadOpenAPI(_ context.Context, _ *Invocation) (any, error) {
	return s.contracts.OpenAPIDocument(), nil
}

func (s *Service) runReadSchema(_ context.Context, inv *Invocation) (any, error) {
	name, ok := inv.Args["name"].(string)
	if !ok {
		return nil, &InvalidArgumentError{Tool: inv.Tool, Argument: "name", Reason: "must be a string"}
	}
	return s.contracts.SchemaDocument(name)
}

func (s *Service) runGetTarget(_ context.Context, inv *Invocation) (any, error) {
	info := targetInfo{
		Target:    inv.Target,
		ProxyMode: s.gate.Mode(),
	}
	if eps, ok := s.endpoints[inv.Target]; ok {
		info.BaseURL = eps.BaseURL
	}
	return info, nil
}

func (s *Service) runGetEndpoints(_ context.Context, inv *Invocation) (any, error) {
	eps, ok := s.endpoints[inv.Target]
	if !ok {
		return nil, fmt.Errorf("no endpoints configured for target '%s'", inv.Target)
	}
	return eps, nil
}

func (s *Service) runCreateOrder(ctx context.Context, inv *Invocation) (any, error) {
	return s.gateway.CreateOrder(ctx, inv.Target, inv.Payload), nil
}

func (s *Service) runCreateSubscription(ctx context.Context, inv *Invocation) (any, error) {
	return s.gateway.CreateSubscription(ctx, inv.Target, inv.Payload), nil
}

func (s *Service) runHealthz(ctx context.Context, inv *Invocation) (any, error) {
	return s.gateway.HealthCheck(ctx, inv.Target), nil
}

// recordInvocation writes one audit record. Best-effort: the recorder logs
// and drops failures, never failing the dispatch.
func (s *Service) recordInvocation(inv *Invocation, outcome telemetry.ToolCallOutcome, status int, duration time.Duration) {
	argsJSON, err := json.Marshal(inv.Args)
	if err != nil {
		argsJSON = nil
	}
	s.audit.RecordInvocation(&model.InvocationRecord{
		Tool:       inv.Tool,
		Target:     string(inv.Target),
		Outcome:    string(outcome),
		Status:     status,
		DurationMs: duration.Milliseconds(),
		Arguments:  argsJSON,
	})
}

// resolveTarget reads the target argument, defaulting to dev when absent.
func resolveTarget(tool string, args map[string]any) (types.Target, error) {
	raw, present := args["target"]
	if !present {
		return types.TargetDev, nil
	}
	str, ok := raw.(string)
	if !ok {
		return "", &InvalidArgumentError{Tool: tool, Argument: "target", Reason: "must be a string"}
	}
	target, err := types.ValidateTarget(str)
	if err != nil {
		return "", &InvalidArgumentError{Tool: tool, Argument: "target", Reason: err.Error()}
	}
	return target, nil
}

// validationFailure collapses a validation result into the tool-result shape.
func validationFailure(vr contract.ValidationResult) types.ValidationFailure {
	details := make([]string, len(vr.Errors))
	for i, fe := range vr.Errors {
		details[i] = fe.Path + ": " + fe.Message
	}
	return types.ValidationFailure{
		Error:   "Validation failed",
		Details: strings.Join(details, "; "),
		Fields:  vr.Errors,
	}
}

// wrapToolResult serializes a dispatch result as the tool's text content.
// Raw contract documents pass through as-is; everything else is JSON.
// Failure results keep the protocol-level call successful but flag the
// operation as failed.
func wrapToolResult(result any) *mcp.CallToolResult {
	switch v := result.(type) {
	case string:
		return mcp.NewToolResultText(v)
	case types.ValidationFailure:
		return errorJSONResult(v)
	case types.GatewayResult:
		if !v.OK {
			return errorJSONResult(v)
		}
		return jsonResult(v)
	default:
		return jsonResult(v)
	}
}

func jsonResult(v any) *mcp.CallToolResult {
	b, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode tool result: %v", err))
	}
	return mcp.NewToolResultText(string(b))
}

func errorJSONResult(v any) *mcp.CallToolResult {
	r := jsonResult(v)
	r.IsError = true
	return r
}
