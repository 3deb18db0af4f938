package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/emscape/roze-mcp/pkg/types"
)

// Logical procedure names exposed by the callable backend.
const (
	callableHealthz            = "healthz"
	callableCreateOrder        = "createOrder"
	callableCreateSubscription = "createSubscription"
)

// CallableConfig identifies the remote callable-function deployment.
type CallableConfig struct {
	Region  string
	Project string

	// BaseURL overrides the derived function base address. Used in tests.
	BaseURL string
}

// CallableGateway is the callable-backend transport strategy. It invokes a
// named remote procedure using the https-callable protocol: the payload is
// posted as {"data": ...} and the response carries either {"result": ...} or
// {"error": {"message": ..., "status": ...}}. The backend's error
// classification maps to a status through the shared lookup table.
type CallableGateway struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewCallableGateway returns a gateway addressing the callable deployment
// described by conf.
func NewCallableGateway(conf *CallableConfig, logger *zap.Logger) *CallableGateway {
	base := conf.BaseURL
	if base == "" {
		base = fmt.Sprintf("https://%s-%s.cloudfunctions.net", conf.Region, conf.Project)
	}
	return &CallableGateway{
		baseURL:    base,
		httpClient: &http.Client{Timeout: requestTimeout},
		logger:     logger,
	}
}

func (g *CallableGateway) HealthCheck(ctx context.Context, target types.Target) types.GatewayResult {
	return g.call(ctx, callableHealthz, map[string]any{}, target)
}

func (g *CallableGateway) CreateOrder(ctx context.Context, target types.Target, payload map[string]any) types.GatewayResult {
	return g.call(ctx, callableCreateOrder, payload, target)
}

func (g *CallableGateway) CreateSubscription(ctx context.Context, target types.Target, payload map[string]any) types.GatewayResult {
	return g.call(ctx, callableCreateSubscription, payload, target)
}

// callableResponse is the https-callable wire envelope.
type callableResponse struct {
	Result any `json:"result"`
	Error  *struct {
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// call invokes one remote procedure by logical name and normalizes the
// outcome into a GatewayResult.
func (g *CallableGateway) call(ctx context.Context, name string, payload map[string]any, target types.Target) types.GatewayResult {
	body, err := json.Marshal(map[string]any{"data": payload})
	if err != nil {
		return types.GatewayResult{
			OK:     false,
			Status: http.StatusInternalServerError,
			Target: target,
			Error:  fmt.Sprintf("failed to encode request payload: %v", err),
		}
	}

	u := g.baseURL + "/" + name
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return types.GatewayResult{
			OK:     false,
			Status: http.StatusInternalServerError,
			Target: target,
			Error:  redactSecrets(fmt.Sprintf("failed to create request: %v", err)),
		}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		msg := redactSecrets(fmt.Sprintf("callable backend unavailable: %v", err))
		g.logger.Warn("callable request failed",
			zap.String("function", name),
			zap.String("target", string(target)),
			zap.String("error", msg),
		)
		return types.GatewayResult{
			OK:     false,
			Status: http.StatusServiceUnavailable,
			Target: target,
			Error:  msg,
		}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return types.GatewayResult{
			OK:     false,
			Status: http.StatusServiceUnavailable,
			Target: target,
			Error:  redactSecrets(fmt.Sprintf("failed to read callable response: %v", err)),
		}
	}

	var envelope callableResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return types.GatewayResult{
			OK:     false,
			Status: http.StatusBadGateway,
			Target: target,
			Error:  redactSecrets(fmt.Sprintf("callable backend returned an invalid response for %s", name)),
		}
	}

	if envelope.Error != nil {
		return types.GatewayResult{
			OK:     false,
			Status: statusForErrorCode(envelope.Error.Status),
			Target: target,
			Error:  redactSecrets(envelope.Error.Message),
		}
	}

	return types.GatewayResult{
		OK:     true,
		Status: http.StatusOK,
		Target: target,
		Body:   envelope.Result,
	}
}
