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

// maxResponseBytes caps how much of a backend response body is read.
const maxResponseBytes = 1 << 20

// HTTPGateway is the generic HTTP transport strategy. It issues requests
// against the resolved endpoint set of the invocation's target.
// HTTP-level error statuses (4xx/5xx) map to a non-success GatewayResult,
// never to a raised fault.
type HTTPGateway struct {
	endpoints  map[types.Target]types.EndpointSet
	httpClient *http.Client
	logger     *zap.Logger
}

// NewHTTPGateway returns an HTTP gateway for the given per-target endpoints.
func NewHTTPGateway(endpoints map[types.Target]types.EndpointSet, logger *zap.Logger) *HTTPGateway {
	return &HTTPGateway{
		endpoints:  endpoints,
		httpClient: &http.Client{Timeout: requestTimeout},
		logger:     logger,
	}
}

func (g *HTTPGateway) HealthCheck(ctx context.Context, target types.Target) types.GatewayResult {
	eps, ok := g.endpoints[target]
	if !ok {
		return g.unconfiguredTarget(target)
	}
	return g.do(ctx, http.MethodGet, eps.Healthz, nil, target)
}

func (g *HTTPGateway) CreateOrder(ctx context.Context, target types.Target, payload map[string]any) types.GatewayResult {
	eps, ok := g.endpoints[target]
	if !ok {
		return g.unconfiguredTarget(target)
	}
	return g.post(ctx, eps.Orders, payload, target)
}

func (g *HTTPGateway) CreateSubscription(ctx context.Context, target types.Target, payload map[string]any) types.GatewayResult {
	eps, ok := g.endpoints[target]
	if !ok {
		return g.unconfiguredTarget(target)
	}
	return g.post(ctx, eps.Subscribe, payload, target)
}

func (g *HTTPGateway) post(ctx context.Context, u string, payload map[string]any, target types.Target) types.GatewayResult {
	body, err := json.Marshal(payload)
	if err != nil {
		return types.GatewayResult{
			OK:     false,
			Status: http.StatusInternalServerError,
			Target: target,
			Error:  fmt.Sprintf("failed to encode request payload: %v", err),
		}
	}
	return g.do(ctx, http.MethodPost, u, bytes.NewReader(body), target)
}

// do performs one backend request and normalizes the outcome. Transport
// failures (DNS, timeout, connection refused) are caught here and converted
// into a failure result with a sanitized error string.
func (g *HTTPGateway) do(ctx context.Context, method, u string, body io.Reader, target types.Target) types.GatewayResult {
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return types.GatewayResult{
			OK:     false,
			Status: http.StatusInternalServerError,
			Target: target,
			Error:  redactSecrets(fmt.Sprintf("failed to create request: %v", err)),
		}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		msg := redactSecrets(fmt.Sprintf("backend unavailable: %v", err))
		g.logger.Warn("backend request failed",
			zap.String("method", method),
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
			Error:  redactSecrets(fmt.Sprintf("failed to read backend response: %v", err)),
		}
	}

	result := types.GatewayResult{
		OK:     resp.StatusCode >= 200 && resp.StatusCode < 300,
		Status: resp.StatusCode,
		Target: target,
		Body:   decodeBody(raw),
	}

	if result.OK {
		// Some backends tunnel a structured error inside a 200 response.
		// The shared error-code table classifies those uniformly.
		if code, ok := tunneledErrorCode(result.Body); ok {
			result.OK = false
			result.Status = statusForErrorCode(code)
			result.Error = redactSecrets(fmt.Sprintf("backend rejected the request (%s)", code))
		}
		return result
	}

	result.Error = redactSecrets(fmt.Sprintf("backend returned HTTP %d", resp.StatusCode))
	return result
}

func (g *HTTPGateway) unconfiguredTarget(target types.Target) types.GatewayResult {
	return types.GatewayResult{
		OK:     false,
		Status: http.StatusInternalServerError,
		Target: target,
		Error:  fmt.Sprintf("no base address configured for target '%s'", target),
	}
}

// decodeBody returns the response body as decoded JSON when possible, or
// the raw string otherwise. The payload stays opaque to the bridge.
func decodeBody(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return string(raw)
	}
	return decoded
}

// tunneledErrorCode extracts a backend error classification from a response
// body of the form {"error": {"status": "<CODE>", ...}}.
func tunneledErrorCode(body any) (string, bool) {
	m, ok := body.(map[string]any)
	if !ok {
		return "", false
	}
	errObj, ok := m["error"].(map[string]any)
	if !ok {
		return "", false
	}
	code, ok := errObj["status"].(string)
	return code, ok
}
