// Package gateway abstracts the actual remote backend call behind one
// normalized result type. Two interchangeable transport strategies exist:
// a generic HTTP target and a remote callable-function target. Both normalize
// into the identical GatewayResult shape so the dispatcher stays
// transport-agnostic, and neither ever lets a transport fault escape as an
// uncaught error.
package gateway

import (
	"context"
	"time"

	"github.com/emscape/roze-mcp/pkg/types"
)

// requestTimeout bounds every backend call. There is no additional
// per-request deadline layered on top by the dispatcher.
const requestTimeout = 30 * time.Second

// Gateway sends a single logical request to the configured backend.
// Implementations never return a Go error: network and backend failures are
// converted into a GatewayResult with OK=false and a sanitized error string.
type Gateway interface {
	HealthCheck(ctx context.Context, target types.Target) types.GatewayResult
	CreateOrder(ctx context.Context, target types.Target, payload map[string]any) types.GatewayResult
	CreateSubscription(ctx context.Context, target types.Target, payload map[string]any) types.GatewayResult
}
