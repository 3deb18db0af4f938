// Package policy decides whether an environment target may be reached
// through the bridge.
package policy

import (
	"fmt"
	"net/http"

	"github.com/emscape/roze-mcp/pkg/types"
)

// Gate decides whether an environment target is permitted. It is a pure
// function of configuration and target: no side effects, no I/O.
type Gate struct {
	mode types.ProxyMode
}

// NewGate returns a gate enforcing the given proxy mode.
func NewGate(mode types.ProxyMode) *Gate {
	return &Gate{mode: mode}
}

// Mode returns the active proxy mode.
func (g *Gate) Mode() types.ProxyMode {
	return g.mode
}

// IsAllowed reports whether the given target is permitted under the active
// proxy mode. In dev-only mode, only the dev target passes.
func (g *Gate) IsAllowed(target types.Target) bool {
	if g.mode == types.ProxyModeAll {
		return true
	}
	return target == types.TargetDev
}

// Refusal builds the structured refusal returned to the caller when a target
// is rejected. It carries the offending target and the active policy name so
// the denial is fully inspectable.
func (g *Gate) Refusal(target types.Target) types.GatewayResult {
	return types.GatewayResult{
		OK:     false,
		Status: http.StatusForbidden,
		Body: types.PolicyRefusal{
			Error:     fmt.Sprintf("Proxy disabled in %s. Set proxy mode to '%s' to reach this target.", target, types.ProxyModeAll),
			Target:    target,
			ProxyMode: g.mode,
		},
	}
}
