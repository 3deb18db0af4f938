// Package types contains the wire-level types exchanged between the roze-mcp
// bridge, its CLI and its callers.
package types

import "fmt"

// Target identifies the backend environment an invocation is directed at.
type Target string

const (
	TargetDev  Target = "dev"
	TargetProd Target = "prod"
)

// Targets lists all declared environment targets.
var Targets = []Target{TargetDev, TargetProd}

// ValidateTarget checks that the given string is a declared environment target.
func ValidateTarget(s string) (Target, error) {
	for _, t := range Targets {
		if s == string(t) {
			return t, nil
		}
	}
	return "", fmt.Errorf("invalid target: '%s', valid values are '%s' and '%s'", s, TargetDev, TargetProd)
}

// ProxyMode controls which environment targets the bridge is willing to reach.
type ProxyMode string

const (
	// ProxyModeDevOnly permits only the dev target. This is the default and
	// makes calls against restricted environments structurally unreachable.
	ProxyModeDevOnly ProxyMode = "dev-only"

	// ProxyModeAll permits every declared target.
	ProxyModeAll ProxyMode = "all"
)

// ValidateProxyMode checks that the given string is a supported proxy mode.
func ValidateProxyMode(s string) (ProxyMode, error) {
	switch ProxyMode(s) {
	case ProxyModeDevOnly, ProxyModeAll:
		return ProxyMode(s), nil
	}
	return "", fmt.Errorf("invalid proxy mode: '%s', valid values are '%s' and '%s'", s, ProxyModeDevOnly, ProxyModeAll)
}
