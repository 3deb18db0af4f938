package types

// GatewayResult is the normalized outcome of a single backend call.
// Every tool handler returns this shape regardless of which transport
// strategy (generic HTTP or remote callable) served the request, so callers
// never see transport-specific error shapes.
type GatewayResult struct {
	OK     bool   `json:"ok"`
	Status int    `json:"status"`
	Target Target `json:"target,omitempty"`

	// Body carries the backend's response payload, opaque to the bridge.
	Body any `json:"body,omitempty"`

	// Error is a sanitized, human-readable description of the failure.
	// It is only set when OK is false and never contains secrets.
	Error string `json:"error,omitempty"`
}

// PolicyRefusal is the body of a GatewayResult produced when the policy gate
// rejects an environment target. It echoes the offending target and the
// active proxy mode so the caller can see exactly why the call was blocked.
type PolicyRefusal struct {
	Error     string    `json:"error"`
	Target    Target    `json:"target"`
	ProxyMode ProxyMode `json:"proxyMode"`
}

// ValidationFailure is returned as the tool result when a payload fails
// schema validation. Details contains every violation, each with the dotted
// path of the offending field.
type ValidationFailure struct {
	Error   string       `json:"error"`
	Details string       `json:"details"`
	Fields  []FieldError `json:"fields,omitempty"`
}

// FieldError is a single schema violation: the dotted path of the offending
// field and a human-readable constraint description.
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// EndpointSet describes the resolved backend endpoints for one target.
type EndpointSet struct {
	Target    Target `json:"target"`
	BaseURL   string `json:"baseUrl"`
	Orders    string `json:"orders"`
	Subscribe string `json:"subscribe"`
	Healthz   string `json:"healthz"`
}
