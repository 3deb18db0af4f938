package gateway

import (
	"net/http"
	"strings"
)

// errorCodeStatuses maps the backend's closed error-classification set to an
// HTTP status classification. Both transport strategies share this single
// table so the mapping is never duplicated per transport.
var errorCodeStatuses = map[string]int{
	"UNAUTHENTICATED":   http.StatusUnauthorized,
	"PERMISSION_DENIED": http.StatusForbidden,
	"INVALID_ARGUMENT":  http.StatusBadRequest,
}

// statusForErrorCode resolves a backend error code to an HTTP status.
// Codes are accepted case-insensitively with either '-' or '_' separators
// (e.g. "permission-denied" and "PERMISSION_DENIED" are equivalent).
// Unrecognized codes classify as 500.
func statusForErrorCode(code string) int {
	normalized := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(code), "-", "_"))
	if status, ok := errorCodeStatuses[normalized]; ok {
		return status
	}
	return http.StatusInternalServerError
}
