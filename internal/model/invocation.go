// Package model contains the database models of roze-mcp.
package model

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// InvocationRecord is one entry in the invocation audit trail.
// Records are write-only observability data: the dispatch pipeline never
// reads them back, so no cross-request state flows through this table.
type InvocationRecord struct {
	gorm.Model

	// Tool is the dotted tool name that was invoked.
	Tool string `json:"tool" gorm:"not null;index"`

	// Target is the environment target the invocation was directed at,
	// empty for tools that are not environment-aware.
	Target string `json:"target" gorm:"type:varchar(10)"`

	// Outcome classifies how the invocation ended (success, error, denied, invalid).
	Outcome string `json:"outcome" gorm:"type:varchar(20);not null"`

	// Status is the numeric status classification of the result, when one exists.
	Status int `json:"status"`

	DurationMs int64 `json:"duration_ms"`

	// Arguments holds the JSON representation of the invocation arguments.
	// Payload values are recorded as received; the audit trail is local to
	// the operator running the bridge.
	Arguments datatypes.JSON `json:"arguments" gorm:"type:jsonb"`
}
