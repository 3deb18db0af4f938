package bridge

import (
	"fmt"
	"strings"
)

// UnknownToolError is returned when a tool name is not in the registered set.
// It names the requested tool and, for diagnostic help, the full registered set.
type UnknownToolError struct {
	Name       string
	Registered []string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf(
		"unknown tool '%s', registered tools are: %s",
		e.Name, strings.Join(e.Registered, ", "),
	)
}

// MissingArgumentError is returned when a required argument is absent.
type MissingArgumentError struct {
	Tool     string
	Argument string
}

func (e *MissingArgumentError) Error() string {
	return fmt.Sprintf("tool '%s' requires argument '%s'", e.Tool, e.Argument)
}

// InvalidArgumentError is returned when an argument is present but has the
// wrong type or an out-of-range value.
type InvalidArgumentError struct {
	Tool     string
	Argument string
	Reason   string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid argument '%s' for tool '%s': %s", e.Argument, e.Tool, e.Reason)
}
