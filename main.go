package main

import (
	"os"

	"github.com/emscape/roze-mcp/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
