package cmd

import (
	"encoding/json"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/emscape/roze-mcp/internal/service/bridge"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tools exposed by the bridge",
	RunE:  runListTools,
	Annotations: map[string]string{
		"group": string(subCommandGroupBasic),
		"order": "2",
	},
}

func init() {
	rootCmd.AddCommand(toolsCmd)
}

func runListTools(cmd *cobra.Command, args []string) error {
	for _, t := range bridge.ToolCatalog() {
		cmd.Println(t.Name)
		cmd.Println(t.Description)

		if len(t.InputSchema.Properties) == 0 {
			cmd.Println("This tool does not require any input parameters.")
			cmd.Println()
			continue
		}

		cmd.Println()
		cmd.Println("Input Parameters:")
		for k, v := range t.InputSchema.Properties {
			requiredOrOptional := "optional"
			if slices.Contains(t.InputSchema.Required, k) {
				requiredOrOptional = "required"
			}

			boundary := strings.Repeat("=", len(k)+len(requiredOrOptional)+20)

			cmd.Println(boundary)
			cmd.Printf("%s (%s)\n", k, requiredOrOptional)

			j, err := json.MarshalIndent(v, "", "  ")
			if err != nil {
				// Simply print the raw object if we fail to marshal it
				cmd.Println(v)
			} else {
				cmd.Println(string(j))
			}
			cmd.Println(boundary)
		}
		cmd.Println()
	}

	return nil
}
