package cmd

import (
	"github.com/spf13/cobra"

	"github.com/emscape/roze-mcp/pkg/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the roze-mcp version",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println(version.GetVersion())
	},
	Annotations: map[string]string{
		"group": string(subCommandGroupBasic),
		"order": "5",
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
