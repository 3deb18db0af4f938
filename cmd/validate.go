package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/emscape/roze-mcp/internal/config"
	"github.com/emscape/roze-mcp/internal/contract"
)

var validateCmd = &cobra.Command{
	Use:   "validate <contract>",
	Short: "Validate a payload file against a registered contract",
	Long: "Validates a JSON payload file against one of the registered contracts\n" +
		"(" + contract.ContractOrderCreate + ", " + contract.ContractSubscribeCreate + ") and reports every violation.\n" +
		"This runs the exact same validation the bridge applies before forwarding a call.",
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
	Annotations: map[string]string{
		"group": string(subCommandGroupAdvanced),
		"order": "3",
	},
}

var validateCmdPayloadFilePath string

func init() {
	validateCmd.Flags().StringVarP(
		&validateCmdPayloadFilePath,
		"payload",
		"p",
		"",
		"Path to a JSON file containing the payload to validate",
	)
	_ = validateCmd.MarkFlagRequired("payload")

	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	conf, err := config.Load()
	if err != nil {
		return err
	}

	store, err := contract.Load(afero.NewOsFs(), conf.ContractsDir)
	if err != nil {
		return fmt.Errorf("failed to load contract documents: %w", err)
	}

	data, err := os.ReadFile(validateCmdPayloadFilePath)
	if err != nil {
		return fmt.Errorf("failed to read payload file %s: %w", validateCmdPayloadFilePath, err)
	}
	var payload any
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("payload file %s is not valid JSON: %w", validateCmdPayloadFilePath, err)
	}

	result, err := store.Validate(args[0], payload)
	if err != nil {
		return err
	}

	if result.Valid {
		cmd.Printf("Payload is valid against the %s contract\n", args[0])
		return nil
	}

	cmd.Println("Validation failed:")
	for _, fe := range result.Errors {
		cmd.Printf("  %s: %s\n", fe.Path, fe.Message)
	}
	return fmt.Errorf("payload has %d violation(s)", len(result.Errors))
}
