package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dkemmer/servicegate/internal/infrastructure/config"
	"github.com/dkemmer/servicegate/internal/validate"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate service configuration from the environment",
	Long: `Load the configuration and run every service validator. The
per-service results are printed and the command exits non-zero when
any service is invalid.

Examples:
  servicegate validate
  servicegate validate --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOutput, _ := cmd.Flags().GetBool("json")
		return runValidate(jsonOutput)
	},
}

func init() {
	validateCmd.Flags().Bool("json", false, "print results as JSON")
	rootCmd.AddCommand(validateCmd)
}

// errInvalidConfiguration signals validation failure without printing
// a duplicate message: the report already explains the problem.
var errInvalidConfiguration = errors.New("configuration is invalid")

func runValidate(jsonOutput bool) error {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		// Missing required values are a validation outcome, not a
		// crash: report them the same way as validator errors.
		if errors.Is(err, config.ErrMissingConfiguration) {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			return errInvalidConfiguration
		}
		return fmt.Errorf("loading config: %w", err)
	}

	results := validate.All(cfg)

	if jsonOutput {
		if err := printJSON(results); err != nil {
			return err
		}
	} else {
		fmt.Print(validate.Summary(results))
	}

	for _, result := range results {
		if !result.Valid {
			return errInvalidConfiguration
		}
	}
	return nil
}
