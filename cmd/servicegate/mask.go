package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dkemmer/servicegate/internal/security"
)

var maskCmd = &cobra.Command{
	Use:   "mask <value>",
	Short: "Mask a sensitive value for display",
	Long: `Print the value with everything except the last few characters
replaced by asterisks. Useful for pasting credentials into tickets or
logs without exposing them.

Examples:
  servicegate mask sk_test_abc123
  servicegate mask --visible 6 sk_test_abc123`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		visible, _ := cmd.Flags().GetInt("visible")
		fmt.Println(security.Mask(args[0], visible))
		return nil
	},
}

func init() {
	maskCmd.Flags().Int("visible", security.DefaultVisibleChars, "number of trailing characters to leave visible")
	rootCmd.AddCommand(maskCmd)
}
