// Servicegate - secure configuration gateway
//
// Servicegate validates service credentials, signs and verifies
// configuration tokens, and fronts the Miro, Stripe, and ClickHouse
// clients behind a single audited HTTP API.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

var rootCmd = &cobra.Command{
	Use:   "servicegate",
	Short: "Secure configuration gateway for external service credentials",
	Long: `servicegate validates credentials for external services (Miro,
Stripe, ClickHouse), signs and verifies configuration tokens, and
serves a masked configuration view over an audited HTTP API.

Credentials are read from the environment: MIRO_ACCESS_TOKEN,
MIRO_BOARD_ID, STRIPE_API_KEY, CLICKHOUSE_* and ENCRYPTION_KEY.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// getConfigPath returns the configuration file path. Uses the
// SERVICEGATE_CONFIG environment variable if set, falls back to the
// default path when that file exists, and otherwise returns "" for
// environment-only configuration.
func getConfigPath() string {
	if path := os.Getenv("SERVICEGATE_CONFIG"); path != "" {
		return path
	}
	if _, err := os.Stat(defaultConfigPath); err == nil {
		return defaultConfigPath
	}
	return ""
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
