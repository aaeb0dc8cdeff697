// Package config handles loading servicegate configuration.
//
// This package manages:
//   - Loading configuration from an optional YAML file
//   - Overriding with environment variables (environment wins)
//   - Startup failure for missing required credentials
//   - Default value handling
//
// Security Considerations:
//   - Credentials should be set via environment variables, not files
//   - All sensitive fields are held as secrets.Secret and never appear
//     raw in logs, JSON, or YAML output
//   - Format/completeness diagnostics (errors vs warnings) live in the
//     validate package; this package only guarantees presence and type
//
// Usage:
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.ClickHouse.Host)
package config
