// Package validate checks loaded service configuration for format and
// completeness problems.
//
// Unlike config.Load, which fails hard on absent required values,
// validation never returns an error for bad input: every problem is
// collected into a Result so a caller (CLI, healthcheck endpoint) can
// report everything at once. Blocking problems are errors; advisory
// ones are warnings and do not affect validity.
//
// All functions are pure and safe for concurrent use.
package validate

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/dkemmer/servicegate/internal/infrastructure/config"
)

// idPattern matches URL-safe identifiers: letters, digits, underscore,
// hyphen. Both Miro access tokens and (equals-stripped) board IDs use
// this alphabet.
var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Result is the outcome of validating one configuration group.
// Valid is false exactly when Errors is non-empty; warnings never
// affect validity. Messages accumulate in check order, undeduplicated.
type Result struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// newResult returns a valid Result with empty (non-nil) message slices
// so the JSON shape is always {"valid":true,"errors":[],"warnings":[]}.
func newResult() Result {
	return Result{
		Valid:    true,
		Errors:   []string{},
		Warnings: []string{},
	}
}

// addError records a blocking problem and marks the result invalid.
func (r *Result) addError(msg string) {
	r.Valid = false
	r.Errors = append(r.Errors, msg)
}

// addWarning records an advisory problem; validity is unchanged.
func (r *Result) addWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// Board validates the Miro board configuration.
//
// Checks run in order and do not short-circuit, so one call reports
// every problem: access token presence and format, board ID presence,
// the advisory trailing-equals check, and the format of the board ID
// with trailing padding stripped.
func Board(cfg config.MiroConfig) Result {
	result := newResult()

	token := cfg.AccessToken.Reveal()
	switch {
	case token == "":
		result.addError("access token is missing")
	case !idPattern.MatchString(token):
		result.addError("access token has invalid format")
	}

	if cfg.BoardID == "" {
		result.addError("board id is missing")
	} else {
		// Miro board IDs normally carry base64 padding; its absence is
		// suspicious but not fatal.
		if !strings.HasSuffix(cfg.BoardID, "=") {
			result.addWarning("board id might be missing trailing equals sign")
		}

		cleaned := strings.TrimRight(cfg.BoardID, "=")
		if !idPattern.MatchString(cleaned) {
			result.addError("board id has invalid format")
		}
	}

	return result
}

// Database validates the ClickHouse connection configuration.
//
// Each field is checked independently of earlier failures. The port is
// range-checked only; non-integer input cannot reach a typed config
// record and is rejected by config.Load instead.
func Database(cfg config.ClickHouseConfig) Result {
	result := newResult()

	if cfg.Host == "" {
		result.addError("host is missing")
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		result.addError("port must be between 1 and 65535")
	}

	if cfg.User == "" {
		result.addError("user is missing")
	}

	if cfg.Password.Reveal() == "" {
		result.addError("password is missing")
	}

	if cfg.Database == "" {
		result.addError("database is missing")
	}

	return result
}

// All validates every service group and returns the results keyed by
// service name. A failure in one service never prevents validation of
// the others.
func All(cfg *config.Config) map[string]Result {
	return map[string]Result{
		"miro":       Board(cfg.Miro),
		"clickhouse": Database(cfg.ClickHouse),
	}
}

// Summary renders an aggregate result map as a short human-readable
// report, one line per service.
func Summary(results map[string]Result) string {
	var b strings.Builder
	for _, name := range sortedKeys(results) {
		r := results[name]
		status := "ok"
		if !r.Valid {
			status = "invalid"
		}
		fmt.Fprintf(&b, "%s: %s (%d errors, %d warnings)\n",
			name, status, len(r.Errors), len(r.Warnings))
	}
	return b.String()
}

// sortedKeys returns map keys in deterministic order for stable output.
func sortedKeys(m map[string]Result) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
