package kusto

import (
	"fmt"
	"regexp"
	"strings"
)

var forbiddenCommands = []string{
	".drop", ".delete", ".clear", ".purge", ".alter",
	".create", ".set", ".append", ".move", ".rename",
	".replace", "drop table", "drop database", "truncate",
}

var hasLimit = regexp.MustCompile(`(?i)\b(take|limit)\b`)

// ValidateQuerySafety accepts only read queries: no control command that
// writes, and either a .show command or a query over the telemetry tables.
func ValidateQuerySafety(query string) error {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return fmt.Errorf("%w: empty query", ErrUnsafeQuery)
	}
	for _, cmd := range forbiddenCommands {
		if strings.Contains(q, cmd) {
			return fmt.Errorf("%w: forbidden command %s", ErrUnsafeQuery, cmd)
		}
	}
	if !strings.HasPrefix(q, ".show") && !strings.Contains(q, "sparklens_") && !strings.Contains(q, "fabric_") {
		return fmt.Errorf("%w: query must start with a table name or .show command", ErrUnsafeQuery)
	}
	return nil
}

// EnsureLimit appends "| take max" when the query has no take or limit.
func EnsureLimit(query string, max int) string {
	query = strings.TrimSpace(query)
	if max <= 0 || hasLimit.MatchString(query) {
		return query
	}
	return fmt.Sprintf("%s\n| take %d", query, max)
}
