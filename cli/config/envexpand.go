// Package config handles k2-creek.yaml loading for the run command.
package config

import (
	"os"
	"regexp"
	"strings"
)

// envVarPattern matches ${VAR}, ${VAR:-default} and the escaped form $${VAR}.
var envVarPattern = regexp.MustCompile(`(\$?)\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// ExpandEnv substitutes environment variables in the raw config text.
//
//   - ${VAR} is the value of VAR, or empty when unset
//   - ${VAR:-default} falls back to default when VAR is unset or empty
//   - $${VAR} is left as the literal ${VAR}
//
// An unset variable is not an error here; Validate reports the field it
// leaves empty (e.g. a missing adapter URL).
func ExpandEnv(input string) string {
	matches := envVarPattern.FindAllStringSubmatchIndex(input, -1)
	if matches == nil {
		return input
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		b.WriteString(input[last:m[0]])
		last = m[1]

		if m[3] > m[2] {
			// Escaped: drop one dollar sign.
			b.WriteString(input[m[0]+1 : m[1]])
			continue
		}

		name := input[m[4]:m[5]]
		if value := os.Getenv(name); value != "" {
			b.WriteString(value)
		} else if m[6] >= 0 {
			b.WriteString(input[m[6]:m[7]])
		}
	}
	b.WriteString(input[last:])
	return b.String()
}
