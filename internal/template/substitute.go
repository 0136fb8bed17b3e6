// Package template expands environment placeholders in configuration values
// and extracts fields from JSON response bodies.
package template

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// varPattern matches ${env:VAR} and ${env:VAR:-default} placeholders.
var varPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// LookupFunc resolves an environment variable.
type LookupFunc func(name string) (string, bool)

// Expand replaces ${env:VAR} placeholders using the process environment.
func Expand(text string) (string, error) {
	return ExpandWith(text, os.LookupEnv)
}

// ExpandWith replaces ${env:VAR} and ${env:VAR:-default} placeholders using
// lookup. Returns all errors joined if multiple variables are missing.
// Text without placeholders is returned unchanged.
func ExpandWith(text string, lookup LookupFunc) (string, error) {
	if !strings.Contains(text, "${") {
		return text, nil
	}

	var errs []error
	result := varPattern.ReplaceAllStringFunc(text, func(match string) string {
		expr := match[2 : len(match)-1]

		name, ok := strings.CutPrefix(expr, "env:")
		if !ok {
			errs = append(errs, fmt.Errorf("unsupported placeholder %q (use ${env:NAME})", match))
			return match
		}

		name, def, hasDefault := strings.Cut(name, ":-")
		if val, ok := lookup(name); ok && val != "" {
			return val
		}
		if hasDefault {
			return def
		}
		errs = append(errs, fmt.Errorf("env var %q not set", name))
		return match
	})

	if len(errs) > 0 {
		return "", errors.Join(errs...)
	}
	return result, nil
}

// ExpandMap applies Expand to all values in a map.
// Returns all errors joined if any expansion fails.
func ExpandMap(m map[string]string, lookup LookupFunc) (map[string]string, error) {
	if m == nil {
		return nil, nil
	}

	result := make(map[string]string, len(m))
	var errs []error

	for k, v := range m {
		expanded, err := ExpandWith(v, lookup)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", k, err))
			continue
		}
		result[k] = expanded
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return result, nil
}
