// Package template implements prompt placeholder interpolation.
package template

import (
	"fmt"
	"regexp"
)

// placeholderRe matches {{ name }} placeholders with optional whitespace
// around the name.
var placeholderRe = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.-]+)\s*\}\}`)

// Interpolate substitutes named variables into a prompt template. Every
// {{ name }} placeholder whose name is a key of vars is replaced with the
// variable's string form; placeholders with no matching variable are left
// verbatim, since callers may intentionally pass partial variable sets across
// multi-stage templating.
//
// Substitution is a single pass: values containing {{ }} are not expanded
// again.
func Interpolate(tmpl string, vars map[string]any) string {
	if tmpl == "" {
		return tmpl
	}

	return placeholderRe.ReplaceAllStringFunc(tmpl, func(match string) string {
		name := placeholderRe.FindStringSubmatch(match)[1]
		value, ok := vars[name]
		if !ok {
			return match
		}
		return fmt.Sprint(value)
	})
}
