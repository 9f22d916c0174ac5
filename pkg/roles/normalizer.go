// Package roles turns raw role names asserted by federated providers into
// the canonical internal role alphabet and merges them into a user draft.
package roles

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Policy controls how raw role names are transformed and merged.
type Policy struct {
	// Uppercase folds mapped role names to upper case.
	Uppercase bool
	// Normalize strips diacritics and every character outside [A-Za-z0-9_],
	// collapsing whitespace runs to a single underscore.
	Normalize bool
	// Append prepends mapped roles ahead of the draft's existing roles so
	// they win in order-sensitive downstream logic. When false the mapped
	// roles replace the role list entirely.
	Append bool
}

// DefaultPolicy matches the provider-facing defaults: uppercase, normalized,
// prepended.
func DefaultPolicy() Policy {
	return Policy{Uppercase: true, Normalize: true, Append: true}
}

var (
	// stripMarks decomposes to NFD, drops combining marks, and recomposes,
	// so "â" becomes "a".
	stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

	whitespaceRuns = regexp.MustCompile(`\s+`)
	invalidChars   = regexp.MustCompile(`[^a-zA-Z0-9_]`)
)

// NormalizeRole applies the policy's transforms to one raw role name.
func NormalizeRole(raw string, policy Policy) string {
	value := raw
	if policy.Uppercase {
		value = strings.ToUpper(value)
	}
	if policy.Normalize {
		value = normalize(value)
	}
	return value
}

func normalize(value string) string {
	if stripped, _, err := transform.String(stripMarks, value); err == nil {
		value = stripped
	}
	value = whitespaceRuns.ReplaceAllString(value, "_")
	return invalidChars.ReplaceAllString(value, "")
}
