package claims

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// PathSpec is an ordered list of path expressions. Expressions are evaluated
// independently and their results concatenated in spec order.
type PathSpec []string

// InvalidPathError reports a path expression that cannot be parsed.
type InvalidPathError struct {
	Expression string
	Reason     string
}

func (e *InvalidPathError) Error() string {
	return fmt.Sprintf("invalid claims path %q: %s", e.Expression, e.Reason)
}

type stepKind int

const (
	stepKey stepKind = iota
	stepIndex
	stepRecursive
)

type step struct {
	kind  stepKind
	key   string
	index int
}

// parsePath tokenizes a path expression into evaluation steps.
func parsePath(expr string) ([]step, error) {
	s := strings.TrimSpace(expr)
	s = strings.TrimPrefix(s, "$")

	var steps []step
	for len(s) > 0 {
		switch {
		case strings.HasPrefix(s, ".."):
			rest := s[2:]
			key, remaining, err := parseKeyToken(expr, rest)
			if err != nil {
				return nil, err
			}
			steps = append(steps, step{kind: stepRecursive, key: key})
			s = remaining
		case strings.HasPrefix(s, "."):
			rest := s[1:]
			key, remaining, err := parseKeyToken(expr, rest)
			if err != nil {
				return nil, err
			}
			steps = append(steps, step{kind: stepKey, key: key})
			s = remaining
		case strings.HasPrefix(s, "["):
			st, remaining, err := parseBracket(expr, s)
			if err != nil {
				return nil, err
			}
			steps = append(steps, st)
			s = remaining
		default:
			// Bare leading name, e.g. "organization".
			key, remaining, err := parseKeyToken(expr, s)
			if err != nil {
				return nil, err
			}
			steps = append(steps, step{kind: stepKey, key: key})
			s = remaining
		}
	}
	if len(steps) == 0 {
		return nil, &InvalidPathError{Expression: expr, Reason: "no steps"}
	}
	return steps, nil
}

// parseKeyToken reads a key after '.' or '..'. The key is either a bracket
// form (['name']) or a bare name running until the next '.' or '['.
func parseKeyToken(expr, s string) (key, remaining string, err error) {
	if s == "" {
		return "", "", &InvalidPathError{Expression: expr, Reason: "dangling '.'"}
	}
	if strings.HasPrefix(s, "[") {
		st, rest, err := parseBracket(expr, s)
		if err != nil {
			return "", "", err
		}
		if st.kind != stepKey {
			return "", "", &InvalidPathError{Expression: expr, Reason: "expected quoted key after '..'"}
		}
		return st.key, rest, nil
	}
	end := strings.IndexAny(s, ".[")
	if end == -1 {
		return s, "", nil
	}
	if end == 0 {
		return "", "", &InvalidPathError{Expression: expr, Reason: "empty key"}
	}
	return s[:end], s[end:], nil
}

// parseBracket reads either a ['name'] key selector or a [N] index selector.
func parseBracket(expr, s string) (step, string, error) {
	close := strings.Index(s, "]")
	if close == -1 {
		return step{}, "", &InvalidPathError{Expression: expr, Reason: "unterminated '['"}
	}
	inner := strings.TrimSpace(s[1:close])
	remaining := s[close+1:]

	if strings.HasPrefix(inner, "'") && strings.HasSuffix(inner, "'") && len(inner) >= 2 {
		return step{kind: stepKey, key: inner[1 : len(inner)-1]}, remaining, nil
	}
	if strings.HasPrefix(inner, `"`) && strings.HasSuffix(inner, `"`) && len(inner) >= 2 {
		return step{kind: stepKey, key: inner[1 : len(inner)-1]}, remaining, nil
	}
	idx, err := strconv.Atoi(inner)
	if err != nil || idx < 0 {
		return step{}, "", &InvalidPathError{Expression: expr, Reason: fmt.Sprintf("bad selector %q", inner)}
	}
	return step{kind: stepIndex, index: idx}, remaining, nil
}

// indefinite reports whether the parsed path can yield multiple matches.
// Definite paths resolve to a single value; indefinite ones to a match list.
func indefinite(steps []step) bool {
	for _, st := range steps {
		if st.kind == stepRecursive {
			return true
		}
	}
	return false
}

// collectRecursive gathers every value stored under key anywhere below node,
// depth-first. Map keys are visited in sorted order so results are stable
// across runs.
func collectRecursive(node any, key string) []any {
	var out []any
	switch n := node.(type) {
	case map[string]any:
		keys := make([]string, 0, len(n))
		for k := range n {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		if v, ok := n[key]; ok {
			out = append(out, v)
		}
		for _, k := range keys {
			out = append(out, collectRecursive(n[k], key)...)
		}
	case []any:
		for _, v := range n {
			out = append(out, collectRecursive(v, key)...)
		}
	}
	return out
}
