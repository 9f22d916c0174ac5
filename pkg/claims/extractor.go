package claims

import (
	"fmt"

	"github.com/platinummonkey/idgate/pkg/observability"
)

// TypeMismatchError reports a path expression that resolved to something
// other than a string or a list of strings. A mis-specified extraction path
// is a configuration defect and must fail the pipeline rather than corrupt
// role or organization data.
type TypeMismatchError struct {
	Expression string
	Value      any
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("claims path %s evaluates to %T instead of string (value: %v)",
		e.Expression, e.Value, e.Value)
}

// Extractor evaluates PathSpecs against claim payloads. It is stateless and
// safe for concurrent use.
type Extractor struct {
	log *observability.Logger
}

func NewExtractor(log *observability.Logger) *Extractor {
	return &Extractor{log: log}
}

// Extract evaluates every expression in spec against claims and concatenates
// the results, preserving expression order then within-expression match
// order. The result is fully materialized. Unmatched expressions contribute
// nothing; type mismatches abort with a *TypeMismatchError.
func (x *Extractor) Extract(spec PathSpec, claims map[string]any) ([]string, error) {
	var out []string
	for _, expr := range spec {
		values, err := x.extractOne(expr, claims)
		if err != nil {
			return nil, err
		}
		out = append(out, values...)
	}
	return out, nil
}

func (x *Extractor) extractOne(expr string, claims map[string]any) ([]string, error) {
	if expr == "" {
		return nil, nil
	}
	steps, err := parsePath(expr)
	if err != nil {
		return nil, err
	}

	nodes := []any{any(claims)}
	for _, st := range steps {
		var next []any
		for _, n := range nodes {
			switch st.kind {
			case stepKey:
				if m, ok := n.(map[string]any); ok {
					if v, found := m[st.key]; found {
						next = append(next, v)
					}
				}
			case stepIndex:
				if l, ok := n.([]any); ok && st.index < len(l) {
					next = append(next, l[st.index])
				}
			case stepRecursive:
				next = append(next, collectRecursive(n, st.key)...)
			}
		}
		nodes = next
	}

	if len(nodes) == 0 {
		x.log.WithField("expression", expr).Warn("claims path expression matched nothing")
		return nil, nil
	}

	// A definite path yields one match; when that match is itself a list,
	// its elements are the result. Indefinite paths already yield the
	// match list.
	matches := nodes
	if !indefinite(steps) {
		if l, ok := nodes[0].([]any); ok {
			matches = l
		} else {
			matches = nodes[:1]
		}
	}

	values := make([]string, 0, len(matches))
	for _, m := range matches {
		if m == nil {
			continue
		}
		s, ok := m.(string)
		if !ok {
			return nil, &TypeMismatchError{Expression: expr, Value: m}
		}
		values = append(values, s)
	}
	return values, nil
}
