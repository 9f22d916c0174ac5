// Package claims extracts typed string values out of arbitrary federated
// claim payloads using declarative path expressions.
//
// The payload is the dynamically-typed tree (maps, lists, scalars) an ID
// token's claims decode into. Expressions follow a small JSONPath-like
// grammar evaluated by a recursive-descent walker, deliberately independent
// of any serialization library:
//
//	$.organization                root key
//	$.groups_json[0][0].name      list indexing and nested keys
//	$.groups_json..['name']       recursive descent over every 'name' match
//
// An expression that matches nothing contributes zero values and logs a
// diagnostic; an expression that matches anything other than a string (or a
// list of strings) is a hard configuration defect surfaced as a
// TypeMismatchError, never coerced.
package claims
