//nolint:revive // types is a common Go package naming convention
package types

import "path/filepath"

// ResultFileName is the artifact filename written by the wrapped tool inside its result directory.
const ResultFileName = "result.json"

// ResultDirName returns the result directory's own name. dir is resolved
// against the working directory first, so "." and "../run1/" name the
// directory itself rather than the path text.
func ResultDirName(dir string) string {
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	return filepath.Base(filepath.Clean(dir))
}

// Artifact is the semi-structured result document loaded from result.json.
// No schema is assumed on read: every access is optional.
//
// Values are the shapes produced by encoding/json with UseNumber:
// string, json.Number, bool, nil, map[string]any and []any.
type Artifact map[string]any

// Lookup returns the value stored under key and whether it was present and non-null.
func (a Artifact) Lookup(key string) (any, bool) {
	if a == nil {
		return nil, false
	}
	v, ok := a[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// With returns a shallow copy of the artifact with key set to value.
// The receiver is left untouched.
func (a Artifact) With(key string, value any) Artifact {
	out := make(Artifact, len(a)+1)
	for k, v := range a {
		out[k] = v
	}
	out[key] = value
	return out
}
