package runtime

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/kewos554321/blaze4harbor/types"
)

// LoadArtifact reads <dir>/result.json.
//
// Parsing is all-or-nothing: a missing file returns ErrArtifactAbsent, and
// anything other than exactly one JSON object returns ErrArtifactMalformed.
// Numbers are kept as json.Number so integer fields survive unchanged.
func LoadArtifact(dir string) (types.Artifact, error) {
	path := filepath.Join(dir, types.ResultFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrArtifactAbsent, path)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return decodeArtifact(path, data)
}

func decodeArtifact(path string, data []byte) (types.Artifact, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrArtifactMalformed, path, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %s: trailing data after JSON value", ErrArtifactMalformed, path)
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s: top-level value is not an object", ErrArtifactMalformed, path)
	}
	return types.Artifact(obj), nil
}
