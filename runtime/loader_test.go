package runtime

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeResult(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "result.json"), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestLoadArtifact(t *testing.T) {
	dir := writeResult(t, `{"id":"abc","n_total_trials":3,"stats":{"n_trials":3,"n_errors":0},"note":null}`)

	a, err := LoadArtifact(dir)
	if err != nil {
		t.Fatalf("LoadArtifact() error: %v", err)
	}
	if a["id"] != "abc" {
		t.Errorf("id = %v", a["id"])
	}
	n, ok := a["n_total_trials"].(json.Number)
	if !ok || n.String() != "3" {
		t.Errorf("n_total_trials = %#v, want json.Number(3)", a["n_total_trials"])
	}
	if _, ok := a.Lookup("note"); ok {
		t.Error("null field should be reported absent")
	}
}

func TestLoadArtifact_Absent(t *testing.T) {
	_, err := LoadArtifact(t.TempDir())
	if !errors.Is(err, ErrArtifactAbsent) {
		t.Fatalf("err = %v, want ErrArtifactAbsent", err)
	}
}

func TestLoadArtifact_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"truncated", `{"id":"abc",`},
		{"not json", `Results written to`},
		{"array", `[{"id":"abc"}]`},
		{"null", `null`},
		{"string", `"abc"`},
		{"trailing object", `{"id":"a"} {"id":"b"}`},
		{"empty", ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := LoadArtifact(writeResult(t, tt.content))
			if !errors.Is(err, ErrArtifactMalformed) {
				t.Fatalf("err = %v, want ErrArtifactMalformed", err)
			}
			if a != nil {
				t.Errorf("artifact = %v, want nil (all-or-nothing)", a)
			}
		})
	}
}

func TestLoadArtifact_TrailingWhitespace(t *testing.T) {
	if _, err := LoadArtifact(writeResult(t, "{\"id\":\"a\"}\n\n  ")); err != nil {
		t.Fatalf("trailing whitespace should be accepted: %v", err)
	}
}
