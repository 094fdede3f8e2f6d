package blob

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"testing"
)

// makeTree creates files (relative slash paths → content) under root/name.
func makeTree(t *testing.T, name string, files map[string]string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for rel, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestUploadTree_KeysPreserveRelativePaths(t *testing.T) {
	dir := makeTree(t, "run1", map[string]string{
		"result.json":                      `{"id":"abc"}`,
		"config.json":                      `{}`,
		"task-a__1/trial.log":              "log line\n",
		"task-a__1/agent/commands.txt":     "ls\n",
		"task-b__2/verifier/reward.txt":    "1\n",
		"task-b__2/verifier/test-out.json": "[]",
	})
	bucket := NewStubBucket("tb-results")

	outcome := NewTreeUploader(bucket, "", nil).UploadTree(context.Background(), dir)
	if !outcome.Succeeded {
		t.Fatalf("outcome = %+v", outcome)
	}
	if outcome.Attempted != 6 || outcome.Failed() != 0 {
		t.Errorf("attempted/failed = %d/%d", outcome.Attempted, outcome.Failed())
	}

	want := []string{
		"run1/config.json",
		"run1/result.json",
		"run1/task-a__1/agent/commands.txt",
		"run1/task-a__1/trial.log",
		"run1/task-b__2/verifier/reward.txt",
		"run1/task-b__2/verifier/test-out.json",
	}
	got := bucket.Keys()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("keys =\n%v\nwant\n%v", got, want)
	}

	obj, _ := bucket.Object("run1/result.json")
	if string(obj.Data) != `{"id":"abc"}` || obj.ContentType != "application/json" {
		t.Errorf("result.json object = %q (%s)", obj.Data, obj.ContentType)
	}
	wantBytes := int64(len(`{"id":"abc"}`) + len(`{}`) + len("log line\n") + len("ls\n") + len("1\n") + len("[]"))
	if outcome.Bytes != wantBytes {
		t.Errorf("Bytes = %d, want %d", outcome.Bytes, wantBytes)
	}
}

func TestUploadTree_SingleResultFile(t *testing.T) {
	dir := makeTree(t, "run1", map[string]string{"result.json": `{"id":"abc","n_total_trials":3}`})
	bucket := NewStubBucket("tb-results")

	outcome := NewTreeUploader(bucket, "", nil).UploadTree(context.Background(), dir)
	if !outcome.Succeeded {
		t.Fatalf("outcome = %+v", outcome)
	}
	if keys := bucket.Keys(); len(keys) != 1 || keys[0] != "run1/result.json" {
		t.Errorf("keys = %v, want [run1/result.json]", keys)
	}
}

func TestUploadTree_Prefix(t *testing.T) {
	dir := makeTree(t, "run1", map[string]string{"a/b.txt": "x"})
	bucket := NewStubBucket("tb-results")

	NewTreeUploader(bucket, "harbor/jobs", nil).UploadTree(context.Background(), dir+string(filepath.Separator))
	if keys := bucket.Keys(); len(keys) != 1 || keys[0] != "harbor/jobs/run1/a/b.txt" {
		t.Errorf("keys = %v", keys)
	}
}

func TestUploadTree_RelativeDirectoryNamesResolvedDir(t *testing.T) {
	dir := makeTree(t, "run1", map[string]string{"result.json": `{"id":"abc"}`})

	tests := []struct {
		name string
		cwd  string
		arg  string
	}{
		{name: "dot inside result dir", cwd: dir, arg: "."},
		{name: "dot slash inside result dir", cwd: dir, arg: "./"},
		{name: "relative with trailing slash", cwd: filepath.Dir(dir), arg: "run1" + string(filepath.Separator)},
		{name: "parent reference", cwd: dir, arg: filepath.Join("..", "run1") + string(filepath.Separator)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(tt.cwd)
			bucket := NewStubBucket("tb-results")

			outcome := NewTreeUploader(bucket, "", nil).UploadTree(context.Background(), tt.arg)
			if !outcome.Succeeded {
				t.Fatalf("outcome = %+v", outcome)
			}
			if keys := bucket.Keys(); len(keys) != 1 || keys[0] != "run1/result.json" {
				t.Errorf("keys = %v, want [run1/result.json]", keys)
			}
		})
	}
}

func TestUploadTree_SkipsNonRegularEntries(t *testing.T) {
	if goruntime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	dir := makeTree(t, "run1", map[string]string{
		"result.json":   "{}",
		"logs/a.log":    "a",
		"logs/deep/b.l": "b",
	})
	if err := os.MkdirAll(filepath.Join(dir, "empty"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(filepath.Join(dir, "result.json"), filepath.Join(dir, "link.json")); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(filepath.Join(dir, "logs"), filepath.Join(dir, "logs-link")); err != nil {
		t.Fatal(err)
	}
	bucket := NewStubBucket("b")

	outcome := NewTreeUploader(bucket, "", nil).UploadTree(context.Background(), dir)
	if !outcome.Succeeded || outcome.Attempted != 3 {
		t.Fatalf("outcome = %+v, want 3 regular files", outcome)
	}
	if len(bucket.Keys()) != 3 {
		t.Errorf("keys = %v", bucket.Keys())
	}
}

func TestUploadTree_IsolatesFailures(t *testing.T) {
	dir := makeTree(t, "run1", map[string]string{
		"a.txt": "a",
		"b.txt": "b",
		"c.txt": "c",
		"d.txt": "d",
	})
	bucket := NewStubBucket("b")
	bucket.FailKeys = map[string]error{"run1/b.txt": errors.New("503 slow down")}

	outcome := NewTreeUploader(bucket, "", nil).UploadTree(context.Background(), dir)
	if outcome.Succeeded {
		t.Fatal("one failed file must fail the outcome")
	}
	if outcome.Attempted != 4 {
		t.Errorf("Attempted = %d, want 4 (no file skipped)", outcome.Attempted)
	}
	if outcome.Failed() != 1 || outcome.Errors[0].Item != "run1/b.txt" || outcome.Errors[0].Message != "503 slow down" {
		t.Errorf("errors = %+v", outcome.Errors)
	}
	if got := strings.Join(bucket.Keys(), ","); got != "run1/a.txt,run1/c.txt,run1/d.txt" {
		t.Errorf("uploaded = %s", got)
	}
	if outcome.Err != nil {
		t.Errorf("per-item failure must not be call-level: %v", outcome.Err)
	}
}

func TestUploadTree_EmptyDirectoryFails(t *testing.T) {
	dir := makeTree(t, "run1", nil)
	if err := os.MkdirAll(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}

	outcome := NewTreeUploader(NewStubBucket("b"), "", nil).UploadTree(context.Background(), dir)
	if outcome.Succeeded {
		t.Fatal("empty tree must fail")
	}
	if !errors.Is(outcome.Err, ErrNoFiles) {
		t.Errorf("Err = %v, want ErrNoFiles", outcome.Err)
	}
}

func TestUploadTree_MissingDirectory(t *testing.T) {
	outcome := NewTreeUploader(NewStubBucket("b"), "", nil).UploadTree(context.Background(), filepath.Join(t.TempDir(), "nope"))
	if outcome.Succeeded || outcome.Err == nil {
		t.Fatalf("outcome = %+v", outcome)
	}
	if !errors.Is(outcome.Err, os.ErrNotExist) {
		t.Errorf("Err = %v", outcome.Err)
	}
}

func TestUploadTree_Canceled(t *testing.T) {
	dir := makeTree(t, "run1", map[string]string{"a.txt": "a"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome := NewTreeUploader(NewStubBucket("b"), "", nil).UploadTree(ctx, dir)
	if outcome.Succeeded || !errors.Is(outcome.Err, context.Canceled) {
		t.Fatalf("outcome = %+v", outcome)
	}
}

func TestObjectKey(t *testing.T) {
	tests := []struct {
		prefix, dir, rel, want string
	}{
		{"", "/tmp/run1", "result.json", "run1/result.json"},
		{"", "/tmp/run1/", "a/b.txt", "run1/a/b.txt"},
		{"jobs", "/tmp/run1", "x", "jobs/run1/x"},
		{"jobs/", "relative/run2", filepath.Join("t", "u.log"), "jobs/run2/t/u.log"},
	}
	for _, tt := range tests {
		if got := ObjectKey(tt.prefix, tt.dir, tt.rel); got != tt.want {
			t.Errorf("ObjectKey(%q, %q, %q) = %q, want %q", tt.prefix, tt.dir, tt.rel, got, tt.want)
		}
	}
}

func TestContentType(t *testing.T) {
	tests := map[string]string{
		"result.json": "application/json",
		"trial.log":   "text/plain; charset=utf-8",
		"rows.jsonl":  "application/x-ndjson",
		"blob.bin2":   defaultContentType,
		"noext":       defaultContentType,
	}
	for name, want := range tests {
		if got := ContentType(name); got != want {
			t.Errorf("ContentType(%q) = %q, want %q", name, got, want)
		}
	}
}
