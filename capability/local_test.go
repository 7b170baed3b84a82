package capability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestWorkspace(t *testing.T) *Workspace {
	t.Helper()
	ws, err := NewWorkspace(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create workspace: %v", err)
	}
	return ws
}

func TestWorkspaceWriteAndRead(t *testing.T) {
	ws := newTestWorkspace(t)
	ctx := context.Background()

	out, err := ws.writeFile(ctx, Request{Params: map[string]any{
		"path":    "notes.txt",
		"content": "Hello",
	}})
	if err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if !strings.Contains(out, "5 bytes") || !strings.Contains(out, "notes.txt") {
		t.Errorf("unexpected write output: %q", out)
	}

	data, err := os.ReadFile(filepath.Join(ws.Root(), "notes.txt"))
	if err != nil {
		t.Fatalf("file not written: %v", err)
	}
	if string(data) != "Hello" {
		t.Errorf("unexpected file content: %q", data)
	}

	read, err := ws.readFile(ctx, Request{Params: map[string]any{"path": "notes.txt"}})
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if read != "1 | Hello\n" {
		t.Errorf("unexpected read output: %q", read)
	}
}

func TestWorkspaceWriteCreatesDirectories(t *testing.T) {
	ws := newTestWorkspace(t)

	_, err := ws.writeFile(context.Background(), Request{Params: map[string]any{
		"path":    "a/b/c.txt",
		"content": "nested",
	}})
	if err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(ws.Root(), "a", "b", "c.txt")); err != nil {
		t.Errorf("nested file missing: %v", err)
	}
}

func TestWorkspaceReadOffsetLimit(t *testing.T) {
	ws := newTestWorkspace(t)
	ctx := context.Background()

	content := "one\ntwo\nthree\nfour\nfive"
	if _, err := ws.writeFile(ctx, Request{Params: map[string]any{"path": "f.txt", "content": content}}); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	out, err := ws.readFile(ctx, Request{Params: map[string]any{
		"path":   "f.txt",
		"offset": 2,
		"limit":  2,
	}})
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if out != "2 | two\n3 | three\n" {
		t.Errorf("unexpected windowed read: %q", out)
	}

	// Offset past the end yields nothing.
	out, err = ws.readFile(ctx, Request{Params: map[string]any{"path": "f.txt", "offset": 100}})
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if out != "" {
		t.Errorf("expected empty output, got %q", out)
	}
}

func TestWorkspaceReadMissingFile(t *testing.T) {
	ws := newTestWorkspace(t)

	_, err := ws.readFile(context.Background(), Request{Params: map[string]any{"path": "missing.txt"}})
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestWorkspaceDeleteFile(t *testing.T) {
	ws := newTestWorkspace(t)
	ctx := context.Background()

	ws.writeFile(ctx, Request{Params: map[string]any{"path": "gone.txt", "content": "x"}})

	out, err := ws.deleteFile(ctx, Request{Params: map[string]any{"path": "gone.txt"}})
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if !strings.Contains(out, "gone.txt") {
		t.Errorf("unexpected delete output: %q", out)
	}
	if _, err := os.Stat(filepath.Join(ws.Root(), "gone.txt")); !os.IsNotExist(err) {
		t.Error("file still exists after delete")
	}

	if _, err := ws.deleteFile(ctx, Request{Params: map[string]any{"path": "gone.txt"}}); err == nil {
		t.Error("expected error deleting a missing file")
	}
}

func TestWorkspaceListFiles(t *testing.T) {
	ws := newTestWorkspace(t)
	ctx := context.Background()

	ws.writeFile(ctx, Request{Params: map[string]any{"path": "a.txt", "content": "aa"}})
	ws.writeFile(ctx, Request{Params: map[string]any{"path": "sub/b.txt", "content": "b"}})

	out, err := ws.listFiles(ctx, Request{Params: map[string]any{}})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !strings.Contains(out, "a.txt (2 bytes)") {
		t.Errorf("missing file entry in %q", out)
	}
	if !strings.Contains(out, "sub/") {
		t.Errorf("missing directory entry in %q", out)
	}

	empty, err := ws.listFiles(ctx, Request{Params: map[string]any{"path": "sub"}})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !strings.Contains(empty, "b.txt") {
		t.Errorf("unexpected sub listing: %q", empty)
	}
}

func TestWorkspaceSearchFiles(t *testing.T) {
	ws := newTestWorkspace(t)
	ctx := context.Background()

	ws.writeFile(ctx, Request{Params: map[string]any{"path": "main.go", "content": "package main\n\nfunc main() {}\n"}})
	ws.writeFile(ctx, Request{Params: map[string]any{"path": "docs/readme.md", "content": "A sample PACKAGE.\n"}})

	out, err := ws.searchFiles(ctx, Request{Params: map[string]any{"query": "package"}})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if !strings.Contains(out, "main.go:1: package main") {
		t.Errorf("missing content match in %q", out)
	}
	// Case-insensitive.
	if !strings.Contains(out, "readme.md:1: A sample PACKAGE.") {
		t.Errorf("missing case-insensitive match in %q", out)
	}

	none, err := ws.searchFiles(ctx, Request{Params: map[string]any{"query": "zzzznothing"}})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if none != "No matches found." {
		t.Errorf("unexpected no-match output: %q", none)
	}
}

func TestWorkspaceSearchMatchesFilenames(t *testing.T) {
	ws := newTestWorkspace(t)
	ctx := context.Background()

	ws.writeFile(ctx, Request{Params: map[string]any{"path": "config.yaml", "content": "port: 8080\n"}})

	out, err := ws.searchFiles(ctx, Request{Params: map[string]any{"query": "config"}})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if !strings.Contains(out, "config.yaml") {
		t.Errorf("filename match missing in %q", out)
	}
}

func TestWorkspacePathConfinement(t *testing.T) {
	ws := newTestWorkspace(t)
	ctx := context.Background()

	escapes := []string{
		"../outside.txt",
		"../../etc/passwd",
		"a/../../outside.txt",
		"/etc/passwd",
	}

	for _, path := range escapes {
		if _, err := ws.writeFile(ctx, Request{Params: map[string]any{"path": path, "content": "x"}}); err == nil {
			t.Errorf("write to %q should be rejected", path)
		}
		if _, err := ws.readFile(ctx, Request{Params: map[string]any{"path": path}}); err == nil {
			t.Errorf("read of %q should be rejected", path)
		}
		if _, err := ws.deleteFile(ctx, Request{Params: map[string]any{"path": path}}); err == nil {
			t.Errorf("delete of %q should be rejected", path)
		}
	}

	// Absolute paths inside the workspace are allowed.
	inside := filepath.Join(ws.Root(), "in.txt")
	if _, err := ws.writeFile(ctx, Request{Params: map[string]any{"path": inside, "content": "ok"}}); err != nil {
		t.Errorf("absolute in-workspace path rejected: %v", err)
	}
}

func TestWorkspaceRunCommand(t *testing.T) {
	ws := newTestWorkspace(t)
	ctx := context.Background()

	out, err := ws.runCommand(ctx, Request{Params: map[string]any{"command": "echo hello"}})
	if err != nil {
		t.Fatalf("run_command failed: %v", err)
	}
	if strings.TrimSpace(out) != "hello" {
		t.Errorf("unexpected output: %q", out)
	}

	// Commands run inside the workspace root.
	out, err = ws.runCommand(ctx, Request{Params: map[string]any{"command": "pwd"}})
	if err != nil {
		t.Fatalf("run_command failed: %v", err)
	}
	if !strings.Contains(out, filepath.Base(ws.Root())) {
		t.Errorf("command did not run in workspace: %q", out)
	}
}

func TestWorkspaceRunCommandExitCode(t *testing.T) {
	ws := newTestWorkspace(t)

	out, err := ws.runCommand(context.Background(), Request{Params: map[string]any{"command": "exit 3"}})
	if err != nil {
		t.Fatalf("run_command failed: %v", err)
	}
	if !strings.Contains(out, "[Exit code: 3]") {
		t.Errorf("missing exit code marker: %q", out)
	}
}

func TestWorkspaceRunCommandTimeout(t *testing.T) {
	ws := newTestWorkspace(t)

	out, err := ws.runCommand(context.Background(), Request{Params: map[string]any{
		"command":    "echo partial && sleep 5",
		"timeout_ms": 100,
	}})
	if err != nil {
		t.Fatalf("run_command failed: %v", err)
	}
	if !strings.Contains(out, "partial") {
		t.Errorf("partial output missing: %q", out)
	}
	if !strings.Contains(out, "timed out after 100ms") {
		t.Errorf("missing timeout marker: %q", out)
	}
}

func TestWorkspaceFetchURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("response body"))
	}))
	defer srv.Close()

	ws := newTestWorkspace(t)

	out, err := ws.fetchURL(context.Background(), Request{Params: map[string]any{"url": srv.URL}})
	if err != nil {
		t.Fatalf("fetch_url failed: %v", err)
	}
	if !strings.Contains(out, "HTTP 200") {
		t.Errorf("missing status line: %q", out)
	}
	if !strings.Contains(out, "response body") {
		t.Errorf("missing body: %q", out)
	}

	if _, err := ws.fetchURL(context.Background(), Request{Params: map[string]any{"url": "ftp://example.com"}}); err == nil {
		t.Error("expected error for unsupported scheme")
	}
}

func TestRegisterLocalSkills(t *testing.T) {
	ws := newTestWorkspace(t)
	reg := NewRegistry()
	if err := RegisterLocalSkills(reg, ws); err != nil {
		t.Fatalf("registration failed: %v", err)
	}

	expected := []struct {
		skill  string
		method string
	}{
		{"filesystem", "write_file"},
		{"filesystem", "read_file"},
		{"filesystem", "search_files"},
		{"filesystem", "delete_file"},
		{"filesystem", "list_files"},
		{"shell", "run_command"},
		{"network", "fetch_url"},
	}
	for _, e := range expected {
		if !reg.Has(e.skill, e.method) {
			t.Errorf("missing %s.%s", e.skill, e.method)
		}
	}

	ctx := context.Background()

	// Full path: schema validation then execution.
	res, err := reg.Invoke(ctx, Request{
		Skill:  "filesystem",
		Method: "write_file",
		Params: map[string]any{"path": "via.txt", "content": "registry"},
	})
	if err != nil {
		t.Fatalf("invoke failed: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success, got %q", res.Error)
	}

	// Schema rejects a write without content.
	res, err = reg.Invoke(ctx, Request{
		Skill:  "filesystem",
		Method: "write_file",
		Params: map[string]any{"path": "via.txt"},
	})
	if err != nil {
		t.Fatalf("invoke failed: %v", err)
	}
	if res.Success {
		t.Fatal("expected schema violation for missing content")
	}

	// Workspace escape surfaces as a failed result, not a Go error.
	res, err = reg.Invoke(ctx, Request{
		Skill:  "filesystem",
		Method: "read_file",
		Params: map[string]any{"path": "../../etc/passwd"},
	})
	if err != nil {
		t.Fatalf("invoke failed: %v", err)
	}
	if res.Success {
		t.Fatal("expected escape to fail")
	}
	if !strings.Contains(res.Error, "escapes the workspace") {
		t.Errorf("unexpected error: %q", res.Error)
	}
}
