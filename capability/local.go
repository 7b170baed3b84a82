package capability

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"
)

// Skill names served by the local workspace invoker.
const (
	SkillFilesystem = "filesystem"
	SkillShell      = "shell"
	SkillNetwork    = "network"
)

const (
	defaultCommandTimeoutMs = 120000
	maxCommandTimeoutMs     = 600000
	maxSearchMatches        = 100
	maxSearchFileBytes      = 1 << 20
	maxFetchBodyBytes       = 256 * 1024
)

// sensitiveEnvPatterns are case-insensitive suffixes for environment variables
// that should be excluded from spawned commands.
var sensitiveEnvPatterns = []string{
	"_API_KEY",
	"_SECRET",
	"_TOKEN",
	"_PASSWORD",
	"_CREDENTIAL",
}

// safeEnvVars are always included regardless of filtering.
var safeEnvVars = map[string]bool{
	"PATH": true, "HOME": true, "USER": true, "SHELL": true,
	"LANG": true, "TERM": true, "TMPDIR": true,
	"GOPATH": true, "GOROOT": true, "CARGO_HOME": true,
	"NVM_DIR": true, "RUSTUP_HOME": true, "PYENV_ROOT": true,
	"XDG_CONFIG_HOME": true, "XDG_DATA_HOME": true, "XDG_CACHE_HOME": true,
}

func isSensitiveEnvVar(name string) bool {
	upper := strings.ToUpper(name)
	for _, pattern := range sensitiveEnvPatterns {
		if strings.HasSuffix(upper, pattern) {
			return true
		}
	}
	return false
}

func filterEnvironment() []string {
	var filtered []string
	for _, env := range os.Environ() {
		parts := strings.SplitN(env, "=", 2)
		if len(parts) != 2 {
			continue
		}
		name := parts[0]
		if safeEnvVars[name] || !isSensitiveEnvVar(name) {
			filtered = append(filtered, env)
		}
	}
	return filtered
}

// Workspace serves the built-in filesystem, shell, and network skills against
// a single directory. All file paths are confined to the workspace root.
type Workspace struct {
	root       string
	httpClient *http.Client
}

// NewWorkspace creates a workspace rooted at dir, creating it if needed.
// An empty dir means the current working directory.
func NewWorkspace(dir string) (*Workspace, error) {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("workspace: %w", err)
		}
		dir = wd
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("workspace: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("workspace: %w", err)
	}
	return &Workspace{
		root:       abs,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Root returns the absolute workspace root directory.
func (w *Workspace) Root() string {
	return w.root
}

// resolve maps a caller-supplied path into the workspace and rejects escapes.
func (w *Workspace) resolve(path string) (string, error) {
	candidate := path
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(w.root, candidate)
	}
	candidate = filepath.Clean(candidate)
	if candidate != w.root && !strings.HasPrefix(candidate, w.root+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes the workspace", path)
	}
	return candidate, nil
}

func (w *Workspace) writeFile(ctx context.Context, req Request) (string, error) {
	path, _ := StringParam(req.Params, "path")
	content, _ := StringParam(req.Params, "content")

	resolved, err := w.resolve(path)
	if err != nil {
		return "", fmt.Errorf("write_file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0755); err != nil {
		return "", fmt.Errorf("write_file: failed to create directory: %w", err)
	}
	if err := os.WriteFile(resolved, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("write_file: %w", err)
	}
	return fmt.Sprintf("Successfully wrote %d bytes to %s", len(content), path), nil
}

func (w *Workspace) readFile(ctx context.Context, req Request) (string, error) {
	path, _ := StringParam(req.Params, "path")
	offset, _ := IntParam(req.Params, "offset")
	limit, _ := IntParam(req.Params, "limit")

	resolved, err := w.resolve(path)
	if err != nil {
		return "", fmt.Errorf("read_file: %w", err)
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return "", fmt.Errorf("read_file: %w", err)
	}

	lines := strings.Split(string(data), "\n")

	// Apply offset (1-based).
	startLine := 0
	if offset > 0 {
		startLine = offset - 1
	}
	if startLine >= len(lines) {
		return "", nil
	}

	endLine := len(lines)
	if limit > 0 && startLine+limit < endLine {
		endLine = startLine + limit
	}

	// Format with line numbers.
	var sb strings.Builder
	for i := startLine; i < endLine; i++ {
		fmt.Fprintf(&sb, "%d | %s\n", i+1, lines[i])
	}
	return sb.String(), nil
}

func (w *Workspace) deleteFile(ctx context.Context, req Request) (string, error) {
	path, _ := StringParam(req.Params, "path")

	resolved, err := w.resolve(path)
	if err != nil {
		return "", fmt.Errorf("delete_file: %w", err)
	}
	if err := os.Remove(resolved); err != nil {
		return "", fmt.Errorf("delete_file: %w", err)
	}
	return fmt.Sprintf("Deleted %s", path), nil
}

func (w *Workspace) listFiles(ctx context.Context, req Request) (string, error) {
	path, _ := StringParam(req.Params, "path")
	if path == "" {
		path = "."
	}

	resolved, err := w.resolve(path)
	if err != nil {
		return "", fmt.Errorf("list_files: %w", err)
	}
	entries, err := os.ReadDir(resolved)
	if err != nil {
		return "", fmt.Errorf("list_files: %w", err)
	}
	if len(entries) == 0 {
		return "Directory is empty.", nil
	}

	var sb strings.Builder
	for _, entry := range entries {
		if entry.IsDir() {
			fmt.Fprintf(&sb, "%s/\n", entry.Name())
			continue
		}
		size := int64(0)
		if info, err := entry.Info(); err == nil {
			size = info.Size()
		}
		fmt.Fprintf(&sb, "%s (%d bytes)\n", entry.Name(), size)
	}
	return sb.String(), nil
}

// searchFiles walks the workspace and reports lines containing the query,
// case-insensitively. Files names matching the query are reported too.
func (w *Workspace) searchFiles(ctx context.Context, req Request) (string, error) {
	query, _ := StringParam(req.Params, "query")
	path, _ := StringParam(req.Params, "path")
	if path == "" {
		path = "."
	}

	resolved, err := w.resolve(path)
	if err != nil {
		return "", fmt.Errorf("search_files: %w", err)
	}

	queryLower := strings.ToLower(query)
	var matches []string
	truncated := false

	err = filepath.WalkDir(resolved, func(p string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil // skip unreadable entries
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(matches) >= maxSearchMatches {
			truncated = true
			return filepath.SkipAll
		}

		name := d.Name()
		if d.IsDir() {
			if strings.HasPrefix(name, ".") && p != resolved {
				return filepath.SkipDir
			}
			return nil
		}

		rel, relErr := filepath.Rel(w.root, p)
		if relErr != nil {
			rel = p
		}

		if strings.Contains(strings.ToLower(name), queryLower) {
			matches = append(matches, rel)
		}

		info, infoErr := d.Info()
		if infoErr != nil || info.Size() > maxSearchFileBytes {
			return nil
		}

		data, readErr := os.ReadFile(p)
		if readErr != nil || bytes.IndexByte(data, 0) != -1 {
			return nil // unreadable or binary
		}

		for i, line := range strings.Split(string(data), "\n") {
			if len(matches) >= maxSearchMatches {
				truncated = true
				break
			}
			if strings.Contains(strings.ToLower(line), queryLower) {
				matches = append(matches, fmt.Sprintf("%s:%d: %s", rel, i+1, strings.TrimSpace(line)))
			}
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("search_files: %w", err)
	}

	if len(matches) == 0 {
		return "No matches found.", nil
	}

	var sb strings.Builder
	sb.WriteString(strings.Join(matches, "\n"))
	if truncated {
		fmt.Fprintf(&sb, "\n\n[Result limit reached; showing the first %d matches.]", maxSearchMatches)
	}
	return sb.String(), nil
}

func (w *Workspace) runCommand(ctx context.Context, req Request) (string, error) {
	command, _ := StringParam(req.Params, "command")
	timeoutMs, _ := IntParam(req.Params, "timeout_ms")
	if timeoutMs <= 0 {
		timeoutMs = defaultCommandTimeoutMs
	}
	if timeoutMs > maxCommandTimeoutMs {
		timeoutMs = maxCommandTimeoutMs
	}

	cmdCtx, cancel := context.WithTimeout(ctx, time.Duration(timeoutMs)*time.Millisecond)
	defer cancel()

	shell := "/bin/bash"
	shellArg := "-c"
	if runtime.GOOS == "windows" {
		shell = "cmd.exe"
		shellArg = "/c"
	}

	cmd := exec.CommandContext(cmdCtx, shell, shellArg, command)
	cmd.Dir = w.root

	// Process group for clean killability.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Env = filterEnvironment()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	var sb strings.Builder
	sb.WriteString(stdout.String())
	if stderr.Len() > 0 {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(stderr.String())
	}

	if runErr != nil {
		if cmdCtx.Err() == context.DeadlineExceeded {
			if cmd.Process != nil {
				_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
			}
			fmt.Fprintf(&sb, "\n\n[ERROR: Command timed out after %dms. Partial output is shown above.]", timeoutMs)
			return sb.String(), nil
		}
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			fmt.Fprintf(&sb, "\n\n[Exit code: %d]", exitErr.ExitCode())
			return sb.String(), nil
		}
		return "", fmt.Errorf("run_command: %w", runErr)
	}

	return sb.String(), nil
}

func (w *Workspace) fetchURL(ctx context.Context, req Request) (string, error) {
	url, _ := StringParam(req.Params, "url")
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return "", fmt.Errorf("fetch_url: unsupported scheme in %q", url)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("fetch_url: %w", err)
	}

	resp, err := w.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("fetch_url: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBodyBytes+1))
	if err != nil {
		return "", fmt.Errorf("fetch_url: read body: %w", err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "HTTP %d\n\n", resp.StatusCode)
	if len(body) > maxFetchBodyBytes {
		sb.Write(body[:maxFetchBodyBytes])
		fmt.Fprintf(&sb, "\n\n[Body truncated at %d bytes.]", maxFetchBodyBytes)
	} else {
		sb.Write(body)
	}
	return sb.String(), nil
}

// RegisterLocalSkills registers the workspace-backed methods on a registry,
// with their built-in param schemas.
func RegisterLocalSkills(reg *Registry, ws *Workspace) error {
	bindings := []struct {
		skill       string
		method      string
		description string
		fn          MethodFunc
	}{
		{SkillFilesystem, "write_file", "Create or overwrite a file with the given content.", ws.writeFile},
		{SkillFilesystem, "read_file", "Read a file, returning line-numbered content.", ws.readFile},
		{SkillFilesystem, "search_files", "Search workspace files for a query string.", ws.searchFiles},
		{SkillFilesystem, "delete_file", "Delete a file from the workspace.", ws.deleteFile},
		{SkillFilesystem, "list_files", "List the entries of a workspace directory.", ws.listFiles},
		{SkillShell, "run_command", "Execute a shell command in the workspace. Returns combined output and exit code.", ws.runCommand},
		{SkillNetwork, "fetch_url", "Fetch a URL over HTTP GET and return the response body.", ws.fetchURL},
	}

	for _, b := range bindings {
		schema := ParamSchema(b.skill, b.method)
		if err := reg.Register(b.skill, b.method, b.description, schema, b.fn); err != nil {
			return err
		}
	}
	return nil
}
