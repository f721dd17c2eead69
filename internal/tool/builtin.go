package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

const (
	maxOutputBytes = 64 * 1024
	defaultMaxFile = 10 * 1024 * 1024
)

// Options configures the builtin tool set.
type Options struct {
	WorkDir     string
	MaxFileSize int64
}

// RegisterBuiltins installs the standard tool set: shell execution, file
// reads/writes and directory listing.
func RegisterBuiltins(r *Registry, opts Options) {
	if opts.WorkDir == "" {
		opts.WorkDir = "."
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = defaultMaxFile
	}
	r.Register(&runCommandTool{workDir: opts.WorkDir})
	r.Register(&readFileTool{workDir: opts.WorkDir, maxSize: opts.MaxFileSize})
	r.Register(&writeFileTool{workDir: opts.WorkDir})
	r.Register(&listDirTool{workDir: opts.WorkDir})
}

// resolvePath joins a tool-supplied relative path onto the workspace root
// and refuses escapes.
func resolvePath(workDir, p string) (string, error) {
	if p == "" {
		return "", fmt.Errorf("path is required")
	}
	if filepath.IsAbs(p) {
		return "", fmt.Errorf("absolute paths are not allowed: %s", p)
	}
	joined := filepath.Join(workDir, p)
	rel, err := filepath.Rel(workDir, joined)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("path escapes the workspace: %s", p)
	}
	return joined, nil
}

func truncate(s string) string {
	if len(s) <= maxOutputBytes {
		return s
	}
	return s[:maxOutputBytes] + "\n... (output truncated)"
}

// --- run_command ---

type runCommandTool struct {
	workDir string
}

type runCommandArgs struct {
	Command string `json:"command"`
}

func (t *runCommandTool) Def() Def {
	return Def{
		Name:        "run_command",
		Description: "Run a shell command in the workspace directory and return its combined output.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"command": map[string]interface{}{"type": "string", "description": "Shell command to run"},
			},
			"required": []string{"command"},
		},
	}
}

func (t *runCommandTool) Validate(args json.RawMessage) error {
	var a runCommandArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return err
	}
	if strings.TrimSpace(a.Command) == "" {
		return fmt.Errorf("command is required")
	}
	return nil
}

func (t *runCommandTool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var a runCommandArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return "", err
	}

	file, err := syntax.NewParser().Parse(strings.NewReader(a.Command), "")
	if err != nil {
		return "", fmt.Errorf("parse command: %w", err)
	}

	var out bytes.Buffer
	runner, err := interp.New(
		interp.StdIO(nil, &out, &out),
		interp.Dir(t.workDir),
	)
	if err != nil {
		return "", fmt.Errorf("init shell: %w", err)
	}

	if err := runner.Run(ctx, file); err != nil {
		if status, ok := interp.IsExitStatus(err); ok {
			return "", fmt.Errorf("exit status %d\n%s", status, truncate(out.String()))
		}
		return "", err
	}
	if out.Len() == 0 {
		return "(no output)", nil
	}
	return truncate(out.String()), nil
}

// --- read_file ---

type readFileTool struct {
	workDir string
	maxSize int64
}

type readFileArgs struct {
	Path string `json:"path"`
}

func (t *readFileTool) Def() Def {
	return Def{
		Name:        "read_file",
		Description: "Read a file relative to the workspace directory.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"path": map[string]interface{}{"type": "string", "description": "Relative file path"},
			},
			"required": []string{"path"},
		},
	}
}

func (t *readFileTool) Validate(args json.RawMessage) error {
	var a readFileArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return err
	}
	_, err := resolvePath(t.workDir, a.Path)
	return err
}

func (t *readFileTool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var a readFileArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return "", err
	}
	path, err := resolvePath(t.workDir, a.Path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.Size() > t.maxSize {
		return "", fmt.Errorf("file too large: %d bytes (limit %d)", info.Size(), t.maxSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// --- write_file ---

type writeFileTool struct {
	workDir string
}

type writeFileArgs struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

func (t *writeFileTool) Def() Def {
	return Def{
		Name:        "write_file",
		Description: "Create or overwrite a file relative to the workspace directory.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"path":    map[string]interface{}{"type": "string", "description": "Relative file path"},
				"content": map[string]interface{}{"type": "string", "description": "Full file contents"},
			},
			"required": []string{"path", "content"},
		},
	}
}

func (t *writeFileTool) Validate(args json.RawMessage) error {
	var a writeFileArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return err
	}
	_, err := resolvePath(t.workDir, a.Path)
	return err
}

func (t *writeFileTool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var a writeFileArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return "", err
	}
	path, err := resolvePath(t.workDir, a.Path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(a.Content), 0644); err != nil {
		return "", err
	}
	return fmt.Sprintf("wrote %d bytes to %s", len(a.Content), a.Path), nil
}

// --- list_dir ---

type listDirTool struct {
	workDir string
}

type listDirArgs struct {
	Path string `json:"path"`
}

func (t *listDirTool) Def() Def {
	return Def{
		Name:        "list_dir",
		Description: "List entries of a directory relative to the workspace directory.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"path": map[string]interface{}{"type": "string", "description": "Relative directory path, \".\" for the workspace root"},
			},
			"required": []string{"path"},
		},
	}
}

func (t *listDirTool) Validate(args json.RawMessage) error {
	var a listDirArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return err
	}
	if a.Path == "." {
		return nil
	}
	_, err := resolvePath(t.workDir, a.Path)
	return err
}

func (t *listDirTool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var a listDirArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return "", err
	}
	path := t.workDir
	if a.Path != "." {
		var err error
		path, err = resolvePath(t.workDir, a.Path)
		if err != nil {
			return "", err
		}
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, e := range entries {
		if e.IsDir() {
			fmt.Fprintf(&b, "%s/\n", e.Name())
		} else {
			fmt.Fprintf(&b, "%s\n", e.Name())
		}
	}
	if b.Len() == 0 {
		return "(empty directory)", nil
	}
	return truncate(b.String()), nil
}
