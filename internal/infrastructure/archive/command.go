package archive

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"K10PlusExport/internal/domain"
	"K10PlusExport/internal/ports"
)

const tarTool = "tar"

// Command shells out to the host tar binary.
type Command struct {
	tool string
}

var (
	_ ports.Packager          = (*Command)(nil)
	_ ports.ArchiveCapability = (*Command)(nil)
)

// NewCommand uses tool, or "tar" when empty.
func NewCommand(tool string) *Command {
	if tool == "" {
		tool = tarTool
	}
	return &Command{tool: tool}
}

// Check reports a ToolUnavailableError when the binary is not on PATH.
func (c *Command) Check() error {
	if _, err := exec.LookPath(c.tool); err != nil {
		return &domain.ToolUnavailableError{Tool: c.tool, Err: err}
	}
	return nil
}

// Package mirrors Native.Package. All files must share one directory, which
// tar enters with -C so only basenames are stored.
func (c *Command) Package(ctx context.Context, files []string, output string) (string, error) {
	switch len(files) {
	case 0:
		return "", fmt.Errorf("package: no files")
	case 1:
		return files[0], nil
	}

	if err := uniqueBasenames(files); err != nil {
		return "", err
	}

	dir := filepath.Dir(files[0])
	names := make([]string, len(files))
	for i, file := range files {
		if filepath.Dir(file) != dir {
			return "", fmt.Errorf("package: %s is outside %s", file, dir)
		}
		names[i] = filepath.Base(file)
	}

	args := append([]string{"-czf", output, "-C", dir, "--owner", "0", "--group", "0", "--"}, names...)
	cmd := exec.CommandContext(ctx, c.tool, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		os.Remove(output)
		return "", fmt.Errorf("run %s: %w: %s", c.tool, err, strings.TrimSpace(stderr.String()))
	}
	return output, nil
}
