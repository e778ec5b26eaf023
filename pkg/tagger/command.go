package tagger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/aretw0/catset/pkg/core"
)

// Command runs an external tagging program, such as a wrapper around the
// Python get_CAT module. The normalized code is written to its stdin; it must
// print a JSON array of tags on stdout and exit 0. On failure its stderr
// becomes the error message.
type Command struct {
	Path string
	Args []string
	Dir  string
}

// NewCommand returns a Command tagger for argv.
func NewCommand(argv ...string) (*Command, error) {
	if len(argv) == 0 || strings.TrimSpace(argv[0]) == "" {
		return nil, fmt.Errorf("tagger command is empty")
	}
	return &Command{Path: argv[0], Args: argv[1:]}, nil
}

var _ core.Tagger = (*Command)(nil)

func (c *Command) GenerateTags(ctx context.Context, normalized string) ([]string, error) {
	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Dir = c.Dir
	cmd.Stdin = strings.NewReader(normalized)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s: %s", c.Path, msg)
		}
		return nil, fmt.Errorf("run %s: %w", c.Path, err)
	}

	var tags []string
	if err := json.Unmarshal(bytes.TrimSpace(stdout.Bytes()), &tags); err != nil {
		return nil, fmt.Errorf("decode output of %s: %w", c.Path, err)
	}
	if tags == nil {
		tags = []string{}
	}
	return tags, nil
}

func (c *Command) ComponentType() string { return "command" }
