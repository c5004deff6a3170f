package terms

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// CLIIdentifier shells out to the `claude` command-line tool for term
// identification. It needs no API key of its own, which suits workstation
// installs where the CLI is already authenticated.
type CLIIdentifier struct {
	// Binary is the executable name, "claude" by default.
	Binary string
	// Timeout bounds one identification call. Zero means 2 minutes.
	Timeout time.Duration
}

func (c *CLIIdentifier) Name() string { return "claude-cli" }

func (c *CLIIdentifier) binary() string {
	if c.Binary != "" {
		return c.Binary
	}
	return "claude"
}

// Identify runs the CLI with the identification prompt and parses the JSON
// array of terms from its stdout.
func (c *CLIIdentifier) Identify(ctx context.Context, documentText string) ([]string, error) {
	bin := c.binary()
	if _, err := exec.LookPath(bin); err != nil {
		return nil, fmt.Errorf("%w: %s not found in PATH", ErrUnavailable, bin)
	}
	timeout := c.Timeout
	if timeout == 0 {
		timeout = 2 * time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, bin, "-p", buildPrompt(documentText))
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s timed out after %s", ErrUnavailable, bin, timeout)
		}
		return nil, fmt.Errorf("%w: %s: %v (%s)", ErrUnavailable, bin, err, bytes.TrimSpace(stderr.Bytes()))
	}
	return parseTermArray(stdout.String())
}
