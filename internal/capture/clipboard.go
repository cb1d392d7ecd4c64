package capture

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/mattn/go-shellwords"
	"github.com/memovox/memovox/internal/config"
)

// Clipboard copies text to the system clipboard via the configured command
// (xclip, wl-copy, pbcopy and friends all read stdin).
type Clipboard interface {
	Copy(ctx context.Context, text string) error
}

func NewClipboard(cfg config.CaptureConfig) (Clipboard, error) {
	if cfg.ClipboardCommand == "mock" {
		return nopClipboard{}, nil
	}
	parser := shellwords.NewParser()
	args, err := parser.Parse(cfg.ClipboardCommand)
	if err != nil {
		return nil, fmt.Errorf("parse clipboard command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("clipboard command is empty")
	}
	return &execClipboard{args: args}, nil
}

type execClipboard struct {
	args []string
}

func (c *execClipboard) Copy(ctx context.Context, text string) error {
	cmd := exec.CommandContext(ctx, c.args[0], c.args[1:]...)
	cmd.Stdin = strings.NewReader(text)
	// No output pipes: xclip and friends fork a child that keeps the
	// selection alive, and that child would hold an inherited pipe open
	// long after the parent exits. The exit code is all we need.
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("clipboard command failed: %w", err)
	}
	return nil
}

type nopClipboard struct{}

func (nopClipboard) Copy(context.Context, string) error { return nil }
