package capture

import (
	"context"
	"testing"
	"time"

	"github.com/memovox/memovox/internal/config"
)

func TestExecClipboardReturnsWhenCommandExits(t *testing.T) {
	// Clipboard tools fork a child that outlives the parent to keep the
	// selection. Copy must return as soon as the parent exits, not wait
	// for the child.
	c, err := NewClipboard(config.CaptureConfig{ClipboardCommand: `sh -c "sleep 2 >/dev/null & exit 0"`})
	if err != nil {
		t.Fatalf("build clipboard: %v", err)
	}

	start := time.Now()
	if err := c.Copy(context.Background(), "memo summary"); err != nil {
		t.Fatalf("copy: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("copy must not wait on the forked child, took %s", elapsed)
	}
}

func TestExecClipboardSurfacesExitFailure(t *testing.T) {
	c, err := NewClipboard(config.CaptureConfig{ClipboardCommand: `sh -c "exit 3"`})
	if err != nil {
		t.Fatalf("build clipboard: %v", err)
	}
	if err := c.Copy(context.Background(), "memo summary"); err == nil {
		t.Fatal("expected failure for non-zero exit")
	}
}

func TestExecClipboardReceivesText(t *testing.T) {
	c, err := NewClipboard(config.CaptureConfig{ClipboardCommand: `grep -q memo`})
	if err != nil {
		t.Fatalf("build clipboard: %v", err)
	}
	if err := c.Copy(context.Background(), "memo summary"); err != nil {
		t.Fatalf("the text must arrive on stdin: %v", err)
	}
}
