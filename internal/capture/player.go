package capture

import (
	"context"
	"fmt"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/mattn/go-shellwords"
	"github.com/memovox/memovox/internal/config"
)

// Player replays a finalized clip during review. Pause and Resume map onto
// process job control; the done channel fires once on natural end-of-audio
// or when playback is torn down.
type Player interface {
	Play(ctx context.Context, clip Clip) (<-chan error, error)
	Pause() error
	Resume() error
	Stop() error
}

func NewPlayer(cfg config.CaptureConfig) (Player, error) {
	if cfg.PlayCommand == "mock" {
		return &mockPlayer{}, nil
	}
	parser := shellwords.NewParser()
	args, err := parser.Parse(cfg.PlayCommand)
	if err != nil {
		return nil, fmt.Errorf("parse play command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("play command is empty")
	}
	return &execPlayer{args: args}, nil
}

type execPlayer struct {
	args []string

	mu     sync.Mutex
	cmd    *exec.Cmd
	cancel context.CancelFunc
}

func (p *execPlayer) Play(ctx context.Context, clip Clip) (<-chan error, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd != nil {
		return nil, fmt.Errorf("playback already active")
	}

	runCtx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(runCtx, p.args[0], p.args[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("playback stdin: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("start playback: %w", err)
	}

	go func() {
		_, _ = stdin.Write(clip.Data)
		_ = stdin.Close()
	}()

	done := make(chan error, 1)
	go func() {
		err := cmd.Wait()
		p.mu.Lock()
		if p.cmd == cmd {
			p.cmd = nil
			p.cancel = nil
		}
		p.mu.Unlock()
		cancel()
		done <- err
	}()

	p.cmd = cmd
	p.cancel = cancel
	return done, nil
}

func (p *execPlayer) Pause() error {
	return p.signal(syscall.SIGSTOP)
}

func (p *execPlayer) Resume() error {
	return p.signal(syscall.SIGCONT)
}

func (p *execPlayer) Stop() error {
	p.mu.Lock()
	cancel := p.cancel
	p.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	return nil
}

func (p *execPlayer) signal(sig syscall.Signal) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd == nil || p.cmd.Process == nil {
		return fmt.Errorf("no playback in progress")
	}
	return p.cmd.Process.Signal(sig)
}

// mockPlayer completes playback on a short timer.
type mockPlayer struct {
	mu     sync.Mutex
	cancel context.CancelFunc
}

func (m *mockPlayer) Play(ctx context.Context, clip Clip) (<-chan error, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	done := make(chan error, 1)
	go func() {
		select {
		case <-runCtx.Done():
			done <- runCtx.Err()
		case <-time.After(20 * time.Millisecond):
			done <- nil
		}
	}()
	return done, nil
}

func (m *mockPlayer) Pause() error  { return nil }
func (m *mockPlayer) Resume() error { return nil }

func (m *mockPlayer) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	return nil
}
