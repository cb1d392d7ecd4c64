package capture

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"

	"github.com/mattn/go-shellwords"
	"github.com/memovox/memovox/internal/config"
)

// WAVMime tags clips produced by this package.
const WAVMime = "audio/wav"

// ErrDeviceUnavailable signals that the capture device could not be acquired.
// The session stays in Idle and the user is asked to check permissions.
var ErrDeviceUnavailable = errors.New("audio device unavailable")

// ErrNotRecording is returned by Stop when no capture is active.
var ErrNotRecording = errors.New("no capture in progress")

// Recorder acquires the exclusive microphone stream and produces one
// immutable Clip per session.
type Recorder interface {
	Start(ctx context.Context) error
	Stop() (Clip, error)
}

// NewRecorder builds a recorder from config. The literal command "mock"
// selects the synthetic recorder used in development and tests.
func NewRecorder(cfg config.CaptureConfig) (Recorder, error) {
	if cfg.Command == "mock" {
		return NewMockRecorder(cfg), nil
	}
	return NewExecRecorder(cfg)
}

// execRecorder spawns the configured capture command and buffers its raw
// PCM stdout until Stop.
type execRecorder struct {
	cfg  config.CaptureConfig
	args []string

	mu         sync.Mutex
	cancel     context.CancelFunc
	cmd        *exec.Cmd
	buf        *Buffer
	readerDone chan struct{}
}

func NewExecRecorder(cfg config.CaptureConfig) (Recorder, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("parse capture command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("capture command is empty")
	}
	return &execRecorder{cfg: cfg, args: args}, nil
}

func (r *execRecorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cmd != nil {
		return fmt.Errorf("capture already active")
	}

	runCtx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(runCtx, r.args[0], r.args[1:]...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("capture stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	buf := NewBuffer()
	done := make(chan struct{})
	go func() {
		defer close(done)
		chunk := make([]byte, 4096)
		for {
			n, err := stdout.Read(chunk)
			if n > 0 {
				buf.Append(chunk[:n])
			}
			if err != nil {
				return
			}
		}
	}()

	r.cancel = cancel
	r.cmd = cmd
	r.buf = buf
	r.readerDone = done
	return nil
}

// Stop terminates the capture process first, so the device is released even
// when finalization fails, then freezes the buffer into a Clip.
func (r *execRecorder) Stop() (Clip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cmd == nil {
		return Clip{}, ErrNotRecording
	}

	r.cancel()
	<-r.readerDone
	_ = r.cmd.Wait()
	r.cmd = nil
	r.cancel = nil
	r.readerDone = nil

	buf := r.buf
	r.buf = nil

	pcm, err := buf.Freeze()
	if err != nil {
		return Clip{}, err
	}
	data, err := EncodeWAV(pcm, r.cfg.SampleRate, r.cfg.Channels)
	if err != nil {
		return Clip{}, fmt.Errorf("finalize clip: %w", err)
	}
	return Clip{
		Data:       data,
		MIME:       WAVMime,
		Duration:   PCMDuration(len(pcm), r.cfg.SampleRate, r.cfg.Channels),
		SampleRate: r.cfg.SampleRate,
		Channels:   r.cfg.Channels,
	}, nil
}

// mockRecorder produces half a second of silence. Used when the capture
// command is "mock".
type mockRecorder struct {
	cfg config.CaptureConfig
	mu  sync.Mutex
	on  bool
}

func NewMockRecorder(cfg config.CaptureConfig) Recorder {
	return &mockRecorder{cfg: cfg}
}

func (m *mockRecorder) Start(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.on {
		return fmt.Errorf("capture already active")
	}
	m.on = true
	return nil
}

func (m *mockRecorder) Stop() (Clip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.on {
		return Clip{}, ErrNotRecording
	}
	m.on = false
	pcm := make([]byte, m.cfg.SampleRate*m.cfg.Channels*bytesPerSample/2)
	data, err := EncodeWAV(pcm, m.cfg.SampleRate, m.cfg.Channels)
	if err != nil {
		return Clip{}, err
	}
	return Clip{
		Data:       data,
		MIME:       WAVMime,
		Duration:   PCMDuration(len(pcm), m.cfg.SampleRate, m.cfg.Channels),
		SampleRate: m.cfg.SampleRate,
		Channels:   m.cfg.Channels,
	}, nil
}
