package capture

import (
	"errors"
	"sync"
	"time"
)

// ErrFrozen is returned when a finalized buffer is finalized again.
var ErrFrozen = errors.New("capture buffer already frozen")

// ErrNoAudio is returned when finalization finds no captured chunks.
var ErrNoAudio = errors.New("no audio captured")

// Clip is an immutable finalized recording. Data is a complete WAV object;
// MIME tags the negotiated encoding.
type Clip struct {
	Data       []byte
	MIME       string
	Duration   time.Duration
	SampleRate int
	Channels   int
}

func (c Clip) Empty() bool {
	return len(c.Data) == 0
}

// Buffer accumulates raw PCM chunks for one recording session. Appends are
// ordered, zero-length chunks are dropped, and Freeze produces the single
// immutable snapshot exactly once. Appends arriving after Freeze are dropped;
// the capture process may deliver a trailing read while shutting down.
type Buffer struct {
	mu     sync.Mutex
	chunks [][]byte
	size   int
	frozen bool
}

func NewBuffer() *Buffer {
	return &Buffer{}
}

// Append copies p onto the chunk sequence.
func (b *Buffer) Append(p []byte) {
	if len(p) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.frozen {
		return
	}
	buf := make([]byte, len(p))
	copy(buf, p)
	b.chunks = append(b.chunks, buf)
	b.size += len(buf)
}

// Size reports the total buffered byte count.
func (b *Buffer) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// Freeze concatenates all chunks into one PCM payload and marks the buffer
// immutable. A second Freeze is a caller bug and fails loudly.
func (b *Buffer) Freeze() ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.frozen {
		return nil, ErrFrozen
	}
	b.frozen = true
	if b.size == 0 {
		return nil, ErrNoAudio
	}
	pcm := make([]byte, 0, b.size)
	for _, c := range b.chunks {
		pcm = append(pcm, c...)
	}
	b.chunks = nil
	return pcm, nil
}
