package capture

import (
	"bytes"
	"errors"
	"testing"
	"time"
)

func TestBufferAppendOrderAndFreeze(t *testing.T) {
	b := NewBuffer()
	b.Append([]byte{1, 2})
	b.Append(nil)
	b.Append([]byte{})
	b.Append([]byte{3})

	if got := b.Size(); got != 3 {
		t.Fatalf("expected size 3, got %d", got)
	}

	pcm, err := b.Freeze()
	if err != nil {
		t.Fatalf("freeze: %v", err)
	}
	if !bytes.Equal(pcm, []byte{1, 2, 3}) {
		t.Fatalf("unexpected pcm: %v", pcm)
	}
}

func TestBufferFreezeTwiceFails(t *testing.T) {
	b := NewBuffer()
	b.Append([]byte{9})
	if _, err := b.Freeze(); err != nil {
		t.Fatalf("first freeze: %v", err)
	}
	if _, err := b.Freeze(); !errors.Is(err, ErrFrozen) {
		t.Fatalf("expected ErrFrozen, got %v", err)
	}
}

func TestBufferFreezeEmpty(t *testing.T) {
	b := NewBuffer()
	if _, err := b.Freeze(); !errors.Is(err, ErrNoAudio) {
		t.Fatalf("expected ErrNoAudio, got %v", err)
	}
}

func TestBufferDropsAppendsAfterFreeze(t *testing.T) {
	b := NewBuffer()
	b.Append([]byte{1})
	if _, err := b.Freeze(); err != nil {
		t.Fatalf("freeze: %v", err)
	}
	b.Append([]byte{2})
	if got := b.Size(); got != 1 {
		t.Fatalf("expected frozen size unchanged, got %d", got)
	}
}

func TestBufferCopiesCallerChunk(t *testing.T) {
	b := NewBuffer()
	chunk := []byte{1, 2, 3}
	b.Append(chunk)
	chunk[0] = 99

	pcm, err := b.Freeze()
	if err != nil {
		t.Fatalf("freeze: %v", err)
	}
	if pcm[0] != 1 {
		t.Fatalf("buffer shares caller memory: %v", pcm)
	}
}

func TestEncodeWAVHeader(t *testing.T) {
	pcm := make([]byte, 3200) // 100ms at 16kHz mono
	data, err := EncodeWAV(pcm, 16000, 1)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(data[:4], []byte("RIFF")) || !bytes.Equal(data[8:12], []byte("WAVE")) {
		t.Fatalf("missing RIFF/WAVE header: %q", data[:12])
	}
}

func TestEncodeWAVRejectsUnaligned(t *testing.T) {
	if _, err := EncodeWAV([]byte{1}, 16000, 1); err == nil {
		t.Fatal("expected error for unaligned pcm")
	}
}

func TestPCMDuration(t *testing.T) {
	// 1 second of 16kHz mono S16_LE
	if got := PCMDuration(32000, 16000, 1); got != time.Second {
		t.Fatalf("expected 1s, got %v", got)
	}
	if got := PCMDuration(100, 0, 0); got != 0 {
		t.Fatalf("expected 0 for zero rate, got %v", got)
	}
}
