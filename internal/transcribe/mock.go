package transcribe

import (
	"context"
	"fmt"

	"github.com/memovox/memovox/internal/capture"
)

type mockTranscriber struct{}

func NewMockTranscriber() Transcriber {
	return &mockTranscriber{}
}

func (m *mockTranscriber) Transcribe(_ context.Context, clip capture.Clip) (string, error) {
	return fmt.Sprintf("[mock transcript bytes=%d duration=%s]", len(clip.Data), clip.Duration), nil
}
