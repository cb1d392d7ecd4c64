// Package transcribe talks to the remote speech-to-text collaborator.
package transcribe

import (
	"context"

	"github.com/memovox/memovox/internal/capture"
	"github.com/memovox/memovox/internal/config"
)

// Transcriber converts a finalized clip into raw text.
type Transcriber interface {
	Transcribe(ctx context.Context, clip capture.Clip) (string, error)
}

// New builds a transcriber from config.
func New(cfg config.TranscriberConfig) Transcriber {
	if cfg.Mode == "mock" {
		return NewMockTranscriber()
	}
	return NewHTTPTranscriber(cfg)
}
