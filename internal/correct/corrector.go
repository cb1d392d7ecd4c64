// Package correct talks to the remote text-correction collaborator. A
// failure here never kills a pipeline run: the caller keeps the raw
// transcript and logs the returned error.
package correct

import (
	"context"

	"github.com/memovox/memovox/internal/config"
)

// Corrector produces a corrected/condensed summary for a raw transcript.
// Implementations always return usable text: on any failure the original
// transcript comes back unchanged together with the diagnostic error.
type Corrector interface {
	Correct(ctx context.Context, transcript string) (string, error)
}

// New builds a corrector from config. An empty endpoint in http mode yields
// the passthrough corrector, matching deployments without a correction
// service.
func New(cfg config.CorrectorConfig) Corrector {
	if cfg.Mode == "mock" {
		return NewMockCorrector()
	}
	if cfg.Endpoint == "" {
		return NewPassthroughCorrector()
	}
	return NewHTTPCorrector(cfg)
}

type passthroughCorrector struct{}

// NewPassthroughCorrector returns the transcript verbatim.
func NewPassthroughCorrector() Corrector {
	return passthroughCorrector{}
}

func (passthroughCorrector) Correct(_ context.Context, transcript string) (string, error) {
	return transcript, nil
}
