// Package pipeline turns a finished audio clip into a persisted note. The
// stages run strictly in order: transcribe, correct, persist. Transcription
// and persistence failures abort the run; a correction failure degrades to
// the raw transcript and the run continues.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/memovox/memovox/internal/capture"
	"github.com/memovox/memovox/internal/correct"
	"github.com/memovox/memovox/internal/notestore"
	"github.com/memovox/memovox/internal/protocol"
	"github.com/memovox/memovox/internal/transcribe"
)

var (
	// ErrTranscriptionFailed aborts the run; the clip stays with the caller
	// for retry.
	ErrTranscriptionFailed = errors.New("transcription failed")
	// ErrPersistenceFailed aborts the run after a usable summary existed.
	ErrPersistenceFailed = errors.New("persistence failed")
)

// Store is the slice of the note store the pipeline writes through.
type Store interface {
	Create(ctx context.Context, transcript, summary, audioURL string) (notestore.Note, error)
}

// Publisher announces completed runs on the bus.
type Publisher interface {
	PublishJSON(subject string, v any) error
}

// Result reports a completed run. CorrectionDegraded is set when the summary
// fell back to the raw transcript.
type Result struct {
	Note               notestore.Note
	CorrectionDegraded bool
}

type Pipeline struct {
	transcriber transcribe.Transcriber
	corrector   correct.Corrector
	store       Store
	bus         Publisher
	logger      *slog.Logger
	tracer      trace.Tracer

	runs      metric.Int64Counter
	failures  metric.Int64Counter
	fallbacks metric.Int64Counter
}

func New(transcriber transcribe.Transcriber, corrector correct.Corrector, store Store, bus Publisher, logger *slog.Logger) *Pipeline {
	p := &Pipeline{
		transcriber: transcriber,
		corrector:   corrector,
		store:       store,
		bus:         bus,
		logger:      logger.With(slog.String("component", "pipeline")),
		tracer:      otel.Tracer("github.com/memovox/memovox/pipeline"),
	}
	if err := p.initMetrics(); err != nil {
		p.logger.Warn("failed to initialize metrics", slog.String("error", err.Error()))
	}
	return p
}

func (p *Pipeline) initMetrics() error {
	meter := otel.Meter("github.com/memovox/memovox/pipeline")
	var err error
	if p.runs, err = meter.Int64Counter("memovox.pipeline.runs", metric.WithDescription("Completed pipeline runs")); err != nil {
		return err
	}
	if p.failures, err = meter.Int64Counter("memovox.pipeline.failures", metric.WithDescription("Aborted pipeline runs")); err != nil {
		return err
	}
	if p.fallbacks, err = meter.Int64Counter("memovox.pipeline.correction_fallbacks", metric.WithDescription("Runs that kept the raw transcript")); err != nil {
		return err
	}
	return nil
}

func (p *Pipeline) count(ctx context.Context, counter metric.Int64Counter, attrs ...attribute.KeyValue) {
	if counter != nil {
		counter.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// Run executes the three stages against the clip and returns the persisted
// note. The clip itself is not uploaded; only its derived text travels.
func (p *Pipeline) Run(ctx context.Context, clip capture.Clip) (Result, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.run")
	defer span.End()
	span.SetAttributes(
		attribute.Int("clip.bytes", len(clip.Data)),
		attribute.String("clip.duration", clip.Duration.String()),
	)

	transcript, err := p.transcriber.Transcribe(ctx, clip)
	if err != nil {
		span.RecordError(err)
		p.count(ctx, p.failures, attribute.String("stage", "transcribe"))
		p.logger.Error("transcription failed", slog.String("error", err.Error()))
		return Result{}, fmt.Errorf("%w: %w", ErrTranscriptionFailed, err)
	}

	summary, corrErr := p.corrector.Correct(ctx, transcript)
	degraded := corrErr != nil
	if degraded {
		// The corrector contract guarantees summary is still usable text.
		span.RecordError(corrErr)
		p.count(ctx, p.fallbacks)
		p.logger.Warn("correction degraded to raw transcript", slog.String("error", corrErr.Error()))
	}

	note, err := p.store.Create(ctx, transcript, summary, "")
	if err != nil {
		span.RecordError(err)
		p.count(ctx, p.failures, attribute.String("stage", "persist"))
		p.logger.Error("persisting note failed", slog.String("error", err.Error()))
		return Result{}, fmt.Errorf("%w: %w", ErrPersistenceFailed, err)
	}

	p.count(ctx, p.runs)
	p.announce(note)
	p.logger.Info("memo persisted",
		slog.String("note_id", note.ID),
		slog.Bool("correction_degraded", degraded))
	return Result{Note: note, CorrectionDegraded: degraded}, nil
}

func (p *Pipeline) announce(note notestore.Note) {
	if p.bus == nil {
		return
	}
	event := protocol.MemoCreated{
		NoteID:    note.ID,
		OwnerID:   note.OwnerID,
		Summary:   note.Summary,
		Timestamp: note.CreatedAt,
	}
	if err := p.bus.PublishJSON(protocol.SubjectMemoCreated, event); err != nil {
		p.logger.Warn("publishing memo event failed", slog.String("error", err.Error()))
	}
}
