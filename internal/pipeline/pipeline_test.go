package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/memovox/memovox/internal/capture"
	"github.com/memovox/memovox/internal/notestore"
	"github.com/memovox/memovox/internal/protocol"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testClip() capture.Clip {
	return capture.Clip{Data: []byte("RIFFfake"), MIME: capture.WAVMime, Duration: 2 * time.Second}
}

type fakeTranscriber struct {
	text string
	err  error
}

func (f *fakeTranscriber) Transcribe(context.Context, capture.Clip) (string, error) {
	return f.text, f.err
}

type fakeCorrector struct {
	out string
	err error
}

func (f *fakeCorrector) Correct(_ context.Context, transcript string) (string, error) {
	if f.err != nil {
		return transcript, f.err
	}
	return f.out, nil
}

type fakeStore struct {
	calls   int
	created notestore.Note
	err     error

	gotTranscript string
	gotSummary    string
}

func (f *fakeStore) Create(_ context.Context, transcript, summary, _ string) (notestore.Note, error) {
	f.calls++
	f.gotTranscript = transcript
	f.gotSummary = summary
	if f.err != nil {
		return notestore.Note{}, f.err
	}
	return f.created, nil
}

type fakeBus struct {
	subjects []string
	events   []any
}

func (f *fakeBus) PublishJSON(subject string, v any) error {
	f.subjects = append(f.subjects, subject)
	f.events = append(f.events, v)
	return nil
}

func TestRunPersistsCorrectedSummary(t *testing.T) {
	store := &fakeStore{created: notestore.Note{ID: "n1", Summary: "Hello there."}}
	bus := &fakeBus{}
	p := New(
		&fakeTranscriber{text: "hello there"},
		&fakeCorrector{out: "Hello there."},
		store, bus, testLogger(),
	)

	res, err := p.Run(context.Background(), testClip())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.CorrectionDegraded {
		t.Fatal("run with a working corrector must not report degradation")
	}
	if store.gotTranscript != "hello there" || store.gotSummary != "Hello there." {
		t.Fatalf("unexpected insert %q / %q", store.gotTranscript, store.gotSummary)
	}
	if len(bus.subjects) != 1 || bus.subjects[0] != protocol.SubjectMemoCreated {
		t.Fatalf("expected one memo.created event, got %v", bus.subjects)
	}
}

func TestRunKeepsTranscriptWhenCorrectionFails(t *testing.T) {
	store := &fakeStore{created: notestore.Note{ID: "n2"}}
	p := New(
		&fakeTranscriber{text: "raw words here"},
		&fakeCorrector{err: errors.New("model overloaded")},
		store, &fakeBus{}, testLogger(),
	)

	res, err := p.Run(context.Background(), testClip())
	if err != nil {
		t.Fatalf("a correction failure must not abort the run: %v", err)
	}
	if !res.CorrectionDegraded {
		t.Fatal("expected degradation to be reported")
	}
	if store.gotSummary != "raw words here" {
		t.Fatalf("summary must fall back to the transcript, got %q", store.gotSummary)
	}
}

func TestRunAbortsWhenTranscriptionFails(t *testing.T) {
	store := &fakeStore{}
	p := New(
		&fakeTranscriber{err: errors.New("service down")},
		&fakeCorrector{out: "never used"},
		store, &fakeBus{}, testLogger(),
	)

	_, err := p.Run(context.Background(), testClip())
	if !errors.Is(err, ErrTranscriptionFailed) {
		t.Fatalf("expected ErrTranscriptionFailed, got %v", err)
	}
	if store.calls != 0 {
		t.Fatal("nothing may be persisted when transcription fails")
	}
}

func TestRunWrapsPersistenceFailure(t *testing.T) {
	bus := &fakeBus{}
	p := New(
		&fakeTranscriber{text: "words"},
		&fakeCorrector{out: "Words."},
		&fakeStore{err: notestore.ErrNotAuthenticated},
		bus, testLogger(),
	)

	_, err := p.Run(context.Background(), testClip())
	if !errors.Is(err, ErrPersistenceFailed) {
		t.Fatalf("expected ErrPersistenceFailed, got %v", err)
	}
	if !errors.Is(err, notestore.ErrNotAuthenticated) {
		t.Fatalf("cause must stay inspectable, got %v", err)
	}
	if len(bus.subjects) != 0 {
		t.Fatal("no event may be published for a failed run")
	}
}
