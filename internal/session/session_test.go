package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/memovox/memovox/internal/capture"
	"github.com/memovox/memovox/internal/config"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func mockSession(t *testing.T) *Session {
	t.Helper()
	rec, err := capture.NewRecorder(config.CaptureConfig{Command: "mock", SampleRate: 16000, Channels: 1})
	if err != nil {
		t.Fatalf("build recorder: %v", err)
	}
	return New(rec, newLogger())
}

// failingRecorder simulates a denied microphone.
type failingRecorder struct{}

func (failingRecorder) Start(context.Context) error { return capture.ErrDeviceUnavailable }
func (failingRecorder) Stop() (capture.Clip, error) {
	return capture.Clip{}, capture.ErrNotRecording
}

// stuckRecorder starts fine but cannot finalize what it captured.
type stuckRecorder struct{ stopErr error }

func (stuckRecorder) Start(context.Context) error { return nil }
func (r stuckRecorder) Stop() (capture.Clip, error) {
	return capture.Clip{}, r.stopErr
}

func recordToReview(t *testing.T, s *Session) {
	t.Helper()
	if err := s.StartRecording(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	s.Tick()
	s.Tick()
	if err := s.StopRecording(); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func TestClipPresentExactlyInReviewAndProcessing(t *testing.T) {
	s := mockSession(t)

	if _, ok := s.Clip(); ok {
		t.Fatal("idle session must not hold a clip")
	}
	if err := s.StartRecording(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, ok := s.Clip(); ok {
		t.Fatal("recording session must not hold a clip yet")
	}
	if err := s.StopRecording(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if _, ok := s.Clip(); !ok {
		t.Fatal("review session must hold a clip")
	}
	if _, ok := s.BeginCommit(); !ok {
		t.Fatal("commit should be accepted")
	}
	if _, ok := s.Clip(); !ok {
		t.Fatal("processing session must hold a clip")
	}
	s.CompleteCommit()
	if _, ok := s.Clip(); ok {
		t.Fatal("idle session must not hold a clip after commit")
	}
}

func TestDeviceUnavailableStaysIdle(t *testing.T) {
	s := New(failingRecorder{}, newLogger())
	err := s.StartRecording(context.Background())
	if !errors.Is(err, capture.ErrDeviceUnavailable) {
		t.Fatalf("expected ErrDeviceUnavailable, got %v", err)
	}
	if s.State() != StateIdle {
		t.Fatalf("expected Idle, got %s", s.State())
	}
	if s.ElapsedSeconds() != 0 {
		t.Fatalf("expected elapsed 0, got %d", s.ElapsedSeconds())
	}
}

func TestTickCountsOnlyWhileRecording(t *testing.T) {
	s := mockSession(t)
	s.Tick()
	if s.ElapsedSeconds() != 0 {
		t.Fatal("idle tick must not count")
	}
	recordToReview(t, s)
	if s.ElapsedSeconds() != 2 {
		t.Fatalf("expected elapsed 2, got %d", s.ElapsedSeconds())
	}
	s.Tick()
	if s.ElapsedSeconds() != 2 {
		t.Fatal("review tick must not count")
	}
}

func TestDiscardOnlyFromReview(t *testing.T) {
	s := mockSession(t)
	if err := s.Discard(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected invalid transition from idle, got %v", err)
	}

	recordToReview(t, s)
	if _, ok := s.BeginCommit(); !ok {
		t.Fatal("commit should be accepted")
	}
	if err := s.Discard(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("discard must be disabled while processing, got %v", err)
	}

	s.FailCommit()
	if err := s.Discard(); err != nil {
		t.Fatalf("discard from review: %v", err)
	}
	if s.State() != StateIdle {
		t.Fatalf("expected Idle after discard, got %s", s.State())
	}
	if s.ElapsedSeconds() != 0 {
		t.Fatal("discard must clear elapsed time")
	}
	if _, ok := s.Clip(); ok {
		t.Fatal("discard must release the clip")
	}
}

func TestFailCommitPreservesClipAndElapsed(t *testing.T) {
	s := mockSession(t)
	recordToReview(t, s)
	want, _ := s.Clip()

	if _, ok := s.BeginCommit(); !ok {
		t.Fatal("commit should be accepted")
	}
	s.FailCommit()

	if s.State() != StateReview {
		t.Fatalf("expected Review after failed commit, got %s", s.State())
	}
	got, ok := s.Clip()
	if !ok || len(got.Data) != len(want.Data) {
		t.Fatal("failed commit must preserve the clip")
	}
	if s.ElapsedSeconds() != 2 {
		t.Fatalf("failed commit must preserve elapsed time, got %d", s.ElapsedSeconds())
	}

	// The retry path is a fresh commit of the same clip.
	if _, ok := s.BeginCommit(); !ok {
		t.Fatal("retry commit should be accepted")
	}
}

func TestBeginCommitNoopOutsideReview(t *testing.T) {
	s := mockSession(t)
	if _, ok := s.BeginCommit(); ok {
		t.Fatal("commit from idle must be a no-op")
	}
	if s.State() != StateIdle {
		t.Fatalf("state changed by no-op commit: %s", s.State())
	}
}

func TestPlaybackCycleOrthogonalToSessionState(t *testing.T) {
	s := mockSession(t)
	if err := s.StartPlayback(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatal("playback outside review must be rejected")
	}

	recordToReview(t, s)
	if s.Playback() != PlaybackStopped {
		t.Fatalf("expected stopped, got %s", s.Playback())
	}
	if err := s.StartPlayback(); err != nil {
		t.Fatalf("play: %v", err)
	}
	if err := s.PausePlayback(); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if err := s.StartPlayback(); err != nil {
		t.Fatalf("resume: %v", err)
	}
	s.FinishPlayback()
	if s.Playback() != PlaybackStopped {
		t.Fatalf("natural end must force stopped, got %s", s.Playback())
	}
	if s.State() != StateReview {
		t.Fatalf("playback must not affect session state, got %s", s.State())
	}
}

func TestStopWithEmptyCaptureReturnsToIdle(t *testing.T) {
	s := New(stuckRecorder{stopErr: capture.ErrNoAudio}, newLogger())
	if err := s.StartRecording(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	err := s.StopRecording()
	if !errors.Is(err, capture.ErrNoAudio) {
		t.Fatalf("expected ErrNoAudio, got %v", err)
	}
	if !strings.Contains(err.Error(), "nothing recorded") {
		t.Fatalf("empty capture must read as nothing recorded, got %q", err)
	}
	if s.State() != StateIdle {
		t.Fatalf("expected Idle, got %s", s.State())
	}
}

func TestStopFinalizeFailureReportsLostTake(t *testing.T) {
	cause := errors.New("encode failed")
	s := New(stuckRecorder{stopErr: cause}, newLogger())
	if err := s.StartRecording(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	err := s.StopRecording()
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
	if errors.Is(err, capture.ErrNoAudio) {
		t.Fatal("a lost take must not read as an empty capture")
	}
	if !strings.Contains(err.Error(), "recording lost") {
		t.Fatalf("a lost take must say so, got %q", err)
	}
	if s.State() != StateIdle {
		t.Fatalf("expected Idle, got %s", s.State())
	}
	if _, ok := s.Clip(); ok {
		t.Fatal("a failed finalize must not leave a clip behind")
	}
}

func TestRestartAfterCommitResetsElapsed(t *testing.T) {
	s := mockSession(t)
	recordToReview(t, s)
	if _, ok := s.BeginCommit(); !ok {
		t.Fatal("commit should be accepted")
	}
	s.CompleteCommit()

	if err := s.StartRecording(context.Background()); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if s.ElapsedSeconds() != 0 {
		t.Fatalf("expected elapsed reset on new recording, got %d", s.ElapsedSeconds())
	}
	if s.State() != StateRecording {
		t.Fatalf("expected Recording, got %s", s.State())
	}
}
