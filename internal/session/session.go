// Package session owns the lifecycle of one recording attempt: the outer
// Idle → Recording → Review → Processing machine and the playback sub-state
// that only exists while reviewing. Illegal flag combinations ("recording
// and processing at once") cannot be expressed.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/memovox/memovox/internal/capture"
)

type State int

const (
	StateIdle State = iota
	StateRecording
	StateReview
	StateProcessing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateReview:
		return "review"
	case StateProcessing:
		return "processing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type PlaybackState int

const (
	PlaybackStopped PlaybackState = iota
	PlaybackPlaying
	PlaybackPaused
)

func (p PlaybackState) String() string {
	switch p {
	case PlaybackStopped:
		return "stopped"
	case PlaybackPlaying:
		return "playing"
	case PlaybackPaused:
		return "paused"
	default:
		return fmt.Sprintf("playback(%d)", int(p))
	}
}

// ErrInvalidTransition is returned for actions that are not legal in the
// current state, discard during Processing being the usual offender.
var ErrInvalidTransition = errors.New("invalid session transition")

// Session is the single-owner state machine for a recording attempt. It is
// driven from one event loop and is not safe for concurrent use.
type Session struct {
	recorder capture.Recorder
	logger   *slog.Logger

	id       string
	state    State
	playback PlaybackState
	elapsed  int
	clip     *capture.Clip
}

func New(recorder capture.Recorder, logger *slog.Logger) *Session {
	return &Session{
		recorder: recorder,
		logger:   logger.With(slog.String("component", "session")),
	}
}

func (s *Session) ID() string              { return s.id }
func (s *Session) State() State            { return s.state }
func (s *Session) Playback() PlaybackState { return s.playback }
func (s *Session) ElapsedSeconds() int     { return s.elapsed }

// Clip returns the frozen recording; ok is true only in Review and
// Processing.
func (s *Session) Clip() (capture.Clip, bool) {
	if s.clip == nil {
		return capture.Clip{}, false
	}
	return *s.clip, true
}

// StartRecording acquires the microphone and enters Recording. On
// capture.ErrDeviceUnavailable the session stays in Idle.
func (s *Session) StartRecording(ctx context.Context) error {
	if s.state != StateIdle {
		return fmt.Errorf("%w: start from %s", ErrInvalidTransition, s.state)
	}
	if err := s.recorder.Start(ctx); err != nil {
		s.logger.Warn("failed to start capture", slog.String("error", err.Error()))
		return err
	}
	s.id = uuid.NewString()
	s.state = StateRecording
	s.elapsed = 0
	s.logger.Info("recording started", slog.String("session_id", s.id))
	return nil
}

// Tick advances the elapsed-seconds counter. Ticks outside Recording are
// ignored so a stale timer cannot corrupt review state.
func (s *Session) Tick() {
	if s.state == StateRecording {
		s.elapsed++
	}
}

// StopRecording releases the device and freezes the buffer, entering Review.
// A capture that produced no audio at all returns to Idle instead, since
// Review guarantees a non-empty clip.
func (s *Session) StopRecording() error {
	if s.state != StateRecording {
		return fmt.Errorf("%w: stop from %s", ErrInvalidTransition, s.state)
	}
	clip, err := s.recorder.Stop()
	if err != nil {
		s.reset()
		if errors.Is(err, capture.ErrNoAudio) {
			s.logger.Info("capture produced no audio", slog.String("session_id", s.id))
			return fmt.Errorf("nothing recorded: %w", err)
		}
		// Audio was captured but could not be finalized; the take is gone.
		s.logger.Error("recording lost on finalize",
			slog.String("session_id", s.id),
			slog.String("error", err.Error()))
		return fmt.Errorf("recording lost: %w", err)
	}
	s.clip = &clip
	s.state = StateReview
	s.playback = PlaybackStopped
	s.logger.Info("recording stopped",
		slog.String("session_id", s.id),
		slog.Int("elapsed_sec", s.elapsed),
		slog.Int("clip_bytes", len(clip.Data)))
	return nil
}

// BeginCommit moves Review → Processing and hands out the clip for the
// pipeline run. With an empty clip the commit is a no-op and ok is false.
func (s *Session) BeginCommit() (capture.Clip, bool) {
	if s.state != StateReview || s.clip == nil || s.clip.Empty() {
		return capture.Clip{}, false
	}
	s.state = StateProcessing
	s.playback = PlaybackStopped
	return *s.clip, true
}

// CompleteCommit finishes a successful pipeline run: back to Idle, clip and
// elapsed time cleared.
func (s *Session) CompleteCommit() {
	if s.state != StateProcessing {
		return
	}
	s.logger.Info("commit complete", slog.String("session_id", s.id))
	s.reset()
}

// FailCommit returns to Review after a failed pipeline run. The clip and
// elapsed time survive so the user can retry without re-recording.
func (s *Session) FailCommit() {
	if s.state != StateProcessing {
		return
	}
	s.state = StateReview
	s.playback = PlaybackStopped
	s.logger.Warn("commit failed, returning to review", slog.String("session_id", s.id))
}

// Discard drops the reviewed clip. It is legal from Review only; a commit in
// flight cannot be abandoned.
func (s *Session) Discard() error {
	if s.state != StateReview {
		return fmt.Errorf("%w: discard from %s", ErrInvalidTransition, s.state)
	}
	s.logger.Info("recording discarded", slog.String("session_id", s.id))
	s.reset()
	return nil
}

// StartPlayback moves the review sub-state to Playing from Stopped or
// Paused. The caller drives the actual audio process.
func (s *Session) StartPlayback() error {
	if s.state != StateReview {
		return fmt.Errorf("%w: play from %s", ErrInvalidTransition, s.state)
	}
	s.playback = PlaybackPlaying
	return nil
}

// PausePlayback moves Playing → Paused.
func (s *Session) PausePlayback() error {
	if s.state != StateReview || s.playback != PlaybackPlaying {
		return fmt.Errorf("%w: pause while %s/%s", ErrInvalidTransition, s.state, s.playback)
	}
	s.playback = PlaybackPaused
	return nil
}

// FinishPlayback forces the sub-state back to Stopped on natural
// end-of-audio. Outside Review it is a no-op.
func (s *Session) FinishPlayback() {
	if s.state == StateReview {
		s.playback = PlaybackStopped
	}
}

func (s *Session) reset() {
	s.state = StateIdle
	s.playback = PlaybackStopped
	s.elapsed = 0
	s.clip = nil
}
