package app

import (
	"github.com/memovox/memovox/internal/notestore"
	"github.com/memovox/memovox/internal/pipeline"
	"github.com/memovox/memovox/internal/protocol"
)

// AuthStateMsg carries an identity change streamed from the bus.
type AuthStateMsg struct {
	State protocol.AuthState
}

// MemoCreatedMsg announces a persisted memo streamed from the bus.
type MemoCreatedMsg struct {
	Event protocol.MemoCreated
}

// BusClosedMsg is sent when the event stream ends.
type BusClosedMsg struct{}

// SignInResultMsg carries the outcome of a sign-in attempt.
type SignInResultMsg struct {
	Err error
}

// NotesLoadedMsg carries a fresh note listing, or the failure to get one.
type NotesLoadedMsg struct {
	Notes []notestore.Note
	Err   error
}

// PipelineDoneMsg carries the outcome of a commit run.
type PipelineDoneMsg struct {
	Result pipeline.Result
	Err    error
}

// NoteDeletedMsg carries the outcome of a delete round-trip.
type NoteDeletedMsg struct {
	ID  string
	Err error
}

// NoteCopiedMsg carries the outcome of copying a summary to the clipboard.
type NoteCopiedMsg struct {
	ID  string
	Err error
}

// ClearCopiedMsg retires the transient "copied" badge.
type ClearCopiedMsg struct{}

// ClearNoticeMsg retires a transient status notice.
type ClearNoticeMsg struct{}

// RecordTickMsg advances the elapsed counter once per second while recording.
type RecordTickMsg struct{}

// PlaybackDoneMsg is sent when clip playback finishes or fails.
type PlaybackDoneMsg struct {
	Err error
}
