package protocol

import "time"

// MemoCreated announces that a memo was durably persisted. The note list
// reloads on receipt; the payload is advisory only.
type MemoCreated struct {
	NoteID    string    `json:"note_id"`
	OwnerID   string    `json:"owner_id"`
	Summary   string    `json:"summary"`
	Timestamp time.Time `json:"timestamp"`
}

// AuthPhase is the coarse identity state broadcast on the bus.
type AuthPhase string

const (
	AuthUnknown AuthPhase = "unknown"
	AuthAbsent  AuthPhase = "absent"
	AuthPresent AuthPhase = "present"
)

// AuthState is published whenever the observed identity changes, including
// the initial resolve at startup.
type AuthState struct {
	Phase     AuthPhase `json:"phase"`
	UserID    string    `json:"user_id,omitempty"`
	Email     string    `json:"email,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	SubjectMemoCreated = "memo.created"
	SubjectAuthState   = "auth.state"
)
