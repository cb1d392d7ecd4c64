// Package notestore is the adapter for the remote persistence collaborator.
// Every operation round-trips; there is no local cache. Identity scoping is
// enforced server-side off the bearer token.
package notestore

import (
	"errors"
	"time"
)

// Note is a durable memo record. ID, OwnerID and CreatedAt are assigned by
// the collaborator at insert time and never chosen client-side.
type Note struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"user_id"`
	Transcript string    `json:"transcript"`
	Summary    string    `json:"summary"`
	AudioURL   string    `json:"audio_url"`
	CreatedAt  time.Time `json:"created_at"`
}

// ErrNotAuthenticated is returned when no identity is available at call time.
var ErrNotAuthenticated = errors.New("not authenticated")

// TokenSource supplies the caller's current access token.
type TokenSource interface {
	AccessToken() (string, error)
}
