package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/memovox/memovox/internal/config"
	"github.com/memovox/memovox/internal/notestore"
	"github.com/memovox/memovox/internal/protocol"
)

// Publisher is the slice of the bus the watcher needs.
type Publisher interface {
	PublishJSON(subject string, v any) error
}

// Watcher owns the current session. It restores a persisted session on
// startup, refreshes tokens before they lapse, and publishes every identity
// change on the bus so the view layer can react.
//
// The identity starts out Unknown until Bootstrap has run; the view must not
// assume signed-out before that first resolution.
type Watcher struct {
	mu      sync.Mutex
	client  *Client
	bus     Publisher
	logger  *slog.Logger
	path    string
	margin  time.Duration
	clock   func() time.Time
	phase   protocol.AuthPhase
	session *Session
	expires time.Time
}

func NewWatcher(cfg config.AuthConfig, client *Client, bus Publisher, logger *slog.Logger) *Watcher {
	return &Watcher{
		client: client,
		bus:    bus,
		logger: logger.With(slog.String("component", "auth.watcher")),
		path:   cfg.SessionPath,
		margin: time.Duration(cfg.RefreshMarginSec) * time.Second,
		clock:  time.Now,
		phase:  protocol.AuthUnknown,
	}
}

// Bootstrap resolves the persisted session, if any, into a definite phase.
func (w *Watcher) Bootstrap(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	session, err := w.loadSession()
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			w.logger.Warn("discarding unreadable session file", slog.String("error", err.Error()))
			_ = os.Remove(w.path)
		}
		w.becomeAbsent()
		return
	}

	userID, expiresAt, err := tokenClaims(session.AccessToken)
	if err != nil {
		w.logger.Warn("discarding session with bad token", slog.String("error", err.Error()))
		_ = os.Remove(w.path)
		w.becomeAbsent()
		return
	}
	if session.User.ID == "" {
		session.User.ID = userID
	}

	if w.clock().Add(w.margin).After(expiresAt) {
		refreshed, err := w.client.Refresh(ctx, session.RefreshToken)
		if err != nil {
			w.logger.Warn("stored session could not be refreshed", slog.String("error", err.Error()))
			_ = os.Remove(w.path)
			w.becomeAbsent()
			return
		}
		session = &refreshed
		if _, expiresAt, err = tokenClaims(session.AccessToken); err != nil {
			w.becomeAbsent()
			return
		}
		w.persistSession(session)
	}

	w.becomePresent(session, expiresAt)
}

// SignIn authenticates, persists the session, and publishes Present.
func (w *Watcher) SignIn(ctx context.Context, email, password string) error {
	session, err := w.client.SignIn(ctx, email, password)
	if err != nil {
		return err
	}
	userID, expiresAt, err := tokenClaims(session.AccessToken)
	if err != nil {
		return err
	}
	if session.User.ID == "" {
		session.User.ID = userID
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.persistSession(&session)
	w.becomePresent(&session, expiresAt)
	return nil
}

// SignOut drops the session locally and best-effort revokes it remotely.
func (w *Watcher) SignOut(ctx context.Context) {
	w.mu.Lock()
	session := w.session
	w.session = nil
	w.expires = time.Time{}
	if err := os.Remove(w.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		w.logger.Warn("removing session file failed", slog.String("error", err.Error()))
	}
	w.becomeAbsent()
	w.mu.Unlock()

	if session != nil {
		w.client.SignOut(ctx, session.AccessToken)
	}
}

// AccessToken returns a valid bearer token, refreshing first when the current
// one is inside the expiry margin. It satisfies notestore.TokenSource.
func (w *Watcher) AccessToken() (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.session == nil {
		return "", notestore.ErrNotAuthenticated
	}
	if w.clock().Add(w.margin).Before(w.expires) {
		return w.session.AccessToken, nil
	}

	refreshed, err := w.client.Refresh(context.Background(), w.session.RefreshToken)
	if err != nil {
		return "", fmt.Errorf("refresh before use: %w", err)
	}
	_, expiresAt, err := tokenClaims(refreshed.AccessToken)
	if err != nil {
		return "", err
	}
	w.persistSession(&refreshed)
	w.becomePresent(&refreshed, expiresAt)
	return refreshed.AccessToken, nil
}

// Phase reports the current identity phase.
func (w *Watcher) Phase() protocol.AuthPhase {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.phase
}

// User returns the signed-in identity, if any.
func (w *Watcher) User() (User, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.session == nil {
		return User{}, false
	}
	return w.session.User, true
}

func (w *Watcher) becomePresent(session *Session, expiresAt time.Time) {
	w.session = session
	w.expires = expiresAt
	w.phase = protocol.AuthPresent
	w.publishState()
}

func (w *Watcher) becomeAbsent() {
	w.session = nil
	w.expires = time.Time{}
	w.phase = protocol.AuthAbsent
	w.publishState()
}

func (w *Watcher) publishState() {
	state := protocol.AuthState{
		Phase:     w.phase,
		Timestamp: w.clock().UTC(),
	}
	if w.session != nil {
		state.UserID = w.session.User.ID
		state.Email = w.session.User.Email
	}
	if w.bus == nil {
		return
	}
	if err := w.bus.PublishJSON(protocol.SubjectAuthState, state); err != nil {
		w.logger.Warn("publishing auth state failed", slog.String("error", err.Error()))
	}
}

func (w *Watcher) loadSession() (*Session, error) {
	raw, err := os.ReadFile(w.path)
	if err != nil {
		return nil, err
	}
	var session Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("decode session file: %w", err)
	}
	if session.AccessToken == "" || session.RefreshToken == "" {
		return nil, fmt.Errorf("session file is incomplete")
	}
	return &session, nil
}

func (w *Watcher) persistSession(session *Session) {
	raw, err := json.Marshal(session)
	if err != nil {
		w.logger.Warn("encoding session failed", slog.String("error", err.Error()))
		return
	}
	if err := os.MkdirAll(filepath.Dir(w.path), 0o700); err != nil {
		w.logger.Warn("creating session dir failed", slog.String("error", err.Error()))
		return
	}
	if err := os.WriteFile(w.path, raw, 0o600); err != nil {
		w.logger.Warn("writing session file failed", slog.String("error", err.Error()))
	}
}
