// Package eventlog keeps a local journal of recording-session lifecycle
// events in SQLite. It is diagnostic history, not the note store: nothing in
// the app reads it on the hot path, and retention is aggressively bounded.
package eventlog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/memovox/memovox/internal/config"
	_ "modernc.org/sqlite"
)

// Entry is one journal line for a recording session.
type Entry struct {
	ID        int64
	SessionID string
	UserID    string
	Kind      string
	Detail    string
	CreatedAt time.Time
}

// Journal kinds, one per lifecycle edge.
const (
	KindRecordingStarted = "recording.started"
	KindRecordingStopped = "recording.stopped"
	KindMemoCommitted    = "memo.committed"
	KindCommitFailed     = "memo.commit_failed"
	KindMemoDiscarded    = "memo.discarded"
)

// Log is the SQLite-backed journal. In ephemeral retention mode every write
// is a no-op and no database file is created.
type Log struct {
	db    *sql.DB
	cfg   config.EventLogConfig
	log   *slog.Logger
	clock func() time.Time
}

// Open initializes the journal according to config.
func Open(ctx context.Context, cfg config.EventLogConfig, log *slog.Logger) (*Log, error) {
	log = log.With(slog.String("component", "eventlog"))
	if cfg.RetentionMode == "ephemeral" {
		return &Log{cfg: cfg, log: log, clock: time.Now}, nil
	}

	dir := filepath.Dir(cfg.Path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create journal dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cfg.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	l := &Log{db: db, cfg: cfg, log: log, clock: time.Now}

	if err := l.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	if cfg.VacuumOnStart {
		if _, err := db.ExecContext(ctx, "VACUUM"); err != nil {
			log.Warn("journal vacuum failed", slog.String("error", err.Error()))
		}
	}

	if err := l.Prune(ctx); err != nil {
		log.Warn("journal prune on start failed", slog.String("error", err.Error()))
	}

	return l, nil
}

func (l *Log) initSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS recording_sessions (
    session_id TEXT PRIMARY KEY,
    user_id TEXT,
    created_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS session_events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT NOT NULL,
    kind TEXT NOT NULL,
    detail TEXT,
    created_at TIMESTAMP NOT NULL,
    FOREIGN KEY(session_id) REFERENCES recording_sessions(session_id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_session_events_session_created ON session_events(session_id, created_at);
`
	_, err := l.db.ExecContext(ctx, ddl)
	return err
}

// Close releases the database handle.
func (l *Log) Close() error {
	if l.db == nil {
		return nil
	}
	return l.db.Close()
}

// BeginSession ensures a session row exists before events reference it.
func (l *Log) BeginSession(ctx context.Context, sessionID, userID string) error {
	if l.db == nil {
		return nil
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO recording_sessions(session_id, user_id, created_at)
		 VALUES(?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET user_id=excluded.user_id`,
		sessionID, userID, l.clock().UTC())
	return err
}

// Append writes one journal line. Failures are the caller's to log; the
// journal never aborts a recording.
func (l *Log) Append(ctx context.Context, sessionID, kind, detail string) error {
	if l.db == nil {
		return nil
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO session_events(session_id, kind, detail, created_at)
		 VALUES(?, ?, ?, ?)`,
		sessionID, kind, detail, l.clock().UTC())
	return err
}

// SessionEntries retrieves up to limit journal lines for a session, oldest
// first.
func (l *Log) SessionEntries(ctx context.Context, sessionID string, limit int) ([]Entry, error) {
	if l.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT e.id, e.session_id, s.user_id, e.kind, e.detail, e.created_at
		 FROM session_events e JOIN recording_sessions s USING(session_id)
		 WHERE e.session_id = ? ORDER BY e.created_at ASC LIMIT ?`, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var created string
		if err := rows.Scan(&e.ID, &e.SessionID, &e.UserID, &e.Kind, &e.Detail, &created); err != nil {
			return nil, err
		}
		if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
			e.CreatedAt = ts
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Prune applies the configured retention bounds.
func (l *Log) Prune(ctx context.Context) error {
	if l.db == nil {
		return nil
	}
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if l.cfg.RetentionDays > 0 {
		cutoff := l.clock().Add(-time.Duration(l.cfg.RetentionDays) * 24 * time.Hour).UTC()
		if _, err = tx.ExecContext(ctx, `DELETE FROM session_events WHERE created_at < ?`, cutoff); err != nil {
			return err
		}
		if _, err = tx.ExecContext(ctx, `DELETE FROM recording_sessions WHERE created_at < ?`, cutoff); err != nil {
			return err
		}
	}
	if l.cfg.MaxSessions > 0 {
		_, err = tx.ExecContext(ctx, `DELETE FROM recording_sessions WHERE session_id IN (
			SELECT session_id FROM recording_sessions ORDER BY created_at DESC LIMIT -1 OFFSET ?
		)`, l.cfg.MaxSessions)
		if err != nil {
			return err
		}
	}
	err = tx.Commit()
	return err
}
