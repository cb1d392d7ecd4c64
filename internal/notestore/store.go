package notestore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/memovox/memovox/internal/config"
)

// Store talks PostgREST-style HTTP to the persistence collaborator.
type Store struct {
	client *resty.Client
	table  string
	tokens TokenSource
	logger *slog.Logger
}

func New(cfg config.BackendConfig, tokens TokenSource, logger *slog.Logger) *Store {
	client := resty.New().
		SetBaseURL(cfg.URL).
		SetTimeout(time.Duration(cfg.TimeoutMS) * time.Millisecond).
		SetHeader("apikey", cfg.APIKey)
	return &Store{
		client: client,
		table:  cfg.Table,
		tokens: tokens,
		logger: logger.With(slog.String("component", "notestore")),
	}
}

func (s *Store) path() string {
	return "/rest/v1/" + s.table
}

func (s *Store) authorized(ctx context.Context) (*resty.Request, error) {
	token, err := s.tokens.AccessToken()
	if err != nil {
		return nil, err
	}
	return s.client.R().
		SetContext(ctx).
		SetAuthToken(token), nil
}

// Create inserts a memo and returns the collaborator-assigned record.
func (s *Store) Create(ctx context.Context, transcript, summary, audioURL string) (Note, error) {
	req, err := s.authorized(ctx)
	if err != nil {
		return Note{}, err
	}
	var created []Note
	resp, err := req.
		SetHeader("Prefer", "return=representation").
		SetBody(map[string]string{
			"transcript": transcript,
			"summary":    summary,
			"audio_url":  audioURL,
		}).
		SetResult(&created).
		Post(s.path())
	if err != nil {
		return Note{}, fmt.Errorf("create note: %w", err)
	}
	if resp.IsError() {
		return Note{}, fmt.Errorf("create note: backend returned %s: %s", resp.Status(), resp.String())
	}
	if len(created) == 0 {
		return Note{}, fmt.Errorf("create note: backend returned no representation")
	}
	s.logger.Info("note created", slog.String("note_id", created[0].ID))
	return created[0], nil
}

// List returns the caller's notes ordered by creation time, most recent
// first. The ordering is a hard contract for the view layer.
func (s *Store) List(ctx context.Context) ([]Note, error) {
	req, err := s.authorized(ctx)
	if err != nil {
		return nil, err
	}
	var notes []Note
	resp, err := req.
		SetQueryParam("select", "*").
		SetQueryParam("order", "created_at.desc").
		SetResult(&notes).
		Get(s.path())
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("list notes: backend returned %s", resp.Status())
	}
	return notes, nil
}

// Delete removes a note by id. Deleting an id that no longer exists is not
// treated specially; the collaborator answers success either way.
func (s *Store) Delete(ctx context.Context, id string) error {
	req, err := s.authorized(ctx)
	if err != nil {
		return err
	}
	resp, err := req.
		SetQueryParam("id", "eq."+id).
		Delete(s.path())
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("delete note: backend returned %s", resp.Status())
	}
	return nil
}

// Update patches fields of a note by id. The pipeline never calls this; it
// is part of the collaborator contract and kept for completeness.
func (s *Store) Update(ctx context.Context, id string, updates map[string]string) (Note, error) {
	req, err := s.authorized(ctx)
	if err != nil {
		return Note{}, err
	}
	var updated []Note
	resp, err := req.
		SetHeader("Prefer", "return=representation").
		SetQueryParam("id", "eq."+id).
		SetBody(updates).
		SetResult(&updated).
		Patch(s.path())
	if err != nil {
		return Note{}, fmt.Errorf("update note: %w", err)
	}
	if resp.IsError() {
		return Note{}, fmt.Errorf("update note: backend returned %s", resp.Status())
	}
	if len(updated) == 0 {
		return Note{}, fmt.Errorf("update note: backend returned no representation")
	}
	return updated[0], nil
}
