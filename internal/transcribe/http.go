package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/memovox/memovox/internal/capture"
	"github.com/memovox/memovox/internal/config"
)

// httpTranscriber posts raw audio bytes to a whisper-style inference
// endpoint. The response is a JSON object carrying a text field; a missing
// or empty field is an empty transcript, not an error.
type httpTranscriber struct {
	cfg    config.TranscriberConfig
	client *http.Client
}

type transcriptResponse struct {
	Text string `json:"text"`
}

func NewHTTPTranscriber(cfg config.TranscriberConfig) Transcriber {
	return &httpTranscriber{
		cfg: cfg,
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutMS) * time.Millisecond,
		},
	}
}

func (t *httpTranscriber) Transcribe(ctx context.Context, clip capture.Clip) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.cfg.Endpoint, bytes.NewReader(clip.Data))
	if err != nil {
		return "", fmt.Errorf("build transcription request: %w", err)
	}
	contentType := t.cfg.ContentType
	if contentType == "" {
		contentType = clip.MIME
	}
	req.Header.Set("Content-Type", contentType)
	if t.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.cfg.APIKey)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcription request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("transcription service returned %s: %s", resp.Status, bytes.TrimSpace(body))
	}

	var parsed transcriptResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode transcription response: %w", err)
	}
	return parsed.Text, nil
}
