package correct

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/memovox/memovox/internal/config"
)

const correctionInstruction = "Correct the following voice-memo transcript: fix " +
	"punctuation and obvious recognition mistakes, keep the language and meaning " +
	"unchanged, and answer with the corrected text only.\n\n"

// httpCorrector posts a prompt to a text-generation inference endpoint. The
// expected response is a JSON array whose first element carries a
// generated_text field; any shape mismatch degrades to the original
// transcript.
type httpCorrector struct {
	cfg    config.CorrectorConfig
	client *http.Client
}

type generateRequest struct {
	Inputs string `json:"inputs"`
}

type generateResponse struct {
	GeneratedText string `json:"generated_text"`
}

func NewHTTPCorrector(cfg config.CorrectorConfig) Corrector {
	return &httpCorrector{
		cfg: cfg,
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutMS) * time.Millisecond,
		},
	}
}

func (c *httpCorrector) Correct(ctx context.Context, transcript string) (string, error) {
	payload, err := json.Marshal(generateRequest{Inputs: correctionInstruction + transcript})
	if err != nil {
		return transcript, fmt.Errorf("marshal correction request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return transcript, fmt.Errorf("build correction request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return transcript, fmt.Errorf("correction request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return transcript, fmt.Errorf("correction service returned %s", resp.Status)
	}

	var parsed []generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return transcript, fmt.Errorf("decode correction response: %w", err)
	}
	if len(parsed) == 0 {
		return transcript, fmt.Errorf("correction response is empty")
	}
	corrected := strings.TrimSpace(parsed[0].GeneratedText)
	if corrected == "" {
		return transcript, fmt.Errorf("correction response carries no text")
	}
	return corrected, nil
}
