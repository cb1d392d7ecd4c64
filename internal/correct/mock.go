package correct

import (
	"context"
	"strings"
)

type mockCorrector struct{}

func NewMockCorrector() Corrector {
	return &mockCorrector{}
}

func (m *mockCorrector) Correct(_ context.Context, transcript string) (string, error) {
	return "[corrected] " + strings.TrimSpace(transcript), nil
}
