package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeModel(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"anthropic.claude-3-5-sonnet-20241022", "3-5-sonnet"},
		{"claude-3-opus-20240229", "3-opus"},
		{"claude-sonnet-4-20250514", "sonnet-4"},
		{"claude-opus-4-5-20251101", "opus-4-5"},
		{"Claude-Haiku-4-5", "haiku-4-5"},
		{"us.anthropic.claude-3-5-haiku-20241022-v1:0", "3-5-haiku"},
		{"anthropic/claude-3-7-sonnet", "3-7-sonnet"},
		{"openai/gpt-5-codex", "gpt-5-codex"},
		{"models/gpt-4o", "gpt-4o"},
		{"gpt-4", "gpt-4"},
		{"  gpt-5  ", "gpt-5"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeModel(tt.raw))
		})
	}
}

func TestNormalizeModel_KeepsNonTrailingDigits(t *testing.T) {
	assert.Equal(t, "gpt-4.1-mini", NormalizeModel("gpt-4.1-mini"))
	assert.Equal(t, "o3-2025", NormalizeModel("o3-2025"))
}
