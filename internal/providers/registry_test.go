package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllSources(t *testing.T) {
	assert.Equal(t, []string{"claude", "codex"}, SourceNames())
}

func TestSourceByName_CaseInsensitiveWithAliases(t *testing.T) {
	for _, name := range []string{"claude", "CLAUDE", "cc", " Cc "} {
		source, err := SourceByName(name)
		require.NoError(t, err, name)
		assert.Equal(t, "claude", source.Name())
		assert.Equal(t, "Claude Code", source.DisplayName())
	}

	source, err := SourceByName("CX")
	require.NoError(t, err)
	assert.Equal(t, "codex", source.Name())
	assert.Equal(t, "OpenAI Codex", source.DisplayName())
}

func TestSourceByName_Unknown(t *testing.T) {
	_, err := SourceByName("cursor")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownSource)
	assert.Contains(t, err.Error(), "claude, codex")
}
