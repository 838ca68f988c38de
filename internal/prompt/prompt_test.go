package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sozercan/cheatsheet-ai/internal/config"
	"github.com/sozercan/cheatsheet-ai/internal/llm"
	"github.com/sozercan/cheatsheet-ai/internal/search"
)

func TestBuildInterpolatesLanguage(t *testing.T) {
	b, err := New(config.DefaultSystemTemplate)
	require.NoError(t, err)

	msgs, err := b.Build(Input{Language: "fr", Question: "What is a blockchain?"})
	require.NoError(t, err)

	require.Len(t, msgs, 2)
	assert.Equal(t, llm.RoleSystem, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "Please respond in fr.")
	assert.Equal(t, llm.Message{Role: llm.RoleUser, Content: "What is a blockchain?"}, msgs[1])
}

func TestBuildStaticTemplate(t *testing.T) {
	b, err := New("You are a helpful assistant.")
	require.NoError(t, err)

	msgs, err := b.Build(Input{Language: "de", Question: "q"})
	require.NoError(t, err)
	assert.Equal(t, "You are a helpful assistant.", msgs[0].Content)
}

func TestBuildPlacesHistoryBetweenSystemAndQuestion(t *testing.T) {
	b, err := New("sys")
	require.NoError(t, err)

	history := []llm.Message{
		{Role: llm.RoleUser, Content: "first"},
		{Role: llm.RoleAssistant, Content: "first answer"},
		{Role: llm.RoleSystem, Content: "stale system text"},
	}
	msgs, err := b.Build(Input{Language: "en", History: history, Question: "second"})
	require.NoError(t, err)

	require.Len(t, msgs, 4)
	assert.Equal(t, "sys", msgs[0].Content)
	assert.Equal(t, "first", msgs[1].Content)
	assert.Equal(t, "first answer", msgs[2].Content)
	assert.Equal(t, "second", msgs[3].Content)
}

func TestBuildAddsSearchHits(t *testing.T) {
	b, err := New("sys")
	require.NoError(t, err)

	msgs, err := b.Build(Input{
		Question: "q",
		Hits: []search.Result{
			{Title: "Bitcoin paper", URL: "https://bitcoin.org/bitcoin.pdf", Snippet: "A peer-to-peer electronic cash system"},
			{URL: "https://example.com/b"},
		},
	})
	require.NoError(t, err)

	sys := msgs[0].Content
	assert.Contains(t, sys, "1. Bitcoin paper (https://bitcoin.org/bitcoin.pdf)")
	assert.Contains(t, sys, "   A peer-to-peer electronic cash system")
	assert.Contains(t, sys, "2. https://example.com/b (https://example.com/b)")
}

func TestNewRejectsBrokenTemplate(t *testing.T) {
	_, err := New("Respond in {{.Language")
	assert.Error(t, err)
}
