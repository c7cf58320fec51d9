package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/docchat/internal/model"
)

func TestBuildPromptLayout(t *testing.T) {
	prompt := BuildPrompt(
		"what changed?",
		"chunk one\n\nchunk two",
		[]model.QAPair{{Query: "earlier question", Answer: "earlier answer"}},
	)

	require.Contains(t, prompt, "Context:\nchunk one\n\nchunk two")
	require.Contains(t, prompt, "User: earlier question\nAssistant: earlier answer")
	require.True(t, strings.HasSuffix(prompt, "User: what changed?\nAssistant:"))

	// History comes after the instructions and before the question.
	histPos := strings.Index(prompt, "earlier question")
	questionPos := strings.Index(prompt, "what changed?")
	require.Less(t, histPos, questionPos)
}

func TestBuildPromptEmptyHistory(t *testing.T) {
	prompt := BuildPrompt("q", "", nil)
	require.Contains(t, prompt, "Context:\n\n")
	require.NotContains(t, prompt, "earlier")
	require.True(t, strings.HasSuffix(prompt, "User: q\nAssistant:"))
}
