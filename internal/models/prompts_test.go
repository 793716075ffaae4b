package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildQueryPrompt(t *testing.T) {
	prompt := BuildQueryPrompt("what is alpha?", []string{"alpha is first", "beta is second"})
	assert.Contains(t, prompt, SystemPrompt)
	assert.Contains(t, prompt, "alpha is first")
	assert.Contains(t, prompt, "Question: what is alpha?")
	// Context order is preserved.
	assert.Less(t, strings.Index(prompt, "alpha is first"), strings.Index(prompt, "beta is second"))
}

func TestBuildQueryPrompt_TruncatesLongContext(t *testing.T) {
	long := strings.Repeat("x", 10000)
	prompt := BuildQueryPrompt("q", []string{long})
	assert.Less(t, len(prompt), 5000)
	assert.Contains(t, prompt, "...")
}

func TestBuildFallbackAnswer_Empty(t *testing.T) {
	assert.Equal(t, NoRelevantDocuments, BuildFallbackAnswer("q", nil))
}

func TestBuildFallbackAnswer_LabelsTopContexts(t *testing.T) {
	answer := BuildFallbackAnswer("what is alpha?",
		[]string{"alpha", "beta", "gamma", "delta"})
	assert.Contains(t, answer, "Question: what is alpha?")
	assert.Contains(t, answer, "[Document 1]")
	assert.Contains(t, answer, "[Document 3]")
	assert.NotContains(t, answer, "[Document 4]")
	assert.NotContains(t, answer, "delta")
}

func TestCollapseBlankLines(t *testing.T) {
	assert.Equal(t, "a\nb", collapseBlankLines("  a  \n\n\n  b  \n"))
}
