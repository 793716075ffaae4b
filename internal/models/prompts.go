package models

import (
	"fmt"
	"strings"
)

const (
	// SystemPrompt constrains the generative model to the retrieved
	// documents only.
	SystemPrompt = `You are an assistant that answers strictly from the provided documents.
Rules:
1. Use only the content of the documents below. Do not add outside knowledge, guesses or interpretation.
2. Quote item names and descriptions as they appear in the documents.
3. Only if the documents are truly unrelated to the question, answer: "The provided documents contain no information about this question."
4. Keep the answer concise and do not repeat yourself.`

	// QueryPromptTemplate embeds the contexts before the question:
	// most models weight earlier context more under truncation, so the
	// caller passes contexts highest similarity first.
	QueryPromptTemplate = `%s

=== Reference documents (use only this content) ===
%s
===================================================

Question: %s

Answer:`

	// NoRelevantDocuments is the degraded-mode answer when retrieval
	// comes back empty.
	NoRelevantDocuments = "No relevant documents were found for this question."

	maxPromptContextChars   = 3000
	maxFallbackContextChars = 1000
	maxFallbackContexts     = 3
)

// BuildQueryPrompt assembles the prompt for the model-backed generator.
// Context order is preserved.
func BuildQueryPrompt(query string, contexts []string) string {
	combined := strings.Join(contexts, "\n\n")
	if len(combined) > maxPromptContextChars {
		combined = combined[:maxPromptContextChars] + "..."
	}
	return fmt.Sprintf(QueryPromptTemplate, SystemPrompt, combined, query)
}

// BuildFallbackAnswer is the deterministic composer used when no
// generative model is available or it failed. It labels and
// concatenates the top contexts and never fails.
func BuildFallbackAnswer(query string, contexts []string) string {
	if len(contexts) == 0 {
		return NoRelevantDocuments
	}

	top := contexts
	if len(top) > maxFallbackContexts {
		top = top[:maxFallbackContexts]
	}

	perContext := maxFallbackContextChars / maxFallbackContexts
	labeled := make([]string, 0, len(top))
	for i, ctx := range top {
		cleaned := collapseBlankLines(ctx)
		if len(cleaned) > perContext {
			cleaned = cleaned[:perContext] + "..."
		}
		labeled = append(labeled, fmt.Sprintf("[Document %d]\n%s", i+1, cleaned))
	}

	return fmt.Sprintf("Question: %s\n\nRelevant information found in the documents:\n\n%s",
		query, strings.Join(labeled, "\n\n"))
}

func collapseBlankLines(s string) string {
	var lines []string
	for _, line := range strings.Split(strings.TrimSpace(s), "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return strings.Join(lines, "\n")
}
