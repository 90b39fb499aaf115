package openai

import (
	"strings"

	"github.com/poiesic/lokalrag/ai"
)

const ragSystemPrompt = `You are a helpful assistant answering questions about a personal knowledge base.
Answer using ONLY the provided context documents. If the context does not
contain the answer, say so instead of guessing. Answer in the language of the
question. Cite document titles when it helps the reader find the source.`

// buildContextBlock formats retrieved documents into the grounding block of
// the final prompt. Each document is prefixed with its source so the model
// can cite it.
func buildContextBlock(docs []ai.ContextDocument) string {
	if len(docs) == 0 {
		return "(no context documents retrieved)"
	}

	parts := make([]string, 0, len(docs))
	for _, doc := range docs {
		source := doc.Source
		if source == "" {
			source = "unknown"
		}
		parts = append(parts, "[Source: "+source+"]\n"+doc.Content)
	}
	return strings.Join(parts, "\n\n")
}

// buildRAGPrompt composes the final human-turn prompt from the context block
// and the user's question.
func buildRAGPrompt(query string, docs []ai.ContextDocument) string {
	var b strings.Builder
	b.WriteString("Context:\n")
	b.WriteString(buildContextBlock(docs))
	b.WriteString("\n\nQuestion: ")
	b.WriteString(query)
	b.WriteString("\n\nAnswer:")
	return b.String()
}
