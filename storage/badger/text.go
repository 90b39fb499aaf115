package badger

import "strings"

// Stop words filtered out before lexical scoring, English and Russian.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "be": true, "is": true, "are": true,
	"was": true, "to": true, "of": true, "and": true, "in": true, "that": true,
	"have": true, "it": true, "for": true, "not": true, "on": true, "with": true,
	"as": true, "you": true, "do": true, "at": true, "this": true, "but": true,
	"by": true, "from": true,
	"и": true, "в": true, "на": true, "за": true, "с": true, "по": true,
	"не": true, "что": true, "как": true, "это": true, "из": true, "о": true,
	"у": true, "же": true, "к": true, "для": true, "есть": true, "какие": true,
}

// tokenizeAndFilter splits text into words, lowercases, trims punctuation, and removes stop words
func tokenizeAndFilter(text string) []string {
	words := strings.Fields(text)
	filtered := make([]string, 0, len(words))

	for _, word := range words {
		// Lowercase and trim punctuation
		cleaned := strings.ToLower(strings.Trim(word, ".,!?;:'\"-()[]{}"))

		// Skip stop words and empty strings
		if cleaned != "" && !stopWords[cleaned] {
			filtered = append(filtered, cleaned)
		}
	}

	return filtered
}

// keywordScore returns the fraction of query tokens present in the document
// text, in [0, 1]. Returns 0 when the query has no scorable tokens.
func keywordScore(docWords map[string]bool, queryWords []string) float64 {
	if len(queryWords) == 0 {
		return 0
	}

	matched := 0
	for _, qWord := range queryWords {
		if docWords[qWord] {
			matched++
		}
	}

	return float64(matched) / float64(len(queryWords))
}

// wordSet builds a membership set from tokenized document text.
func wordSet(text string) map[string]bool {
	words := tokenizeAndFilter(text)
	set := make(map[string]bool, len(words))
	for _, word := range words {
		set[word] = true
	}
	return set
}

// containsAllQueryWords checks if all query words (after filtering) appear in the document
func containsAllQueryWords(docWords map[string]bool, queryWords []string) bool {
	if len(queryWords) == 0 {
		return false
	}
	for _, qWord := range queryWords {
		if !docWords[qWord] {
			return false
		}
	}
	return true
}

// makeSnippet extracts a short context window around the first query-token
// match in the content. Falls back to the content head when nothing matches.
func makeSnippet(content string, queryWords []string, width int) string {
	if content == "" {
		return ""
	}

	runes := []rune(content)
	lower := strings.ToLower(content)

	start := 0
	for _, qWord := range queryWords {
		if idx := strings.Index(lower, qWord); idx >= 0 {
			// Convert byte offset to rune offset
			start = len([]rune(lower[:idx]))
			break
		}
	}

	// Center the window on the match
	start -= width / 4
	if start < 0 {
		start = 0
	}
	end := start + width
	if end > len(runes) {
		end = len(runes)
	}

	snippet := strings.TrimSpace(string(runes[start:end]))
	if start > 0 {
		snippet = "…" + snippet
	}
	if end < len(runes) {
		snippet = snippet + "…"
	}
	return snippet
}
