package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandQueryRussian(t *testing.T) {
	got := ExpandQuery("документы за август")
	assert.Equal(t, "документы за август августа 1 августа 2 августа дат августа", got)
}

func TestExpandQueryMultipleMonths(t *testing.T) {
	got := ExpandQuery("какие есть документы за июль и август?")
	assert.Equal(t,
		"какие есть документы за июль июля 1 июля 2 июля дат июля и август августа 1 августа 2 августа дат августа?",
		got)
}

func TestExpandQueryEnglish(t *testing.T) {
	got := ExpandQuery("files from October")
	assert.Equal(t, "files from october oct 1 october 2 october", got)
}

func TestExpandQueryCaseInsensitive(t *testing.T) {
	got := ExpandQuery("ОКТЯБРЬ 2025")
	assert.Equal(t, "октябрь октября 1 октября 2 октября дат октября 2025", got)
}

func TestExpandQueryNoMonths(t *testing.T) {
	query := "reranker latency benchmarks"
	assert.Equal(t, query, ExpandQuery(query))
}

func TestExpandQueryWholeWordOnly(t *testing.T) {
	// "may" inside "maybe" must not trigger expansion.
	query := "maybe later"
	assert.Equal(t, query, ExpandQuery(query))
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"документы за октябрь", LanguageRussian},
		{"documents in october", LanguageEnglish},
		{"документы machine learning", LanguageMixed},
		{"октябрь 2024", LanguageRussian},
		{"12345", LanguageEnglish},
		{"", LanguageEnglish},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DetectLanguage(tt.query), "query %q", tt.query)
	}
}

func TestValidateLanguage(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		assert.Nil(t, ValidateLanguage("документы за октябрь", LanguageRussian))
		assert.Nil(t, ValidateLanguage("documents in october", LanguageEnglish))
	})

	t.Run("mismatch", func(t *testing.T) {
		mismatch := ValidateLanguage("documents in october", LanguageRussian)
		require.NotNil(t, mismatch)
		assert.Equal(t, LanguageEnglish, mismatch.DetectedLanguage)
		assert.Equal(t, LanguageRussian, mismatch.ExpectedLanguage)
		assert.Equal(t, "documents in october", mismatch.OriginalQuery)
		assert.NotEmpty(t, mismatch.Suggestion)
	})

	t.Run("mixed majority passes", func(t *testing.T) {
		assert.Nil(t, ValidateLanguage("память Claude команды", LanguageRussian))
	})

	t.Run("mixed majority mismatch", func(t *testing.T) {
		mismatch := ValidateLanguage("память Claude команды", LanguageEnglish)
		require.NotNil(t, mismatch)
		assert.Equal(t, "mixed_ru", mismatch.DetectedLanguage)
	})
}
