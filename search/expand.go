package search

import (
	"strings"
	"unicode"
)

// Query language labels returned by DetectLanguage.
const (
	LanguageRussian = "ru"
	LanguageEnglish = "en"
	LanguageMixed   = "mixed"
)

type monthForms struct {
	name string
	alt  string
}

// Russian month names, nominative with genitive alternate. Stored
// documents carry dates in genitive ("8 октября 2025") while queries
// tend to use nominative ("за октябрь"); lexical matching needs both.
var russianMonths = []monthForms{
	{"январь", "января"},
	{"февраль", "февраля"},
	{"март", "марта"},
	{"апрель", "апреля"},
	{"май", "мая"},
	{"июнь", "июня"},
	{"июль", "июля"},
	{"август", "августа"},
	{"сентябрь", "сентября"},
	{"октябрь", "октября"},
	{"ноябрь", "ноября"},
	{"декабрь", "декабря"},
}

// English month names with abbreviated alternate.
var englishMonths = []monthForms{
	{"january", "jan"},
	{"february", "feb"},
	{"march", "mar"},
	{"april", "apr"},
	{"may", "may"},
	{"june", "jun"},
	{"july", "jul"},
	{"august", "aug"},
	{"september", "sep"},
	{"october", "oct"},
	{"november", "nov"},
	{"december", "dec"},
}

// ExpandQuery expands month mentions in a query with alternate grammatical
// forms and numbered date fragments to improve retrieval recall. A query
// without month tokens is returned unchanged. Expansion is applied once per
// incoming query; the inserted alternate forms are not themselves expansion
// triggers, so the function is not idempotent.
func ExpandQuery(query string) string {
	lowered := strings.ToLower(query)
	expanded := query

	for _, m := range russianMonths {
		if strings.Contains(lowered, m.name) {
			replacement := m.name + " " + m.alt + " 1 " + m.alt + " 2 " + m.alt + " дат " + m.alt
			expanded = replaceWholeWord(expanded, m.name, replacement)
		}
	}

	for _, m := range englishMonths {
		if strings.Contains(lowered, m.name) {
			replacement := m.name + " " + m.alt + " 1 " + m.name + " 2 " + m.name
			expanded = replaceWholeWord(expanded, m.name, replacement)
		}
	}

	return expanded
}

// DetectLanguage classifies a query as Russian, English or mixed based on
// the Cyrillic/Latin character ratio. A query with more than 20% of each
// alphabet counts as mixed; a query with no letters defaults to English.
func DetectLanguage(query string) string {
	cyrillic, latin := countAlphabets(query)

	total := cyrillic + latin
	if total == 0 {
		return LanguageEnglish
	}

	cyrillicShare := float64(cyrillic) / float64(total)
	latinShare := float64(latin) / float64(total)
	if cyrillicShare > 0.2 && latinShare > 0.2 {
		return LanguageMixed
	}

	if cyrillic > latin {
		return LanguageRussian
	}
	return LanguageEnglish
}

// LanguageMismatch describes a query whose detected language does not match
// the language the knowledge base expects.
type LanguageMismatch struct {
	DetectedLanguage string
	ExpectedLanguage string
	OriginalQuery    string
	Suggestion       string
}

// ValidateLanguage checks a query against the expected knowledge-base
// language. A nil result means the query is acceptable; mixed queries pass
// when their majority alphabet matches the expected language.
func ValidateLanguage(query, expected string) *LanguageMismatch {
	detected := DetectLanguage(query)

	label := detected
	if detected == LanguageMixed {
		cyrillic, latin := countAlphabets(query)
		majority := LanguageEnglish
		if cyrillic > latin {
			majority = LanguageRussian
		}
		if majority == expected {
			return nil
		}
		label = LanguageMixed + "_" + majority
	} else if detected == expected {
		return nil
	}

	suggestion := "Please translate your query to English. The knowledge base contains only English documents."
	if expected == LanguageRussian {
		suggestion = "Пожалуйста, переведите запрос на русский язык. База знаний содержит только русские документы."
	}

	return &LanguageMismatch{
		DetectedLanguage: label,
		ExpectedLanguage: expected,
		OriginalQuery:    query,
		Suggestion:       suggestion,
	}
}

func countAlphabets(s string) (cyrillic, latin int) {
	for _, r := range s {
		switch {
		case (r >= 'а' && r <= 'я') || (r >= 'А' && r <= 'Я') || r == 'ё' || r == 'Ё':
			cyrillic++
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			latin++
		}
	}
	return cyrillic, latin
}

// replaceWholeWord replaces every case-insensitive whole-word occurrence of
// word in s with replacement. Word boundaries are computed over runes so
// Cyrillic words are handled correctly, which regexp's ASCII-only \b is not.
func replaceWholeWord(s, word, replacement string) string {
	runes := []rune(s)
	target := []rune(strings.ToLower(word))
	if len(target) == 0 {
		return s
	}

	var b strings.Builder
	i := 0
	for i < len(runes) {
		if matchesWordAt(runes, target, i) {
			b.WriteString(replacement)
			i += len(target)
			continue
		}
		b.WriteRune(runes[i])
		i++
	}
	return b.String()
}

func matchesWordAt(runes, target []rune, i int) bool {
	if i+len(target) > len(runes) {
		return false
	}
	for j, t := range target {
		if unicode.ToLower(runes[i+j]) != t {
			return false
		}
	}
	if i > 0 && isWordRune(runes[i-1]) {
		return false
	}
	if end := i + len(target); end < len(runes) && isWordRune(runes[end]) {
		return false
	}
	return true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
