// Package nlp provides the tier-2 per-chunk extraction stage: single-pass
// entity tagging, keyphrase ranking, and language detection.
//
// No named-entity recognition, keyphrase-ranking, or language-identification
// library is available anywhere in the codebases this package was modeled
// on, so the underlying model is a deterministic, dependency-free heuristic
// rather than a bound external toolkit. See the design notes for the
// reasoning; the externally-visible contract (lazy thread-safe init,
// totality, idempotence) is unaffected by that choice.
package nlp

import (
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode"
)

// Entity is a single named-entity span found in text.
type Entity struct {
	Text  string
	Label string
}

// Result is the tier-2 output for one chunk of text.
type Result struct {
	Entities []Entity
	Keywords []string
}

// Stage is the process-wide, lazily-initialized NLP stage. The zero value is
// ready to use; the underlying model table is built once, on first call,
// behind a double-checked lock — mirroring the lazy singleton pattern used
// for other process-wide clients in this codebase.
type Stage struct {
	once  sync.Once
	mu    sync.Mutex
	model *model
}

// model holds the compiled heuristic tables. Building it is the "expensive"
// step the lazy-init contract protects against running more than once.
type model struct {
	properNoun    *regexp.Regexp
	orgSuffixes   []string
	stopwords     map[string]bool
	languageWords map[string]map[string]bool
}

func buildModel() *model {
	return &model{
		properNoun: regexp.MustCompile(`\b([A-Z][a-zA-Z]*(?:\s+[A-Z][a-zA-Z]*)*)\b`),
		orgSuffixes: []string{
			"Inc", "Inc.", "Corp", "Corp.", "LLC", "Ltd", "Ltd.", "Co", "Co.",
			"GmbH", "Foundation", "Institute", "University", "Labs",
		},
		stopwords: buildStopwords(),
		languageWords: map[string]map[string]bool{
			"en": wordSet("the", "and", "is", "of", "to", "in", "that", "it", "for", "on", "with", "as", "are", "was", "this"),
			"es": wordSet("el", "la", "de", "que", "y", "en", "los", "para", "con", "las", "por", "una", "es", "del"),
			"fr": wordSet("le", "la", "de", "et", "les", "des", "en", "un", "une", "pour", "dans", "que", "est", "du"),
			"de": wordSet("der", "die", "das", "und", "ist", "von", "den", "mit", "für", "auf", "ein", "eine", "nicht"),
			"pt": wordSet("o", "a", "de", "que", "e", "do", "da", "em", "um", "para", "com", "não", "uma", "os"),
		},
	}
}

func wordSet(words ...string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

// get returns the lazily-built model, using double-checked locking so the
// (one-time) build cost is paid at most once even under concurrent callers.
func (s *Stage) get() *model {
	s.once.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.model = buildModel()
	})
	return s.model
}

// ProcessText runs single-pass entity tagging and keyphrase ranking over
// text. It never errors: empty or whitespace-only input returns empty
// defaults without touching the model, and it is a total, idempotent
// function of its input otherwise.
func (s *Stage) ProcessText(text string) Result {
	if strings.TrimSpace(text) == "" {
		return Result{Entities: []Entity{}, Keywords: []string{}}
	}

	m := s.get()
	return Result{
		Entities: extractEntities(m, text),
		Keywords: extractKeyphrases(m, text, 10),
	}
}

// DetectLanguage guesses an ISO-639-1 code for text by stopword-overlap
// ratio, or returns "unknown" when no language clears the confidence
// threshold. Deterministic: no randomness is involved anywhere in the walk.
func (s *Stage) DetectLanguage(text string) string {
	if strings.TrimSpace(text) == "" {
		return "unknown"
	}

	m := s.get()
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return "unknown"
	}

	bestLang := "unknown"
	bestScore := 0.0
	const minConfidence = 0.08

	// Walk languages in sorted order so a tied score always resolves to the
	// same language.
	langs := make([]string, 0, len(m.languageWords))
	for lang := range m.languageWords {
		langs = append(langs, lang)
	}
	sort.Strings(langs)

	for _, lang := range langs {
		words := m.languageWords[lang]
		hits := 0
		for _, t := range tokens {
			if words[strings.ToLower(t)] {
				hits++
			}
		}
		score := float64(hits) / float64(len(tokens))
		if score > bestScore {
			bestScore = score
			bestLang = lang
		}
	}

	if bestScore < minConfidence {
		return "unknown"
	}
	return bestLang
}

func extractEntities(m *model, text string) []Entity {
	matches := m.properNoun.FindAllString(text, -1)
	seen := make(map[string]bool)
	entities := make([]Entity, 0, len(matches))

	for _, span := range matches {
		if seen[span] {
			continue
		}
		words := strings.Fields(span)
		if len(words) == 0 {
			continue
		}
		if m.stopwords[strings.ToLower(words[0])] {
			continue
		}
		seen[span] = true

		label := "MISC"
		last := words[len(words)-1]
		if containsOrgSuffix(m, last) {
			label = "ORG"
		} else if len(words) >= 2 {
			label = "PERSON"
		}

		entities = append(entities, Entity{Text: span, Label: label})
	}

	return entities
}

func containsOrgSuffix(m *model, word string) bool {
	for _, suffix := range m.orgSuffixes {
		if word == suffix {
			return true
		}
	}
	return false
}

func extractKeyphrases(m *model, text string, topN int) []string {
	tokens := tokenize(text)
	freq := make(map[string]int)
	order := make([]string, 0)

	for _, t := range tokens {
		lower := strings.ToLower(t)
		if len(lower) < 3 || m.stopwords[lower] {
			continue
		}
		if _, seen := freq[lower]; !seen {
			order = append(order, lower)
		}
		freq[lower]++
	}

	// Stable sort by descending frequency, ties broken by first occurrence
	// (the order slice already reflects first-occurrence order).
	sorted := make([]string, len(order))
	copy(sorted, order)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && freq[sorted[j]] > freq[sorted[j-1]]; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}

	if len(sorted) > topN {
		sorted = sorted[:topN]
	}
	return sorted
}

func tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

func buildStopwords() map[string]bool {
	return wordSet(
		"the", "a", "an", "and", "or", "but", "is", "are", "was", "were",
		"be", "been", "being", "of", "to", "in", "on", "at", "for", "with",
		"as", "by", "that", "this", "it", "from", "not", "have", "has",
		"had", "will", "would", "can", "could", "should", "may", "might",
		"do", "does", "did", "its", "their", "his", "her", "they", "them",
	)
}
