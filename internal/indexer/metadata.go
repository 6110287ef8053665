package indexer

import (
	"regexp"
	"strings"

	"github.com/NaggiDev/practical-rag-sub000/internal/models"
)

const (
	languageSampleTokens  = 100
	languageEnglishRatio  = 0.1
	keywordMinLen         = 3
	topKeywordCount       = 10
	maxEntityMatches      = 20
)

var (
	emailRegex  = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	urlRegex    = regexp.MustCompile(`https?://[^\s]+`)
	dateDMYRegex = regexp.MustCompile(`\b\d{2}/\d{2}/\d{4}\b`)
	dateISORegex = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)
	numberRegex  = regexp.MustCompile(`\b\d+(\.\d+)?\b`)
	paragraphSplitRegex = regexp.MustCompile(`\n\s*\n`)
	sentenceSplitRegex  = regexp.MustCompile(`[.!?]+`)
)

// commonEnglishWords is the small fixed vocabulary used by the coarse
// language heuristic.
var commonEnglishWords = map[string]bool{
	"the": true, "be": true, "to": true, "of": true, "and": true, "a": true,
	"in": true, "that": true, "have": true, "i": true, "it": true, "for": true,
	"not": true, "on": true, "with": true, "he": true, "as": true, "you": true,
	"do": true, "at": true, "this": true, "but": true, "his": true, "by": true,
	"from": true, "they": true, "we": true, "say": true, "her": true, "she": true,
	"or": true, "an": true, "will": true, "my": true, "one": true, "all": true,
	"would": true, "there": true, "their": true, "what": true, "so": true,
	"up": true, "out": true, "if": true, "about": true, "who": true, "get": true,
	"which": true, "go": true, "me": true, "when": true, "make": true, "can": true,
	"like": true, "time": true, "no": true, "just": true, "him": true, "know": true,
	"take": true, "people": true, "into": true, "year": true, "your": true,
	"good": true, "some": true, "could": true, "them": true, "see": true, "other": true,
	"than": true, "then": true, "now": true, "look": true, "only": true, "come": true,
	"its": true, "over": true, "think": true, "also": true, "back": true, "after": true,
	"use": true, "two": true, "how": true, "our": true, "work": true, "first": true,
	"well": true, "way": true, "even": true, "new": true, "want": true, "because": true,
	"any": true, "these": true, "give": true, "day": true, "most": true, "us": true,
}

// extractMetadata computes the spec's per-content metadata: counts,
// the coarse language heuristic, top keywords, and regex-extracted
// entities (emails, URLs, dates, numbers).
func extractMetadata(text string) models.ContentMetadata {
	words := strings.Fields(text)
	sentences := splitNonEmpty(sentenceSplitRegex.Split(text, -1))
	paragraphs := splitNonEmpty(paragraphSplitRegex.Split(text, -1))

	return models.ContentMetadata{
		WordCount:      len(words),
		CharCount:      len(text),
		SentenceCount:  len(sentences),
		ParagraphCount: len(paragraphs),
		Language:       detectLanguage(words),
		Keywords:       topKeywords(words),
		Emails:         limitMatches(emailRegex.FindAllString(text, -1)),
		URLs:           limitMatches(urlRegex.FindAllString(text, -1)),
		Dates:          limitMatches(append(dateDMYRegex.FindAllString(text, -1), dateISORegex.FindAllString(text, -1)...)),
		Numbers:        limitMatches(numberRegex.FindAllString(text, -1)),
	}
}

func splitNonEmpty(parts []string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

// detectLanguage ratios the first languageSampleTokens tokens against
// commonEnglishWords: "en" if the match ratio exceeds
// languageEnglishRatio, else "unknown".
func detectLanguage(words []string) string {
	sample := words
	if len(sample) > languageSampleTokens {
		sample = sample[:languageSampleTokens]
	}
	if len(sample) == 0 {
		return "unknown"
	}

	matches := 0
	for _, w := range sample {
		if commonEnglishWords[strings.ToLower(strings.Trim(w, ".,!?;:\"'()"))] {
			matches++
		}
	}

	ratio := float64(matches) / float64(len(sample))
	if ratio > languageEnglishRatio {
		return "en"
	}
	return "unknown"
}

// topKeywords returns the most frequent tokens longer than
// keywordMinLen characters, ordered by descending frequency.
func topKeywords(words []string) []string {
	counts := make(map[string]int)
	order := make([]string, 0)
	for _, w := range words {
		cleaned := strings.ToLower(strings.Trim(w, ".,!?;:\"'()"))
		if len(cleaned) <= keywordMinLen {
			continue
		}
		if counts[cleaned] == 0 {
			order = append(order, cleaned)
		}
		counts[cleaned]++
	}

	type kv struct {
		word  string
		count int
	}
	ranked := make([]kv, 0, len(order))
	for _, w := range order {
		ranked = append(ranked, kv{w, counts[w]})
	}
	for i := 1; i < len(ranked); i++ {
		for j := i; j > 0 && ranked[j].count > ranked[j-1].count; j-- {
			ranked[j], ranked[j-1] = ranked[j-1], ranked[j]
		}
	}

	limit := topKeywordCount
	if len(ranked) < limit {
		limit = len(ranked)
	}
	out := make([]string, limit)
	for i := 0; i < limit; i++ {
		out[i] = ranked[i].word
	}
	return out
}

func limitMatches(matches []string) []string {
	if len(matches) > maxEntityMatches {
		return matches[:maxEntityMatches]
	}
	return matches
}
