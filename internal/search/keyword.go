package search

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/NaggiDev/practical-rag-sub000/internal/config"
	"github.com/NaggiDev/practical-rag-sub000/internal/models"
)

const minKeywordLen = 3

var nonWordRegex = regexp.MustCompile(`[^\w]+`)

// tokenizeKeywords splits queryText into lowercase word tokens, strips
// non-word characters, and drops tokens shorter than minKeywordLen or
// present in the fixed stop-word list.
func tokenizeKeywords(queryText string) []string {
	lower := strings.ToLower(queryText)
	fields := strings.Fields(lower)

	stopWords := config.StopWords
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		cleaned := nonWordRegex.ReplaceAllString(f, "")
		if len(cleaned) < minKeywordLen {
			continue
		}
		if stopWords[cleaned] {
			continue
		}
		tokens = append(tokens, cleaned)
	}
	return tokens
}

// scoreKeyword sums the occurrences of each keyword in the stringified
// metadata payload of hit, weighted by an optional per-keyword boost,
// and normalizes into [0,1].
func scoreKeyword(hit models.SearchHit, keywords []string, boost map[string]float64) float64 {
	if len(keywords) == 0 {
		return 0
	}
	payload := strings.ToLower(stringifyMetadata(hit))

	var sum float64
	for _, kw := range keywords {
		count := float64(strings.Count(payload, kw))
		if count == 0 {
			continue
		}
		multiplier := 1.0
		if b, ok := boost[kw]; ok {
			multiplier = b
		}
		sum += count * multiplier
	}

	normalized := sum / (float64(len(keywords)) * 10)
	if normalized > 1 {
		normalized = 1
	}
	return normalized
}

// stringifyMetadata flattens a hit's title, text, category, tags and
// metadata map into one searchable string, matching the "stringified
// form" the spec asks the keyword scorer to scan.
func stringifyMetadata(hit models.SearchHit) string {
	var b strings.Builder
	b.WriteString(hit.Title)
	b.WriteByte(' ')
	b.WriteString(hit.Text)
	b.WriteByte(' ')
	b.WriteString(hit.Category)
	b.WriteByte(' ')
	b.WriteString(strings.Join(hit.Tags, " "))
	for k, v := range hit.Metadata {
		fmt.Fprintf(&b, " %s %s", k, v)
	}
	return b.String()
}
