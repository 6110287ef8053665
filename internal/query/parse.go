package query

import (
	"regexp"
	"strings"

	"github.com/NaggiDev/practical-rag-sub000/internal/models"
)

var (
	quotedPhraseRegex = regexp.MustCompile(`"([^"]+)"`)
	capitalizedRegex  = regexp.MustCompile(`\b[A-Z][a-zA-Z]{2,}\b`)
	dateFilterRegex   = regexp.MustCompile(`(?i)\b(after|before|since|until)\s+(\S+)`)
	typeFilterRegex   = regexp.MustCompile(`(?i)\btype:(\S+)`)
	nonNormalizedChar = regexp.MustCompile(`[^a-z0-9\-_. \s]`)
	whitespaceRegex   = regexp.MustCompile(`\s+`)

	questionWords = map[string]bool{
		"how": true, "why": true, "what": true, "when": true, "where": true,
		"which": true, "who": true, "whom": true, "is": true, "are": true,
		"do": true, "does": true, "did": true, "can": true, "could": true,
		"should": true, "would": true,
	}
)

// parse normalizes raw query text and extracts entities, filters and
// the coarse intent, per the spec's parse stage.
func parse(q models.Query) models.ParsedQuery {
	text := q.Text
	processed := normalizeText(text)

	return models.ParsedQuery{
		OriginalText:  text,
		ProcessedText: processed,
		Intent:        classifyIntent(text),
		Entities:      extractEntities(text),
		Filters:       extractFilters(text),
	}
}

// normalizeText lowercases, replaces punctuation (keeping - _ . and
// whitespace) with a space and collapses whitespace, so that a
// separator like "type:pdf" normalizes to "type pdf" rather than
// fusing into "typepdf".
func normalizeText(text string) string {
	lower := strings.ToLower(text)
	stripped := nonNormalizedChar.ReplaceAllString(lower, " ")
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(stripped, " "))
}

// extractEntities collects quoted phrases and capitalized non-question
// words, deduplicated in order of first appearance.
func extractEntities(text string) []string {
	seen := make(map[string]bool)
	var entities []string

	for _, m := range quotedPhraseRegex.FindAllStringSubmatch(text, -1) {
		phrase := m[1]
		if !seen[phrase] {
			seen[phrase] = true
			entities = append(entities, phrase)
		}
	}

	for _, word := range capitalizedRegex.FindAllString(text, -1) {
		if questionWords[strings.ToLower(word)] {
			continue
		}
		if !seen[word] {
			seen[word] = true
			entities = append(entities, word)
		}
	}

	return entities
}

// dateFilterOperator maps each temporal keyword to the comparison
// operator it expresses: after/since are lower bounds, before/until are
// upper bounds.
var dateFilterOperator = map[string]string{
	"after":  "gte",
	"since":  "gte",
	"before": "lte",
	"until":  "lte",
}

// extractFilters finds date-relative filters (after|before|since|until
// <date>) and type:<value> filters, returning each as a structured
// {field, operator, value} filter.
func extractFilters(text string) []models.QueryFilter {
	var filters []models.QueryFilter

	for _, m := range dateFilterRegex.FindAllStringSubmatch(text, -1) {
		keyword := strings.ToLower(m[1])
		filters = append(filters, models.QueryFilter{
			Field:    "date",
			Operator: dateFilterOperator[keyword],
			Value:    m[2],
		})
	}
	for _, m := range typeFilterRegex.FindAllStringSubmatch(text, -1) {
		filters = append(filters, models.QueryFilter{Field: "type", Operator: "eq", Value: m[1]})
	}

	return filters
}

// classifyIntent buckets a query into question or general: a leading
// question word or trailing "?" marks a question; every other query,
// including multi-term ones, is general. No search intent is produced.
func classifyIntent(text string) models.QueryIntent {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return models.IntentGeneral
	}
	if strings.HasSuffix(trimmed, "?") {
		return models.IntentQuestion
	}
	firstWord := strings.ToLower(strings.Fields(trimmed)[0])
	if questionWords[firstWord] {
		return models.IntentQuestion
	}

	if len(strings.Fields(trimmed)) >= 2 {
		return models.IntentGeneral
	}
	return models.IntentGeneral
}
