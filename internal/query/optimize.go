package query

import (
	"strings"

	"github.com/NaggiDev/practical-rag-sub000/internal/models"
)

// synonyms is the static lookup the optimize stage consults for
// extracted entities. A small, fixed table is enough: the spec treats
// synonym expansion as a coarse recall booster, not a thesaurus.
var synonyms = map[string]string{
	"ai":      "artificial intelligence",
	"ml":      "machine learning",
	"nlp":     "natural language processing",
	"db":      "database",
	"api":     "application programming interface",
	"ui":      "user interface",
	"ux":      "user experience",
	"k8s":     "kubernetes",
	"llm":     "large language model",
	"auth":    "authentication",
	"config":  "configuration",
	"infra":   "infrastructure",
	"repo":    "repository",
}

// optimize implements the spec's optimize stage: term expansion via
// suffix stemming, a static synonym lookup over the parsed entities, and
// a boost map derived from the request context.
func optimize(parsed models.ParsedQuery, ctx map[string]string) models.QueryOptimization {
	return models.QueryOptimization{
		ExpandedTerms: expandTerms(strings.Fields(parsed.ProcessedText)),
		SynonymMap:    lookupSynonyms(parsed.Entities),
		Filters:       parsed.Filters,
		BoostMap:      deriveBoosts(ctx),
	}
}

// expandTerms adds a stemmed variant for -ing/-ed/plural -s suffixes
// when the token is long enough that stripping the suffix still leaves
// a meaningful root (len > 3), deduplicating as it goes and preserving
// first-seen order.
func expandTerms(tokens []string) []string {
	seen := make(map[string]bool, len(tokens)*2)
	out := make([]string, 0, len(tokens)*2)

	add := func(t string) {
		if t == "" || seen[t] {
			return
		}
		seen[t] = true
		out = append(out, t)
	}

	for _, t := range tokens {
		add(t)
		if len(t) <= 3 {
			continue
		}
		switch {
		case strings.HasSuffix(t, "ing"):
			add(strings.TrimSuffix(t, "ing"))
		case strings.HasSuffix(t, "ed"):
			add(strings.TrimSuffix(t, "ed"))
		case strings.HasSuffix(t, "s"):
			add(strings.TrimSuffix(t, "s"))
		}
	}
	return out
}

// lookupSynonyms maps each extracted entity to its synonym-table
// expansion, case-insensitively, when one exists.
func lookupSynonyms(entities []string) map[string]string {
	out := make(map[string]string)
	for _, e := range entities {
		if syn, ok := synonyms[strings.ToLower(e)]; ok {
			out[e] = syn
		}
	}
	return out
}

// deriveBoosts implements the spec's two context-driven boosts: a
// "domain" key in context boosts the domain field 1.5x, and a
// recency=="recent" hint boosts recency 1.2x.
func deriveBoosts(ctx map[string]string) map[string]float64 {
	boosts := make(map[string]float64)
	if ctx == nil {
		return boosts
	}
	if _, ok := ctx["domain"]; ok {
		boosts["domain"] = 1.5
	}
	if ctx["recency"] == "recent" {
		boosts["recent"] = 1.2
	}
	return boosts
}
