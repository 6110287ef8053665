package search

import (
	"strings"
	"time"

	"github.com/NaggiDev/practical-rag-sub000/internal/models"
)

const (
	titleBoost        = 0.3
	categoryTagBoost  = 0.2
	metadataBoostCap  = 0.5
	metadataWeight    = 0.10
	recencyWeight     = 0.05
	recencyWindowDays = 30
	maxRecencyBoost   = 0.2
)

// metadataBoost returns the raw (uncapped-weighted) metadata boost for
// hit given the original query text: +0.3 if the query appears in the
// title, +0.2 if it appears in the category or any tag, capped at 0.5.
func metadataBoost(hit models.SearchHit, queryText string) float64 {
	q := strings.ToLower(strings.TrimSpace(queryText))
	if q == "" {
		return 0
	}

	var boost float64
	if strings.Contains(strings.ToLower(hit.Title), q) {
		boost += titleBoost
	}

	inCategory := strings.Contains(strings.ToLower(hit.Category), q)
	inTag := false
	for _, t := range hit.Tags {
		if strings.Contains(strings.ToLower(t), q) {
			inTag = true
			break
		}
	}
	if inCategory || inTag {
		boost += categoryTagBoost
	}

	if boost > metadataBoostCap {
		boost = metadataBoostCap
	}
	return boost
}

// recencyBoost scores a hit's freshness using modifiedAt if set,
// otherwise createdAt: 0 once the item is more than recencyWindowDays
// old, else a linear decay from maxRecencyBoost at age 0 toward 0.
func recencyBoost(hit models.SearchHit, now time.Time) float64 {
	ts := hit.ModifiedAt
	if ts.IsZero() {
		ts = hit.CreatedAt
	}
	if ts.IsZero() {
		return 0
	}

	daysOld := now.Sub(ts).Hours() / 24
	if daysOld > recencyWindowDays {
		return 0
	}
	if daysOld < 0 {
		daysOld = 0
	}
	return (recencyWindowDays - daysOld) / recencyWindowDays * maxRecencyBoost
}

// applyPostRankingFactors mutates hit's RankingFactors.Metadata/Recency
// and recomputes FinalScore as semantic/fused base plus the weighted
// contribution of each boost, clamped to [0,1].
func applyPostRankingFactors(hit *models.SearchHit, queryText string, now time.Time) {
	mBoost := metadataBoost(*hit, queryText)
	rBoost := recencyBoost(*hit, now)

	hit.RankingFactors.Metadata = mBoost
	hit.RankingFactors.Recency = rBoost

	hit.FinalScore += mBoost * metadataWeight
	hit.FinalScore += rBoost * recencyWeight

	if hit.FinalScore > 1 {
		hit.FinalScore = 1
	}
	if hit.FinalScore < 0 {
		hit.FinalScore = 0
	}
}

// fuseHits merges vector and keyword result sets over the union of
// their ids: final = vectorScore*vectorWeight + keywordScore*keywordWeight,
// using 0 for whichever side didn't return the id.
func fuseHits(vectorHits, keywordHits []models.SearchHit, vectorWeight, keywordWeight float64) []models.SearchHit {
	byID := make(map[string]*models.SearchHit, len(vectorHits)+len(keywordHits))
	order := make([]string, 0, len(vectorHits)+len(keywordHits))

	for _, h := range vectorHits {
		h := h
		byID[h.ID] = &h
		order = append(order, h.ID)
	}
	for _, h := range keywordHits {
		if existing, ok := byID[h.ID]; ok {
			existing.KeywordScore = h.KeywordScore
			existing.RankingFactors.Keyword = h.RankingFactors.Keyword
			continue
		}
		h := h
		byID[h.ID] = &h
		order = append(order, h.ID)
	}

	fused := make([]models.SearchHit, 0, len(order))
	for _, id := range order {
		h := byID[id]
		h.FinalScore = h.VectorScore*vectorWeight + h.KeywordScore*keywordWeight
		fused = append(fused, *h)
	}
	return fused
}
