package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/NaggiDev/practical-rag-sub000/internal/models"
)

func TestMetadataBoost(t *testing.T) {
	hit := models.SearchHit{Title: "Go Concurrency Guide", Category: "backend", Tags: []string{"golang", "concurrency"}}

	// ===== GOOD CASES =====
	assert.InDelta(t, 0.3, metadataBoost(hit, "concurrency guide"), 1e-9)
	assert.InDelta(t, 0.2, metadataBoost(hit, "golang"), 1e-9) // title miss, tag hit

	// ===== EDGE CASES =====
	assert.Zero(t, metadataBoost(hit, ""))
	assert.Zero(t, metadataBoost(hit, "no such term anywhere"))
}

func TestRecencyBoost(t *testing.T) {
	now := time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC)

	// ===== GOOD CASES =====
	fresh := models.SearchHit{CreatedAt: now}
	assert.InDelta(t, 0.2, recencyBoost(fresh, now), 1e-9)

	half := models.SearchHit{CreatedAt: now.Add(-15 * 24 * time.Hour)}
	assert.InDelta(t, 0.1, recencyBoost(half, now), 1e-9)

	// ===== EDGE CASES =====
	old := models.SearchHit{CreatedAt: now.Add(-31 * 24 * time.Hour)}
	assert.Zero(t, recencyBoost(old, now))

	noTimestamp := models.SearchHit{}
	assert.Zero(t, recencyBoost(noTimestamp, now))

	modifiedWins := models.SearchHit{CreatedAt: now.Add(-100 * 24 * time.Hour), ModifiedAt: now}
	assert.InDelta(t, 0.2, recencyBoost(modifiedWins, now), 1e-9)
}

func TestFuseHits(t *testing.T) {
	vectorHits := []models.SearchHit{
		{ID: "a", VectorScore: 0.8},
		{ID: "b", VectorScore: 0.5},
	}
	keywordHits := []models.SearchHit{
		{ID: "a", KeywordScore: 0.4},
		{ID: "c", KeywordScore: 0.6},
	}

	// ===== GOOD CASES =====
	fused := fuseHits(vectorHits, keywordHits, 0.7, 0.3)
	byID := map[string]models.SearchHit{}
	for _, h := range fused {
		byID[h.ID] = h
	}
	assert.InDelta(t, 0.8*0.7+0.4*0.3, byID["a"].FinalScore, 1e-9)
	assert.InDelta(t, 0.5*0.7, byID["b"].FinalScore, 1e-9)
	assert.InDelta(t, 0.6*0.3, byID["c"].FinalScore, 1e-9)

	// ===== EDGE CASES =====
	assert.Empty(t, fuseHits(nil, nil, 0.7, 0.3))
}
