package search

import (
	"strings"
	"time"

	"github.com/NaggiDev/practical-rag-sub000/internal/models"
	"github.com/NaggiDev/practical-rag-sub000/internal/vectorstore"
)

// Metadata keys every VectorStore adapter is expected to echo back on a
// Match so the search engine can reconstitute a SearchHit without a
// second round-trip to the content store.
const (
	metaContentID = "contentId"
	metaSourceID  = "sourceId"
	metaTitle     = "title"
	metaText      = "text"
	metaCategory  = "category"
	metaTags      = "tags"
	metaURL       = "url"
	metaCreated   = "createdAt"
	metaModified  = "modifiedAt"
)

// hitFromMatch reconstitutes a models.SearchHit from a VectorStore
// Match, assigning the semantic ranking factor from the match's
// similarity score.
func hitFromMatch(m vectorstore.Match) models.SearchHit {
	meta := m.Metadata
	hit := models.SearchHit{
		ID:          m.ID,
		ContentID:   meta[metaContentID],
		SourceID:    meta[metaSourceID],
		Title:       meta[metaTitle],
		Text:        meta[metaText],
		Category:    meta[metaCategory],
		URL:         meta[metaURL],
		Metadata:    meta,
		VectorScore: m.Score,
	}
	if hit.ContentID == "" {
		hit.ContentID = m.ID
	}
	if tags := meta[metaTags]; tags != "" {
		hit.Tags = strings.Split(tags, ",")
	}
	if ts, err := time.Parse(time.RFC3339, meta[metaCreated]); err == nil {
		hit.CreatedAt = ts
	}
	if ts, err := time.Parse(time.RFC3339, meta[metaModified]); err == nil {
		hit.ModifiedAt = ts
	}
	hit.RankingFactors.Semantic = m.Score
	hit.FinalScore = m.Score
	return hit
}
