package query

import "github.com/NaggiDev/practical-rag-sub000/internal/models"

const excerptLen = 280

func excerpt(text string) string {
	if len(text) <= excerptLen {
		return text
	}
	return text[:excerptLen] + "..."
}

// topSourceRefs converts up to 10 ranked hits into SourceRefs for the
// QueryResult, in rank order.
func topSourceRefs(hits []models.SearchHit) []models.SourceRef {
	n := len(hits)
	if n > 10 {
		n = 10
	}
	refs := make([]models.SourceRef, n)
	for i := 0; i < n; i++ {
		h := hits[i]
		refs[i] = models.SourceRef{
			ContentID:  h.ContentID,
			SourceID:   h.SourceID,
			Title:      h.Title,
			Snippet:    excerpt(h.Text),
			URL:        h.URL,
			Confidence: h.FinalScore,
		}
	}
	return refs
}

// overallConfidence is a position-weighted mean of the top-5 scores,
// weight 1/(1+i), per spec.md §4.1 step 7.
func overallConfidence(hits []models.SearchHit) float64 {
	n := len(hits)
	if n > 5 {
		n = 5
	}
	if n == 0 {
		return 0
	}
	var weightedSum, weightSum float64
	for i := 0; i < n; i++ {
		w := 1.0 / float64(1+i)
		weightedSum += hits[i].FinalScore * w
		weightSum += w
	}
	if weightSum == 0 {
		return 0
	}
	return weightedSum / weightSum
}
