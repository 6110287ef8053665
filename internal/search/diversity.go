package search

import "github.com/NaggiDev/practical-rag-sub000/internal/models"

// diversityRerank greedily selects topK hits from ranked (already
// sorted by FinalScore descending): rank-1 is always taken; each
// subsequent candidate is accepted only if no already-selected hit
// shares both its SourceID and its Category. Once topK is
// filled, or the diverse candidate pool is exhausted, remaining slots
// are backfilled from the leftover candidates in score order.
func diversityRerank(ranked []models.SearchHit, topK int) []models.SearchHit {
	if topK <= 0 || topK > len(ranked) {
		topK = len(ranked)
	}
	if len(ranked) == 0 {
		return ranked
	}

	selected := make([]models.SearchHit, 0, topK)
	used := make(map[int]bool, len(ranked))

	selected = append(selected, ranked[0])
	used[0] = true

	for i := 1; i < len(ranked) && len(selected) < topK; i++ {
		if used[i] {
			continue
		}
		if isDiverse(ranked[i], selected) {
			selected = append(selected, ranked[i])
			used[i] = true
		}
	}

	for i := 0; i < len(ranked) && len(selected) < topK; i++ {
		if used[i] {
			continue
		}
		selected = append(selected, ranked[i])
		used[i] = true
	}

	return selected
}

func isDiverse(candidate models.SearchHit, selected []models.SearchHit) bool {
	for _, s := range selected {
		if candidate.SourceID == s.SourceID && candidate.Category == s.Category {
			return false
		}
	}
	return true
}
