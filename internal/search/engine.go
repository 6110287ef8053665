package search

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/NaggiDev/practical-rag-sub000/internal/models"
)

// SemanticSearch embeds queryText, runs a VectorStore k-NN search, and
// applies post-ranking factors (metadata/recency boost) on the raw
// semantic results.
func (e *Engine) SemanticSearch(ctx context.Context, queryText string, opts Options) ([]models.SearchHit, error) {
	vec, err := e.embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("search: embed query: %w", err)
	}

	limit := opts.TopK
	if limit <= 0 {
		limit = 20
	}

	matches, err := e.store.Search(ctx, vec, limit, opts.Filter)
	if err != nil {
		return nil, fmt.Errorf("search: vector store search: %w", err)
	}

	hits := make([]models.SearchHit, 0, len(matches))
	now := time.Now()
	for _, m := range matches {
		hit := hitFromMatch(m)
		applyPostRankingFactors(&hit, queryText, now)
		hits = append(hits, hit)
	}

	sortByFinalScore(hits)
	return hits, nil
}

// HybridSearch fuses a semantic path with a keyword path computed
// directly over the retrieved candidates' metadata, then optionally
// diversity-reranks the fused list.
func (e *Engine) HybridSearch(ctx context.Context, queryText string, opts Options) ([]models.SearchHit, error) {
	vectorWeight := opts.VectorWeight
	keywordWeight := opts.KeywordWeight
	if vectorWeight == 0 && keywordWeight == 0 {
		vectorWeight, keywordWeight = 0.7, 0.3
	}

	limit := opts.TopK
	if limit <= 0 {
		limit = 20
	}

	vec, err := e.embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("search: embed query: %w", err)
	}

	matches, err := e.store.Search(ctx, vec, limit, opts.Filter)
	if err != nil {
		return nil, fmt.Errorf("search: vector store search: %w", err)
	}

	vectorHits := make([]models.SearchHit, 0, len(matches))
	for _, m := range matches {
		vectorHits = append(vectorHits, hitFromMatch(m))
	}

	keywords := tokenizeKeywords(queryText)
	keywordHits := make([]models.SearchHit, 0, len(vectorHits))
	for _, h := range vectorHits {
		kwScore := scoreKeyword(h, keywords, opts.KeywordBoost)
		if kwScore == 0 {
			continue
		}
		h.KeywordScore = kwScore
		h.RankingFactors.Keyword = kwScore
		keywordHits = append(keywordHits, h)
	}

	fused := fuseHits(vectorHits, keywordHits, vectorWeight, keywordWeight)

	now := time.Now()
	if !opts.RerankResults {
		for i := range fused {
			applyPostRankingFactors(&fused[i], queryText, now)
		}
	}

	sortByFinalScore(fused)

	if opts.RerankResults {
		log.Debug().Int("candidates", len(fused)).Msg("search: diversity re-ranking hybrid results")
		return diversityRerank(fused, opts.TopK), nil
	}

	if opts.TopK > 0 && len(fused) > opts.TopK {
		fused = fused[:opts.TopK]
	}
	return fused, nil
}

func sortByFinalScore(hits []models.SearchHit) {
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].FinalScore > hits[j].FinalScore
	})
}
