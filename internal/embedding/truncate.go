package embedding

import (
	"github.com/rs/zerolog/log"
	"github.com/tiktoken-go/tokenizer"
)

// charsPerToken is the spec-mandated approximation used to decide where
// to truncate an over-long input before sending it to a provider: four
// characters per token, no real tokenizing involved.
const charsPerToken = 4

// truncate cuts text down to at most maxTokens*charsPerToken runes,
// the exact algorithm spec.md requires for EmbeddingProvider input
// truncation.
func truncate(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return text
	}
	limit := maxTokens * charsPerToken
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}

// estimateTokens reports a real tokenizer's count for text, used purely
// for informational logging/metrics — the truncation decision above
// never consults this, since the spec fixes the 4-chars-per-token
// approximation as the authoritative rule.
func estimateTokens(text string) int {
	enc, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		log.Debug().Err(err).Msg("embedding: tiktoken unavailable for token estimate")
		return 0
	}
	ids, _, err := enc.Encode(text)
	if err != nil {
		return 0
	}
	return len(ids)
}
