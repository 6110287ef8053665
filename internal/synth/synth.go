// Package synth implements the Synthesizer collaborator from spec.md
// §6: turning a query and its ranked hits into response text. The core
// ships a deterministic default so QueryProcessor never depends on a
// live LLM to satisfy its own contract.
package synth

import (
	"context"
	"fmt"

	"github.com/NaggiDev/practical-rag-sub000/internal/models"
)

// Synthesizer is the pluggable response-synthesis collaborator.
type Synthesizer interface {
	Synthesize(ctx context.Context, queryText string, hits []models.SearchHit) (string, error)
}

// Template is the default Synthesizer: a no-results apology, a
// single-hit excerpt prefix, or a multi-hit summary template
// referencing the top excerpt and hit count.
type Template struct{}

// Default returns the deterministic template synthesizer used when no
// external synthesis collaborator is wired in.
func Default() Synthesizer { return Template{} }

func (Template) Synthesize(_ context.Context, _ string, hits []models.SearchHit) (string, error) {
	switch len(hits) {
	case 0:
		return "I couldn't find anything relevant to that query.", nil
	case 1:
		return fmt.Sprintf("Based on %q: %s", hits[0].Title, excerpt(hits[0].Text)), nil
	default:
		return fmt.Sprintf("Found %d relevant results. Top match from %q: %s", len(hits), hits[0].Title, excerpt(hits[0].Text)), nil
	}
}

const excerptLen = 280

func excerpt(text string) string {
	if len(text) <= excerptLen {
		return text
	}
	return text[:excerptLen] + "..."
}
