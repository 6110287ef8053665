package indexer

import "testing"

func TestContentHash_StableAndSensitive(t *testing.T) {
	a := contentHash("hello world")
	b := contentHash("hello world")
	c := contentHash("hello World")

	// GOOD: identical text hashes identically.
	if a != b {
		t.Fatalf("expected stable hash, got %d != %d", a, b)
	}
	// EDGE CASE: a single changed byte changes the hash.
	if a == c {
		t.Fatalf("expected different hash for different text")
	}
}

func TestExtractMetadata_Counts(t *testing.T) {
	text := "The quick brown fox jumps. It runs fast!\n\nA new paragraph starts here."
	meta := extractMetadata(text)

	if meta.WordCount == 0 {
		t.Fatalf("expected non-zero word count")
	}
	if meta.SentenceCount != 3 {
		t.Fatalf("expected 3 sentences, got %d", meta.SentenceCount)
	}
	if meta.ParagraphCount != 2 {
		t.Fatalf("expected 2 paragraphs, got %d", meta.ParagraphCount)
	}
	if meta.Language != "en" {
		t.Fatalf("expected en, got %s", meta.Language)
	}
}

func TestExtractMetadata_Entities(t *testing.T) {
	text := "Contact us at admin@example.com or visit https://example.com on 2026-07-29 or 29/07/2026, order 42 units."
	meta := extractMetadata(text)

	if len(meta.Emails) != 1 || meta.Emails[0] != "admin@example.com" {
		t.Fatalf("expected 1 email match, got %v", meta.Emails)
	}
	if len(meta.URLs) != 1 {
		t.Fatalf("expected 1 url match, got %v", meta.URLs)
	}
	if len(meta.Dates) != 2 {
		t.Fatalf("expected 2 date matches (iso + dmy), got %v", meta.Dates)
	}
	if len(meta.Numbers) == 0 {
		t.Fatalf("expected at least one number match")
	}
}

// EDGE CASE: short/unrecognizable text falls back to "unknown" language.
func TestExtractMetadata_UnknownLanguage(t *testing.T) {
	meta := extractMetadata("Xyzzy plugh qux frob wibble zzyx.")
	if meta.Language != "unknown" {
		t.Fatalf("expected unknown language, got %s", meta.Language)
	}
}

func TestTopKeywords_RanksByFrequency(t *testing.T) {
	words := []string{"golang", "golang", "channel", "golang", "mutex", "channel"}
	keywords := topKeywords(words)
	if len(keywords) == 0 || keywords[0] != "golang" {
		t.Fatalf("expected golang ranked first, got %v", keywords)
	}
}

// EDGE CASE: entity matches beyond the cap are truncated.
func TestLimitMatches_Caps(t *testing.T) {
	matches := make([]string, 25)
	for i := range matches {
		matches[i] = "x"
	}
	limited := limitMatches(matches)
	if len(limited) != maxEntityMatches {
		t.Fatalf("expected %d matches, got %d", maxEntityMatches, len(limited))
	}
}
