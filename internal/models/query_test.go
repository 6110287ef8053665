package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestQuery_Fingerprint(t *testing.T) {
	// ===== GOOD CASES =====
	t.Run("identical queries collide", func(t *testing.T) {
		a := Query{Text: "what is AI", Context: map[string]string{"lang": "en"}, Filters: map[string]string{"type": "pdf"}}
		b := Query{Text: "what is AI", Context: map[string]string{"lang": "en"}, Filters: map[string]string{"type": "pdf"}}
		assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	})

	t.Run("map iteration order does not affect fingerprint", func(t *testing.T) {
		a := Query{Text: "x", Context: map[string]string{"a": "1", "b": "2"}}
		b := Query{Text: "x", Context: map[string]string{"b": "2", "a": "1"}}
		assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	})

	t.Run("leading/trailing whitespace is ignored", func(t *testing.T) {
		a := Query{Text: "  what is AI  "}
		b := Query{Text: "what is AI"}
		assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	})

	// ===== EDGE CASES =====
	t.Run("different text produces a different fingerprint", func(t *testing.T) {
		a := Query{Text: "what is AI"}
		b := Query{Text: "what is ML"}
		assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
	})

	t.Run("different filters produce a different fingerprint", func(t *testing.T) {
		a := Query{Text: "x", Filters: map[string]string{"type": "pdf"}}
		b := Query{Text: "x", Filters: map[string]string{"type": "doc"}}
		assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
	})

	t.Run("nil and empty maps produce the same fingerprint", func(t *testing.T) {
		a := Query{Text: "x", Context: nil}
		b := Query{Text: "x", Context: map[string]string{}}
		assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	})
}

func TestApology(t *testing.T) {
	r := Apology("q-1", "no sources matched", 42*time.Millisecond)

	assert.Equal(t, "q-1", r.QueryID)
	assert.Zero(t, r.Confidence)
	assert.Empty(t, r.Sources)
	assert.NotNil(t, r.Sources)
	assert.False(t, r.CacheHit)
	assert.Equal(t, int64(42), r.DurationMs)
	assert.NotEmpty(t, r.Response)
}
