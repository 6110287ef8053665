package indexer

// contentHash computes a 32-bit polynomial rolling hash over text, used
// as a cheap idempotence check: if a content item's text hash matches
// the one stored for its id, indexing is skipped entirely.
func contentHash(text string) uint32 {
	const prime uint32 = 31
	var h uint32
	for i := 0; i < len(text); i++ {
		h = h*prime + uint32(text[i])
	}
	return h
}
