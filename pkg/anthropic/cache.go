package anthropic

// CachedSystem wraps a static system prompt in a single block carrying an
// ephemeral cache breakpoint. Every profile in a run shares the same system
// prompt, so after the first request the prefix is read from cache.
func CachedSystem(text string) []SystemBlock {
	return []SystemBlock{
		{
			Text:         text,
			CacheControl: &CacheControl{TTL: "5m"},
		},
	}
}
